package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/prism-ops/llm-resilience/internal/breaker"
)

// ReasonFetchFailed is fed to the breaker when the poll itself fails
// transport-wise or returns an undecodable body.
const ReasonFetchFailed = "health_fetch_failed"

type healthBody struct {
	State   string             `json:"state"`
	Reason  string             `json:"reason"`
	Metrics map[string]float64 `json:"metrics"`
}

// Poller periodically fetches the watcher's health classification and feeds
// the verdict into the breaker. A failed or unreadable poll counts as red;
// silence never masks an unhealthy upstream.
type Poller struct {
	client   *resty.Client
	endpoint string
	interval time.Duration
	breaker  *breaker.Breaker
	logger   *slog.Logger
}

func New(endpoint string, interval, timeout time.Duration, br *breaker.Breaker, logger *slog.Logger) *Poller {
	return &Poller{
		client:   resty.New().SetTimeout(timeout),
		endpoint: endpoint,
		interval: interval,
		breaker:  br,
		logger:   logger,
	}
}

// Start launches the poll loop. It stops when ctx is cancelled and must not
// keep the process alive on shutdown.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Health poller started",
		slog.String("endpoint", p.endpoint),
		slog.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Health poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll performs a single health fetch and applies the verdict.
func (p *Poller) Poll(ctx context.Context) {
	resp, err := p.client.R().SetContext(ctx).Get(p.endpoint)
	if err != nil {
		p.logger.Warn("Health poll failed", slog.Any("err", err))
		p.breaker.OnHealthPoll(breaker.HealthRed, ReasonFetchFailed, nil)
		return
	}

	var body healthBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		p.logger.Warn("Health poll returned undecodable body",
			slog.Int("status", resp.StatusCode()))
		p.breaker.OnHealthPoll(breaker.HealthRed, ReasonFetchFailed, nil)
		return
	}

	verdict := verdictFor(resp.StatusCode(), body.State)
	reason := body.Reason
	if reason == "" {
		reason = ReasonFetchFailed
	}

	p.breaker.OnHealthPoll(verdict, reason, body.Metrics)
}

// verdictFor folds the HTTP status and the reported state into one verdict.
// Any non-2xx answer, including the watcher's own 503-on-red, counts as red;
// an unknown state string is treated the same way.
func verdictFor(status int, state string) breaker.Health {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return breaker.HealthRed
	}

	switch breaker.Health(state) {
	case breaker.HealthGreen:
		return breaker.HealthGreen
	case breaker.HealthAmber:
		return breaker.HealthAmber
	default:
		return breaker.HealthRed
	}
}
