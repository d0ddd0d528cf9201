package watcher

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prism-ops/llm-resilience/internal/sample"
)

type ingestResponse struct {
	Accepted   int `json:"accepted"`
	WindowSize int `json:"windowSize"`
}

type healthMetrics struct {
	P95MS       float64 `json:"p95_ms"`
	ErrorRate   float64 `json:"error_rate"`
	TimeoutRate float64 `json:"timeout_rate"`
	SampleCount int     `json:"sample_count"`
	WindowMS    int64   `json:"window_ms"`
}

type healthResponse struct {
	State   State         `json:"state"`
	Metrics healthMetrics `json:"metrics"`
	Reason  string        `json:"reason"`
	TS      int64         `json:"ts"`
}

// Routes builds the watcher's HTTP surface: POST /samples, GET /healthz and
// GET /metrics.
func (w *Watcher) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /samples", w.handleSamples)
	mux.HandleFunc("GET /healthz", w.handleHealthz)
	mux.Handle("GET /metrics", w.canary.Handler())
	return mux
}

func (w *Watcher) handleSamples(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": sample.ErrInvalidPayload.Error()})
		return
	}

	accepted, windowSize, err := w.Ingest(body)
	if err != nil {
		if !errors.Is(err, sample.ErrInvalidPayload) {
			w.logger.Error("Sample ingestion failed", slog.Any("err", err))
		}
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": sample.ErrInvalidPayload.Error()})
		return
	}

	w.logger.Debug("Ingested canary samples",
		slog.Int("accepted", accepted),
		slog.Int("window_size", windowSize))

	writeJSON(rw, http.StatusOK, ingestResponse{Accepted: accepted, WindowSize: windowSize})
}

func (w *Watcher) handleHealthz(rw http.ResponseWriter, r *http.Request) {
	now := w.clock.Now()
	c := w.Classify(now)

	status := http.StatusOK
	if c.State == StateRed {
		status = http.StatusServiceUnavailable
		w.logger.Warn("Upstream classified red",
			slog.String("reason", c.Reason),
			slog.Float64("error_rate", c.ErrorRate),
			slog.Float64("p95_ms", c.P95MS))
	}

	writeJSON(rw, status, healthResponse{
		State: c.State,
		Metrics: healthMetrics{
			P95MS:       c.P95MS,
			ErrorRate:   c.ErrorRate,
			TimeoutRate: c.TimeoutRate,
			SampleCount: c.SampleCount,
			WindowMS:    w.window.Span().Milliseconds(),
		},
		Reason: c.Reason,
		TS:     now.UnixMilli(),
	})
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body)
}
