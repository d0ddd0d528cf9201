package watcher

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prism-ops/llm-resilience/internal/clock"
	"github.com/prism-ops/llm-resilience/internal/metrics"
	"github.com/prism-ops/llm-resilience/internal/sample"
)

// State is the point-in-time health verdict.
type State string

const (
	StateGreen State = "green"
	StateAmber State = "amber"
	StateRed   State = "red"
)

const (
	ReasonHealthy          = "healthy"
	ReasonInsufficientData = "insufficient_data"
	ReasonApproachingLimit = "approaching_limit"
	ReasonSLOExceeded      = "slo_exceeded"
)

// Thresholds configure the SLO classification.
type Thresholds struct {
	P95SLOMS       float64
	ErrorRateSLO   float64
	ErrorRateAmber float64
	MinSampleCount int
}

// Classification is computed fresh from the window on every read, never
// cached.
type Classification struct {
	State       State   `json:"state"`
	P95MS       float64 `json:"p95_ms"`
	ErrorRate   float64 `json:"error_rate"`
	TimeoutRate float64 `json:"timeout_rate"`
	SampleCount int     `json:"sample_count"`
	Reason      string  `json:"reason"`
}

// Watcher aggregates canary samples in a sliding window and classifies
// upstream health against the configured SLO.
type Watcher struct {
	mutex      sync.Mutex
	window     *Window
	thresholds Thresholds
	clock      clock.Clock
	canary     *metrics.Canary
	logger     *slog.Logger
}

func New(windowSpan time.Duration, thresholds Thresholds, clk clock.Clock, canary *metrics.Canary, logger *slog.Logger) *Watcher {
	return &Watcher{
		window:     NewWindow(windowSpan),
		thresholds: thresholds,
		clock:      clk,
		canary:     canary,
		logger:     logger,
	}
}

// Ingest normalizes and stores a batch. Malformed elements are dropped
// silently; a body without a samples array fails with
// sample.ErrInvalidPayload and mutates nothing.
func (w *Watcher) Ingest(body []byte) (accepted int, windowSize int, err error) {
	raw, err := sample.ParseBatch(body)
	if err != nil {
		return 0, 0, err
	}

	now := w.clock.Now()
	samples := sample.NormalizeBatch(raw, now)

	w.mutex.Lock()
	defer w.mutex.Unlock()

	for _, s := range samples {
		w.canary.Observe(s)
		w.window.Add(s)
	}
	w.window.Prune(now)

	return len(samples), w.window.Len(), nil
}

// Classify prunes the window and computes the health verdict at now.
func (w *Watcher) Classify(now time.Time) Classification {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.window.Prune(now)
	samples := w.window.Samples()
	n := len(samples)

	if n == 0 {
		return Classification{State: StateAmber, Reason: ReasonInsufficientData}
	}

	latencies := make([]float64, n)
	var failed, timedOut int
	for i, s := range samples {
		latencies[i] = s.LatencyMS
		if !s.OK {
			failed++
		}
		if s.TimedOut {
			timedOut++
		}
	}
	sort.Float64s(latencies)

	// Thresholds compare against the exact rates; rounding is for the
	// reported values only, so a rate barely past a limit still counts.
	errorRate := float64(failed) / float64(n)
	timeoutRate := float64(timedOut) / float64(n)

	c := Classification{
		P95MS:       latencies[p95Index(n)],
		ErrorRate:   round4(errorRate),
		TimeoutRate: round4(timeoutRate),
		SampleCount: n,
	}

	switch {
	case n < w.thresholds.MinSampleCount:
		c.State = StateAmber
		c.Reason = ReasonInsufficientData
	case errorRate > w.thresholds.ErrorRateAmber || c.P95MS > 1.5*w.thresholds.P95SLOMS:
		c.State = StateRed
		c.Reason = ReasonSLOExceeded
	case errorRate > w.thresholds.ErrorRateSLO || c.P95MS > w.thresholds.P95SLOMS:
		c.State = StateAmber
		c.Reason = ReasonApproachingLimit
	default:
		c.State = StateGreen
		c.Reason = ReasonHealthy
	}

	return c
}

// WindowSpan returns the configured observation span.
func (w *Watcher) WindowSpan() time.Duration {
	return w.window.Span()
}

// p95Index is ceil(0.95*n)-1 clamped to [0, n-1].
func p95Index(n int) int {
	idx := int(math.Ceil(0.95*float64(n))) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
