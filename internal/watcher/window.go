package watcher

import (
	"time"

	"github.com/prism-ops/llm-resilience/internal/sample"
)

// Window holds the samples inside the trailing observation span. It is not
// safe for concurrent use; the owning Watcher serializes access.
type Window struct {
	span    time.Duration
	samples []sample.Sample
}

func NewWindow(span time.Duration) *Window {
	return &Window{span: span}
}

func (w *Window) Add(s sample.Sample) {
	w.samples = append(w.samples, s)
}

// Prune discards samples older than the span, measured from now. Pruning is
// lazy: it runs at every read rather than on a timer, so the retained set is
// always consistent with the moment of observation.
func (w *Window) Prune(now time.Time) {
	cutoff := now.UnixMilli() - w.span.Milliseconds()

	kept := w.samples[:0]
	for _, s := range w.samples {
		if s.Timestamp >= cutoff {
			kept = append(kept, s)
		}
	}
	w.samples = kept
}

func (w *Window) Len() int {
	return len(w.samples)
}

// Samples returns the retained samples. Callers must not mutate the result.
func (w *Window) Samples() []sample.Sample {
	return w.samples
}

func (w *Window) Span() time.Duration {
	return w.span
}
