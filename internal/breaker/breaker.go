package breaker

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prism-ops/llm-resilience/internal/clock"
	"github.com/prism-ops/llm-resilience/internal/journal"
)

// Status is the breaker's routing state.
type Status int

const (
	StatusClosed Status = iota // primary takes all traffic
	StatusOpen                 // fallback takes all traffic
	StatusHalfOpen             // primary takes a probe fraction
)

func (s Status) String() string {
	switch s {
	case StatusClosed:
		return "closed"
	case StatusOpen:
		return "open"
	case StatusHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Health is a poll verdict fed into the breaker. Poll transport failures are
// reported as HealthRed by the caller.
type Health string

const (
	HealthGreen Health = "green"
	HealthAmber Health = "amber"
	HealthRed   Health = "red"
)

// Target is a routing decision.
type Target int

const (
	TargetPrimary Target = iota
	TargetFallback
)

func (t Target) String() string {
	if t == TargetFallback {
		return "fallback"
	}
	return "primary"
}

// ReasonLocalTrip marks an open caused by a failed primary-routed request
// rather than a health poll.
const ReasonLocalTrip = "primary_request_failed"

// Snapshot is the breaker state exposed on the gateway's /healthz.
type Snapshot struct {
	Status        string  `json:"status"`
	OpenedAt      int64   `json:"opened_at,omitempty"`
	HalfOpenRatio float64 `json:"half_open_ratio"`
	IncidentID    string  `json:"incident_id,omitempty"`
}

// Breaker is a three-state circuit breaker driven by two independent
// triggers: periodic health polls and the local outcome of primary-routed
// requests. All transitions run under one mutex, so they are strictly
// ordered by arrival.
type Breaker struct {
	mutex sync.Mutex

	status     Status
	openedAt   time.Time
	incidentID string
	successes  int // consecutive primary successes while recovering

	halfOpenRatio    float64
	successThreshold int

	clock  clock.Clock
	sink   journal.Sink
	logger *slog.Logger
	roll   func() float64 // uniform [0,1) source for the half-open coin flip
}

// New builds a breaker using the shared math/rand source for half-open
// routing.
func New(halfOpenRatio float64, successThreshold int, clk clock.Clock, sink journal.Sink, logger *slog.Logger) *Breaker {
	return NewWithRoll(halfOpenRatio, successThreshold, clk, sink, logger, rand.Float64)
}

// NewWithRoll injects the probability source so half-open routing is
// deterministic under test.
func NewWithRoll(halfOpenRatio float64, successThreshold int, clk clock.Clock, sink journal.Sink, logger *slog.Logger, roll func() float64) *Breaker {
	return &Breaker{
		status:           StatusClosed,
		halfOpenRatio:    halfOpenRatio,
		successThreshold: successThreshold,
		clock:            clk,
		sink:             sink,
		logger:           logger,
		roll:             roll,
	}
}

// OnHealthPoll applies one poll verdict. Reason and metrics come from the
// watcher's classification and are carried into the journal on trips; amber
// observed while closed is deliberately a no-op.
func (b *Breaker) OnHealthPoll(h Health, reason string, metrics map[string]float64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch h {
	case HealthRed:
		if b.status != StatusOpen {
			b.trip(reason, metrics)
		}
	case HealthAmber:
		if b.status == StatusOpen {
			b.status = StatusHalfOpen
			b.successes = 0
			b.logger.Info("Breaker half-open, probing primary",
				slog.String("incident_id", b.incidentID))
			b.journal(journal.EventHalfOpen, reason, nil, 0)
		}
	case HealthGreen:
		if b.status != StatusClosed {
			b.close(reason)
		}
	}
}

// OnPrimaryResult applies the outcome of a request actually routed to the
// primary backend, whether as normal closed traffic or as a half-open probe.
func (b *Breaker) OnPrimaryResult(ok bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch {
	case b.status == StatusOpen || b.status == StatusHalfOpen:
		if ok {
			b.successes++
			if b.successes >= b.successThreshold {
				// Enough live evidence; close now instead of waiting
				// for the next poll.
				b.close("half_open_success_threshold")
			}
			return
		}
		b.successes = 0
		b.status = StatusOpen
		if b.incidentID == "" {
			b.incidentID = uuid.NewString()
			b.openedAt = b.clock.Now()
		}
		b.logger.Warn("Primary probe failed, breaker reopened",
			slog.String("incident_id", b.incidentID))
		b.journal(journal.EventReopened, ReasonLocalTrip, nil, 0)

	case b.status == StatusClosed && !ok:
		// Local fast trip: do not wait for the next poll cycle.
		b.trip(ReasonLocalTrip, nil)
	}
}

// ChooseTarget picks the backend for one inbound request. Half-open routes
// to primary with the configured probability on an independent coin flip.
func (b *Breaker) ChooseTarget() Target {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.status {
	case StatusOpen:
		return TargetFallback
	case StatusHalfOpen:
		if b.roll() < b.halfOpenRatio {
			return TargetPrimary
		}
		return TargetFallback
	default:
		return TargetPrimary
	}
}

func (b *Breaker) Status() Status {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.status
}

func (b *Breaker) Snapshot() Snapshot {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	snap := Snapshot{
		Status:     b.status.String(),
		IncidentID: b.incidentID,
	}
	if !b.openedAt.IsZero() {
		snap.OpenedAt = b.openedAt.UnixMilli()
	}
	if b.status == StatusHalfOpen {
		snap.HalfOpenRatio = b.halfOpenRatio
	}
	return snap
}

// trip forces the breaker open. Callers hold the mutex.
func (b *Breaker) trip(reason string, metrics map[string]float64) {
	b.status = StatusOpen
	b.successes = 0

	if b.incidentID == "" {
		b.incidentID = uuid.NewString()
		b.openedAt = b.clock.Now()
		b.logger.Warn("Breaker opened, routing to fallback",
			slog.String("incident_id", b.incidentID),
			slog.String("reason", reason))
		b.journal(journal.EventOpened, reason, metrics, 0)
		return
	}

	// An incident is already active; a red poll while half-open reopens
	// it under the same incident ID.
	b.logger.Warn("Breaker reopened",
		slog.String("incident_id", b.incidentID),
		slog.String("reason", reason))
	b.journal(journal.EventReopened, reason, metrics, 0)
}

// close returns the breaker to closed and ends the active incident. Callers
// hold the mutex.
func (b *Breaker) close(reason string) {
	var duration time.Duration
	if !b.openedAt.IsZero() {
		duration = b.clock.Now().Sub(b.openedAt)
	}

	b.logger.Info("Breaker closed, primary restored",
		slog.String("incident_id", b.incidentID),
		slog.Duration("outage", duration))
	b.journal(journal.EventClosed, reason, nil, duration.Milliseconds())

	b.status = StatusClosed
	b.openedAt = time.Time{}
	b.incidentID = ""
	b.successes = 0
}

func (b *Breaker) journal(event journal.Event, reason string, metrics map[string]float64, durationMS int64) {
	b.sink.Append(journal.Record{
		TS:         b.clock.Now().UnixMilli(),
		IncidentID: b.incidentID,
		Event:      event,
		Reason:     reason,
		Metrics:    metrics,
		DurationMS: durationMS,
	})
}
