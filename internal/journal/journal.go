package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// Event names a material breaker transition.
type Event string

const (
	EventOpened   Event = "opened"
	EventHalfOpen Event = "half_open"
	EventReopened Event = "reopened"
	EventClosed   Event = "closed"
)

// Record is one journal line. DurationMS is set only on closed events.
type Record struct {
	TS         int64              `json:"ts"`
	IncidentID string             `json:"incident_id"`
	Event      Event              `json:"event"`
	Reason     string             `json:"reason,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	DurationMS int64              `json:"duration_ms,omitempty"`
}

// Sink accepts journal records. Appending must never block or fail the
// caller.
type Sink interface {
	Append(Record)
}

// Nop is a Sink that discards every record.
type Nop struct{}

func (Nop) Append(Record) {}

// Journal is an append-only JSONL sink. Records are handed to an owning
// goroutine over a buffered channel, so the request path never waits on
// disk; when the buffer is full the record is dropped and logged.
type Journal struct {
	recordCh chan Record
	file     *os.File
	logger   *slog.Logger
}

// Open opens (or creates) the journal file in append mode. The file is never
// truncated by this process.
func Open(path string, bufferSize int, logger *slog.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &Journal{
		recordCh: make(chan Record, bufferSize),
		file:     file,
		logger:   logger,
	}, nil
}

// Append queues a record for writing. Best effort: a full buffer drops the
// record rather than delaying the caller.
func (j *Journal) Append(rec Record) {
	select {
	case j.recordCh <- rec:
	default:
		j.logger.Warn("Incident journal buffer full, dropping record",
			slog.String("event", string(rec.Event)),
			slog.String("incident_id", rec.IncidentID))
	}
}

// Start runs the writer goroutine until ctx is cancelled, then drains any
// queued records and closes the file.
func (j *Journal) Start(ctx context.Context) {
	go j.run(ctx)
}

func (j *Journal) run(ctx context.Context) {
	j.logger.Info("Incident journal started", slog.String("path", j.file.Name()))
	defer j.logger.Info("Incident journal stopped")

	for {
		select {
		case rec := <-j.recordCh:
			j.write(rec)
		case <-ctx.Done():
			j.drain()
			if err := j.file.Close(); err != nil {
				j.logger.Error("Failed to close incident journal", slog.Any("err", err))
			}
			return
		}
	}
}

func (j *Journal) drain() {
	for {
		select {
		case rec := <-j.recordCh:
			j.write(rec)
		default:
			return
		}
	}
}

// write appends one JSON line. Failures are logged and swallowed; journaling
// must never propagate an error to the request path.
func (j *Journal) write(rec Record) {
	line, err := json.Marshal(rec)
	if err != nil {
		j.logger.Error("Failed to encode incident record", slog.Any("err", err))
		return
	}

	if _, err := j.file.Write(append(line, '\n')); err != nil {
		j.logger.Error("Failed to append incident record",
			slog.String("event", string(rec.Event)),
			slog.Any("err", err))
	}
}
