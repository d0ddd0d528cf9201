package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrInvalidPayload is returned when an ingestion body does not carry a
// "samples" array. Nothing is processed in that case.
var ErrInvalidPayload = errors.New("invalid_payload")

// Sample is one observed canary outcome, normalized to epoch milliseconds.
type Sample struct {
	Timestamp  int64   `json:"timestamp"`
	Provider   string  `json:"provider"`
	OK         bool    `json:"ok"`
	LatencyMS  float64 `json:"latency_ms"`
	TimedOut   bool    `json:"timed_out"`
	StatusCode int     `json:"status_code,omitempty"`
}

type rawSample struct {
	Timestamp  *float64 `json:"timestamp"`
	Provider   string   `json:"provider"`
	OK         bool     `json:"ok"`
	LatencyMS  *float64 `json:"latency_ms"`
	TimedOut   bool     `json:"timed_out"`
	StatusCode int      `json:"status_code"`
}

// Timestamps below this look like epoch seconds rather than milliseconds.
const millisecondEpochFloor = 1e12

// ParseBatch extracts the raw sample elements from an ingestion body.
// The body must be a JSON object whose "samples" field is an array;
// anything else is ErrInvalidPayload.
func ParseBatch(body []byte) ([]json.RawMessage, error) {
	var payload struct {
		Samples json.RawMessage `json:"samples"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ErrInvalidPayload
	}

	trimmed := bytes.TrimSpace(payload.Samples)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidPayload
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, ErrInvalidPayload
	}

	return elements, nil
}

// Normalize converts one raw element into a Sample. The second return is
// false when the element is malformed; such elements are dropped without
// failing the batch.
func Normalize(raw json.RawMessage, now time.Time) (Sample, bool) {
	var rs rawSample
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Sample{}, false
	}

	if rs.LatencyMS == nil {
		return Sample{}, false
	}

	latency := *rs.LatencyMS
	if math.IsNaN(latency) || math.IsInf(latency, 0) || latency < 0 {
		return Sample{}, false
	}

	ts := now.UnixMilli()
	if rs.Timestamp != nil && *rs.Timestamp > 0 {
		v := *rs.Timestamp
		if v < millisecondEpochFloor {
			v *= 1000 // given in seconds
		}
		ts = int64(v)
	}

	provider := rs.Provider
	if provider == "" {
		provider = "unknown"
	}

	return Sample{
		Timestamp:  ts,
		Provider:   provider,
		OK:         rs.OK,
		LatencyMS:  latency,
		TimedOut:   rs.TimedOut,
		StatusCode: rs.StatusCode,
	}, true
}

// NormalizeBatch normalizes every element, silently dropping malformed ones.
func NormalizeBatch(raw []json.RawMessage, now time.Time) []Sample {
	samples := make([]Sample, 0, len(raw))
	for _, element := range raw {
		if s, ok := Normalize(element, now); ok {
			samples = append(samples, s)
		}
	}
	return samples
}
