// Canary probes a chat endpoint and posts the outcomes to the health
// watcher as a sample batch.
//
// Usage:
//
//	go run ./scripts/canary -target http://localhost:8081/v1/chat \
//	    -sink http://localhost:8080/samples -provider primary -n 5
//
// Each probe sends a minimal chat payload, records latency, success and
// timeout, and the batch is posted to the watcher's /samples endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type outcome struct {
	Timestamp  int64   `json:"timestamp"`
	Provider   string  `json:"provider"`
	OK         bool    `json:"ok"`
	LatencyMS  float64 `json:"latency_ms"`
	TimedOut   bool    `json:"timed_out"`
	StatusCode int     `json:"status_code,omitempty"`
}

func main() {
	target := flag.String("target", "http://localhost:8081/v1/chat", "chat endpoint to probe")
	sink := flag.String("sink", "http://localhost:8080/samples", "watcher samples endpoint")
	provider := flag.String("provider", "primary", "provider label for the samples")
	count := flag.Int("n", 5, "number of probes")
	timeout := flag.Duration("timeout", 10*time.Second, "per-probe timeout")
	flag.Parse()

	client := &http.Client{}
	probeBody := []byte(`{"messages":[{"role":"user","content":"ping"}],"max_tokens":8}`)

	samples := make([]outcome, 0, *count)
	for i := 0; i < *count; i++ {
		samples = append(samples, probe(client, *target, *provider, probeBody, *timeout))
	}

	payload, err := json.Marshal(map[string]any{"samples": samples})
	if err != nil {
		log.Fatalf("encode batch: %v", err)
	}

	res, err := client.Post(*sink, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("post batch: %v", err)
	}
	defer res.Body.Close()

	var reply struct {
		Accepted   int `json:"accepted"`
		WindowSize int `json:"windowSize"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		log.Fatalf("decode reply: %v", err)
	}

	fmt.Printf("posted %d samples, accepted=%d window=%d\n", len(samples), reply.Accepted, reply.WindowSize)

	for _, s := range samples {
		if !s.OK {
			os.Exit(1)
		}
	}
}

func probe(client *http.Client, target, provider string, body []byte, timeout time.Duration) outcome {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build probe request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	elapsed := time.Since(start)

	o := outcome{
		Timestamp: start.UnixMilli(),
		Provider:  provider,
		LatencyMS: float64(elapsed.Milliseconds()),
	}

	if err != nil {
		o.TimedOut = errors.Is(err, context.DeadlineExceeded)
		log.Printf("probe failed: %v", err)
		return o
	}
	defer res.Body.Close()

	o.OK = res.StatusCode >= 200 && res.StatusCode < 300
	o.StatusCode = res.StatusCode
	log.Printf("probe: status=%d latency=%s", res.StatusCode, elapsed)
	return o
}
