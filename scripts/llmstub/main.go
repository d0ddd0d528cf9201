// Llmstub is a stub chat backend with tunable latency and error rate, used
// to exercise the gateway and watcher locally.
//
// Usage:
//
//	go run ./scripts/llmstub -port 8081 -latency 200ms -error-rate 0.1
//
// The stub answers POST /v1/chat with a canned completion after the
// configured delay, failing a fraction of requests with HTTP 500.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 8081, "listen port")
	latency := flag.Duration("latency", 100*time.Millisecond, "base response latency")
	jitter := flag.Duration("jitter", 50*time.Millisecond, "random extra latency")
	errorRate := flag.Float64("error-rate", 0, "fraction of requests answered with 500")
	flag.Parse()

	http.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		delay := *latency
		if *jitter > 0 {
			delay += time.Duration(rand.Int64N(int64(*jitter)))
		}
		time.Sleep(delay)

		w.Header().Set("Content-Type", "application/json")

		if rand.Float64() < *errorRate {
			log.Printf("chat: injected failure after %s", delay)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "stub_failure"})
			return
		}

		log.Printf("chat: ok after %s", delay)
		json.NewEncoder(w).Encode(map[string]any{
			"model": "llm-stub",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "pong"}},
			},
		})
	})

	http.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("llm stub listening on %s (latency=%s error-rate=%.2f)", addr, *latency, *errorRate)
	log.Fatal(http.ListenAndServe(addr, nil))
}
