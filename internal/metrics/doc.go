// Package metrics exposes Prometheus counters and histograms for ingested
// canary samples: a per-provider request counter split by outcome and a
// fixed-bucket latency histogram, alongside the default Go and process
// collectors.
package metrics
