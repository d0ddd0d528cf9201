// Package config handles loading and validation of service configuration
// from environment variables. It defines separate structures for the health
// watcher (window span, SLO thresholds, minimum sample count) and the
// gateway (backend URLs and tokens, poll cadence, half-open recovery policy,
// incident journal path).
package config
