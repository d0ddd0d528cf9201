// Package watcher ingests canary samples into a sliding time window and
// classifies upstream health as green, amber or red against a configured SLO.
//
// Classification is a pure read over the pruned window: red when the error
// rate or p95 latency breaches the hard limit, amber when it approaches the
// SLO or the window holds too few samples to judge, green otherwise. The
// insufficient-data fallback is deliberately conservative; health is never
// asserted green on thin evidence.
package watcher
