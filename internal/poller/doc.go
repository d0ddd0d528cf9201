// Package poller drives the gateway's periodic health poll against the
// watcher's /healthz endpoint and feeds each verdict into the circuit
// breaker. Transport failures fold into a red verdict so a dead watcher is
// indistinguishable from an unhealthy upstream.
package poller
