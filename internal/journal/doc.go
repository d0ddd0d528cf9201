// Package journal appends breaker state transitions to a line-delimited JSON
// file for post-hoc audit. Writes are asynchronous and best-effort: a write
// failure is logged to the process's own output and never reaches the
// request path.
package journal
