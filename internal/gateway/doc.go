// Package gateway serves the circuit-breaking chat proxy. Request bodies
// are forwarded verbatim to the primary or fallback backend; upstream
// responses pass through unchanged. A primary transport failure triggers
// exactly one inline fallback attempt before the caller sees
// llm_unavailable.
package gateway
