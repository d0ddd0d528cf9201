// Package breaker implements the gateway's three-state circuit breaker.
//
// The breaker cycles closed -> open -> half-open -> closed. Two triggers
// feed the same transition function: the periodic health poll verdict and
// the immediate outcome of every request routed to the primary backend. A
// failed primary request trips the breaker without waiting for the next
// poll; a run of consecutive probe successes closes it the same way.
//
// Every material transition is appended to the incident journal under a
// single incident ID minted when the breaker first opens.
package breaker
