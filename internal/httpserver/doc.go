// Package httpserver wraps net/http.Server with address validation,
// sensible timeouts and graceful shutdown for both services.
package httpserver
