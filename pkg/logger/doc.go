// Package logger configures structured logging with slog. Output format is
// environment-aware: JSON in production, text elsewhere.
package logger
