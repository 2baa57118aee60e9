// Package sinks contains progress.Sink implementations: structured logging,
// Prometheus metrics, run-store projection, and finish-line notification.
package sinks
