// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that runners use to report their advance. Events are
// batched on a background goroutine and fanned out to pluggable sinks such
// as Prometheus metrics, the run store, or a notifier.
package progress
