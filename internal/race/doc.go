// Package race implements the progress-runner state machine: a counter that
// advances by a fixed increment after each fixed delay until it reaches its
// maximum, and that can be paused (cancelled) and resumed from its last
// recorded value.
package race
