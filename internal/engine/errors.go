package engine

import "errors"

// Sentinel errors for the producer and config paths. Nothing in this package
// is fatal: callers log the rejection and keep the frame loop running.
var (
	// ErrInvalidSnapshot marks a malformed detection snapshot (zero or
	// backwards monotonic timestamp). The canonical state is left unchanged.
	ErrInvalidSnapshot = errors.New("invalid detection snapshot")

	// ErrInvalidConfig marks a threshold config that failed validation.
	// The evaluator keeps its last-known-good config and reports degraded.
	ErrInvalidConfig = errors.New("invalid threshold config")
)
