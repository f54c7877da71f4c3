package tracking

import "errors"

var (
	// ErrTooFewLandmarks is returned when a detection does not cover the
	// highest key point index.
	ErrTooFewLandmarks = errors.New("tracking: too few landmarks for key points")

	// ErrNotEnoughReferences is returned when too many key points miss the
	// scene during initialization.
	ErrNotEnoughReferences = errors.New("tracking: not enough key points resolved")
)
