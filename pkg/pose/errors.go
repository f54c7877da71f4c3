package pose

import "errors"

var (
	// ErrNoReferencePoints is returned when Estimate runs before initialization.
	ErrNoReferencePoints = errors.New("pose: no reference points installed")

	// ErrPointCountMismatch is returned when 2D and 3D point counts differ.
	ErrPointCountMismatch = errors.New("pose: 2D/3D point count mismatch")

	// ErrTooFewPoints is returned for fewer than MinPoints correspondences.
	ErrTooFewPoints = errors.New("pose: at least 4 correspondences required")

	// ErrDegenerate is returned for collinear or otherwise unsolvable geometry.
	ErrDegenerate = errors.New("pose: degenerate correspondence geometry")
)
