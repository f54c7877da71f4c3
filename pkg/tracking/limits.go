package tracking

import (
	"math"

	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultChaosThreshold is the camera-to-forward angle (degrees) beyond
// which pose measurements are treated as unreliable.
const DefaultChaosThreshold = 60.0

// angleTolerance absorbs floating-point error at the threshold (degrees).
const angleTolerance = 1e-9

// AngleLimiter flags vector pairs whose angle exceeds a threshold.
type AngleLimiter struct {
	threshold float64
}

// NewAngleLimiter creates a limiter for threshold degrees.
func NewAngleLimiter(threshold float64) *AngleLimiter {
	return &AngleLimiter{threshold: threshold}
}

// Threshold returns the limit in degrees.
func (l *AngleLimiter) Threshold() float64 {
	return l.threshold
}

// Angle returns the angle between v1 and v2 in degrees. Zero-length input
// yields NaN. atan2 keeps full precision near 0° and 180°.
func Angle(v1, v2 r3.Vec) float64 {
	if r3.Norm(v1) == 0 || r3.Norm(v2) == 0 {
		return math.NaN()
	}
	return geom.Degrees(math.Atan2(r3.Norm(r3.Cross(v1, v2)), r3.Dot(v1, v2)))
}

// IsOutOfRange reports whether the angle between v1 and v2 is strictly
// greater than the threshold. Both vectors must be non-zero; a zero vector
// reports false.
func (l *AngleLimiter) IsOutOfRange(v1, v2 r3.Vec) bool {
	return Angle(v1, v2)-l.threshold > angleTolerance
}
