// Package filter provides the scalar recursive estimator used to stabilize
// each component of a solved pose.
package filter

import "math"

// Config holds the noise and model parameters of a scalar Kalman filter.
//
// The state model is x' = A·x + B·u and the observation model is z = C·x.
// The pose pipeline uses A = 1, B = 0, C = 1 (identity, no control input).
type Config struct {
	ProcessNoise     float64 // Q: how far the true value may drift per step
	MeasurementNoise float64 // R: how noisy each observation is

	A float64 // State transition
	B float64 // Control input gain
	C float64 // Observation
}

// DefaultConfig returns an identity model with unit noise.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:     1,
		MeasurementNoise: 1,
		A:                1,
		B:                0,
		C:                1,
	}
}

// Kalman is a one-dimensional Kalman filter.
// It is not safe for concurrent use.
type Kalman struct {
	cfg Config

	x   float64 // Last estimate
	cov float64 // Last error covariance
}

// NewKalman creates a filter. The first observation seeds the estimate.
func NewKalman(cfg Config) *Kalman {
	return &Kalman{
		cfg: cfg,
		x:   math.NaN(),
		cov: math.NaN(),
	}
}

// Filter runs one predict/update cycle with no control input.
func (k *Kalman) Filter(z float64) float64 {
	return k.FilterWithControl(z, 0)
}

// FilterWithControl runs one predict/update cycle.
//
// A near-zero C·P̂·C + R makes the gain blow up; with the positive noise
// values used here that cannot happen, so it is not guarded.
func (k *Kalman) FilterWithControl(z, u float64) float64 {
	c := k.cfg

	if math.IsNaN(k.x) {
		k.x = z / c.C
		k.cov = c.MeasurementNoise / (c.C * c.C)
		return k.x
	}

	// Predict
	predX := c.A*k.x + c.B*u
	predCov := c.A*k.cov*c.A + c.ProcessNoise

	// Gain
	gain := predCov * c.C / (c.C*predCov*c.C + c.MeasurementNoise)

	// Correct
	k.x = predX + gain*(z-c.C*predX)
	k.cov = predCov - gain*c.C*predCov

	return k.x
}

// State returns the last estimate, or NaN before the first observation.
func (k *Kalman) State() float64 {
	return k.x
}

// Covariance returns the last error covariance, or NaN before the first observation.
func (k *Kalman) Covariance() float64 {
	return k.cov
}

// Initialized reports whether the filter has seen an observation.
func (k *Kalman) Initialized() bool {
	return !math.IsNaN(k.x)
}

// Config returns the filter parameters.
func (k *Kalman) Config() Config {
	return k.cfg
}
