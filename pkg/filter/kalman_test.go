package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(q, r float64) Config {
	return Config{ProcessNoise: q, MeasurementNoise: r, A: 1, B: 0, C: 1}
}

func TestKalman_FirstObservationSeeds(t *testing.T) {
	k := NewKalman(identity(0.1, 0.01))
	require.False(t, k.Initialized())
	assert.True(t, math.IsNaN(k.State()))

	got := k.Filter(42)

	assert.Equal(t, 42.0, got)
	assert.True(t, k.Initialized())
	assert.InDelta(t, 0.01, k.Covariance(), 1e-12)
}

func TestKalman_ConvergesOnConstantInput(t *testing.T) {
	k := NewKalman(identity(0.1, 0.01))

	// Start far away from the constant so convergence is actually exercised.
	k.Filter(-50)

	var got float64
	for i := 0; i < 50; i++ {
		got = k.Filter(7.5)
	}

	assert.InDelta(t, 7.5, got, 1e-3)
}

func TestKalman_StepNeverOvershoots(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"trusts prediction", identity(0.001, 0.1)},
		{"trusts observation", identity(0.01, 0.1)},
		{"balanced", identity(1, 1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			k := NewKalman(tc.cfg)
			prev := k.Filter(0)

			for _, z := range []float64{1, -3, 10, 10.5, 2} {
				got := k.Filter(z)
				assert.LessOrEqual(t, math.Abs(got-prev), math.Abs(z-prev)+1e-12)
				prev = got
			}
		})
	}
}

func TestKalman_PredictBiasedMovesLess(t *testing.T) {
	predict := NewKalman(identity(0.001, 0.1))
	observe := NewKalman(identity(0.01, 0.1))

	predict.Filter(0)
	observe.Filter(0)

	// Let the covariances settle before the step.
	for i := 0; i < 20; i++ {
		predict.Filter(0)
		observe.Filter(0)
	}

	p := predict.Filter(1)
	o := observe.Filter(1)

	assert.Less(t, p, o, "predict-biased filter should react less to a jump")
	assert.Greater(t, p, 0.0)
	assert.Less(t, o, 1.0)
}

func TestKalman_ControlInput(t *testing.T) {
	cfg := identity(0.01, 0.1)
	cfg.B = 1
	k := NewKalman(cfg)

	k.FilterWithControl(0, 0)
	got := k.FilterWithControl(0, 5)

	// Prediction moved by B·u, observation pulled it back toward zero.
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 5.0)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1.0, cfg.A)
	assert.Equal(t, 0.0, cfg.B)
	assert.Equal(t, 1.0, cfg.C)
	assert.Greater(t, cfg.ProcessNoise, 0.0)
	assert.Greater(t, cfg.MeasurementNoise, 0.0)
}
