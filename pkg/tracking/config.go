package tracking

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds all tunable parameters for pose tracking
type Config struct {
	// Timing
	SyncInterval      time.Duration `yaml:"sync_interval"`      // How often to reconcile the scene with the inventory
	InitInterval      time.Duration `yaml:"init_interval"`      // How often to retry initialization
	PoseInterval      time.Duration `yaml:"pose_interval"`      // How often to estimate the head pose
	StabilityInterval time.Duration `yaml:"stability_interval"` // How often to re-evaluate the chaos flag

	// Viewer size used to scale normalized landmarks to pixels
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Stability
	ChaosThreshold float64 `yaml:"chaos_threshold"` // Degrees between camera and forward axis
	ForwardAxis    r3.Vec  `yaml:"forward_axis"`    // The head's facing direction in the scene

	// Initialization
	MinResolved int `yaml:"min_resolved"` // Key points that must hit the scene (0 = all)

	// Logging
	LogThreshold float64 `yaml:"log_threshold"` // Only log camera moves larger than this (scene units)
}

// DefaultConfig returns the recommended configuration
func DefaultConfig() Config {
	return Config{
		// Timing
		SyncInterval:      time.Second,
		InitInterval:      time.Second,
		PoseInterval:      10 * time.Millisecond,
		StabilityInterval: 100 * time.Millisecond,

		// Viewer
		Width:  640,
		Height: 480,

		// Stability
		ChaosThreshold: DefaultChaosThreshold,
		ForwardAxis:    r3.Vec{Y: 1},

		// Require every key point
		MinResolved: 0,

		// Logging
		LogThreshold: 5.0,
	}
}

// SmoothConfig switches to the prediction-biased filters earlier and
// samples less often
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.PoseInterval = 33 * time.Millisecond
	cfg.ChaosThreshold = 45
	return cfg
}

// ResponsiveConfig keeps the observation-biased filters over a wider
// range of head angles
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.ChaosThreshold = 75
	cfg.StabilityInterval = 50 * time.Millisecond
	return cfg
}

// requiredResolved returns how many key points must resolve out of total.
func (c Config) requiredResolved(total int) int {
	if c.MinResolved <= 0 || c.MinResolved > total {
		return total
	}
	return c.MinResolved
}
