// Package app wires the AR viewer: scene, feed, landmark detector, pose
// estimator, tracker and dashboard.
package app

import (
	"github.com/teslashibe/go-arpose/internal/config"
	"github.com/teslashibe/go-arpose/pkg/tracking"
)

// Config holds all configuration for the viewer application.
// Flag parsing is done in cmd/arpose/main.go; this struct is data only.
type Config struct {
	// File is the loaded configuration file.
	File config.File

	// Debug enables verbose debug logging.
	Debug bool

	// DebugTracking enables per-frame tracking logs.
	DebugTracking bool

	// Profile selects tracking presets: "default", "smooth" or "responsive".
	Profile string

	// Feature flags.
	StartFeed bool // Switch the live feed on at startup
	NoWeb     bool // Run without the dashboard

	// FrameInterval is how often the viewer renders for the dashboard.
	FrameInterval int // Milliseconds
}

// DefaultConfig returns sensible defaults for the viewer.
func DefaultConfig() Config {
	return Config{
		File:          config.Default(),
		Profile:       "default",
		FrameInterval: 100,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Profile {
	case "", "default", "smooth", "responsive":
	default:
		return &ConfigError{Field: "Profile", Message: "profile must be default, smooth or responsive"}
	}
	if c.FrameInterval <= 0 {
		return &ConfigError{Field: "FrameInterval", Message: "frame interval must be positive"}
	}
	if errs := c.File.Validate(); len(errs) > 0 {
		return &ConfigError{Field: "File", Message: errs[0]}
	}
	return nil
}

// trackingConfig applies the profile over the file's tracking section.
// Presets only touch the fields they tune.
func (c *Config) trackingConfig() tracking.Config {
	cfg := c.File.Tracking
	switch c.Profile {
	case "smooth":
		preset := tracking.SmoothConfig()
		cfg.PoseInterval, cfg.ChaosThreshold = preset.PoseInterval, preset.ChaosThreshold
	case "responsive":
		preset := tracking.ResponsiveConfig()
		cfg.StabilityInterval, cfg.ChaosThreshold = preset.StabilityInterval, preset.ChaosThreshold
	}
	return cfg
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
