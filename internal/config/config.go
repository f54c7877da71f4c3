// Package config loads the arpose configuration file and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/teslashibe/go-arpose/pkg/feed"
	"github.com/teslashibe/go-arpose/pkg/filter"
	"github.com/teslashibe/go-arpose/pkg/pose"
	"github.com/teslashibe/go-arpose/pkg/scene"
	"github.com/teslashibe/go-arpose/pkg/tracking"
	"github.com/teslashibe/go-arpose/pkg/tracking/detection"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPath      = "arpose.yaml"
	DefaultPort      = "8181"
	DefaultLogLevel  = "info"
	DefaultModelsDir = "models/obj"
)

// Noise is the Q/R pair of one filter bank.
type Noise struct {
	Process     float64 `yaml:"process"`
	Measurement float64 `yaml:"measurement"`
}

func (n Noise) filterConfig() filter.Config {
	return filter.Config{ProcessNoise: n.Process, MeasurementNoise: n.Measurement, A: 1, B: 0, C: 1}
}

// Calibration is the webcam model used by the PnP solver.
type Calibration struct {
	Intrinsics pose.Intrinsics `yaml:"intrinsics"`
	Distortion [5]float64      `yaml:"distortion"` // k1, k2, p1, p2, k3
	Predict    Noise           `yaml:"predict"`    // Filter bank used while chaotic
	Observe    Noise           `yaml:"observe"`    // Filter bank used otherwise
}

// File is the on-disk configuration.
type File struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	ModelsDir string `yaml:"models_dir"` // Directory of OBJ meshes loaded into the cabinet
	StaticDir string `yaml:"static_dir"` // Dashboard assets (empty disables)

	Tracking    tracking.Config  `yaml:"tracking"`
	Scene       scene.Config     `yaml:"scene"`
	Feed        feed.Config      `yaml:"feed"`
	Detection   detection.Config `yaml:"detection"`
	Calibration Calibration      `yaml:"calibration"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Port:      DefaultPort,
		LogLevel:  DefaultLogLevel,
		ModelsDir: DefaultModelsDir,
		Tracking:  tracking.DefaultConfig(),
		Scene:     scene.DefaultConfig(),
		Feed:      feed.DefaultConfig(),
		Detection: detection.DefaultConfig(),
		Calibration: Calibration{
			Intrinsics: pose.DefaultIntrinsics(),
			Distortion: pose.DefaultDistortion(),
			Predict:    Noise{Process: pose.PredictNoise.ProcessNoise, Measurement: pose.PredictNoise.MeasurementNoise},
			Observe:    Noise{Process: pose.ObserveNoise.ProcessNoise, Measurement: pose.ObserveNoise.MeasurementNoise},
		},
	}
}

// Path returns the config file path from ARPOSE_CONFIG env var.
// Falls back to DefaultPath if not set.
func Path() string {
	if p := os.Getenv("ARPOSE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path over the defaults. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LOG_LEVEL and ARPOSE_PORT.
func (f *File) ApplyEnv() {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		f.LogLevel = level
	}
	if port := os.Getenv("ARPOSE_PORT"); port != "" {
		f.Port = port
	}
}

// Validate checks cross-field consistency.
// Returns a list of validation errors, or nil if valid.
func (f *File) Validate() []string {
	var errs []string

	errs = append(errs, f.Feed.Validate()...)

	if f.Tracking.Width != f.Scene.Width || f.Tracking.Height != f.Scene.Height {
		errs = append(errs, "tracking and scene sizes must match")
	}
	if f.Tracking.PoseInterval <= 0 || f.Tracking.SyncInterval <= 0 ||
		f.Tracking.InitInterval <= 0 || f.Tracking.StabilityInterval <= 0 {
		errs = append(errs, "task intervals must be positive")
	}
	if f.Tracking.ChaosThreshold <= 0 || f.Tracking.ChaosThreshold >= 180 {
		errs = append(errs, "chaos_threshold must be between 0 and 180")
	}
	if f.Calibration.Intrinsics.Fx <= 0 || f.Calibration.Intrinsics.Fy <= 0 {
		errs = append(errs, "focal lengths must be positive")
	}
	for _, n := range []Noise{f.Calibration.Predict, f.Calibration.Observe} {
		if n.Process <= 0 || n.Measurement <= 0 {
			errs = append(errs, "filter noise must be positive")
			break
		}
	}
	if f.Port == "" {
		errs = append(errs, "port must not be empty")
	}

	return errs
}

// EstimatorConfig builds the pose estimator settings.
func (f *File) EstimatorConfig() pose.EstimatorConfig {
	cfg := pose.DefaultEstimatorConfig()
	cfg.Intrinsics = f.Calibration.Intrinsics
	cfg.Distortion = pose.Distortion(f.Calibration.Distortion)
	cfg.PredictNoise = f.Calibration.Predict.filterConfig()
	cfg.ObserveNoise = f.Calibration.Observe.filterConfig()
	return cfg
}
