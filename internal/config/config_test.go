package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/pose"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arpose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())

	est := cfg.EstimatorConfig()
	assert.Equal(t, pose.DefaultIntrinsics(), est.Intrinsics)
	assert.Equal(t, pose.DefaultDistortion(), est.Distortion)
	assert.Equal(t, pose.PredictNoise, est.PredictNoise)
	assert.Equal(t, pose.ObserveNoise, est.ObserveNoise)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeFile(t, `
port: "9090"
tracking:
  pose_interval: 33ms
  chaos_threshold: 45
  forward_axis: {x: 0, y: 0, z: 1}
scene:
  camera:
    fov: 50
detection:
  backend: remote
  endpoint: http://mesh:8089/v1/facemesh
calibration:
  intrinsics: {fx: 600, fy: 600, cx: 320, cy: 240}
  distortion: [0, 0, 0, 0, 0]
  observe: {process: 0.02, measurement: 0.2}
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 33*time.Millisecond, cfg.Tracking.PoseInterval)
	assert.Equal(t, time.Second, cfg.Tracking.SyncInterval, "unset keys keep defaults")
	assert.Equal(t, 45.0, cfg.Tracking.ChaosThreshold)
	assert.Equal(t, 1.0, cfg.Tracking.ForwardAxis.Z)
	assert.Equal(t, 50.0, cfg.Scene.Camera.FOV)
	assert.Equal(t, 500.0, cfg.Scene.Camera.Position.Y)
	assert.Equal(t, "remote", cfg.Detection.Backend)

	est := cfg.EstimatorConfig()
	assert.Equal(t, 600.0, est.Intrinsics.Fx)
	assert.Equal(t, pose.Distortion{}, est.Distortion)
	assert.Equal(t, 0.02, est.ObserveNoise.ProcessNoise)
	assert.Equal(t, pose.PredictNoise, est.PredictNoise)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(missing, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)

	_, err = Load(missing, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Malformed(t *testing.T) {
	_, err := Load(writeFile(t, "tracking: [oops"), false)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ARPOSE_PORT", "7000")
	t.Setenv("ARPOSE_CONFIG", "/etc/arpose.yaml")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "/etc/arpose.yaml", Path())
}

func TestPath_Default(t *testing.T) {
	t.Setenv("ARPOSE_CONFIG", "")
	assert.Equal(t, DefaultPath, Path())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"size mismatch", func(f *File) { f.Tracking.Width = 320 }},
		{"zero interval", func(f *File) { f.Tracking.PoseInterval = 0 }},
		{"threshold", func(f *File) { f.Tracking.ChaosThreshold = 180 }},
		{"focal", func(f *File) { f.Calibration.Intrinsics.Fx = 0 }},
		{"noise", func(f *File) { f.Calibration.Predict.Measurement = 0 }},
		{"port", func(f *File) { f.Port = "" }},
		{"feed", func(f *File) { f.Feed.Framerate = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Len(t, cfg.Validate(), 1)
		})
	}
}
