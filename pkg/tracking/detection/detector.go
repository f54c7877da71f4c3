// Package detection provides facial landmark detection backends
package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Landmark is one facial landmark in normalized image coordinates (0-1).
// Slices of landmarks are indexed by the landmark model's numbering.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Face is one detected face.
type Face struct {
	X, Y       float64    // Top-left corner (0-1 normalized)
	W, H       float64    // Width and height (0-1 normalized)
	Confidence float64    // Detection confidence (0-1)
	Landmarks  []Landmark // Model-ordered landmarks
}

// Center returns the center point of the face box
func (f Face) Center() (x, y float64) {
	return f.X + f.W/2, f.Y + f.H/2
}

// Area returns the area of the bounding box
func (f Face) Area() float64 {
	return f.W * f.H
}

// Detector is the interface for landmark detection backends.
// Detect returns the landmarks of the best face in img, or an empty slice
// when no face is found. The returned slice is owned by the caller.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Landmark, error)

	// Close releases resources
	Close() error
}

// Landmark model sizes.
const (
	FaceMeshLandmarks = 468 // MediaPipe FaceMesh without iris refinement
	YuNetLandmarks    = 5   // Eyes, nose tip, mouth corners
)

var (
	// ErrModelNotFound is returned when a model file is missing.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrEmptyImage is returned for zero-sized input.
	ErrEmptyImage = errors.New("detection: empty image")

	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("detection: unknown backend")
)

// Config holds detector configuration
type Config struct {
	Backend          string  `yaml:"backend"`           // "yunet" or "remote"
	ModelPath        string  `yaml:"model_path"`        // Path to ONNX model (yunet)
	Endpoint         string  `yaml:"endpoint"`          // Landmark service URL (remote)
	ConfidenceThresh float64 `yaml:"confidence_thresh"` // Minimum confidence (default 0.7)
	InputWidth       int     `yaml:"input_width"`       // Model input width
	InputHeight      int     `yaml:"input_height"`      // Model input height
}

// DefaultConfig returns production defaults for YuNet
func DefaultConfig() Config {
	return Config{
		Backend:          "yunet",
		ModelPath:        "models/face_detection_yunet.onnx",
		Endpoint:         "http://localhost:8089/v1/facemesh",
		ConfidenceThresh: 0.7,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectBest picks the best face from multiple detections
// Priority: confidence * 0.7 + area * 0.3
func SelectBest(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}

	if len(faces) == 1 {
		return &faces[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, f := range faces {
		if f.Area() > maxArea {
			maxArea = f.Area()
		}
	}

	bestScore := -1.0
	var best *Face

	for i := range faces {
		score := faces[i].Confidence * 0.7
		if maxArea > 0 {
			score += (faces[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}

	return best
}

// New creates the detector named by cfg.Backend
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case "", "yunet":
		return NewYuNet(cfg)
	case "remote", "facemesh":
		return NewRemote(cfg.Endpoint), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
