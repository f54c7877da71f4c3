package scene

import (
	"math"
	"sync"

	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// CameraConfig describes the perspective camera.
type CameraConfig struct {
	FOV      float64 `yaml:"fov"`  // Vertical field of view in degrees
	Near     float64 `yaml:"near"` // Near clip distance
	Far      float64 `yaml:"far"`  // Far clip distance
	Position r3.Vec  `yaml:"position"`
	Target   r3.Vec  `yaml:"target"`
	Up       r3.Vec  `yaml:"up"`
}

// DefaultCameraConfig looks down the Y axis at the origin from 500 units,
// with Z up.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		FOV:      37.2,
		Near:     0.1,
		Far:      2000,
		Position: r3.Vec{Y: 500},
		Target:   r3.Vec{},
		Up:       r3.Vec{Z: 1},
	}
}

// Camera is a perspective camera looking down its local -Z axis. Its
// world transform is the single source of truth for position and
// orientation.
type Camera struct {
	mu        sync.RWMutex
	fov       float64
	aspect    float64
	near, far float64
	up        r3.Vec
	transform geom.Mat4
}

// NewCamera creates a camera for a width×height viewport.
func NewCamera(cfg CameraConfig, width, height int) *Camera {
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	c := &Camera{
		fov:    cfg.FOV,
		aspect: aspect,
		near:   cfg.Near,
		far:    cfg.Far,
		up:     cfg.Up,
	}
	c.transform = geom.Compose(geom.LookAt(cfg.Position, cfg.Target, cfg.Up), cfg.Position)
	return c
}

// Transform returns the camera-to-world transform.
func (c *Camera) Transform() geom.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transform
}

// SetTransform replaces the camera-to-world transform.
func (c *Camera) SetTransform(m geom.Mat4) {
	c.mu.Lock()
	c.transform = m
	c.mu.Unlock()
}

// Position returns the camera position in world space.
func (c *Camera) Position() r3.Vec {
	return c.Transform().Position()
}

// Euler returns the camera orientation as XYZ Euler angles in radians.
func (c *Camera) Euler() r3.Vec {
	return geom.EulerXYZ(c.Transform().Rotation())
}

// Up returns the configured up hint.
func (c *Camera) Up() r3.Vec {
	return c.up
}

// LookAt keeps the position and turns the camera to face target.
func (c *Camera) LookAt(target r3.Vec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := c.transform.Position()
	c.transform = geom.Compose(geom.LookAt(pos, target, c.up), pos)
}

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float64 {
	return c.fov
}

// Aspect returns width/height.
func (c *Camera) Aspect() float64 {
	return c.aspect
}

// Ray builds the world-space ray through a point in normalized device
// coordinates, x and y in [-1,1] with +y up.
func (c *Camera) Ray(ndcX, ndcY float64) Ray {
	m := c.Transform()
	tanHalf := math.Tan(geom.Radians(c.fov) / 2)
	local := r3.Vec{X: ndcX * tanHalf * c.aspect, Y: ndcY * tanHalf, Z: -1}
	return Ray{
		Origin: m.Position(),
		Dir:    r3.Unit(m.TransformDirection(local)),
	}
}
