package scene

import (
	"math"
	"sync"

	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// polarEpsilon keeps the camera off the poles where look-at degenerates.
const polarEpsilon = 1e-6

// OrbitControls moves a camera on a sphere around a target. Input is
// ignored while the controls are disabled, which is how pose tracking
// takes over the camera.
type OrbitControls struct {
	mu          sync.Mutex
	camera      *Camera
	target      r3.Vec
	enabled     bool
	minDistance float64
	maxDistance float64
}

// NewOrbitControls creates enabled controls for cam.
func NewOrbitControls(cam *Camera, target r3.Vec, minDistance, maxDistance float64) *OrbitControls {
	return &OrbitControls{
		camera:      cam,
		target:      target,
		enabled:     true,
		minDistance: minDistance,
		maxDistance: maxDistance,
	}
}

// Enable turns user input on.
func (o *OrbitControls) Enable() {
	o.mu.Lock()
	o.enabled = true
	o.mu.Unlock()
}

// Disable turns user input off.
func (o *OrbitControls) Disable() {
	o.mu.Lock()
	o.enabled = false
	o.mu.Unlock()
}

// Enabled reports whether input is accepted.
func (o *OrbitControls) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

// Target returns the orbit center.
func (o *OrbitControls) Target() r3.Vec {
	return o.target
}

// Rotate orbits by the given azimuth (about the up axis) and polar deltas
// in radians.
func (o *OrbitControls) Rotate(dAzimuth, dPolar float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled {
		return ErrControlsDisabled
	}

	radius, azimuth, polar := o.spherical()
	polar = math.Max(polarEpsilon, math.Min(math.Pi-polarEpsilon, polar+dPolar))
	o.place(radius, azimuth+dAzimuth, polar)
	return nil
}

// Dolly scales the distance to the target. Factors above one move away.
// The result is clamped to the configured distance range.
func (o *OrbitControls) Dolly(factor float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.enabled {
		return ErrControlsDisabled
	}
	if factor <= 0 {
		return nil
	}

	radius, azimuth, polar := o.spherical()
	radius = math.Max(o.minDistance, math.Min(o.maxDistance, radius*factor))
	o.place(radius, azimuth, polar)
	return nil
}

// Distance returns the camera's distance to the target.
func (o *OrbitControls) Distance() float64 {
	return r3.Norm(r3.Sub(o.camera.Position(), o.target))
}

// spherical returns the camera offset in the up-aligned frame.
func (o *OrbitControls) spherical() (radius, azimuth, polar float64) {
	basis := upBasis(o.camera.Up())
	off := r3.Sub(o.camera.Position(), o.target)
	local := basis.Transpose().MulVec(off)

	radius = r3.Norm(local)
	if radius == 0 {
		return 0, 0, math.Pi / 2
	}
	return radius, math.Atan2(local.Y, local.X), math.Acos(clampUnit(local.Z / radius))
}

func (o *OrbitControls) place(radius, azimuth, polar float64) {
	basis := upBasis(o.camera.Up())
	local := r3.Vec{
		X: radius * math.Sin(polar) * math.Cos(azimuth),
		Y: radius * math.Sin(polar) * math.Sin(azimuth),
		Z: radius * math.Cos(polar),
	}
	pos := r3.Add(o.target, basis.MulVec(local))
	o.camera.SetTransform(geom.Compose(geom.LookAt(pos, o.target, o.camera.Up()), pos))
}

// upBasis returns an orthonormal frame whose third column is up.
func upBasis(up r3.Vec) geom.Mat3 {
	z := r3.Unit(up)
	ref := r3.Vec{X: 1}
	if math.Abs(z.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	x := r3.Unit(r3.Cross(ref, z))
	y := r3.Cross(z, x)
	return geom.Mat3{
		{x.X, y.X, z.X},
		{x.Y, y.Y, z.Y},
		{x.Z, y.Z, z.Z},
	}
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
