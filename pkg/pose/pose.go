// Package pose recovers the camera pose from 2D/3D correspondences and
// stabilizes it across frames.
//
// The Estimator wraps a PnP Solver, warm-starts each solve from the previous
// result once tracking is established, and smooths the six pose components
// through one of two filter banks selected by a chaos flag.
package pose

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point2 is an image point in pixels.
type Point2 struct {
	X, Y float64
}

// Pose is a camera-space rotation (axis-angle) and translation.
type Pose struct {
	Rotation    r3.Vec `json:"rotation"`
	Translation r3.Vec `json:"translation"`
}

// Components returns the six scalars in filter order: tx, ty, tz, rx, ry, rz.
func (p Pose) Components() [6]float64 {
	return [6]float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
	}
}

// FromComponents is the inverse of Components.
func FromComponents(c [6]float64) Pose {
	return Pose{
		Translation: r3.Vec{X: c[0], Y: c[1], Z: c[2]},
		Rotation:    r3.Vec{X: c[3], Y: c[4], Z: c[5]},
	}
}

// FlipX negates the X component of both vectors. The solver works in a
// right-handed image frame (Y down); the scene camera expects X mirrored.
func (p Pose) FlipX() Pose {
	p.Rotation.X = -p.Rotation.X
	p.Translation.X = -p.Translation.X
	return p
}

func (p Pose) String() string {
	return fmt.Sprintf("r=(%.4f, %.4f, %.4f) t=(%.2f, %.2f, %.2f)",
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
		p.Translation.X, p.Translation.Y, p.Translation.Z)
}

// Intrinsics is the pinhole camera matrix.
type Intrinsics struct {
	Fx float64 `yaml:"fx" json:"fx"`
	Fy float64 `yaml:"fy" json:"fy"`
	Cx float64 `yaml:"cx" json:"cx"`
	Cy float64 `yaml:"cy" json:"cy"`
}

// Matrix returns the 3x3 camera matrix.
func (k Intrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		k.Fx, 0, k.Cx,
		0, k.Fy, k.Cy,
		0, 0, 1,
	})
}

// Normalize maps a pixel to normalized image coordinates, ignoring distortion.
func (k Intrinsics) Normalize(p Point2) Point2 {
	return Point2{X: (p.X - k.Cx) / k.Fx, Y: (p.Y - k.Cy) / k.Fy}
}

// Distortion holds the k1, k2, p1, p2, k3 lens coefficients.
type Distortion [5]float64

// DefaultIntrinsics is the calibration of the reference 640x480 webcam.
func DefaultIntrinsics() Intrinsics {
	return Intrinsics{
		Fx: 713.7906994392348,
		Fy: 713.1397610667941,
		Cx: 317.5506338116529,
		Cy: 240.3445337819322,
	}
}

// DefaultDistortion matches DefaultIntrinsics.
func DefaultDistortion() Distortion {
	return Distortion{
		-0.04539245557760049,
		1.36296925196101,
		-0.002927498547606124,
		0.001369713340755179,
		-4.575335220358818,
	}
}

// Project maps a camera-space point to pixels.
func Project(pc r3.Vec, k Intrinsics, d Distortion) Point2 {
	x := pc.X / pc.Z
	y := pc.Y / pc.Z

	r2 := x*x + y*y
	radial := 1 + d[0]*r2 + d[1]*r2*r2 + d[4]*r2*r2*r2
	xd := x*radial + 2*d[2]*x*y + d[3]*(r2+2*x*x)
	yd := y*radial + d[2]*(r2+2*y*y) + 2*d[3]*x*y

	return Point2{X: k.Fx*xd + k.Cx, Y: k.Fy*yd + k.Cy}
}
