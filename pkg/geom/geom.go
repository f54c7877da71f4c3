// Package geom provides the small fixed-size matrix types shared by the pose
// pipeline and the scene: 3x3 rotations, 4x4 homogeneous transforms, the
// Rodrigues conversion and Euler extraction.
//
// Matrices are row-major: m[row][col]. Vectors are gonum r3.Vec.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mat3 is a 3x3 matrix.
type Mat3 [3][3]float64

// Mat4 is a 4x4 homogeneous transform.
type Mat4 [4][4]float64

// Identity3 returns the 3x3 identity.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Identity4 returns the 4x4 identity.
func Identity4() Mat4 {
	return Mat4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// MulVec returns m·v.
func (m Mat3) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Transpose returns mᵀ.
func (m Mat3) Transpose() Mat3 {
	var t Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Mul returns m·n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * n[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// TransformPoint applies m to a point (w = 1).
func (m Mat4) TransformPoint(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// TransformDirection applies only the rotation/scale part of m (w = 0).
func (m Mat4) TransformDirection(d r3.Vec) r3.Vec {
	return m.Rotation().MulVec(d)
}

// Position returns the translation column.
func (m Mat4) Position() r3.Vec {
	return r3.Vec{X: m[0][3], Y: m[1][3], Z: m[2][3]}
}

// Rotation returns the upper-left 3x3 block.
func (m Mat4) Rotation() Mat3 {
	return Mat3{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
}

// RotationTransform embeds r into a homogeneous transform with no translation.
func RotationTransform(r Mat3) Mat4 {
	return Mat4{
		{r[0][0], r[0][1], r[0][2], 0},
		{r[1][0], r[1][1], r[1][2], 0},
		{r[2][0], r[2][1], r[2][2], 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a pure translation transform.
func Translation(t r3.Vec) Mat4 {
	m := Identity4()
	m[0][3], m[1][3], m[2][3] = t.X, t.Y, t.Z
	return m
}

// Compose builds a transform from a rotation and a position.
func Compose(r Mat3, p r3.Vec) Mat4 {
	m := RotationTransform(r)
	m[0][3], m[1][3], m[2][3] = p.X, p.Y, p.Z
	return m
}

// Rodrigues converts an axis-angle rotation vector to a rotation matrix.
// The angle is |v| in radians, the axis is v/|v|.
func Rodrigues(v r3.Vec) Mat3 {
	theta := r3.Norm(v)
	if theta < 1e-12 {
		return Identity3()
	}
	k := r3.Scale(1/theta, v)
	c, s := math.Cos(theta), math.Sin(theta)
	t := 1 - c

	return Mat3{
		{c + k.X*k.X*t, k.X*k.Y*t - k.Z*s, k.X*k.Z*t + k.Y*s},
		{k.Y*k.X*t + k.Z*s, c + k.Y*k.Y*t, k.Y*k.Z*t - k.X*s},
		{k.Z*k.X*t - k.Y*s, k.Z*k.Y*t + k.X*s, c + k.Z*k.Z*t},
	}
}

// RotationVector is the inverse of Rodrigues for proper rotations.
func RotationVector(r Mat3) r3.Vec {
	cos := (r[0][0] + r[1][1] + r[2][2] - 1) / 2
	cos = clamp(cos, -1, 1)
	theta := math.Acos(cos)
	if theta < 1e-12 {
		return r3.Vec{}
	}

	if math.Pi-theta < 1e-6 {
		// Near π the antisymmetric part vanishes: R ≈ 2kkᵀ - I.
		// Anchor on the largest diagonal term and read the rest off row i.
		i := 0
		for j := 1; j < 3; j++ {
			if r[j][j] > r[i][i] {
				i = j
			}
		}
		var k [3]float64
		k[i] = math.Sqrt(math.Max(0, (r[i][i]+1)/2))
		for j := 0; j < 3; j++ {
			if j != i {
				k[j] = (r[i][j] + r[j][i]) / (4 * k[i])
			}
		}
		return r3.Scale(theta, r3.Unit(r3.Vec{X: k[0], Y: k[1], Z: k[2]}))
	}

	s := 2 * math.Sin(theta)
	axis := r3.Vec{
		X: (r[2][1] - r[1][2]) / s,
		Y: (r[0][2] - r[2][0]) / s,
		Z: (r[1][0] - r[0][1]) / s,
	}
	return r3.Scale(theta, axis)
}

// EulerXYZ extracts intrinsic X-Y-Z Euler angles (radians) from a rotation,
// the convention the scene camera uses for its orientation.
func EulerXYZ(r Mat3) r3.Vec {
	y := math.Asin(clamp(r[0][2], -1, 1))
	if math.Abs(r[0][2]) < 0.9999999 {
		return r3.Vec{
			X: math.Atan2(-r[1][2], r[2][2]),
			Y: y,
			Z: math.Atan2(-r[0][1], r[0][0]),
		}
	}
	// Gimbal lock
	return r3.Vec{X: math.Atan2(r[2][1], r[1][1]), Y: y, Z: 0}
}

// LookAt returns the rotation whose -Z axis points from eye to target with
// the given up hint, matching a camera looking down its negative Z.
func LookAt(eye, target, up r3.Vec) Mat3 {
	z := r3.Sub(eye, target)
	if r3.Norm(z) == 0 {
		z = r3.Vec{Z: 1}
	}
	z = r3.Unit(z)

	x := r3.Cross(up, z)
	if r3.Norm(x) == 0 {
		// up parallel to z: nudge
		if math.Abs(up.Z) == 1 {
			z.X += 0.0001
		} else {
			z.Z += 0.0001
		}
		z = r3.Unit(z)
		x = r3.Cross(up, z)
	}
	x = r3.Unit(x)
	y := r3.Cross(z, x)

	return Mat3{
		{x.X, y.X, z.X},
		{x.Y, y.Y, z.Y},
		{x.Z, y.Z, z.Z},
	}
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
