package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// faceCloud is a rough non-planar head-sized point set (millimetres).
func faceCloud() []r3.Vec {
	// forehead, eyes, nose tip and base, mouth corners, chin, cheeks
	return []r3.Vec{
		{X: 0, Y: -60, Z: 10},
		{X: -35, Y: -30, Z: 0},
		{X: 35, Y: -30, Z: 0},
		{X: 0, Y: 0, Z: 30},
		{X: 0, Y: 10, Z: 20},
		{X: -25, Y: 35, Z: 5},
		{X: 25, Y: 35, Z: 5},
		{X: 0, Y: 70, Z: 0},
		{X: -70, Y: -10, Z: -40},
		{X: 70, Y: -10, Z: -40},
	}
}

func projectAll(object []r3.Vec, p Pose, k Intrinsics, d Distortion) []Point2 {
	rot := geom.Rodrigues(p.Rotation)
	out := make([]Point2, len(object))
	for i, obj := range object {
		out[i] = Project(r3.Add(rot.MulVec(obj), p.Translation), k, d)
	}
	return out
}

func assertPoseNear(t *testing.T, want, got Pose, tol float64) {
	t.Helper()
	wc, gc := want.Components(), got.Components()
	for i := range wc {
		assert.InDelta(t, wc[i], gc[i], tol, "component %d", i)
	}
}

func TestLMSolver_Unguided(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	object := faceCloud()

	tests := []struct {
		name string
		pose Pose
	}{
		{"frontal", Pose{Translation: r3.Vec{Z: 500}}},
		{"turned", Pose{Rotation: r3.Vec{X: 0.1, Y: -0.25, Z: 0.05}, Translation: r3.Vec{X: 12, Y: -8, Z: 450}}},
		{"tilted", Pose{Rotation: r3.Vec{X: -0.3, Y: 0.1, Z: -0.1}, Translation: r3.Vec{X: -20, Y: 15, Z: 600}}},
	}

	solver := NewLMSolver(DefaultLMConfig())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			image := projectAll(object, tc.pose, k, d)

			got, err := solver.Solve(object, image, k, d, nil)
			require.NoError(t, err)

			assertPoseNear(t, tc.pose, got, 1e-4)
			assert.Less(t, ReprojectionError(object, image, k, d, got), 1e-6)
		})
	}
}

func TestLMSolver_GuidedFromNearbyPose(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	object := faceCloud()
	truth := Pose{Rotation: r3.Vec{X: 0.05, Y: 0.2}, Translation: r3.Vec{X: 5, Y: 2, Z: 480}}
	image := projectAll(object, truth, k, d)

	guess := Pose{Rotation: r3.Vec{X: 0.02, Y: 0.15, Z: 0.01}, Translation: r3.Vec{X: 0, Y: 0, Z: 500}}
	got, err := NewLMSolver(DefaultLMConfig()).Solve(object, image, k, d, &guess)

	require.NoError(t, err)
	assertPoseNear(t, truth, got, 1e-4)
}

func TestLMSolver_Preconditions(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	solver := NewLMSolver(DefaultLMConfig())

	line := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}
	linePx := make([]Point2, len(line))

	tests := []struct {
		name   string
		object []r3.Vec
		image  []Point2
		want   error
	}{
		{"mismatch", faceCloud(), make([]Point2, 3), ErrPointCountMismatch},
		{"too few", faceCloud()[:3], make([]Point2, 3), ErrTooFewPoints},
		{"collinear", line, linePx, ErrDegenerate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := solver.Solve(tc.object, tc.image, k, d, nil)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestProject_CentreMapsToPrincipalPoint(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	p := Project(r3.Vec{Z: 100}, k, d)
	assert.InDelta(t, k.Cx, p.X, 1e-9)
	assert.InDelta(t, k.Cy, p.Y, 1e-9)
}

func TestReprojectionError_Empty(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	assert.True(t, math.IsNaN(ReprojectionError(nil, nil, k, d, Pose{})))
}

func TestIntrinsics_Matrix(t *testing.T) {
	k := Intrinsics{Fx: 700, Fy: 710, Cx: 320, Cy: 240}
	m := k.Matrix()
	assert.Equal(t, 700.0, m.At(0, 0))
	assert.Equal(t, 710.0, m.At(1, 1))
	assert.Equal(t, 320.0, m.At(0, 2))
	assert.Equal(t, 240.0, m.At(1, 2))
	assert.Equal(t, 1.0, m.At(2, 2))
}
