package pose

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

func newTestEstimator(solver Solver) *Estimator {
	e := NewEstimator(DefaultEstimatorConfig(), solver)
	e.SetReferencePoints(faceCloud())
	return e
}

func imagePoints(n int) []Point2 {
	pts := make([]Point2, n)
	for i := range pts {
		pts[i] = Point2{X: float64(300 + i), Y: float64(200 + 2*i)}
	}
	return pts
}

func TestEstimator_FirstCallIsUnsmoothed(t *testing.T) {
	raw := Pose{Rotation: r3.Vec{X: 0.1, Y: 0.2, Z: 0.3}, Translation: r3.Vec{X: 10, Y: 20, Z: 300}}
	solver := NewMockSolver(raw)
	e := newTestEstimator(solver)
	e.SetUseExtrinsicGuess(true) // no previous pose yet, so still unguided

	res, err := e.Estimate(imagePoints(len(faceCloud())))
	require.NoError(t, err)

	assert.False(t, res.Smoothed)
	assert.Equal(t, raw, res.Pose)
	assert.Equal(t, geom.RotationTransform(geom.Rodrigues(r3.Vec{X: -0.1, Y: 0.2, Z: 0.3})), res.Rotation)
	assert.Equal(t, geom.Translation(r3.Vec{X: -10, Y: 20, Z: 300}), res.Translation)

	calls := solver.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Guess)

	prev, ok := e.Previous()
	require.True(t, ok)
	assert.Equal(t, raw, prev)
}

func TestEstimator_GuidedUsesRetainedPose(t *testing.T) {
	first := Pose{Translation: r3.Vec{Z: 100}}
	second := Pose{Translation: r3.Vec{Z: 110}}

	solver := NewMockSolver(first)
	e := newTestEstimator(solver)
	pts := imagePoints(len(faceCloud()))

	_, err := e.Estimate(pts)
	require.NoError(t, err)

	e.SetUseExtrinsicGuess(true)
	solver.SolveFunc = func([]r3.Vec, []Point2, *Pose) (Pose, error) { return second, nil }

	res, err := e.Estimate(pts)
	require.NoError(t, err)
	assert.True(t, res.Smoothed)

	calls := solver.Calls()
	require.Len(t, calls, 2)
	require.NotNil(t, calls[1].Guess)
	assert.Equal(t, first, *calls[1].Guess)

	// The third solve is seeded with whatever the second one retained.
	_, err = e.Estimate(pts)
	require.NoError(t, err)
	calls = solver.Calls()
	require.NotNil(t, calls[2].Guess)
	assert.Equal(t, res.Pose, *calls[2].Guess)
}

func TestEstimator_ReacquisitionSolvesUnguided(t *testing.T) {
	solver := NewMockSolver(Pose{Translation: r3.Vec{Z: 100}})
	e := newTestEstimator(solver)
	pts := imagePoints(len(faceCloud()))

	_, err := e.Estimate(pts)
	require.NoError(t, err)
	e.SetUseExtrinsicGuess(true)
	_, err = e.Estimate(pts)
	require.NoError(t, err)

	// Feed dropped: warm start disabled although a previous pose exists.
	e.SetUseExtrinsicGuess(false)
	res, err := e.Estimate(pts)
	require.NoError(t, err)

	assert.False(t, res.Smoothed)
	calls := solver.Calls()
	require.Len(t, calls, 3)
	assert.Nil(t, calls[2].Guess)
}

func TestEstimator_SmoothingShrinksSteps(t *testing.T) {
	for _, chaotic := range []bool{false, true} {
		rng := rand.New(rand.NewSource(7))
		base := Pose{Rotation: r3.Vec{X: 0.2, Y: -0.1, Z: 0.05}, Translation: r3.Vec{X: 5, Y: -3, Z: 400}}

		var raw Pose
		solver := &MockSolver{SolveFunc: func([]r3.Vec, []Point2, *Pose) (Pose, error) {
			c := base.Components()
			for i := range c {
				c[i] += rng.NormFloat64() * 0.5
			}
			raw = FromComponents(c)
			return raw, nil
		}}

		e := newTestEstimator(solver)
		e.SetChaotic(chaotic)
		pts := imagePoints(len(faceCloud()))

		_, err := e.Estimate(pts)
		require.NoError(t, err)
		e.SetUseExtrinsicGuess(true)

		for i := 0; i < 30; i++ {
			prev, _ := e.Previous()
			res, err := e.Estimate(pts)
			require.NoError(t, err)

			pc, rc, fc := prev.Components(), raw.Components(), res.Pose.Components()
			for j := range pc {
				assert.LessOrEqual(t, math.Abs(fc[j]-pc[j]), math.Abs(rc[j]-pc[j])+1e-12,
					"chaotic=%v step %d component %d", chaotic, i, j)
			}
		}
	}
}

func TestEstimator_ChaoticBankMovesLess(t *testing.T) {
	step := func(chaotic bool) float64 {
		value := 100.0
		solver := &MockSolver{SolveFunc: func([]r3.Vec, []Point2, *Pose) (Pose, error) {
			return Pose{Translation: r3.Vec{Z: value}}, nil
		}}
		e := newTestEstimator(solver)
		e.SetChaotic(chaotic)
		pts := imagePoints(len(faceCloud()))

		_, _ = e.Estimate(pts)
		e.SetUseExtrinsicGuess(true)
		for i := 0; i < 20; i++ {
			_, _ = e.Estimate(pts)
		}

		value = 110
		res, err := e.Estimate(pts)
		require.NoError(t, err)
		return res.Pose.Translation.Z - 100
	}

	calm, chaotic := step(false), step(true)
	assert.Greater(t, calm, chaotic)
	assert.Greater(t, chaotic, 0.0)
}

func TestEstimator_Errors(t *testing.T) {
	solver := NewMockSolver(Pose{})

	t.Run("no references", func(t *testing.T) {
		e := NewEstimator(DefaultEstimatorConfig(), solver)
		_, err := e.Estimate(imagePoints(10))
		assert.True(t, errors.Is(err, ErrNoReferencePoints))
	})

	t.Run("count mismatch", func(t *testing.T) {
		e := newTestEstimator(solver)
		_, err := e.Estimate(imagePoints(3))
		assert.True(t, errors.Is(err, ErrPointCountMismatch))
	})

	t.Run("solver failure is wrapped", func(t *testing.T) {
		failing := &MockSolver{SolveFunc: func([]r3.Vec, []Point2, *Pose) (Pose, error) {
			return Pose{}, ErrDegenerate
		}}
		e := newTestEstimator(failing)
		_, err := e.Estimate(imagePoints(len(faceCloud())))
		assert.True(t, errors.Is(err, ErrDegenerate))
		_, ok := e.Previous()
		assert.False(t, ok)
	})
}

func TestEstimator_WithLMSolver(t *testing.T) {
	k, d := DefaultIntrinsics(), DefaultDistortion()
	truth := Pose{Rotation: r3.Vec{Y: 0.1}, Translation: r3.Vec{Z: 500}}
	image := projectAll(faceCloud(), truth, k, d)

	e := newTestEstimator(NewLMSolver(DefaultLMConfig()))
	res, err := e.Estimate(image)
	require.NoError(t, err)
	assertPoseNear(t, truth, res.Pose, 1e-4)

	e.SetUseExtrinsicGuess(true)
	for i := 0; i < 5; i++ {
		res, err = e.Estimate(image)
		require.NoError(t, err)
	}
	assertPoseNear(t, truth, res.Pose, 1e-3)

	// Camera position in the scene is R·t with X mirrored.
	pos := res.Transform().Position()
	flipped := truth.FlipX()
	want := geom.Rodrigues(flipped.Rotation).MulVec(flipped.Translation)
	assert.InDelta(t, want.X, pos.X, 1e-2)
	assert.InDelta(t, want.Y, pos.Y, 1e-2)
	assert.InDelta(t, want.Z, pos.Z, 1e-2)
}
