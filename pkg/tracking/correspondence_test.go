package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-arpose/pkg/pose"
	"github.com/teslashibe/go-arpose/pkg/tracking/detection"
	"gonum.org/v1/gonum/spatial/r3"
)

// planeCaster hits the plane y=0 under an orthographic projection, with a
// hole for rays left of holeX.
type planeCaster struct {
	scale float64
	holeX float64
	calls [][2]float64
}

func (p *planeCaster) Intersect(ndcX, ndcY float64) (r3.Vec, bool) {
	p.calls = append(p.calls, [2]float64{ndcX, ndcY})
	if ndcX < p.holeX {
		return r3.Vec{}, false
	}
	return r3.Vec{X: ndcX * p.scale, Y: 7, Z: ndcY * p.scale}, true
}

func faceLandmarks(n int) []detection.Landmark {
	out := make([]detection.Landmark, n)
	for i := range out {
		out[i] = detection.Landmark{
			X: 0.3 + 0.4*float64(i%20)/19,
			Y: 0.3 + 0.4*float64(i/20)/23,
		}
	}
	return out
}

func TestKeyPoints(t *testing.T) {
	k := NewKeyPoints(10, 3, 10, -1, 7)
	assert.Equal(t, []int{3, 7, 10}, k.Indices())
	assert.Equal(t, 3, k.Len())
	assert.Equal(t, 10, k.Max())
	assert.True(t, k.Contains(7))
	assert.False(t, k.Contains(8))

	assert.Equal(t, 51, FaceMeshKeyPoints.Len())
	assert.Equal(t, 454, FaceMeshKeyPoints.Max())
	assert.Equal(t, 6, FaceMeshKeyPoints.At(0))
	assert.Equal(t, 5, YuNetKeyPoints.Len())
	assert.Equal(t, -1, NewKeyPoints().Max())
}

func TestObservations_LengthAndOrder(t *testing.T) {
	b := NewCorrespondenceBuilder(FaceMeshKeyPoints, 640, 480)

	// Extra landmarks beyond the key set do not change the output length.
	for _, n := range []int{455, detection.FaceMeshLandmarks, 478} {
		landmarks := faceLandmarks(n)
		obs, err := b.Observations(landmarks)
		require.NoError(t, err)
		require.Len(t, obs, FaceMeshKeyPoints.Len())

		for i, o := range obs {
			lm := landmarks[FaceMeshKeyPoints.At(i)]
			assert.Equal(t, pose.Point2{X: lm.X * 640, Y: lm.Y * 480}, o)
		}
	}
}

func TestObservations_TooFewLandmarks(t *testing.T) {
	b := NewCorrespondenceBuilder(FaceMeshKeyPoints, 640, 480)
	_, err := b.Observations(faceLandmarks(5))
	assert.ErrorIs(t, err, ErrTooFewLandmarks)

	_, err = b.References(faceLandmarks(454), &planeCaster{scale: 1})
	assert.ErrorIs(t, err, ErrTooFewLandmarks)
}

func TestReferences_SolverSpace(t *testing.T) {
	keys := NewKeyPoints(0, 1, 2, 3)
	b := NewCorrespondenceBuilder(keys, 640, 480)
	landmarks := []detection.Landmark{
		{X: 0.5, Y: 0.5},
		{X: 1, Y: 0},
		{X: 0, Y: 1},
		{X: 0.75, Y: 0.25},
	}
	caster := &planeCaster{scale: 100, holeX: -2}

	refs, err := b.References(landmarks, caster)
	require.NoError(t, err)
	assert.True(t, refs.Complete())

	// NDC is (2x-1, -(2y-1)).
	assert.Equal(t, [][2]float64{{0, 0}, {1, 1}, {-1, -1}, {0.5, 0.5}}, caster.calls)

	_, points := refs.Resolved()
	require.Len(t, points, 4)
	assert.Equal(t, r3.Vec{X: 0, Y: -7, Z: 0}, points[0])
	assert.Equal(t, r3.Vec{X: 100, Y: -7, Z: -100}, points[1])
	assert.Equal(t, r3.Vec{X: -100, Y: -7, Z: 100}, points[2])
}

func TestReferences_Misses(t *testing.T) {
	keys := NewKeyPoints(0, 1, 2, 3, 4)
	b := NewCorrespondenceBuilder(keys, 640, 480)
	landmarks := []detection.Landmark{
		{X: 0.1, Y: 0.5}, // ndc -0.8, miss
		{X: 0.6, Y: 0.5},
		{X: 0.2, Y: 0.5}, // ndc -0.6, miss
		{X: 0.7, Y: 0.5},
		{X: 0.9, Y: 0.5},
	}

	refs, err := b.References(landmarks, &planeCaster{scale: 1, holeX: -0.5})
	require.NoError(t, err)

	assert.False(t, refs.Complete())
	assert.Equal(t, 3, refs.ResolvedCount())
	assert.Equal(t, []int{0, 2}, refs.Missing())

	resolved, points := refs.Resolved()
	assert.Equal(t, []int{1, 3, 4}, resolved.Indices())
	assert.Len(t, points, 3)
}
