package tracking

import (
	"fmt"

	"github.com/teslashibe/go-arpose/pkg/pose"
	"github.com/teslashibe/go-arpose/pkg/tracking/detection"
	"gonum.org/v1/gonum/spatial/r3"
)

// Raycaster resolves a normalized device coordinate (x, y in [-1,1], +y
// up) to the first surface point the viewer's camera ray hits.
type Raycaster interface {
	Intersect(ndcX, ndcY float64) (r3.Vec, bool)
}

// References is the outcome of lifting key point landmarks onto the scene.
type References struct {
	keys   KeyPoints
	points []r3.Vec
	hit    []bool
}

// Complete reports whether every key point resolved.
func (r References) Complete() bool {
	return r.ResolvedCount() == r.keys.Len()
}

// ResolvedCount returns the number of key points that hit the scene.
func (r References) ResolvedCount() int {
	n := 0
	for _, h := range r.hit {
		if h {
			n++
		}
	}
	return n
}

// Missing returns the landmark indices whose rays hit nothing.
func (r References) Missing() []int {
	var out []int
	for i, h := range r.hit {
		if !h {
			out = append(out, r.keys.At(i))
		}
	}
	return out
}

// Resolved returns the key points that hit the scene and their reference
// points, in matching order.
func (r References) Resolved() (KeyPoints, []r3.Vec) {
	idx := make([]int, 0, len(r.points))
	pts := make([]r3.Vec, 0, len(r.points))
	for i, h := range r.hit {
		if h {
			idx = append(idx, r.keys.At(i))
			pts = append(pts, r.points[i])
		}
	}
	return NewKeyPoints(idx...), pts
}

// CorrespondenceBuilder pairs detector landmarks with 3D reference points
// and 2D observations, both ordered by ascending key point index.
type CorrespondenceBuilder struct {
	keys   KeyPoints
	width  int
	height int
}

// NewCorrespondenceBuilder creates a builder for a width×height viewer.
func NewCorrespondenceBuilder(keys KeyPoints, width, height int) *CorrespondenceBuilder {
	return &CorrespondenceBuilder{keys: keys, width: width, height: height}
}

// Keys returns the key point set.
func (b *CorrespondenceBuilder) Keys() KeyPoints {
	return b.keys
}

func (b *CorrespondenceBuilder) check(landmarks []detection.Landmark) error {
	if len(landmarks) <= b.keys.Max() {
		return fmt.Errorf("%w: got %d, need %d", ErrTooFewLandmarks, len(landmarks), b.keys.Max()+1)
	}
	return nil
}

// References casts a ray through each key landmark and converts the first
// hit into solver space (x, -y, -z). Landmarks are normalized to [0,1]²
// with y down.
func (b *CorrespondenceBuilder) References(landmarks []detection.Landmark, rc Raycaster) (References, error) {
	if err := b.check(landmarks); err != nil {
		return References{}, err
	}

	refs := References{
		keys:   b.keys,
		points: make([]r3.Vec, b.keys.Len()),
		hit:    make([]bool, b.keys.Len()),
	}
	for i := 0; i < b.keys.Len(); i++ {
		lm := landmarks[b.keys.At(i)]
		ndcX := lm.X*2 - 1
		ndcY := -(lm.Y*2 - 1)

		p, ok := rc.Intersect(ndcX, ndcY)
		if !ok {
			continue
		}
		refs.points[i] = r3.Vec{X: p.X, Y: -p.Y, Z: -p.Z}
		refs.hit[i] = true
	}
	return refs, nil
}

// Observations scales each key landmark to viewer pixels.
func (b *CorrespondenceBuilder) Observations(landmarks []detection.Landmark) ([]pose.Point2, error) {
	if err := b.check(landmarks); err != nil {
		return nil, err
	}

	out := make([]pose.Point2, b.keys.Len())
	for i := range out {
		lm := landmarks[b.keys.At(i)]
		out[i] = pose.Point2{
			X: lm.X * float64(b.width),
			Y: lm.Y * float64(b.height),
		}
	}
	return out, nil
}
