package pose

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinPoints is the smallest correspondence set a PnP solve accepts.
const MinPoints = 4

// Solver recovers the pose that maps object points onto image points.
// A nil guess requests an unguided solve; otherwise the guess seeds the search.
type Solver interface {
	Solve(object []r3.Vec, image []Point2, k Intrinsics, d Distortion, guess *Pose) (Pose, error)
}

// LMConfig tunes the Levenberg-Marquardt search.
type LMConfig struct {
	MaxIterations int     // Per start
	Tolerance     float64 // Stop when the step norm falls below this
	InitialLambda float64 // Starting damping
}

// DefaultLMConfig returns settings that converge in a few milliseconds for ~50 points.
func DefaultLMConfig() LMConfig {
	return LMConfig{
		MaxIterations: 100,
		Tolerance:     1e-10,
		InitialLambda: 1e-3,
	}
}

// LMSolver minimizes reprojection error with Levenberg-Marquardt over the
// 6-vector (rvec, tvec), using a numerical Jacobian and the 5-term lens model.
type LMSolver struct {
	cfg LMConfig
}

// NewLMSolver creates a solver.
func NewLMSolver(cfg LMConfig) *LMSolver {
	return &LMSolver{cfg: cfg}
}

// unguidedStarts are the rotations tried when no guess is available.
var unguidedStarts = []r3.Vec{
	{},
	{X: math.Pi},
	{Y: math.Pi},
	{Z: math.Pi},
	{X: math.Pi / 2},
	{X: -math.Pi / 2},
	{Y: math.Pi / 2},
	{Y: -math.Pi / 2},
}

// Solve implements Solver.
func (s *LMSolver) Solve(object []r3.Vec, image []Point2, k Intrinsics, d Distortion, guess *Pose) (Pose, error) {
	if len(object) != len(image) {
		return Pose{}, fmt.Errorf("%w: %d object, %d image", ErrPointCountMismatch, len(object), len(image))
	}
	if len(object) < MinPoints {
		return Pose{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(object))
	}
	if collinear(object) {
		return Pose{}, ErrDegenerate
	}

	if guess != nil {
		p, cost := s.refine(object, image, k, d, *guess)
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return Pose{}, fmt.Errorf("%w: solve diverged", ErrDegenerate)
		}
		return p, nil
	}

	best := Pose{}
	bestCost := math.Inf(1)
	for _, rvec := range unguidedStarts {
		start := Pose{Rotation: rvec, Translation: initialTranslation(object, image, k, rvec)}
		p, cost := s.refine(object, image, k, d, start)
		if math.IsNaN(cost) || !inFront(object, p) {
			continue
		}
		if cost < bestCost {
			best, bestCost = p, cost
		}
	}

	if math.IsInf(bestCost, 1) {
		return Pose{}, fmt.Errorf("%w: no start converged in front of the camera", ErrDegenerate)
	}

	best.Rotation = geom.RotationVector(geom.Rodrigues(best.Rotation))
	return best, nil
}

// refine runs LM from start and returns the pose with its squared error sum.
func (s *LMSolver) refine(object []r3.Vec, image []Point2, k Intrinsics, d Distortion, start Pose) (Pose, float64) {
	n := len(object)
	params := start.Components()
	// Components order is t then r; the solver keeps the same order.

	cost := sumSquares(residuals(params, object, image, k, d))
	lambda := s.cfg.InitialLambda

	jac := mat.NewDense(2*n, 6, nil)
	var jtj mat.Dense
	var grad mat.VecDense
	aug := mat.NewDense(6, 6, nil)
	var step mat.VecDense

	for iter := 0; iter < s.cfg.MaxIterations; iter++ {
		res := residuals(params, object, image, k, d)
		jacobian(jac, params, object, image, k, d)

		jtj.Mul(jac.T(), jac)
		grad.MulVec(jac.T(), mat.NewVecDense(2*n, res))

		improved := false
		for attempt := 0; attempt < 10; attempt++ {
			aug.Copy(&jtj)
			for i := 0; i < 6; i++ {
				aug.Set(i, i, jtj.At(i, i)*(1+lambda)+lambda*1e-12)
			}

			if err := step.SolveVec(aug, &grad); err != nil {
				if _, ok := err.(mat.Condition); !ok {
					lambda *= 10
					continue
				}
			}

			var next [6]float64
			for i := range next {
				next[i] = params[i] - step.AtVec(i)
			}

			nextCost := sumSquares(residuals(next, object, image, k, d))
			if nextCost < cost {
				params = next
				cost = nextCost
				lambda = math.Max(lambda/10, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}

		if !improved || mat.Norm(&step, 2) < s.cfg.Tolerance {
			break
		}
	}

	return FromComponents(params), cost
}

// residuals returns the stacked (u, v) reprojection errors.
func residuals(params [6]float64, object []r3.Vec, image []Point2, k Intrinsics, d Distortion) []float64 {
	p := FromComponents(params)
	rot := geom.Rodrigues(p.Rotation)

	out := make([]float64, 2*len(object))
	for i, obj := range object {
		pc := r3.Add(rot.MulVec(obj), p.Translation)
		proj := Project(pc, k, d)
		out[2*i] = proj.X - image[i].X
		out[2*i+1] = proj.Y - image[i].Y
	}
	return out
}

// jacobian fills jac with central differences of the residuals.
func jacobian(jac *mat.Dense, params [6]float64, object []r3.Vec, image []Point2, k Intrinsics, d Distortion) {
	for j := 0; j < 6; j++ {
		h := 1e-6 * math.Max(1, math.Abs(params[j]))

		plus, minus := params, params
		plus[j] += h
		minus[j] -= h

		rp := residuals(plus, object, image, k, d)
		rm := residuals(minus, object, image, k, d)
		for i := range rp {
			jac.Set(i, j, (rp[i]-rm[i])/(2*h))
		}
	}
}

// initialTranslation places the rotated object so its spread matches the image spread.
func initialTranslation(object []r3.Vec, image []Point2, k Intrinsics, rvec r3.Vec) r3.Vec {
	rot := geom.Rodrigues(rvec)
	n := float64(len(object))

	var c r3.Vec
	rotated := make([]r3.Vec, len(object))
	for i, p := range object {
		rotated[i] = rot.MulVec(p)
		c = r3.Add(c, rotated[i])
	}
	c = r3.Scale(1/n, c)

	var u Point2
	norm := make([]Point2, len(image))
	for i, p := range image {
		norm[i] = k.Normalize(p)
		u.X += norm[i].X
		u.Y += norm[i].Y
	}
	u.X /= n
	u.Y /= n

	var s3, s2 float64
	for i := range rotated {
		s3 += r3.Norm2(r3.Sub(rotated[i], c))
		dx, dy := norm[i].X-u.X, norm[i].Y-u.Y
		s2 += dx*dx + dy*dy
	}
	s3 = math.Sqrt(s3 / n)
	s2 = math.Sqrt(s2 / n)

	z := 1.0
	if s2 > 1e-12 {
		z = s3 / s2
	}

	return r3.Vec{X: u.X*z - c.X, Y: u.Y*z - c.Y, Z: z - c.Z}
}

// inFront reports whether every object point lands in front of the camera.
func inFront(object []r3.Vec, p Pose) bool {
	rot := geom.Rodrigues(p.Rotation)
	for _, obj := range object {
		if r3.Add(rot.MulVec(obj), p.Translation).Z <= 0 {
			return false
		}
	}
	return true
}

// collinear reports whether all points lie on one line.
func collinear(points []r3.Vec) bool {
	origin := points[0]

	// Farthest point from the first defines the line.
	var axis r3.Vec
	for _, p := range points[1:] {
		if d := r3.Sub(p, origin); r3.Norm2(d) > r3.Norm2(axis) {
			axis = d
		}
	}
	length2 := r3.Norm2(axis)
	if length2 == 0 {
		return true
	}

	for _, p := range points[1:] {
		if r3.Norm2(r3.Cross(axis, r3.Sub(p, origin)))/length2 > 1e-9*length2 {
			return false
		}
	}
	return true
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

// ReprojectionError returns the RMS pixel error of p over the correspondences.
func ReprojectionError(object []r3.Vec, image []Point2, k Intrinsics, d Distortion, p Pose) float64 {
	if len(object) == 0 || len(object) != len(image) {
		return math.NaN()
	}
	res := residuals(p.Components(), object, image, k, d)
	return math.Sqrt(sumSquares(res) / float64(len(object)))
}
