package pose

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-arpose/pkg/debug"
	"github.com/teslashibe/go-arpose/pkg/filter"
	"github.com/teslashibe/go-arpose/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// EstimatorConfig holds the fixed camera model and filter tuning.
type EstimatorConfig struct {
	Intrinsics Intrinsics
	Distortion Distortion

	PredictNoise filter.Config // Used while the pose is chaotic
	ObserveNoise filter.Config // Used otherwise

	Logger *slog.Logger
}

// DefaultEstimatorConfig returns the reference webcam calibration and bank presets.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Intrinsics:   DefaultIntrinsics(),
		Distortion:   DefaultDistortion(),
		PredictNoise: PredictNoise,
		ObserveNoise: ObserveNoise,
		Logger:       slog.Default(),
	}
}

// Result is the output of one Estimate call.
type Result struct {
	Rotation    geom.Mat4 // Homogeneous rotation, X-flipped for the scene
	Translation geom.Mat4 // Homogeneous translation, X-flipped for the scene
	Pose        Pose      // Retained pose (solver space, before the flip)
	Smoothed    bool      // False on the unguided path
}

// Transform composes rotation then translation.
func (r Result) Transform() geom.Mat4 {
	return r.Rotation.Mul(r.Translation)
}

// Estimator wraps a Solver with warm-starting and two-regime smoothing.
//
// Estimate must be called from a single goroutine. SetChaotic and
// SetUseExtrinsicGuess may be called from any goroutine.
type Estimator struct {
	solver     Solver
	intrinsics Intrinsics
	distortion Distortion

	predict *FilterBank
	observe *FilterBank

	mu         sync.RWMutex
	references []r3.Vec
	previous   *Pose

	useGuess atomic.Bool
	chaotic  atomic.Bool

	logger *slog.Logger
}

// NewEstimator creates an estimator with no reference points.
func NewEstimator(cfg EstimatorConfig, solver Solver) *Estimator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{
		solver:     solver,
		intrinsics: cfg.Intrinsics,
		distortion: cfg.Distortion,
		predict:    NewFilterBank("predict", cfg.PredictNoise),
		observe:    NewFilterBank("observe", cfg.ObserveNoise),
		logger:     logger.With("component", "pose.estimator"),
	}
}

// SetReferencePoints installs the object-space point cloud. The slice is copied.
func (e *Estimator) SetReferencePoints(points []r3.Vec) {
	refs := make([]r3.Vec, len(points))
	copy(refs, points)

	e.mu.Lock()
	e.references = refs
	e.mu.Unlock()

	e.logger.Info("reference points installed", "count", len(refs))
}

// ReferencePoints returns a copy of the installed point cloud.
func (e *Estimator) ReferencePoints() []r3.Vec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]r3.Vec, len(e.references))
	copy(out, e.references)
	return out
}

// SetUseExtrinsicGuess enables or disables warm-starting from the previous pose.
func (e *Estimator) SetUseExtrinsicGuess(v bool) {
	e.useGuess.Store(v)
}

// UseExtrinsicGuess reports whether the next solve may be warm-started.
func (e *Estimator) UseExtrinsicGuess() bool {
	return e.useGuess.Load()
}

// SetChaotic selects the predict-biased bank (true) or observe-biased bank (false).
func (e *Estimator) SetChaotic(v bool) {
	e.chaotic.Store(v)
}

// Chaotic reports the current regime.
func (e *Estimator) Chaotic() bool {
	return e.chaotic.Load()
}

// Previous returns the retained pose, if any.
func (e *Estimator) Previous() (Pose, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.previous == nil {
		return Pose{}, false
	}
	return *e.previous, true
}

// Estimate solves for the camera pose given image points in reference order.
//
// Without a previous pose, or with warm-starting disabled, it solves unguided
// and returns the raw result. Otherwise it solves from the previous pose,
// smooths the result through the active bank and retains the smoothed pose.
func (e *Estimator) Estimate(points []Point2) (Result, error) {
	e.mu.RLock()
	refs := e.references
	previous := e.previous
	e.mu.RUnlock()

	if len(refs) == 0 {
		return Result{}, ErrNoReferencePoints
	}
	if len(points) != len(refs) {
		return Result{}, fmt.Errorf("%w: %d image points for %d references", ErrPointCountMismatch, len(points), len(refs))
	}

	var (
		current  Pose
		smoothed bool
	)

	if previous != nil && e.useGuess.Load() {
		guess := *previous
		raw, err := e.solver.Solve(refs, points, e.intrinsics, e.distortion, &guess)
		if err != nil {
			return Result{}, fmt.Errorf("guided solve: %w", err)
		}

		bank := e.observe
		if e.chaotic.Load() {
			bank = e.predict
		}
		current = bank.Apply(raw)
		smoothed = true

		debug.TrackLog("🎯 solve %s → %s [%s]\n", raw, current, bank.Name())
	} else {
		raw, err := e.solver.Solve(refs, points, e.intrinsics, e.distortion, nil)
		if err != nil {
			return Result{}, fmt.Errorf("unguided solve: %w", err)
		}
		current = raw

		e.logger.Debug("unguided solve", "pose", raw.String())
	}

	e.mu.Lock()
	retained := current
	e.previous = &retained
	e.mu.Unlock()

	flipped := current.FlipX()
	return Result{
		Rotation:    geom.RotationTransform(geom.Rodrigues(flipped.Rotation)),
		Translation: geom.Translation(flipped.Translation),
		Pose:        current,
		Smoothed:    smoothed,
	}, nil
}
