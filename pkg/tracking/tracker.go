// Package tracking drives the AR viewer's camera from live head pose.
//
// Four periodic tasks share one Tracker: scene sync, one-shot
// initialization of the reference point cloud, pose updates from the live
// feed and stability evaluation. Each task is skipped, not queued, while
// its previous run is still in flight.
package tracking

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	met "github.com/rcrowley/go-metrics"
	"github.com/teslashibe/go-arpose/pkg/debug"
	"github.com/teslashibe/go-arpose/pkg/feed"
	"github.com/teslashibe/go-arpose/pkg/geom"
	"github.com/teslashibe/go-arpose/pkg/pose"
	"github.com/teslashibe/go-arpose/pkg/scene"
	"github.com/teslashibe/go-arpose/pkg/tracking/detection"
	"gonum.org/v1/gonum/spatial/r3"
)

// Phase is the tracker lifecycle stage. It only moves forward.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseTracking
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseTracking:
		return "tracking"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Viewer is the 3D view the tracker reads references from and steers.
type Viewer interface {
	Raycaster

	Render() image.Image
	Objects() []*scene.Object
	Add(o *scene.Object) bool
	Remove(o *scene.Object) bool
	Matches(inv scene.Inventory) bool

	CameraTransform() geom.Mat4
	SetCameraTransform(m geom.Mat4)
	SetControlsEnabled(enabled bool)
}

// StateUpdater interface for updating dashboard state
type StateUpdater interface {
	UpdateStatus(s Status)
	AddLog(logType, message string)
}

// Status is a snapshot of the tracker for display.
type Status struct {
	Phase    string     `json:"phase"`
	Position [3]float64 `json:"position"` // Camera position in the scene
	Rotation [3]float64 `json:"rotation"` // Camera XYZ Euler angles, degrees
	Chaotic  bool       `json:"chaotic"`
	Smoothed bool       `json:"smoothed"`
	Feed     bool       `json:"feed"`
	Updated  time.Time  `json:"updated"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithMetrics shares a metrics set with the caller.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithKeyPoints overrides the landmark subset (default FaceMeshKeyPoints).
func WithKeyPoints(k KeyPoints) Option {
	return func(t *Tracker) {
		t.keys = k
	}
}

// Tracker orchestrates detection, pose estimation and the viewer camera.
type Tracker struct {
	viewer    Viewer
	inventory scene.Inventory
	feed      feed.Feed
	detector  detection.Detector
	estimator *pose.Estimator
	keys      KeyPoints
	metrics   *Metrics
	logger    *slog.Logger
	state     StateUpdater

	phase atomic.Int32

	// Detector calls are serialized across tasks.
	detectMu sync.Mutex

	// Re-entrancy guards, one per task.
	syncBusy      atomic.Bool
	initBusy      atomic.Bool
	poseBusy      atomic.Bool
	stabilityBusy atomic.Bool
	wg            sync.WaitGroup

	mu         sync.RWMutex
	config     Config
	limiter    *AngleLimiter
	builder    *CorrespondenceBuilder // Observation builder over the resolved key points
	status     Status
	lastLogged r3.Vec
}

// New creates a tracker. Orbit controls stay locked until initialization
// succeeds.
func New(config Config, viewer Viewer, inventory scene.Inventory, f feed.Feed, detector detection.Detector, estimator *pose.Estimator, opts ...Option) *Tracker {
	t := &Tracker{
		config:    config,
		viewer:    viewer,
		inventory: inventory,
		feed:      f,
		detector:  detector,
		estimator: estimator,
		keys:      FaceMeshKeyPoints,
		limiter:   NewAngleLimiter(config.ChaosThreshold),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.logger = t.logger.With("component", "tracker")
	if t.metrics == nil {
		t.metrics = NewMetrics()
	}

	t.status.Phase = PhaseUninitialized.String()
	viewer.SetControlsEnabled(false)
	return t
}

// SetStateUpdater sets the dashboard state updater
func (t *Tracker) SetStateUpdater(state StateUpdater) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// Phase returns the lifecycle stage.
func (t *Tracker) Phase() Phase {
	return Phase(t.phase.Load())
}

// Metrics returns the tracker's metrics.
func (t *Tracker) Metrics() *Metrics {
	return t.metrics
}

// Estimator returns the pose estimator.
func (t *Tracker) Estimator() *pose.Estimator {
	return t.estimator
}

// Config returns the current configuration.
func (t *Tracker) Config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// Status returns the latest status snapshot.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.status
	s.Phase = t.Phase().String()
	s.Chaotic = t.estimator.Chaotic()
	s.Feed = t.feed.Active()
	return s
}

// Run starts the tracking loops and blocks until ctx is done and all
// in-flight tasks have returned.
func (t *Tracker) Run(ctx context.Context) {
	cfg := t.Config()

	syncTicker := time.NewTicker(cfg.SyncInterval)
	initTicker := time.NewTicker(cfg.InitInterval)
	poseTicker := time.NewTicker(cfg.PoseInterval)
	stabilityTicker := time.NewTicker(cfg.StabilityInterval)
	defer syncTicker.Stop()
	defer initTicker.Stop()
	defer poseTicker.Stop()
	defer stabilityTicker.Stop()

	t.logger.Info("tracker started",
		"sync", cfg.SyncInterval,
		"init", cfg.InitInterval,
		"pose", cfg.PoseInterval,
		"stability", cfg.StabilityInterval,
		"key_points", t.keys.Len(),
		"chaos_threshold", cfg.ChaosThreshold)

	for {
		select {
		case <-ctx.Done():
			t.wg.Wait()
			t.logger.Info("tracker stopped")
			return

		case <-syncTicker.C:
			t.launch(&t.syncBusy, t.metrics.SkippedSync, func() {
				t.SyncScene()
			})

		case <-initTicker.C:
			if t.Phase() == PhaseTracking {
				initTicker.Stop()
				continue
			}
			t.launch(&t.initBusy, t.metrics.SkippedInit, func() {
				if err := t.Initialize(ctx); err != nil && ctx.Err() == nil {
					t.logger.Warn("initialization failed", "error", err)
				}
			})

		case <-poseTicker.C:
			t.launch(&t.poseBusy, t.metrics.SkippedPose, func() {
				if err := t.UpdatePose(ctx); err != nil && ctx.Err() == nil {
					t.logger.Error("pose update failed", "error", err)
				}
			})

		case <-stabilityTicker.C:
			t.launch(&t.stabilityBusy, t.metrics.SkippedStability, t.EvaluateStability)
		}
	}
}

// launch runs task on its own goroutine unless the previous run behind
// guard is still going, in which case the tick is dropped.
func (t *Tracker) launch(guard *atomic.Bool, skipped met.Counter, task func()) {
	if !guard.CompareAndSwap(false, true) {
		skipped.Inc(1)
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer guard.Store(false)
		task()
	}()
}

// SyncScene makes the viewer's objects match the inventory and reports
// whether they now match.
func (t *Tracker) SyncScene() bool {
	wanted := t.inventory.Objects()
	present := t.viewer.Objects()

	inScene := make(map[*scene.Object]struct{}, len(present))
	for _, o := range present {
		inScene[o] = struct{}{}
	}
	inInventory := make(map[*scene.Object]struct{}, len(wanted))
	for _, o := range wanted {
		inInventory[o] = struct{}{}
	}

	added, removed := 0, 0
	for _, o := range wanted {
		if _, ok := inScene[o]; !ok && t.viewer.Add(o) {
			added++
		}
	}
	for _, o := range present {
		if _, ok := inInventory[o]; !ok && t.viewer.Remove(o) {
			removed++
		}
	}
	t.metrics.SceneAdds.Inc(int64(added))
	t.metrics.SceneRemoves.Inc(int64(removed))

	matches := t.viewer.Matches(t.inventory)
	if added > 0 || removed > 0 {
		t.logger.Info("scene synced", "added", added, "removed", removed, "matches", matches)
	} else {
		t.logger.Debug("scene synced", "matches", matches)
	}
	return matches
}

// Initialize captures the reference point cloud from the rendered view.
// It is a no-op once tracking has started. A frame without a face is not
// an error; the next call retries.
func (t *Tracker) Initialize(ctx context.Context) error {
	if t.Phase() == PhaseTracking {
		return nil
	}
	t.phase.CompareAndSwap(int32(PhaseUninitialized), int32(PhaseInitializing))

	frame := t.viewer.Render()
	landmarks, err := t.detect(ctx, frame)
	if err != nil {
		return err
	}
	if len(landmarks) == 0 {
		t.metrics.Misses.Inc(1)
		debug.TrackLog("👁️  No face in rendered view\n")
		return nil
	}

	cfg := t.Config()
	refs, err := NewCorrespondenceBuilder(t.keys, cfg.Width, cfg.Height).References(landmarks, t.viewer)
	if err != nil {
		return fmt.Errorf("build references: %w", err)
	}

	need := cfg.requiredResolved(t.keys.Len())
	if need < pose.MinPoints {
		need = pose.MinPoints
	}
	if got := refs.ResolvedCount(); got < need {
		return fmt.Errorf("%w: %d of %d (need %d), missing %v",
			ErrNotEnoughReferences, got, t.keys.Len(), need, refs.Missing())
	}

	keys, points := refs.Resolved()
	t.estimator.SetReferencePoints(points)

	t.mu.Lock()
	t.builder = NewCorrespondenceBuilder(keys, cfg.Width, cfg.Height)
	t.mu.Unlock()

	t.viewer.SetControlsEnabled(true)
	t.phase.Store(int32(PhaseTracking))
	t.metrics.Initializations.Inc(1)

	t.logger.Info("initialized", "references", len(points), "missing", len(refs.Missing()))
	t.notifyLog("init", fmt.Sprintf("Reference cloud captured (%d points)", len(points)))
	t.publish(t.Status())
	return nil
}

// UpdatePose runs one live-feed cycle: lock or release the orbit controls
// according to the feed, then detect, estimate and move the camera.
func (t *Tracker) UpdatePose(ctx context.Context) error {
	tracking := t.Phase() == PhaseTracking
	active := t.feed.Active()

	if active {
		t.viewer.SetControlsEnabled(false)
	} else if tracking {
		t.viewer.SetControlsEnabled(true)
		t.estimator.SetUseExtrinsicGuess(false)
	}

	if !tracking || !active || !t.feed.Ready() {
		return nil
	}

	frame, err := t.feed.Frame(ctx)
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	landmarks, err := t.detect(ctx, frame)
	if err != nil {
		return err
	}
	if len(landmarks) == 0 {
		t.metrics.Misses.Inc(1)
		return nil
	}

	t.mu.RLock()
	builder := t.builder
	t.mu.RUnlock()

	points, err := builder.Observations(landmarks)
	if err != nil {
		return fmt.Errorf("build observations: %w", err)
	}

	start := time.Now()
	res, err := t.estimator.Estimate(points)
	t.metrics.EstimateTimer.UpdateSince(start)
	if err != nil {
		t.metrics.SolveErrors.Inc(1)
		return fmt.Errorf("estimate pose: %w", err)
	}

	camera := geom.Identity4().Mul(res.Transform())
	t.viewer.SetCameraTransform(camera)
	t.estimator.SetUseExtrinsicGuess(true)
	t.metrics.Estimates.Inc(1)

	t.record(camera, res.Smoothed)
	return nil
}

// EvaluateStability flags the pose as chaotic when the camera has swung
// too far from the head's forward axis.
func (t *Tracker) EvaluateStability() {
	if t.Phase() != PhaseTracking || !t.feed.Active() || !t.feed.Ready() {
		return
	}

	t.mu.RLock()
	limiter := t.limiter
	axis := t.config.ForwardAxis
	t.mu.RUnlock()

	position := t.viewer.CameraTransform().Position()
	chaotic := limiter.IsOutOfRange(position, axis)
	was := t.estimator.Chaotic()
	t.estimator.SetChaotic(chaotic)

	if chaotic {
		t.metrics.ChaoticCycles.Inc(1)
		debug.TrackLog("⚠️  High uncertainty: %.1f° off axis\n", Angle(position, axis))
	}
	if chaotic != was {
		t.logger.Info("stability changed", "chaotic", chaotic, "angle", Angle(position, axis))
		t.notifyLog("stability", fmt.Sprintf("chaotic=%v", chaotic))
	}
}

func (t *Tracker) detect(ctx context.Context, img image.Image) ([]detection.Landmark, error) {
	t.detectMu.Lock()
	defer t.detectMu.Unlock()

	start := time.Now()
	landmarks, err := t.detector.Detect(ctx, img)
	t.metrics.DetectTimer.UpdateSince(start)
	if err != nil {
		t.metrics.DetectErrors.Inc(1)
		return nil, fmt.Errorf("detect landmarks: %w", err)
	}
	return landmarks, nil
}

func (t *Tracker) record(camera geom.Mat4, smoothed bool) {
	pos := camera.Position()
	euler := geom.EulerXYZ(camera.Rotation())

	t.mu.Lock()
	t.status.Position = [3]float64{pos.X, pos.Y, pos.Z}
	t.status.Rotation = [3]float64{geom.Degrees(euler.X), geom.Degrees(euler.Y), geom.Degrees(euler.Z)}
	t.status.Smoothed = smoothed
	t.status.Updated = time.Now()
	moved := r3.Norm(r3.Sub(pos, t.lastLogged)) > t.config.LogThreshold
	if moved {
		t.lastLogged = pos
	}
	t.mu.Unlock()

	if moved {
		t.logger.Debug("camera moved", "x", pos.X, "y", pos.Y, "z", pos.Z)
	}
	debug.TrackLog("📷 Camera (%.1f, %.1f, %.1f) smoothed=%v\n", pos.X, pos.Y, pos.Z, smoothed)
	t.publish(t.Status())
}

func (t *Tracker) publish(s Status) {
	t.mu.RLock()
	state := t.state
	t.mu.RUnlock()
	if state != nil {
		state.UpdateStatus(s)
	}
}

func (t *Tracker) notifyLog(logType, message string) {
	t.mu.RLock()
	state := t.state
	t.mu.RUnlock()
	if state != nil {
		state.AddLog(logType, message)
	}
}
