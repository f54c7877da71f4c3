package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-arpose/internal/log"
	"github.com/teslashibe/go-arpose/pkg/debug"
	"github.com/teslashibe/go-arpose/pkg/feed"
	"github.com/teslashibe/go-arpose/pkg/pose"
	"github.com/teslashibe/go-arpose/pkg/scene"
	"github.com/teslashibe/go-arpose/pkg/tracking"
	"github.com/teslashibe/go-arpose/pkg/tracking/detection"
	"github.com/teslashibe/go-arpose/pkg/web"
)

// App is the AR viewer application.
type App struct {
	config Config
	logger *slog.Logger

	// Viewer
	engine  *scene.Engine
	cabinet *scene.Cabinet

	// Live feed
	source feed.Source
	feed   *feed.Switch

	// Tracking
	detector  detection.Detector
	solver    pose.Solver
	keys      *tracking.KeyPoints
	estimator *pose.Estimator
	tracker   *tracking.Tracker

	// Web dashboard
	webServer *web.Server
	frames    atomic.Int64

	wg sync.WaitGroup
}

// Option overrides a component, mainly for tests.
type Option func(*App)

// WithSource replaces the webcam.
func WithSource(src feed.Source) Option {
	return func(a *App) { a.source = src }
}

// WithDetector replaces the configured landmark detector.
func WithDetector(d detection.Detector, keys tracking.KeyPoints) Option {
	return func(a *App) {
		a.detector = d
		a.keys = &keys
	}
}

// WithSolver replaces the PnP solver.
func WithSolver(s pose.Solver) Option {
	return func(a *App) { a.solver = s }
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New creates a new viewer application with the given configuration.
// Environment overrides are the caller's job (see config.File.ApplyEnv).
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled.Store(cfg.Debug)
	debug.Tracking.Store(cfg.DebugTracking)

	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.Component("app")
	}
	return a, nil
}

// Init builds all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	a.logger.Info("initializing", "profile", a.config.Profile, "debug", a.config.Debug)

	a.initScene()

	if err := a.initFeed(); err != nil {
		return fmt.Errorf("feed init: %w", err)
	}
	if err := a.initTracking(); err != nil {
		return fmt.Errorf("tracking init: %w", err)
	}
	if !a.config.NoWeb {
		a.initWeb()
	}
	return nil
}

func (a *App) initScene() {
	a.engine = scene.NewEngine(a.config.File.Scene)
	a.cabinet = scene.NewCabinet()

	dir := a.config.File.ModelsDir
	n, err := scene.LoadDir(a.cabinet, dir)
	if err != nil {
		// Partial loads keep what parsed; tracking retries until the scene
		// can resolve the reference points.
		a.logger.Warn("loading meshes", "dir", dir, "loaded", n, "error", err)
		return
	}
	if n == 0 {
		a.logger.Warn("no meshes found", "dir", dir)
		return
	}
	a.logger.Info("meshes loaded", "dir", dir, "count", n)
}

func (a *App) initFeed() error {
	if a.source == nil {
		cam, err := feed.NewWebcam(a.config.File.Feed)
		if err != nil {
			return err
		}
		a.source = cam
	}
	a.feed = feed.NewSwitch(a.source, log.Component("feed"))
	return nil
}

func (a *App) initTracking() error {
	if a.detector == nil {
		det, err := detection.New(a.config.File.Detection)
		if err != nil {
			if errors.Is(err, detection.ErrModelNotFound) {
				a.logger.Error("landmark model missing",
					"path", a.config.File.Detection.ModelPath,
					"hint", "curl -L https://github.com/opencv/opencv_zoo/raw/main/models/face_detection_yunet/face_detection_yunet_2023mar.onnx -o models/face_detection_yunet.onnx")
			}
			return err
		}
		a.detector = det
		keys := keyPointsFor(a.config.File.Detection.Backend)
		a.keys = &keys
	}
	if a.solver == nil {
		a.solver = pose.NewLMSolver(pose.DefaultLMConfig())
	}

	estCfg := a.config.File.EstimatorConfig()
	estCfg.Logger = log.L()
	a.estimator = pose.NewEstimator(estCfg, a.solver)

	a.tracker = tracking.New(a.config.trackingConfig(), a.engine, a.cabinet, a.feed, a.detector, a.estimator,
		tracking.WithLogger(log.L()),
		tracking.WithKeyPoints(*a.keys))

	a.logger.Info("tracking ready",
		"backend", a.config.File.Detection.Backend,
		"key_points", a.keys.Len())
	if a.keys.Len() < tracking.FaceMeshKeyPoints.Len() {
		a.logger.Warn("sparse key point set, pose will be coarse",
			"key_points", a.keys.Len(),
			"full", tracking.FaceMeshKeyPoints.Len(),
			"hint", "set detection.backend: remote to use FaceMesh landmarks")
	}
	return nil
}

// keyPointsFor picks the key point subset matching a detector backend.
// Only the remote FaceMesh backend provides the full key point set; YuNet
// gives five landmarks, the bare minimum for a pose.
func keyPointsFor(backend string) tracking.KeyPoints {
	switch backend {
	case "", "yunet":
		return tracking.YuNetKeyPoints
	default:
		return tracking.FaceMeshKeyPoints
	}
}

func (a *App) initWeb() {
	a.webServer = web.NewServer(a.config.File.Port,
		web.WithTracker(a.tracker),
		web.WithFeed(a.feed),
		web.WithControls(a.engine.Controls()),
		web.WithObjects(a.cabinet),
		web.WithStaticDir(a.config.File.StaticDir),
		web.WithLogger(log.L()))
	a.tracker.SetStateUpdater(a.webServer)
}

// Run starts the tracker, renderer and dashboard.
// Blocks until ctx is cancelled and all loops have returned.
func (a *App) Run(ctx context.Context) error {
	if a.config.StartFeed {
		if err := a.feed.Start(ctx); err != nil {
			a.logger.Warn("live feed not started", "error", err)
		}
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.tracker.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		interval := time.Duration(a.config.FrameInterval) * time.Millisecond
		_ = a.engine.Animate(ctx, interval, a.onFrame)
	}()

	if a.webServer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.webServer.Start(ctx); err != nil {
				a.logger.Error("web server", "error", err)
			}
		}()
		a.webServer.AddLog("info", "Viewer started")
	}

	a.logger.Info("running", "feed", a.feed.Active(), "objects", a.cabinet.Len())
	<-ctx.Done()
	a.wg.Wait()
	return nil
}

func (a *App) onFrame(img image.Image) {
	if n := a.frames.Add(1); n%100 == 1 {
		debug.Log("🎥 Rendered %d frames, camera at %v\n", n, a.engine.Camera().Position())
	}
	if a.webServer != nil {
		a.webServer.SendFrame(img)
	}
}

// Shutdown releases the feed and detector.
func (a *App) Shutdown() {
	if a.feed != nil {
		if err := a.feed.Stop(); err != nil {
			a.logger.Warn("feed stop", "error", err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.logger.Warn("detector close", "error", err)
		}
	}
	a.logger.Info("stopped")
}

// Tracker returns the tracking orchestrator.
func (a *App) Tracker() *tracking.Tracker { return a.tracker }

// Engine returns the viewer.
func (a *App) Engine() *scene.Engine { return a.engine }

// Feed returns the live feed switch.
func (a *App) Feed() *feed.Switch { return a.feed }

// Cabinet returns the object inventory.
func (a *App) Cabinet() *scene.Cabinet { return a.cabinet }
