// Package web provides the real-time dashboard for the AR viewer
package web

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-arpose/pkg/hub"
	"github.com/teslashibe/go-arpose/pkg/scene"
	"github.com/teslashibe/go-arpose/pkg/tracking"
)

const maxLogs = 500

// Tracker is the part of the tracking orchestrator the dashboard reads and tunes.
type Tracker interface {
	Status() tracking.Status
	Metrics() *tracking.Metrics
	GetTuningParams() tracking.TuningParams
	SetTuningParams(tracking.TuningParams)
}

// FeedSwitch turns the live camera on and off.
type FeedSwitch interface {
	Start(ctx context.Context) error
	Stop() error
	Active() bool
	Ready() bool
}

// Controls is the viewer's orbit input.
type Controls interface {
	Enabled() bool
	Rotate(dAzimuth, dPolar float64) error
	Dolly(factor float64) error
	Distance() float64
}

// Objects is the object inventory shown in the dashboard.
type Objects interface {
	Objects() []*scene.Object
	Get(id uuid.UUID) (*scene.Object, bool)
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // init, stability, feed, error
	Message string `json:"message"`
}

// Option configures a Server.
type Option func(*Server)

// WithTracker connects the status, metrics and tuning endpoints.
func WithTracker(t Tracker) Option {
	return func(s *Server) { s.tracker = t }
}

// WithFeed connects the feed toggle.
func WithFeed(f FeedSwitch) Option {
	return func(s *Server) { s.feed = f }
}

// WithControls connects the orbit endpoint.
func WithControls(c Controls) Option {
	return func(s *Server) { s.controls = c }
}

// WithObjects connects the object list.
func WithObjects(o Objects) Option {
	return func(s *Server) { s.objects = o }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStaticDir serves dashboard assets from dir.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithJPEGQuality sets the viewer stream quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(s *Server) { s.jpegQuality = q }
}

// Server is the web dashboard server
type Server struct {
	app         *fiber.App
	port        string
	logger      *slog.Logger
	staticDir   string
	jpegQuality int

	tracker  Tracker
	feed     FeedSwitch
	controls Controls
	objects  Objects

	// Context the feed read loop runs under; set by Start
	baseMu  sync.RWMutex
	baseCtx context.Context

	status   tracking.Status
	statusMu sync.RWMutex

	// Log buffer (last maxLogs entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
	viewerHub *hub.Hub
}

// NewServer creates a new web dashboard server
func NewServer(port string, opts ...Option) *Server {
	s := &Server{
		port:        port,
		jpegQuality: 70,
		baseCtx:     context.Background(),
		logs:        make([]LogEntry, 0, maxLogs),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "web")

	s.statusHub = hub.New("status", hub.WithLogger(s.logger), hub.WithReplay())
	s.logHub = hub.New("logs", hub.WithLogger(s.logger))
	s.viewerHub = hub.New("viewer", hub.WithLogger(s.logger), hub.WithReplay())

	app := fiber.New(fiber.Config{
		AppName:               "AR Pose Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/metrics", s.handleMetrics)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Get("/feed", s.handleFeedState)
	api.Post("/feed/start", s.handleFeedStart)
	api.Post("/feed/stop", s.handleFeedStop)
	api.Get("/controls", s.handleControls)
	api.Post("/controls/orbit", s.handleOrbit)
	api.Get("/objects", s.handleListObjects)
	api.Put("/objects/:id/opacity", s.handleSetOpacity)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/viewer", websocket.New(s.handleViewerWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.baseMu.Lock()
	s.baseCtx = ctx
	s.baseMu.Unlock()

	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.viewerHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// UpdateStatus stores the tracker status and broadcasts it to clients.
func (s *Server) UpdateStatus(st tracking.Status) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()

	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	if err := s.logHub.BroadcastJSON(entry); err != nil {
		s.logger.Warn("encode log", "error", err)
	}
}

// SendFrame JPEG-encodes a rendered frame for viewer clients. Frames are
// skipped while nobody is watching.
func (s *Server) SendFrame(img image.Image) {
	if img == nil || s.viewerHub.ClientCount() == 0 {
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.jpegQuality}); err != nil {
		s.logger.Warn("encode frame", "error", err)
		return
	}
	s.viewerHub.BroadcastBinary(buf.Bytes())
}

func (s *Server) feedContext() context.Context {
	s.baseMu.RLock()
	defer s.baseMu.RUnlock()
	return s.baseCtx
}
