package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-arpose/pkg/feed"
	"github.com/teslashibe/go-arpose/pkg/hub"
	"github.com/teslashibe/go-arpose/pkg/scene"
	"github.com/teslashibe/go-arpose/pkg/tracking"
)

func notConfigured(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

// handleStatus returns the latest tracker status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.tracker != nil {
		return c.JSON(s.tracker.Status())
	}
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleMetrics returns tracking and hub counters
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	out := fiber.Map{}
	if s.tracker != nil {
		out["tracking"] = s.tracker.Metrics().Snapshot()
	}
	hubs := fiber.Map{}
	for _, h := range []struct {
		name string
		hub  *hub.Hub
	}{{"status", s.statusHub}, {"logs", s.logHub}, {"viewer", s.viewerHub}} {
		hubs[h.name] = fiber.Map{
			"clients": h.hub.ClientCount(),
			"sent":    h.hub.Sent(),
			"dropped": h.hub.Dropped(),
		}
	}
	out["hubs"] = hubs
	return c.JSON(out)
}

// handleGetTuning returns current tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.tracker == nil {
		return notConfigured(c, "tracker")
	}
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetTuning applies non-zero tuning parameters
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	if s.tracker == nil {
		return notConfigured(c, "tracker")
	}
	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.tracker.SetTuningParams(params)
	got := s.tracker.GetTuningParams()
	s.AddLog("tuning", fmt.Sprintf("chaos=%.1f° min_resolved=%d", got.ChaosThreshold, got.MinResolved))
	return c.JSON(got)
}

func (s *Server) feedState() fiber.Map {
	return fiber.Map{"active": s.feed.Active(), "ready": s.feed.Ready()}
}

// handleFeedState reports whether the live feed is on
func (s *Server) handleFeedState(c *fiber.Ctx) error {
	if s.feed == nil {
		return notConfigured(c, "feed")
	}
	return c.JSON(s.feedState())
}

// handleFeedStart switches the live feed on
func (s *Server) handleFeedStart(c *fiber.Ctx) error {
	if s.feed == nil {
		return notConfigured(c, "feed")
	}
	err := s.feed.Start(s.feedContext())
	switch {
	case errors.Is(err, feed.ErrAlreadyActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		s.AddLog("error", "Feed start failed: "+err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	s.AddLog("feed", "Live feed on")
	return c.JSON(s.feedState())
}

// handleFeedStop switches the live feed off
func (s *Server) handleFeedStop(c *fiber.Ctx) error {
	if s.feed == nil {
		return notConfigured(c, "feed")
	}
	if err := s.feed.Stop(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	s.AddLog("feed", "Live feed off")
	return c.JSON(s.feedState())
}

// handleControls reports the orbit controls state
func (s *Server) handleControls(c *fiber.Ctx) error {
	if s.controls == nil {
		return notConfigured(c, "controls")
	}
	return c.JSON(fiber.Map{
		"enabled":  s.controls.Enabled(),
		"distance": s.controls.Distance(),
	})
}

// OrbitRequest is the request body for orbiting the viewer camera.
// Angles are radians; Dolly scales the distance to the target (0 leaves it).
type OrbitRequest struct {
	Azimuth float64 `json:"azimuth"`
	Polar   float64 `json:"polar"`
	Dolly   float64 `json:"dolly"`
}

// handleOrbit moves the viewer camera while the live feed is off
func (s *Server) handleOrbit(c *fiber.Ctx) error {
	if s.controls == nil {
		return notConfigured(c, "controls")
	}
	var req OrbitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err := s.controls.Rotate(req.Azimuth, req.Polar)
	if err == nil && req.Dolly != 0 {
		err = s.controls.Dolly(req.Dolly)
	}
	if errors.Is(err, scene.ErrControlsDisabled) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"distance": s.controls.Distance()})
}

// ObjectInfo describes one inventory object
type ObjectInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Opacity   float64 `json:"opacity"`
	Triangles int     `json:"triangles"`
}

// handleListObjects returns the inventory
func (s *Server) handleListObjects(c *fiber.Ctx) error {
	if s.objects == nil {
		return notConfigured(c, "objects")
	}
	objs := s.objects.Objects()
	out := make([]ObjectInfo, 0, len(objs))
	for _, o := range objs {
		out = append(out, ObjectInfo{
			ID:        o.ID.String(),
			Name:      o.Name,
			Color:     fmt.Sprintf("#%02x%02x%02x", o.Color.R, o.Color.G, o.Color.B),
			Opacity:   o.Opacity(),
			Triangles: len(o.Triangles()),
		})
	}
	return c.JSON(out)
}

// OpacityRequest is the request body for changing an object's opacity
type OpacityRequest struct {
	Opacity float64 `json:"opacity"`
}

// handleSetOpacity changes one object's opacity (0-1)
func (s *Server) handleSetOpacity(c *fiber.Ctx) error {
	if s.objects == nil {
		return notConfigured(c, "objects")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid object id"})
	}
	obj, ok := s.objects.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "object not found"})
	}

	var req OpacityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if req.Opacity < 0 || req.Opacity > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "opacity must be between 0 and 1"})
	}
	obj.SetOpacity(req.Opacity)
	return c.JSON(fiber.Map{"id": id.String(), "opacity": obj.Opacity()})
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleStatusWS streams status updates; the hub replays the latest one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

// handleLogsWS sends the log backlog, then streams new entries
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	backlog := make([]LogEntry, len(s.logs))
	copy(backlog, s.logs)
	s.logsMu.RUnlock()

	for _, entry := range backlog {
		if err := c.WriteJSON(entry); err != nil {
			return
		}
	}
	hub.NewClient(s.logHub, c).Run()
}

// handleViewerWS streams rendered viewer frames as JPEG
func (s *Server) handleViewerWS(c *websocket.Conn) {
	hub.NewClient(s.viewerHub, c).Run()
}
