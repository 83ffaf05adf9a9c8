// Package httpapi serves arm status and accepts input events over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"roboarm/internal/core"
	"roboarm/internal/logging"
	"roboarm/pkg/types"
)

// Arm is the part of arm.Controller the API needs.
type Arm interface {
	Frame() *types.Frame
	Submit(ev core.Event) bool
	Capacity() int
}

type Server struct {
	app    *fiber.App
	config types.HTTPConfig
	arm    Arm
	logger *logging.Logger
}

type eventRequest struct {
	Type string   `json:"type"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
}

// NewServer builds the fiber app and its routes for arm.
func NewServer(config types.HTTPConfig, arm Arm) *Server {
	s := &Server{
		config: config,
		arm:    arm,
		logger: logging.GetLogger("http_api"),
	}

	s.app = fiber.New(fiber.Config{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		AppName:      "roboarm",
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	s.app.Get("/health/live", s.liveness)
	s.app.Get("/health/ready", s.readiness)

	api := s.app.Group("/api/v1")
	api.Get("/frame", s.getFrame)
	api.Get("/waypoints", s.getWaypoints)
	api.Post("/events", s.postEvent)

	return s
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks until the server stops.
func (s *Server) Listen() error {
	s.logger.Info("HTTP API listening", "address", s.config.Address)
	if err := s.app.Listen(s.config.Address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// readiness reports ready once the frame loop has produced a frame.
func (s *Server) readiness(c fiber.Ctx) error {
	f := s.arm.Frame()
	if f == nil || f.Seq == 0 {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "starting"})
	}
	return c.JSON(fiber.Map{"status": "ready", "seq": f.Seq})
}

func (s *Server) getFrame(c fiber.Ctx) error {
	f := s.arm.Frame()
	if f == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "no frame yet"})
	}
	return c.JSON(f)
}

func (s *Server) getWaypoints(c fiber.Ctx) error {
	var waypoints []types.Point2D
	if f := s.arm.Frame(); f != nil {
		waypoints = f.Waypoints
	}
	if waypoints == nil {
		waypoints = []types.Point2D{}
	}
	return c.JSON(fiber.Map{
		"count":     len(waypoints),
		"capacity":  s.arm.Capacity(),
		"waypoints": waypoints,
	})
}

func (s *Server) postEvent(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "empty body"})
	}

	var req eventRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	t, ok := core.ParseEventType(req.Type)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown event type %q", req.Type)})
	}

	var pos types.Point2D
	if t == core.EventTypePointer {
		if req.X == nil || req.Y == nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "pointer events require x and y"})
		}
		pos = types.Point2D{X: *req.X, Y: *req.Y}
	}

	if !s.arm.Submit(core.NewEvent(t, "http:"+c.IP(), pos)) {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "event queue full"})
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "queued", "type": string(t)})
}
