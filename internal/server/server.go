// Package server exposes announcement parsing over HTTP.
package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// Version is reported by the health endpoint.
var Version = "dev"

// maxTextLength bounds the announcement text accepted by /api/parse.
const maxTextLength = 4096

// ParseRequest is the body of POST /api/parse.
type ParseRequest struct {
	Text              string          `json:"text"`
	Timestamp         string          `json:"timestamp,omitempty"`
	Metadata          record.Metadata `json:"metadata"`
	AllowMissingClass *bool           `json:"allowMissingClass,omitempty"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the fiber app and its dependencies.
type Server struct {
	app     *fiber.App
	opts    record.ScreenOptions
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New builds the app. opts are the default screening policies; a request
// may override AllowMissingClass.
func New(opts record.ScreenOptions, m *metrics.Metrics, log *logger.Logger) *Server {
	if m == nil {
		m = metrics.Default
	}
	if log == nil {
		log = logger.Default()
	}
	s := &Server{opts: opts, metrics: m, log: log}

	app := fiber.New(fiber.Config{
		AppName:               "speedhive-tools",
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(s.requestLogger)

	app.Get("/api/health", s.handleHealth)
	app.Post("/api/parse", s.handleParse)
	app.Post("/api/validate", s.handleValidate)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("HTTP server listening", logger.Fields{"address": addr})
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting up to timeout for active requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("HTTP request", logger.Fields{
		"method":   c.Method(),
		"path":     c.Path(),
		"status":   c.Response().StatusCode(),
		"duration": time.Since(start).String(),
	})
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("HTTP handler failed", logger.Fields{"path": c.Path()}, err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleParse(c *fiber.Ctx) error {
	var req ParseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}
	if len(req.Text) > maxTextLength {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "text is too long")
	}

	opts := s.opts
	if req.AllowMissingClass != nil {
		opts.AllowMissingClass = *req.AllowMissingClass
	}

	outcome := record.Screen(record.Announcement{
		Text:      req.Text,
		Timestamp: req.Timestamp,
		Metadata:  req.Metadata,
	}, opts)
	s.metrics.ObserveAnnouncement(string(outcome.Status))

	return c.JSON(outcome)
}

func (s *Server) handleValidate(c *fiber.Ctx) error {
	var candidate record.Candidate
	if err := c.BodyParser(&candidate); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return c.JSON(record.Validate(&candidate))
}
