// Package http provides the HTTP API for evidenced.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/evidenced/internal/auth"
	"github.com/fyrsmithlabs/evidenced/internal/logging"
	"github.com/fyrsmithlabs/evidenced/internal/pipeline"
	"github.com/fyrsmithlabs/evidenced/internal/vectorstore"
)

// Server provides HTTP endpoints for evidenced.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// JWTSecret signs and verifies bearer tokens for the API group.
	JWTSecret string

	// Gatherer serves /metrics. Nil uses the default gatherer.
	Gatherer prometheus.Gatherer
}

// NewServer creates a new HTTP server.
func NewServer(p *pipeline.Pipeline, logger *logging.Logger, cfg *Config) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware. The access log records method, path, status, and timing.
	// Request and response bodies never reach logs; prompts and answers are
	// tenant data. The request ID is bound into the request context so every
	// log line downstream carries it.
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), rid)
			c.SetRequest(c.Request().WithContext(ctx))

			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			// Auth middleware has bound the tenant into the request context
			// by now; the access log picks both correlation fields up.
			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		pipeline: p,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1", auth.Middleware(s.config.JWTSecret))
	v1.POST("/chat", s.handleChat)
	v1.POST("/ingest", s.handleIngest)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleChat answers a tenant-scoped question.
func (s *Server) handleChat(c echo.Context) error {
	p, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := auth.RequireScopes(p, "chat"); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "missing required scope")
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := auth.EnforceTenant(req.TenantID, p); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "tenant mismatch")
	}

	res, err := s.pipeline.Answer(c.Request().Context(), req.TenantID, req.Question)
	if err != nil {
		return s.mapPipelineError(c, err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		TenantID: res.TenantID,
		Answer:   res.Answer,
		Evidence: res.Evidence,
	})
}

// handleIngest stores a tenant-scoped document.
func (s *Server) handleIngest(c echo.Context) error {
	p, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := auth.RequireScopes(p, "ingest:write"); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "missing required scope")
	}

	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := auth.EnforceTenant(req.TenantID, p); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "tenant mismatch")
	}

	res, err := s.pipeline.Ingest(c.Request().Context(), pipeline.IngestRequest{
		TenantID: req.TenantID,
		Source:   req.Source,
		DocID:    req.DocID,
		Text:     req.Text,
	})
	if err != nil {
		return s.mapPipelineError(c, err)
	}

	return c.JSON(http.StatusCreated, IngestResponse{
		Status: "ingested",
		DocID:  res.DocID,
		Chunks: res.Chunks,
	})
}

// mapPipelineError translates pipeline errors to HTTP responses. Validation
// failures expose their code only; dependency failures expose nothing.
func (s *Server) mapPipelineError(c echo.Context, err error) error {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Code)
	}
	if errors.Is(err, vectorstore.ErrRetrievalUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "retrieval unavailable")
	}
	s.logger.Error(c.Request().Context(), "pipeline error", zap.Error(err))
	return echo.NewHTTPError(http.StatusServiceUnavailable, "service unavailable")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
