// Package http serves the compression service over a JSON API.
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/config"
	"github.com/fyrsmithlabs/coon/internal/logging"
	"github.com/fyrsmithlabs/coon/internal/telemetry"
)

// Server exposes a compression.Service over HTTP.
type Server struct {
	echo     *echo.Echo
	svc      *compression.Service
	tel      *telemetry.Telemetry
	logger   *logging.Logger
	config   config.ServerConfig
	defaults compression.Options
	version  string
	prom     *prometheus.Registry
}

// Option configures a Server.
type Option func(*Server)

// WithTelemetry reports telemetry health and records request metrics with
// its meter provider.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Server) { s.tel = tel }
}

// WithLogger sets the request logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDefaults sets the options used for request flags left unset.
func WithDefaults(opts compression.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a new HTTP server.
func NewServer(svc *compression.Service, cfg config.ServerConfig, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("compression service cannot be nil")
	}

	s := &Server{
		svc:     svc,
		config:  cfg,
		logger:  logging.NewNop(),
		version: "dev",
		prom:    prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.prom.Register(svc.Store().Collector()); err != nil {
		return nil, err
	}
	s.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(s.tel.MeterProvider(), s.logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(metrics.MetricsMiddleware())
	e.Use(s.logRequests)
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	s.echo = e
	s.registerRoutes()
	return s, nil
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		ctx := logging.WithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
		s.logger.Info(ctx, "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.prom, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(rateLimit(s.config.RateLimit, s.config.RateBurst))
	}
	if s.config.APIKey.IsSet() {
		v1.Use(middleware.KeyAuth(s.validKey))
	}
	v1.POST("/compress", s.handleCompress)
	v1.POST("/compress/batch", s.handleCompressBatch)
	v1.POST("/decompress", s.handleDecompress)
	v1.POST("/analyze", s.handleAnalyze)
	v1.POST("/validate", s.handleValidate)
	v1.GET("/strategies", s.handleStrategies)
	v1.GET("/components", s.handleComponents)
	v1.GET("/components/:id", s.handleComponent)
}

func (s *Server) validKey(key string, _ echo.Context) (bool, error) {
	want := s.config.APIKey.Value()
	return subtle.ConstantTimeCompare([]byte(key), []byte(want)) == 1, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
