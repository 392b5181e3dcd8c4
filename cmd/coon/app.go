package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/config"
	"github.com/fyrsmithlabs/coon/internal/logging"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/telemetry"
)

// app is the wired set of services one command runs against.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	reg    *registry.Registry
	svc    *compression.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	logger, err := logging.NewLogger(logCfg, logging.WithOTEL(tel.LoggerProvider()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", h.Problems))
	}

	reg, err := loadRegistry(ctx, cfg.Registry, logger)
	if err != nil {
		return nil, err
	}

	svcCfg, err := serviceConfig(cfg.Compression)
	if err != nil {
		return nil, err
	}
	svc, err := compression.NewService(svcCfg,
		compression.WithRegistry(reg),
		compression.WithLogger(logger.Named("compression")),
		compression.WithTracerProvider(tel.TracerProvider()),
		compression.WithMeterProvider(tel.MeterProvider()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create compression service: %w", err)
	}

	return &app{cfg: cfg, logger: logger, tel: tel, reg: reg, svc: svc}, nil
}

// Close flushes telemetry and logs.
func (a *app) Close(ctx context.Context) error {
	err := a.tel.Shutdown(ctx)
	_ = a.logger.Sync()
	return err
}

// defaults returns the per-call options configured for this run.
func (a *app) defaults() compression.Options {
	c := a.cfg.Compression
	return compression.Options{
		Analyze:       c.Analyze,
		Validate:      c.Validate,
		RecordMetrics: c.RecordMetrics,
		PreferSpeed:   c.PreferSpeed,
	}
}

func serviceConfig(c config.CompressionConfig) (compression.Config, error) {
	sel, err := compression.ParseSelection(c.Selection)
	if err != nil {
		return compression.Config{}, err
	}
	return compression.Config{
		DefaultStrategy:   c.DefaultStrategy,
		MaxInputBytes:     c.MaxInputBytes,
		StrictValidation:  c.StrictValidation,
		BatchConcurrency:  c.BatchConcurrency,
		AnalysisCacheSize: c.AnalysisCacheSize,
		Selection:         sel,
		PreferSpeed:       c.PreferSpeed,
	}, nil
}

// loadRegistry builds the registry from the built-in components and the
// configured file. A missing file leaves the registry as is; entries that
// fail validation are logged and skipped.
func loadRegistry(ctx context.Context, cfg config.RegistryConfig, logger *logging.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if cfg.LoadDefaults {
		reg = registry.Default()
	}
	if cfg.Path == "" {
		return reg, nil
	}
	if _, err := os.Stat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
		logger.Debug(ctx, "registry file not found", zap.String("path", cfg.Path))
		return reg, nil
	}

	var (
		n   int
		err error
	)
	if isTOML(cfg.Path) {
		n, err = reg.LoadTOML(cfg.Path)
	} else {
		n, err = reg.Load(cfg.Path)
	}
	if err != nil && !isValidationOnly(err) {
		return nil, fmt.Errorf("failed to load registry %s: %w", cfg.Path, err)
	}
	if err != nil {
		logger.Warn(ctx, "registry entries skipped", zap.String("path", cfg.Path), zap.Error(err))
	}
	logger.Debug(ctx, "registry loaded", zap.String("path", cfg.Path), zap.Int("loaded", n), zap.Int("total", reg.Len()))
	return reg, nil
}

func isValidationOnly(err error) bool {
	return errors.Is(err, registry.ErrInvalidComponent) || errors.Is(err, registry.ErrInvalidID)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// saveRegistry persists the registry to the configured JSON file.
func (a *app) saveRegistry() error {
	path := a.cfg.Registry.Path
	if path == "" {
		return errors.New("no registry file configured: set registry.path or pass --registry")
	}
	if isTOML(path) {
		return fmt.Errorf("registry %s is TOML; changes are saved as JSON only", path)
	}
	return a.reg.Save(path)
}
