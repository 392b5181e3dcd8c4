// Package config loads coon settings from defaults, an optional YAML file and
// COON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/coon/internal/strategy"
)

// Config is the complete coon configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Compression CompressionConfig `koanf:"compression"`
	Registry    RegistryConfig    `koanf:"registry"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	BodyLimit       string   `koanf:"body_limit"` // echo size, e.g. "2M"
	RateLimit       float64  `koanf:"rate_limit"` // requests per second; 0 disables
	RateBurst       int      `koanf:"rate_burst"`
	APIKey          Secret   `koanf:"api_key"` // optional bearer token for /api
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CompressionConfig holds compression service defaults.
type CompressionConfig struct {
	DefaultStrategy   string `koanf:"default_strategy"`
	MaxInputBytes     int    `koanf:"max_input_bytes"`
	Analyze           bool   `koanf:"analyze"`
	Validate          bool   `koanf:"validate"`
	RecordMetrics     bool   `koanf:"record_metrics"`
	StrictValidation  bool   `koanf:"strict_validation"`
	BatchConcurrency  int    `koanf:"batch_concurrency"`
	AnalysisCacheSize int    `koanf:"analysis_cache_size"`
	PreferSpeed       bool   `koanf:"prefer_speed"`
	Selection         string `koanf:"selection"` // scored or analyzer
}

// RegistryConfig controls the component registry.
type RegistryConfig struct {
	Path         string `koanf:"path"` // JSON file; empty keeps the registry in memory
	LoadDefaults bool   `koanf:"load_defaults"`
	Watch        bool   `koanf:"watch"`
}

// LoggingConfig is the user-facing subset of logging settings.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	OTEL     bool   `koanf:"otel"`
	Caller   bool   `koanf:"caller"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig is the user-facing subset of OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`
	Endpoint       string   `koanf:"endpoint"`
	Protocol       string   `koanf:"protocol"` // grpc or http/protobuf
	Insecure       bool     `koanf:"insecure"`
	SampleRate     float64  `koanf:"sample_rate"`
	ExportInterval Duration `koanf:"export_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
			BodyLimit:       "2M",
			RateLimit:       50,
			RateBurst:       100,
		},
		Compression: CompressionConfig{
			DefaultStrategy:   strategy.Auto.String(),
			MaxInputBytes:     1 << 20,
			RecordMetrics:     true,
			BatchConcurrency:  4,
			AnalysisCacheSize: 256,
			Selection:         "scored",
		},
		Registry: RegistryConfig{
			LoadDefaults: true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Sampling: true,
		},
		Telemetry: TelemetryConfig{
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			SampleRate:     1.0,
			ExportInterval: Duration(15 * time.Second),
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be >= 0, got %v", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be >= 1 when rate limiting"))
	}

	if _, ok := strategy.Lookup(c.Compression.DefaultStrategy); !ok {
		errs = append(errs, fmt.Errorf("compression.default_strategy: unknown strategy %q", c.Compression.DefaultStrategy))
	}
	if c.Compression.MaxInputBytes < 0 {
		errs = append(errs, errors.New("compression.max_input_bytes must be >= 0"))
	}
	if c.Compression.BatchConcurrency < 1 {
		errs = append(errs, errors.New("compression.batch_concurrency must be >= 1"))
	}
	if c.Compression.AnalysisCacheSize < 0 {
		errs = append(errs, errors.New("compression.analysis_cache_size must be >= 0"))
	}
	switch strings.ToLower(c.Compression.Selection) {
	case "", "scored", "analyzer":
	default:
		errs = append(errs, fmt.Errorf("compression.selection must be scored or analyzer, got %q", c.Compression.Selection))
	}

	if c.Registry.Watch && c.Registry.Path == "" {
		errs = append(errs, errors.New("registry.watch requires registry.path"))
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate))
		}
		if c.Telemetry.ExportInterval.Duration() <= 0 {
			errs = append(errs, errors.New("telemetry.export_interval must be positive"))
		}
	}

	return errors.Join(errs...)
}
