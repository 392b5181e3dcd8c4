package http

import (
	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/strategy"
	"github.com/fyrsmithlabs/coon/internal/telemetry"
	"github.com/fyrsmithlabs/coon/internal/validator"
)

// CompressRequest is the request body for POST /api/v1/compress.
// Unset flags fall back to the server defaults.
type CompressRequest struct {
	Content       string `json:"content"`
	Strategy      string `json:"strategy,omitempty"`
	Selection     string `json:"selection,omitempty"`
	Analyze       *bool  `json:"analyze,omitempty"`
	Validate      *bool  `json:"validate,omitempty"`
	RecordMetrics *bool  `json:"record_metrics,omitempty"`
	Format        bool   `json:"format,omitempty"`
	PreferSpeed   bool   `json:"prefer_speed,omitempty"`
}

// BatchRequest is the request body for POST /api/v1/compress/batch.
type BatchRequest struct {
	CompressRequest
	Contents []string `json:"contents"`
}

// BatchResponse is the response body for POST /api/v1/compress/batch.
type BatchResponse struct {
	Results []*compression.Result `json:"results"`
}

// DecompressRequest is the request body for POST /api/v1/decompress.
type DecompressRequest struct {
	Content string `json:"content"`
	Format  bool   `json:"format,omitempty"`
}

// DecompressResponse is the response body for POST /api/v1/decompress.
type DecompressResponse struct {
	Content string `json:"content"`
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Content string `json:"content"`
}

// ValidateRequest is the request body for POST /api/v1/validate. The
// compressed text is decompressed server-side when Decompressed is empty.
type ValidateRequest struct {
	Original     string `json:"original"`
	Compressed   string `json:"compressed"`
	Decompressed string `json:"decompressed,omitempty"`
}

// ValidateResponse is the response body for POST /api/v1/validate.
type ValidateResponse struct {
	validator.Result
	Decompressed string `json:"decompressed"`
}

// StrategyInfo describes one strategy and its observed performance.
type StrategyInfo struct {
	ID            strategy.ID      `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	MinSize       int              `json:"min_size"`
	MaxSize       int              `json:"max_size"`
	ExpectedRatio float64          `json:"expected_ratio"`
	Metrics       strategy.Metrics `json:"metrics"`
}

// StrategiesResponse is the response body for GET /api/v1/strategies.
type StrategiesResponse struct {
	Strategies []StrategyInfo `json:"strategies"`
}

// ComponentsResponse is the response body for GET /api/v1/components.
type ComponentsResponse struct {
	Components []*registry.Component `json:"components"`
	Stats      registry.Stats        `json:"stats"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Components int                     `json:"components"`
	Telemetry  *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
