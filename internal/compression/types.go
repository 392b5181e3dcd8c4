package compression

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/coon/internal/analyzer"
	"github.com/fyrsmithlabs/coon/internal/parser"
	"github.com/fyrsmithlabs/coon/internal/strategy"
	"github.com/fyrsmithlabs/coon/internal/validator"
)

// ErrInputTooLarge is returned when input exceeds Config.MaxInputBytes.
var ErrInputTooLarge = errors.New("input exceeds maximum size")

// Selection names the heuristic that resolves the auto strategy.
type Selection string

const (
	// SelectionScored scores every strategy against live metrics.
	SelectionScored Selection = "scored"
	// SelectionAnalyzer follows the analyzer's decision table.
	SelectionAnalyzer Selection = "analyzer"
)

// ParseSelection resolves a selection name, case-insensitively.
func ParseSelection(name string) (Selection, error) {
	switch Selection(strings.ToLower(strings.TrimSpace(name))) {
	case "", SelectionScored:
		return SelectionScored, nil
	case SelectionAnalyzer:
		return SelectionAnalyzer, nil
	}
	return "", fmt.Errorf("unknown selection %q: want %q or %q", name, SelectionScored, SelectionAnalyzer)
}

// Config holds service-wide settings.
type Config struct {
	// Strategy used when a request names none
	DefaultStrategy string

	// Largest accepted input in bytes; 0 disables the limit
	MaxInputBytes int

	// Whether round-trip mismatches are validation errors
	StrictValidation bool

	// Upper bound on parallel items in CompressBatch
	BatchConcurrency int

	// Number of analysis results kept in the LRU cache; 0 disables it
	AnalysisCacheSize int

	// Heuristic used to resolve the auto strategy
	Selection Selection

	// Favor strategies that skip structural analysis
	PreferSpeed bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy:   strategy.Auto.String(),
		MaxInputBytes:     1 << 20,
		BatchConcurrency:  4,
		AnalysisCacheSize: 256,
		Selection:         SelectionScored,
	}
}

// Options control a single compression call.
type Options struct {
	Strategy      string    // Free-text strategy name; unknown names mean basic
	Analyze       bool      // Attach analyzer output to the result
	Validate      bool      // Decompress and validate the round trip
	RecordMetrics bool      // Feed the outcome into the metrics store
	Format        bool      // Re-indent decompressed output
	PreferSpeed   bool      // Favor strategies that skip structural analysis
	Selection     Selection // Overrides Config.Selection when set
	RequestID     string    // Correlation id; generated when empty or invalid
}

// Result is the outcome of one compression call.
type Result struct {
	RequestID        string            `json:"request_id"`
	Compressed       string            `json:"compressed"`
	OriginalTokens   int               `json:"original_tokens"`
	CompressedTokens int               `json:"compressed_tokens"`
	Ratio            float64           `json:"compression_ratio"`
	Strategy         strategy.ID       `json:"strategy"`
	Analysis         *analyzer.Result  `json:"analysis,omitempty"`
	Structure        *parser.Node      `json:"structure,omitempty"`
	Decompressed     string            `json:"decompressed,omitempty"`
	Validation       *validator.Result `json:"validation,omitempty"`
	Elapsed          time.Duration     `json:"elapsed_ns"`
}

// TokensSaved is the original minus the compressed token estimate.
func (r *Result) TokensSaved() int {
	return r.OriginalTokens - r.CompressedTokens
}

// PercentSaved is the ratio expressed as a percentage.
func (r *Result) PercentSaved() float64 {
	return r.Ratio * 100
}
