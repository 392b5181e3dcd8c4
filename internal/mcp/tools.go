package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coon/internal/analyzer"
	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/validator"
)

var errInvalidArgument = errors.New("invalid argument")

func (s *Server) registerTools() {
	s.registerCompressTool()
	s.registerDecompressTool()
	s.registerAnalyzeTool()
	s.registerValidateTool()
}

// ===== COMPRESS =====

type compressInput struct {
	Content   string `json:"content" jsonschema:"Dart/Flutter source to compress"`
	Strategy  string `json:"strategy,omitempty" jsonschema:"Strategy name: auto basic aggressive component_ref ast_based semantic or hybrid (default: auto)"`
	Selection string `json:"selection,omitempty" jsonschema:"How auto is resolved: scored or analyzer"`
	Analyze   *bool  `json:"analyze,omitempty" jsonschema:"Attach code analysis to the result"`
	Validate  *bool  `json:"validate,omitempty" jsonschema:"Decompress and validate the round trip"`
	Format    bool   `json:"format,omitempty" jsonschema:"Re-indent decompressed output"`
}

type compressOutput struct {
	RequestID        string            `json:"request_id" jsonschema:"Correlation id"`
	Compressed       string            `json:"compressed" jsonschema:"COON text"`
	Strategy         string            `json:"strategy" jsonschema:"Strategy that produced the output"`
	OriginalTokens   int               `json:"original_tokens" jsonschema:"Estimated tokens in the input"`
	CompressedTokens int               `json:"compressed_tokens" jsonschema:"Estimated tokens in the output"`
	Ratio            float64           `json:"compression_ratio" jsonschema:"Fraction of tokens saved"`
	TokensSaved      int               `json:"tokens_saved" jsonschema:"Estimated tokens saved"`
	Decompressed     string            `json:"decompressed,omitempty" jsonschema:"Round-trip output when validated"`
	Validation       *validator.Result `json:"validation,omitempty" jsonschema:"Round-trip validation when requested"`
	Analysis         *analyzer.Result  `json:"analysis,omitempty" jsonschema:"Code analysis when requested"`
}

func (s *Server) registerCompressTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "coon_compress",
		Description: "Compress Dart/Flutter widget source into COON notation to save tokens",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args compressInput) (*mcp.CallToolResult, compressOutput, error) {
		var toolErr error
		done := s.metrics.track(ctx, "coon_compress")
		defer func() { done(toolErr) }()

		opts := s.defaults
		opts.Strategy = args.Strategy
		opts.Format = args.Format
		if args.Selection != "" {
			sel, err := compression.ParseSelection(args.Selection)
			if err != nil {
				toolErr = fmt.Errorf("%w: %v", errInvalidArgument, err)
				return nil, compressOutput{}, toolErr
			}
			opts.Selection = sel
		}
		if args.Analyze != nil {
			opts.Analyze = *args.Analyze
		}
		if args.Validate != nil {
			opts.Validate = *args.Validate
		}

		res, err := s.svc.Compress(ctx, args.Content, opts)
		if err != nil {
			toolErr = s.toolError(ctx, "coon_compress", err)
			return nil, compressOutput{}, toolErr
		}

		out := compressOutput{
			RequestID:        res.RequestID,
			Compressed:       res.Compressed,
			Strategy:         res.Strategy.String(),
			OriginalTokens:   res.OriginalTokens,
			CompressedTokens: res.CompressedTokens,
			Ratio:            res.Ratio,
			TokensSaved:      res.TokensSaved(),
			Decompressed:     res.Decompressed,
			Validation:       res.Validation,
			Analysis:         res.Analysis,
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: res.Compressed},
			},
		}, out, nil
	})
}

// ===== DECOMPRESS =====

type decompressInput struct {
	Content string `json:"content" jsonschema:"COON text to expand"`
	Format  bool   `json:"format,omitempty" jsonschema:"Re-indent the output"`
}

type decompressOutput struct {
	Content string `json:"content" jsonschema:"Expanded Dart source"`
}

func (s *Server) registerDecompressTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "coon_decompress",
		Description: "Expand COON notation back into Dart/Flutter source",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args decompressInput) (*mcp.CallToolResult, decompressOutput, error) {
		var toolErr error
		done := s.metrics.track(ctx, "coon_decompress")
		defer func() { done(toolErr) }()

		out, err := s.svc.Decompress(ctx, args.Content, args.Format)
		if err != nil {
			toolErr = s.toolError(ctx, "coon_decompress", err)
			return nil, decompressOutput{}, toolErr
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
		}, decompressOutput{Content: out}, nil
	})
}

// ===== ANALYZE =====

type analyzeInput struct {
	Content string `json:"content" jsonschema:"Dart/Flutter source to analyze"`
}

type analyzeOutput struct {
	Analysis            analyzer.Result  `json:"analysis" jsonschema:"Widget and property statistics"`
	TopWidgets          []analyzer.Count `json:"top_widgets" jsonschema:"Most frequent widgets"`
	RecommendedStrategy string           `json:"recommended_strategy" jsonschema:"Strategy suggested by the analysis"`
}

func (s *Server) registerAnalyzeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "coon_analyze",
		Description: "Report widget usage, complexity and compression opportunities for Dart/Flutter source",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args analyzeInput) (*mcp.CallToolResult, analyzeOutput, error) {
		var toolErr error
		done := s.metrics.track(ctx, "coon_analyze")
		defer func() { done(toolErr) }()

		res, err := s.svc.Analyze(ctx, args.Content)
		if err != nil {
			toolErr = s.toolError(ctx, "coon_analyze", err)
			return nil, analyzeOutput{}, toolErr
		}
		rec := analyzer.RecommendStrategy(res)
		out := analyzeOutput{
			Analysis:            *res,
			TopWidgets:          res.MostCommonWidgets(5),
			RecommendedStrategy: rec.String(),
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("complexity %.2f, nesting %d, recommended strategy %s",
					res.ComplexityScore, res.NestingDepth, rec)},
			},
		}, out, nil
	})
}

// ===== VALIDATE =====

type validateInput struct {
	Original     string `json:"original" jsonschema:"Original Dart source"`
	Compressed   string `json:"compressed" jsonschema:"COON text produced from the original"`
	Decompressed string `json:"decompressed,omitempty" jsonschema:"Expanded text; computed from compressed when omitted"`
}

type validateOutput struct {
	Result       validator.Result `json:"result" jsonschema:"Validation outcome"`
	Decompressed string           `json:"decompressed" jsonschema:"Expanded text that was compared"`
}

func (s *Server) registerValidateTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "coon_validate",
		Description: "Check that COON text expands back to source equivalent to the original",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args validateInput) (*mcp.CallToolResult, validateOutput, error) {
		var toolErr error
		done := s.metrics.track(ctx, "coon_validate")
		defer func() { done(toolErr) }()

		decompressed := args.Decompressed
		if decompressed == "" {
			out, err := s.svc.Decompress(ctx, args.Compressed, false)
			if err != nil {
				toolErr = s.toolError(ctx, "coon_validate", err)
				return nil, validateOutput{}, toolErr
			}
			decompressed = out
		}

		res := s.svc.Validate(ctx, args.Original, args.Compressed, decompressed)
		text := fmt.Sprintf("valid=%t reversible=%t similarity=%.2f", res.Valid, res.Reversible, res.Similarity)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, validateOutput{Result: res, Decompressed: decompressed}, nil
	})
}

func (s *Server) toolError(ctx context.Context, tool string, err error) error {
	s.logger.Warn(ctx, "tool call failed", zap.String("tool", tool), zap.Error(err))
	return fmt.Errorf("%s failed: %w", tool, err)
}
