package compression

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/coon/internal/analyzer"
	"github.com/fyrsmithlabs/coon/internal/formatter"
	"github.com/fyrsmithlabs/coon/internal/logging"
	"github.com/fyrsmithlabs/coon/internal/parser"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/strategy"
	"github.com/fyrsmithlabs/coon/internal/validator"
)

const tracerName = "github.com/fyrsmithlabs/coon/internal/compression"
const meterName = "coon.compression"

// Service runs the compression pipeline: size check, optional analysis,
// strategy selection, transformation, optional validation and optional
// metrics recording.
type Service struct {
	config    Config
	engine    *Engine
	selector  *strategy.Selector
	validator *validator.Validator
	cache     *lru.Cache[[sha256.Size]byte, *analyzer.Result]
	logger    *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	operations  metric.Int64Counter
	ratio       metric.Float64Histogram
	duration    metric.Float64Histogram
	tokensSaved metric.Int64Counter
	errors      metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry enables component references.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Service) { s.engine = NewEngine(reg) }
}

// WithMetricsStore shares a metrics store with other components.
func WithMetricsStore(store *strategy.MetricsStore) Option {
	return func(s *Service) { s.selector = strategy.NewSelector(store) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(meterName) }
}

// NewService creates a compression service.
func NewService(config Config, opts ...Option) (*Service, error) {
	if config.BatchConcurrency < 1 {
		config.BatchConcurrency = 1
	}
	if config.Selection == "" {
		config.Selection = SelectionScored
	}

	s := &Service{
		config:    config,
		engine:    NewEngine(nil),
		selector:  strategy.NewSelector(nil),
		validator: validator.New(config.StrictValidation),
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		meter:     otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.AnalysisCacheSize > 0 {
		cache, err := lru.New[[sha256.Size]byte, *analyzer.Result](config.AnalysisCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create analysis cache: %w", err)
		}
		s.cache = cache
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return s, nil
}

// Engine returns the rewrite engine.
func (s *Service) Engine() *Engine { return s.engine }

// Store returns the metrics store that feeds strategy selection.
func (s *Service) Store() *strategy.MetricsStore { return s.selector.Store() }

// Compress compresses text.
func (s *Service) Compress(ctx context.Context, text string, opts Options) (*Result, error) {
	if logging.ValidateID(opts.RequestID) != nil {
		opts.RequestID = uuid.NewString()
	}
	ctx = logging.WithRequestID(ctx, opts.RequestID)
	ctx, span := s.tracer.Start(ctx, "compression.compress",
		trace.WithAttributes(
			attribute.String("request_id", opts.RequestID),
			attribute.String("strategy.requested", opts.Strategy),
			attribute.Int("content_length", len(text)),
		),
	)
	defer span.End()

	start := time.Now()

	if err := s.checkSize(text); err != nil {
		s.fail(ctx, span, "input_too_large", err)
		return nil, err
	}

	res := &Result{
		RequestID:      opts.RequestID,
		OriginalTokens: EstimateTokens(text),
	}

	selection := opts.Selection
	if selection == "" {
		selection = s.config.Selection
	}
	requested := s.requested(opts)

	var analysis *analyzer.Result
	if opts.Analyze || (requested == strategy.Auto && selection == SelectionAnalyzer) {
		analysis = s.analyze(text)
	}
	if opts.Analyze {
		res.Analysis = analysis
	}

	id := requested
	if id == strategy.Auto {
		if selection == SelectionAnalyzer {
			id = analyzer.RecommendStrategy(analysis)
		} else {
			id = s.selector.Select(text, len(text), s.engine.HasRegistry(), opts.PreferSpeed || s.config.PreferSpeed)
		}
	}
	res.Strategy = id
	cfg := strategy.ConfigFor(id)

	if err := ctx.Err(); err != nil {
		s.fail(ctx, span, "canceled", err)
		return nil, err
	}

	if cfg.UseAST {
		node := parser.ParseText(text)
		res.Structure = &node
	}

	transformStart := time.Now()
	res.Compressed = s.engine.Compress(text, cfg)
	transformTime := time.Since(transformStart)
	res.CompressedTokens = EstimateTokens(res.Compressed)
	res.Ratio = Ratio(res.OriginalTokens, res.CompressedTokens)

	if opts.Validate {
		res.Decompressed = s.decompress(res.Compressed, opts.Format)
		v := s.validator.Validate(text, res.Compressed, res.Decompressed)
		res.Validation = &v
	}

	if opts.RecordMetrics {
		outcome := strategy.Outcome{
			Strategy:       id,
			Ratio:          res.Ratio,
			TokensSaved:    res.TokensSaved(),
			ProcessingTime: transformTime,
			Success:        true,
		}
		if res.Validation != nil {
			reversible := res.Validation.Reversible
			outcome.Reversible = &reversible
		}
		if err := s.selector.Store().Record(outcome); err != nil {
			s.logger.Warn(ctx, "failed to record strategy metrics", zap.Error(err))
		}
	}

	res.Elapsed = time.Since(start)
	s.record(ctx, res)

	span.SetAttributes(
		attribute.String("strategy", id.String()),
		attribute.Int("original_tokens", res.OriginalTokens),
		attribute.Int("compressed_tokens", res.CompressedTokens),
		attribute.Float64("compression_ratio", res.Ratio),
	)
	s.logger.Debug(ctx, "compressed",
		zap.String("strategy", id.String()),
		zap.Int("original_tokens", res.OriginalTokens),
		zap.Int("compressed_tokens", res.CompressedTokens),
		zap.Float64("ratio", res.Ratio),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Decompress expands COON text, re-indenting the output when format is set.
func (s *Service) Decompress(ctx context.Context, text string, format bool) (string, error) {
	ctx, span := s.tracer.Start(ctx, "compression.decompress",
		trace.WithAttributes(attribute.Int("content_length", len(text))),
	)
	defer span.End()

	if err := s.checkSize(text); err != nil {
		s.fail(ctx, span, "input_too_large", err)
		return "", err
	}
	out := s.decompress(text, format)
	s.operations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "decompress")))
	return out, nil
}

func (s *Service) decompress(text string, format bool) string {
	out := s.engine.Decompress(text)
	if format {
		out = formatter.Format(out, formatter.DefaultOptions())
	}
	return out
}

// Analyze returns the analyzer report for text, served from the cache when
// the same content was analyzed before.
func (s *Service) Analyze(ctx context.Context, text string) (*analyzer.Result, error) {
	ctx, span := s.tracer.Start(ctx, "compression.analyze",
		trace.WithAttributes(attribute.Int("content_length", len(text))),
	)
	defer span.End()

	if err := s.checkSize(text); err != nil {
		s.fail(ctx, span, "input_too_large", err)
		return nil, err
	}
	return s.analyze(text), nil
}

// analyze returns a result the caller owns; cached entries are copied out.
func (s *Service) analyze(text string) *analyzer.Result {
	if s.cache == nil {
		return analyzer.Analyze(text)
	}
	key := sha256.Sum256([]byte(text))
	if r, ok := s.cache.Get(key); ok {
		return r.Clone()
	}
	r := analyzer.Analyze(text)
	s.cache.Add(key, r)
	return r.Clone()
}

// Validate checks a round trip with the service's validator.
func (s *Service) Validate(ctx context.Context, original, compressed, decompressed string) validator.Result {
	_, span := s.tracer.Start(ctx, "compression.validate")
	defer span.End()

	r := s.validator.Validate(original, compressed, decompressed)
	span.SetAttributes(
		attribute.Bool("valid", r.Valid),
		attribute.Bool("reversible", r.Reversible),
		attribute.Float64("similarity", r.Similarity),
	)
	return r
}

// RoundTrip compresses text, decompresses the result and validates the
// cycle. The returned result always carries Decompressed and Validation.
func (s *Service) RoundTrip(ctx context.Context, text string, opts Options) (*Result, error) {
	opts.Validate = true
	return s.Compress(ctx, text, opts)
}

// CompressBatch compresses every input with bounded parallelism. Results
// keep input order. The first error cancels the remaining items.
func (s *Service) CompressBatch(ctx context.Context, texts []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.BatchConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			itemOpts := opts
			itemOpts.RequestID = ""
			r, err := s.Compress(gctx, text, itemOpts)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) requested(opts Options) strategy.ID {
	name := opts.Strategy
	if name == "" {
		name = s.config.DefaultStrategy
	}
	return strategy.Parse(name)
}

func (s *Service) checkSize(text string) error {
	if s.config.MaxInputBytes > 0 && len(text) > s.config.MaxInputBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(text), s.config.MaxInputBytes)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, kind string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", kind)))
	s.logger.Warn(ctx, "compression request rejected", zap.String("error_type", kind), zap.Error(err))
}

func (s *Service) record(ctx context.Context, res *Result) {
	attrs := metric.WithAttributes(attribute.String("strategy", res.Strategy.String()))
	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "compress"),
		attribute.String("strategy", res.Strategy.String()),
	))
	s.ratio.Record(ctx, res.Ratio, attrs)
	s.duration.Record(ctx, res.Elapsed.Seconds(), attrs)
	if saved := res.TokensSaved(); saved > 0 {
		s.tokensSaved.Add(ctx, int64(saved), attrs)
	}
}

// initMetrics initializes OpenTelemetry metrics
func (s *Service) initMetrics() error {
	var err error

	s.operations, err = s.meter.Int64Counter(
		"coon.compression.operations_total",
		metric.WithDescription("Total number of compression and decompression operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}

	s.ratio, err = s.meter.Float64Histogram(
		"coon.compression.ratio",
		metric.WithDescription("Compression ratios achieved"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9),
	)
	if err != nil {
		return fmt.Errorf("failed to create ratio histogram: %w", err)
	}

	s.duration, err = s.meter.Float64Histogram(
		"coon.compression.duration_seconds",
		metric.WithDescription("Time spent on compression operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	s.tokensSaved, err = s.meter.Int64Counter(
		"coon.compression.tokens_saved",
		metric.WithDescription("Estimated tokens saved by compression"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tokens saved counter: %w", err)
	}

	s.errors, err = s.meter.Int64Counter(
		"coon.compression.errors_total",
		metric.WithDescription("Total number of rejected compression requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create errors counter: %w", err)
	}

	return nil
}
