package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/coon/internal/config"
)

func jsonConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	return cfg
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(jsonConfig(), WithWriter(&buf))
	require.NoError(t, err)

	logger.Info(context.Background(), "compressed", zap.String("strategy", "basic"))
	logger.Trace(context.Background(), "rule applied")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "compressed", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "basic", lines[0]["strategy"])
	assert.Equal(t, "coon", lines[0]["service"])
	assert.Equal(t, "trace", lines[1]["level"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	cfg := jsonConfig()
	cfg.Level = zapcore.WarnLevel
	logger, err := NewLogger(cfg, WithWriter(&buf))
	require.NoError(t, err)

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "hidden")
	logger.Warn(context.Background(), "shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestNewLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(jsonConfig(), WithWriter(&buf))
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSessionID(ctx, "sess-1")

	logger.Info(ctx, "with context")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request.id"])
	assert.Equal(t, "sess-1", lines[0]["session.id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
	assert.NotEmpty(t, lines[0]["span_id"])
}

func TestNewLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(jsonConfig(), WithWriter(&buf))
	require.NoError(t, err)

	logger.With(zap.String("token", "abc")).Info(context.Background(), "auth",
		zap.String("api_key", "hunter2"),
		zap.String("Authorization", "Bearer xyz"),
		Secret("server_key", config.Secret("s3cret")),
		zap.String("strategy", "basic"),
	)

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "xyz")
	assert.NotContains(t, out, "abc")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "[REDACTED:6]")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "[REDACTED]", lines[0]["api_key"])
	assert.Equal(t, "basic", lines[0]["strategy"])
}

func TestNewLogger_SamplingKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	cfg := jsonConfig()
	cfg.Sampling.Enabled = true
	cfg.Sampling.Initial = 2
	cfg.Sampling.Thereafter = 0
	logger, err := NewLogger(cfg, WithWriter(&buf))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		logger.Info(context.Background(), "repeated")
		logger.Error(context.Background(), "failure")
	}

	var infos, errs int
	for _, line := range decodeLines(t, &buf) {
		switch line["msg"] {
		case "repeated":
			infos++
		case "failure":
			errs++
		}
	}
	assert.Equal(t, 2, infos)
	assert.Equal(t, 10, errs)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}
	_, err = NewLogger(cfg)
	assert.Error(t, err, "otel output without a provider leaves no sink")
}

func TestNop(t *testing.T) {
	logger := NewNop()
	logger.Info(context.Background(), "dropped")
	assert.False(t, logger.Enabled(zapcore.ErrorLevel))
	assert.NoError(t, logger.Sync())
}

func TestFromContext(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)

	FromContext(ctx).Named("svc").Warn(ctx, "from context")
	tl.AssertLogged(t, zapcore.WarnLevel, "from context")

	assert.NotNil(t, FromContext(context.Background()))
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithRequestID(context.Background(), "abc")

	tl.Info(ctx, "compressed input", zap.Int("tokens", 12))
	tl.AssertLogged(t, zapcore.InfoLevel, "compressed")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "compressed")
	tl.AssertField(t, "compressed", "tokens", int64(12))
	tl.AssertField(t, "compressed", "request.id", "abc")
	assert.Len(t, tl.FilterMessage("input").All(), 1)

	tl.Reset()
	assert.Empty(t, tl.All())
}
