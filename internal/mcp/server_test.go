package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/telemetry"
)

var testImpl = &mcp.Implementation{Name: "coon-test", Version: "0.0.1"}

type testEnv struct {
	session *mcp.ClientSession
	svc     *compression.Service
	tel     *telemetry.TestTelemetry
}

func newTestEnv(t *testing.T, svcCfg compression.Config, defaults compression.Options) *testEnv {
	t.Helper()
	tt := telemetry.NewTestTelemetry()
	svc, err := compression.NewService(svcCfg,
		compression.WithRegistry(registry.Default()),
		compression.WithMeterProvider(tt.MeterProvider()),
	)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Defaults = defaults
	cfg.MeterProvider = tt.MeterProvider()
	srv, err := NewServer(cfg, svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = srv.RunTransport(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		session.Close()
		cancel()
	})
	return &testEnv{session: session, svc: svc, tel: tt}
}

// call invokes a tool and decodes its structured output into out.
func (e *testEnv) call(t *testing.T, name string, args interface{}, out interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := e.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestServer_ListTools(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})

	res, err := env.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.InputSchema)
	}
	assert.ElementsMatch(t, []string{"coon_compress", "coon_decompress", "coon_analyze", "coon_validate"}, names)
}

func TestTool_Compress(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})
	src := samples.MustGet(samples.LoginScreen)

	var out compressOutput
	res := env.call(t, "coon_compress", map[string]interface{}{
		"content":  src,
		"strategy": "aggressive",
		"validate": true,
		"analyze":  true,
	}, &out)
	require.False(t, res.IsError, text(t, res))

	assert.Equal(t, "aggressive", out.Strategy)
	assert.Equal(t, out.Compressed, text(t, res))
	assert.Less(t, out.CompressedTokens, out.OriginalTokens)
	assert.Equal(t, out.OriginalTokens-out.CompressedTokens, out.TokensSaved)
	assert.NotEmpty(t, out.RequestID)
	assert.NotEmpty(t, out.Decompressed)
	require.NotNil(t, out.Validation)
	require.NotNil(t, out.Analysis)
	assert.Greater(t, out.Analysis.CodeSize, 0)
}

func TestTool_CompressDefaults(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{Validate: true})

	var out compressOutput
	res := env.call(t, "coon_compress", map[string]interface{}{
		"content":  samples.MustGet(samples.SimpleWidget),
		"strategy": "basic",
	}, &out)
	require.False(t, res.IsError)
	assert.NotNil(t, out.Validation, "server default enables validation")

	out = compressOutput{}
	res = env.call(t, "coon_compress", map[string]interface{}{
		"content":  samples.MustGet(samples.SimpleWidget),
		"strategy": "basic",
		"validate": false,
	}, &out)
	require.False(t, res.IsError)
	assert.Nil(t, out.Validation)
}

func TestTool_CompressErrors(t *testing.T) {
	cfg := compression.DefaultConfig()
	cfg.MaxInputBytes = 32

	tests := []struct {
		name   string
		args   map[string]interface{}
		reason string
	}{
		{
			name:   "input too large",
			args:   map[string]interface{}{"content": strings.Repeat("x", 33)},
			reason: "input_too_large",
		},
		{
			name:   "bad selection",
			args:   map[string]interface{}{"content": "Text('a')", "selection": "coin_flip"},
			reason: "validation_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, cfg, compression.Options{})
			res := env.call(t, "coon_compress", tt.args, nil)
			assert.True(t, res.IsError)
			assert.Equal(t, int64(1), env.tel.CounterValue(t, "coon.mcp.tool.errors_total",
				attribute.String("tool", "coon_compress"),
				attribute.String("reason", tt.reason)))
		})
	}
}

func TestTool_Decompress(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})

	var out decompressOutput
	res := env.call(t, "coon_decompress", map[string]interface{}{"content": "T'a'"}, &out)
	require.False(t, res.IsError)
	assert.Contains(t, out.Content, "Text'a'")
	assert.Equal(t, out.Content, text(t, res))
}

func TestTool_Analyze(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})

	var out analyzeOutput
	res := env.call(t, "coon_analyze", map[string]interface{}{
		"content": samples.MustGet(samples.LoginScreen),
	}, &out)
	require.False(t, res.IsError)

	assert.NotEmpty(t, out.Analysis.WidgetFrequency)
	assert.NotEmpty(t, out.TopWidgets)
	assert.LessOrEqual(t, len(out.TopWidgets), 5)
	assert.NotEmpty(t, out.RecommendedStrategy)
	assert.Contains(t, text(t, res), "recommended strategy "+out.RecommendedStrategy)
}

func TestTool_Validate(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})
	src := samples.MustGet(samples.SimpleWidget)

	compressed, err := env.svc.Compress(context.Background(), src, compression.Options{Strategy: "basic"})
	require.NoError(t, err)
	want, err := env.svc.Decompress(context.Background(), compressed.Compressed, false)
	require.NoError(t, err)

	var out validateOutput
	res := env.call(t, "coon_validate", map[string]interface{}{
		"original":   src,
		"compressed": compressed.Compressed,
	}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, want, out.Decompressed)
	assert.True(t, out.Result.TokenCountMatch)
	assert.Contains(t, text(t, res), "similarity=")

	out = validateOutput{}
	res = env.call(t, "coon_validate", map[string]interface{}{
		"original":     src,
		"compressed":   compressed.Compressed,
		"decompressed": src,
	}, &out)
	require.False(t, res.IsError)
	assert.True(t, out.Result.Valid)
	assert.True(t, out.Result.Reversible)
}

func TestTool_Metrics(t *testing.T) {
	env := newTestEnv(t, compression.DefaultConfig(), compression.Options{})

	env.call(t, "coon_decompress", map[string]interface{}{"content": "T'a'"}, nil)
	env.call(t, "coon_decompress", map[string]interface{}{"content": "T'b'"}, nil)
	env.call(t, "coon_analyze", map[string]interface{}{"content": "Text('a')"}, nil)

	assert.Equal(t, int64(3), env.tel.CounterValue(t, "coon.mcp.tool.invocations_total"))
	assert.Equal(t, int64(2), env.tel.CounterValue(t, "coon.mcp.tool.invocations_total",
		attribute.String("tool", "coon_decompress")))
	assert.Equal(t, uint64(3), env.tel.HistogramCount(t, "coon.mcp.tool.duration_seconds"))
	assert.Equal(t, int64(0), env.tel.CounterValue(t, "coon.mcp.tool.errors_total"))
}
