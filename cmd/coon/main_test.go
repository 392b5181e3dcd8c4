package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/coon/internal/compression"
	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

// run executes the root command with an isolated home directory and
// returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COON_LOGGING__LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"compress", "decompress", "analyze", "validate", "roundtrip", "registry", "bench", "selftest", "serve", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Commit:")
}

func TestCompressCmd_Stdin(t *testing.T) {
	src := samples.MustGet(samples.LoginScreen)

	out, err := run(t, src, "compress", "-s", "aggressive")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Less(t, len(out), len(src))
}

func TestCompressCmd_JSON(t *testing.T) {
	out, err := run(t, samples.MustGet(samples.Counter), "compress", "--json", "--validate")
	require.NoError(t, err)

	var res compression.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Greater(t, res.OriginalTokens, 0)
	require.NotNil(t, res.Validation)
	assert.NotEmpty(t, res.Decompressed)
}

func TestCompressCmd_Batch(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.dart")
	b := filepath.Join(dir, "b.dart")
	require.NoError(t, os.WriteFile(a, []byte(samples.MustGet(samples.SimpleWidget)), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(samples.MustGet(samples.Counter)), 0o600))

	out, err := run(t, "", "compress", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "// "+a)
	assert.Contains(t, out, "// "+b)
}

func TestCompressCmd_UnknownSelection(t *testing.T) {
	_, err := run(t, "x", "compress", "--selection", "bogus")
	require.Error(t, err)
}

func TestDecompressCmd(t *testing.T) {
	out, err := run(t, "C{h:[T'Hello']}", "decompress", "--format=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Column{children:[")
	assert.Contains(t, out, "Text'Hello'")
}

func TestAnalyzeCmd(t *testing.T) {
	out, err := run(t, samples.MustGet(samples.LoginScreen), "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended strategy:")

	out, err = run(t, samples.MustGet(samples.LoginScreen), "analyze", "--json")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
}

func TestRoundtripCmd(t *testing.T) {
	out, err := run(t, samples.MustGet(samples.SimpleWidget), "roundtrip", "--json")
	require.NoError(t, err)

	var res compression.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Validation)
	assert.NotEmpty(t, res.Decompressed)
}

func TestValidateCmd_Identity(t *testing.T) {
	dir := t.TempDir()
	src := samples.MustGet(samples.Counter)
	orig := filepath.Join(dir, "orig.dart")
	require.NoError(t, os.WriteFile(orig, []byte(src), 0o600))

	out, err := run(t, "", "validate", orig, orig, "--decompressed", orig, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
}

func TestRegistryCmd_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.json")
	code := "Card(child: Text(title))"

	out, err := run(t, code, "--registry", path, "registry", "add", "card_title", "--name", "Card Title", "--param", "title", "--category", "cards")
	require.NoError(t, err)
	assert.Contains(t, out, "registered card_title")
	assert.FileExists(t, path)

	out, err = run(t, "", "--registry", path, "registry", "list", "--category", "cards")
	require.NoError(t, err)
	assert.Contains(t, out, "card_title")
	assert.NotContains(t, out, "email_input")

	out, err = run(t, "", "--registry", path, "registry", "show", "card_title")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Card Title"`)

	exported := filepath.Join(t.TempDir(), "card.json")
	_, err = run(t, "", "--registry", path, "registry", "export", "card_title", exported)
	require.NoError(t, err)
	assert.FileExists(t, exported)

	out, err = run(t, "", "--registry", path, "registry", "delete", "card_title")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted card_title")

	_, err = run(t, "", "--registry", path, "registry", "show", "card_title")
	require.Error(t, err)

	out, err = run(t, "", "--registry", path, "registry", "import", exported)
	require.NoError(t, err)
	assert.Contains(t, out, "imported card_title")
}

func TestRegistryCmd_DeleteUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "components.json")
	_, err := run(t, "", "--registry", path, "registry", "delete", "nope")
	require.Error(t, err)
}

func TestRegistryCmd_SaveRequiresPath(t *testing.T) {
	_, err := run(t, "Text(x)", "registry", "add", "x_text", "--name", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registry file configured")
}

func TestBenchCmd_JSON(t *testing.T) {
	out, err := run(t, "", "bench", "--json")
	require.NoError(t, err)

	var report benchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Rows, len(samples.All())*len(strategy.Concrete()))
	assert.Len(t, report.Strategies, len(strategy.Concrete()))
}

func TestBenchCmd_Table(t *testing.T) {
	out, err := run(t, "", "bench")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy ranking")
	assert.Contains(t, out, samples.LoginScreen)
}

func TestSelftestCmd(t *testing.T) {
	out, err := run(t, "", "selftest")
	require.NoError(t, err)
	assert.Contains(t, out, "5/5 checks passed")
	assert.NotContains(t, out, "FAIL")
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("existing variables win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("COON_TEST_A=file\nCOON_TEST_B=file\n"), 0o600))
		t.Setenv("COON_TEST_A", "env")
		t.Setenv("COON_TEST_B", "")
		require.NoError(t, os.Unsetenv("COON_TEST_B"))

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "env", os.Getenv("COON_TEST_A"))
		assert.Equal(t, "file", os.Getenv("COON_TEST_B"))
	})
}
