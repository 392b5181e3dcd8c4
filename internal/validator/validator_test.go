package validator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const original = `class Hello extends StatelessWidget {
  Widget build(BuildContext context) {
    return Text("Hi");
  }
}`

func TestValidate_ReversibleRoundTrip(t *testing.T) {
	decompressed := "class hello extends statelesswidget { widget build(buildcontext context) { return text(\"hi\"); } }"

	for _, strict := range []bool{false, true} {
		r := New(strict).Validate(original, "c:Hello<StatelessWidget>;m:b T\"Hi\"}}", decompressed)
		assert.True(t, r.Valid)
		assert.True(t, r.Reversible)
		assert.True(t, r.SemanticEquivalent)
		assert.True(t, r.TokenCountMatch)
		assert.Empty(t, r.Errors)
		assert.Empty(t, r.Warnings)
		assert.Greater(t, r.Similarity, 0.0)
		assert.LessOrEqual(t, r.Similarity, 1.0)
	}
}

func TestValidate_StrictMode(t *testing.T) {
	tests := []struct {
		name         string
		strict       bool
		wantValid    bool
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:         "lenient",
			strict:       false,
			wantValid:    true,
			wantErrors:   []string{},
			wantWarnings: []string{WarnNotReversible, WarnNotEquivalent},
		},
		{
			name:         "strict",
			strict:       true,
			wantValid:    false,
			wantErrors:   []string{ErrNotReversible, ErrNotEquivalent},
			wantWarnings: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.strict)
			assert.Equal(t, tt.strict, v.Strict())

			r := v.Validate(original, "short", "class Hello {}")
			assert.Equal(t, tt.wantValid, r.Valid)
			assert.False(t, r.Reversible)
			assert.False(t, r.SemanticEquivalent)
			assert.Equal(t, tt.wantErrors, r.Errors)
			assert.Equal(t, tt.wantWarnings, r.Warnings)
		})
	}
}

func TestValidate_SizeWarnings(t *testing.T) {
	r := New(false).Validate("abc", "abcdef", "abc")
	assert.True(t, r.Valid)
	assert.False(t, r.TokenCountMatch)
	assert.Equal(t, []string{WarnNotReduced, WarnTokenCountSuspect}, r.Warnings)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "text(\"hi\");", Normalize("  Text ( \"HI\" ) ;\n\t"))
	assert.Equal(t, "", Normalize(" \n\t "))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "abc", "abc", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0},
		{"one substitution", "abcd", "abxd", 0.75},
		{"kitten", "kitten", "sitting", 8.0 / 13.0},
		{"disjoint", "abc", "xyz", 0},
		{"multibyte", "héllo", "hello", 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Properties(t *testing.T) {
	inputs := []string{
		"a",
		original,
		"Scaffold(body: Center(child: Text('x')))",
		"S{b:N{c:T'x'}}",
		"aaaa bbbb aaaa",
	}
	for _, a := range inputs {
		assert.Equal(t, 1.0, Similarity(a, a), "self similarity of %q", a)
		for _, b := range inputs {
			assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-12, "symmetry of %q and %q", a, b)
		}
	}
}

func TestDiff(t *testing.T) {
	out, err := Diff("a\nb\nc\n", "a\nB\nc\n")
	require.NoError(t, err)
	assert.Contains(t, out, "--- original")
	assert.Contains(t, out, "+++ decompressed")
	assert.Contains(t, out, "-b")
	assert.Contains(t, out, "+B")

	out, err = Diff("same\n", "same\n")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateBatch(t *testing.T) {
	cases := []Case{
		{Name: "ok", Original: original, Compressed: "x", Decompressed: original},
		{Name: "broken", Original: original, Compressed: "x", Decompressed: "nothing alike"},
		{Name: "ok again", Original: "Text(a)", Compressed: "T", Decompressed: "text( a )"},
	}

	br := New(true).ValidateBatch(cases)
	assert.Equal(t, 2, br.Passed)
	assert.Equal(t, 1, br.Failed)
	require.Len(t, br.Results, 3)
	assert.False(t, br.Results[1].Valid)

	empty := New(false).ValidateBatch(nil)
	assert.Zero(t, empty.Passed)
	assert.Empty(t, empty.Results)
}

func TestReport(t *testing.T) {
	r := New(true).Validate(original, "short", "other")

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "COMPRESSION VALIDATION REPORT")
	assert.Contains(t, out, "Valid:                   false")
	assert.Contains(t, out, "Errors:")
	assert.Contains(t, out, ErrNotReversible)
	assert.NotContains(t, out, "Warnings:")
}
