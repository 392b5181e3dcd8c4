package analyzer

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

func TestComplexity(t *testing.T) {
	tests := []struct {
		name string
		code string
		want float64
	}{
		{"empty", "", 0.0003},
		{"decisions and nesting", "if (a && b) { x } else { y }", 0.03 + 0.05 + 0.0003},
		{"substring matches are counted", "modifier", 0.01 + 0.0003},
		{"three lines", "a\nb\nc", 0.0009},
		{"clamped to one", strings.Repeat("if ", 200), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Complexity(tt.code), 1e-9)
		})
	}
}

func TestNestingDepth(t *testing.T) {
	assert.Equal(t, 0, NestingDepth(""))
	assert.Equal(t, 3, NestingDepth("a(b[c{d}])"))
	assert.Equal(t, 2, NestingDepth("))))(("))
	assert.Equal(t, 1, NestingDepth("()()()"))
}

func TestWidgetTreeDepth(t *testing.T) {
	code := `Scaffold(
  body: Column(
    children: [
      Text("a"),
    ],
  ),
)`
	assert.Equal(t, 3, WidgetTreeDepth(code))
	assert.Equal(t, 1, WidgetTreeDepth(`TextField(decoration: InputDecoration())`))
	assert.Equal(t, 0, WidgetTreeDepth("no widgets here ) ) )"))
}

func TestFrequencies(t *testing.T) {
	res := Analyze(`Text("a") TextField() Text<String>(x) Column(children: [], child : y) children:z`)

	assert.Equal(t, map[string]int{"Text": 2, "TextField": 1, "Column": 1}, res.WidgetFrequency)
	assert.Equal(t, map[string]int{"children": 2, "child": 1}, res.PropertyFrequency)
	assert.Equal(t, 4, res.WidgetCount())
}

func TestRepeatedPatterns(t *testing.T) {
	code := `Text("a fairly long label here") Text("another long label value!") Text("a fairly long label here")`
	assert.Equal(t, []string{`Text("a fairly long label here")`}, RepeatedPatterns(code))

	assert.Empty(t, RepeatedPatterns(`Text("short") Text("short")`))

	var b strings.Builder
	for i := 0; i < 12; i++ {
		call := fmt.Sprintf(`Text("label number %02d padded") `, i)
		b.WriteString(call)
		b.WriteString(call)
	}
	got := RepeatedPatterns(b.String())
	require.Len(t, got, 10)
	assert.Equal(t, `Text("label number 00 padded")`, got[0])
}

func TestAnalyze_Empty(t *testing.T) {
	var res *Result
	require.NotPanics(t, func() { res = Analyze("") })

	assert.Zero(t, res.CodeSize)
	assert.Zero(t, res.TokenCount)
	assert.Empty(t, res.WidgetFrequency)
	assert.Empty(t, res.RepeatedPatterns)
	assert.Empty(t, res.CompressionOpportunities)
	assert.Equal(t, strategy.Basic, RecommendStrategy(res))
}

func TestAnalyze_LoginScreen(t *testing.T) {
	src := samples.MustGet(samples.LoginScreen)
	res := Analyze(src)

	assert.Equal(t, len(src), res.CodeSize)
	assert.Equal(t, len(src)/4, res.TokenCount)
	assert.False(t, res.HasState)
	assert.False(t, res.HasAsync)
	assert.Equal(t, 4, res.WidgetTreeDepth)
	assert.Contains(t, res.CompressionOpportunities, OpportunityWidgetAbbreviation)
	assert.Contains(t, res.CompressionOpportunities, OpportunityPropertyAbbreviation)
	assert.Contains(t, res.CompressionOpportunities, OpportunityWhitespaceRemoval)
	assert.NotContains(t, res.CompressionOpportunities, OpportunityTemplateMatching)
	for name, v := range res.CompressionOpportunities {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}

	top := res.MostCommonWidgets(2)
	require.Len(t, top, 2)
	assert.Equal(t, Count{Name: "SizedBox", Count: 3}, top[0])
	assert.Equal(t, Count{Name: "Text", Count: 3}, top[1])
}

func TestAnalyze_Counter(t *testing.T) {
	res := Analyze(samples.MustGet(samples.Counter))
	assert.True(t, res.HasState)
	assert.Equal(t, 1, res.WidgetFrequency["State"])
}

func TestResult_Clone(t *testing.T) {
	orig := Analyze(samples.MustGet(samples.LoginScreen))
	c := orig.Clone()
	require.NotSame(t, orig, c)
	assert.Equal(t, orig, c)

	c.WidgetFrequency["Scaffold"]++
	c.PropertyFrequency["body"]++
	c.CompressionOpportunities["whitespace_removal"] = 2
	assert.NotEqual(t, orig.WidgetFrequency, c.WidgetFrequency)
	assert.NotEqual(t, orig.PropertyFrequency, c.PropertyFrequency)
	assert.NotEqual(t, orig.CompressionOpportunities, c.CompressionOpportunities)

	var nilResult *Result
	assert.Nil(t, nilResult.Clone())
}

func TestRecommendStrategy(t *testing.T) {
	many := func(n int) []string { return make([]string, n) }

	tests := []struct {
		name string
		res  Result
		want strategy.ID
	}{
		{"complex with repeats", Result{ComplexityScore: 0.8, RepeatedPatterns: many(4)}, strategy.Hybrid},
		{"complex without enough repeats", Result{ComplexityScore: 0.8, RepeatedPatterns: many(3)}, strategy.ASTBased},
		{"widget heavy with repeats", Result{WidgetFrequency: map[string]int{"Text": 21}, RepeatedPatterns: many(6)}, strategy.ComponentRef},
		{"widget heavy", Result{WidgetFrequency: map[string]int{"Text": 21}}, strategy.Aggressive},
		{"deep tree", Result{WidgetTreeDepth: 7}, strategy.ComponentRef},
		{"moderately complex", Result{ComplexityScore: 0.6}, strategy.ASTBased},
		{"simple", Result{ComplexityScore: 0.1}, strategy.Basic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendStrategy(&tt.res))
		})
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, Analyze(samples.MustGet(samples.LoginScreen))))

	out := buf.String()
	assert.Contains(t, out, "CODE ANALYSIS REPORT")
	assert.Contains(t, out, "Top widgets:")
	assert.Contains(t, out, "   - Text: 3")
	assert.Contains(t, out, "widget_abbreviation")
	assert.Contains(t, out, "Recommended strategy: BASIC")
}
