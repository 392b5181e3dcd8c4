package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/samples"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

var (
	basic      = strategy.ConfigFor(strategy.Basic)
	aggressive = strategy.ConfigFor(strategy.Aggressive)
)

func TestCompress(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name string
		in   string
		cfg  strategy.Config
		want string
	}{
		{
			name: "empty",
			in:   "",
			cfg:  basic,
			want: "",
		},
		{
			name: "simple widget",
			in:   samples.MustGet(samples.SimpleWidget),
			cfg:  basic,
			want: `c:SimpleWidget<StatelessWidget>; m:b T"Hello World"}}`,
		},
		{
			name: "scaffold under aggressive",
			in:   "Scaffold(body: Center(child: Text('Hi')))",
			cfg:  aggressive,
			want: "S{b:N{c:T'Hi'}}",
		},
		{
			name: "fields move before build marker",
			in: `class Home extends StatefulWidget {
  final TextEditingController c1 = TextEditingController();
  Widget build(BuildContext context) {
    return Text('x');
  }
}`,
			cfg:  basic,
			want: "c:Home<StatefulWidget>; f:c1=TextEditingController;m:b T'x'}}",
		},
		{
			name: "padding helper",
			in:   "Padding(padding: EdgeInsets.all(16.0), child: Text('a'))",
			cfg:  basic,
			want: "P{p:@16,c:T'a'}",
		},
		{
			name: "keywords",
			in:   "Future<void> load() async {\n  await fetch();\n}",
			cfg:  basic,
			want: "Future<void> ~load asy{awt ~fetch}",
		},
		{
			name: "import",
			in:   "import 'package:flutter/material.dart';",
			cfg:  basic,
			want: "im:'package:flutter/material.dart';",
		},
		{
			name: "word bounded booleans",
			in:   "obscureText: true, trueValue: false",
			cfg:  basic,
			want: "x:1,trueValue:0",
		},
		{
			name: "line comments removed",
			in:   "Text('a') // note\nText('b')",
			cfg:  basic,
			want: "T'a'T'b'",
		},
		{
			name: "line comments preserved as block comments",
			in:   "Text('a') // note\nText('b')",
			cfg:  strategy.ConfigFor(strategy.ASTBased),
			want: "T'a'/* note */ T'b'",
		},
		{
			name: "names inside strings untouched",
			in:   `Text("Text and Column")`,
			cfg:  basic,
			want: `T"Text and Column"`,
		},
		{
			name: "longest widget names first",
			in:   "TextField(style: TextStyle(fontSize: 12))",
			cfg:  basic,
			want: "F{s:Y{z:12}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Compress(tt.in, tt.cfg))
		})
	}
}

func TestCompress_PreservedComments(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name    string
		in      string
		id      strategy.ID
		comment string
		want    []string
		absent  []string
	}{
		{
			name:    "apostrophe in line comment",
			in:      "// Don't inline this\nScaffold(body: Center(child: Column(children: [])))",
			id:      strategy.ASTBased,
			comment: "/* Don't inline this */",
			want:    []string{"S{b:N{c:C{h:[]}}}"},
			absent:  []string{"Scaffold", "Column", "children:"},
		},
		{
			name:    "apostrophe in block comment",
			in:      "/* it's the form */\nColumn(children: [Text('a'), Text(\"b\")])",
			id:      strategy.Semantic,
			comment: "/* it's the form */",
			want:    []string{"C{h:[T'a',T\"b\"]}"},
			absent:  []string{"Column", "Text"},
		},
		{
			name:    "quote in trailing comment",
			in:      "Center(child: Text('a')) // say \"hi\nPadding(padding: EdgeInsets.all(8), child: Text('b'))",
			id:      strategy.ASTBased,
			comment: `/* say "hi */`,
			want:    []string{"N{c:T'a'}", "P{p:@8,c:T'b'}"},
			absent:  []string{"Padding", "padding:"},
		},
		{
			name:    "keywords after comment",
			in:      "/* don't block */ Future<void> load() async { await fetch(); }",
			id:      strategy.ASTBased,
			comment: "/* don't block */",
			want:    []string{"asy{awt ~fetch}"},
			absent:  []string{"async", "await"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Compress(tt.in, strategy.ConfigFor(tt.id))
			assert.Contains(t, out, tt.comment)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, out, a)
			}
		})
	}
}

func TestCompress_ASTBasedMatchesBasicAroundComment(t *testing.T) {
	e := NewEngine(nil)
	code := "Scaffold(body: Center(child: Column(children: [])))"

	plain := e.Compress("// Don't inline this\n"+code, basic)
	kept := e.Compress("// Don't inline this\n"+code, strategy.ConfigFor(strategy.ASTBased))

	assert.Equal(t, "S{b:N{c:C{h:[]}}}", plain)
	assert.Equal(t, "/* Don't inline this */ "+plain, kept)
}

func TestCompress_LiteralsKeepKeywordsAndBooleans(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "booleans in string", in: `Text("is true or false")`, want: `T"is true or false"`},
		{name: "return in string", in: "Text('press return to go')", want: "T'press return to go'"},
		{name: "annotation in string", in: "Text('ping @home now')", want: "T'ping @home now'"},
		{name: "code booleans still rewritten", in: "Switch(value: true, label: 'true')", want: "Switch{value:1,label:'true'}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Compress(tt.in, basic))
		})
	}
}

func TestMatchParen_SkipsLiteralsAndComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "plain", in: "A(b(c))", want: 6},
		{name: "paren in string", in: "A(')', x)", want: 8},
		{name: "paren in block comment", in: "A(b /* ) */)", want: 11},
		{name: "apostrophe in comment", in: "A(/* don't */ b)", want: 15},
		{name: "unbalanced", in: "A(b", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchParen(tt.in, 1))
		})
	}
}

func TestCompress_AggressiveShortensScaffold(t *testing.T) {
	in := "Scaffold(appBar: AppBar(title: Text('Home')), body: Center(child: Text('Hello')))"
	out := NewEngine(nil).Compress(in, aggressive)
	assert.Contains(t, out, "S{")
	assert.NotContains(t, out, "Scaffold")
	assert.Less(t, len(out), len(in))
}

func TestCompress_KeywordsGatedByStrategy(t *testing.T) {
	cfg := basic
	cfg.AbbreviateKeywords = false
	out := NewEngine(nil).Compress("import 'a.dart'; void f() async { await g(x); }", cfg)
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "async")
	assert.Contains(t, out, "await")
}

func TestCompress_PreservesLinesWithoutAggressiveWhitespace(t *testing.T) {
	cfg := basic
	cfg.AggressiveWhitespace = false
	out := NewEngine(nil).Compress("Text('a')\n\n   Text('b')  ", cfg)
	assert.Equal(t, "T'a'\nT'b'", out)
}

func TestCompress_Samples(t *testing.T) {
	e := NewEngine(registry.Default())
	for _, s := range samples.All() {
		for _, cfg := range strategy.Configs() {
			t.Run(s.Name+"/"+cfg.ID.String(), func(t *testing.T) {
				out := e.Compress(s.Source, cfg)
				assert.NotEmpty(t, out)
				assert.Less(t, len(out), len(s.Source))
				assert.NotContains(t, out, "@override")
			})
		}
	}
}

func TestCollapseWhitespace_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"a\t\tb\n\nc",
		samples.MustGet(samples.LoginScreen),
		" leading and trailing \r\n",
	}
	for _, in := range inputs {
		once := CollapseWhitespace(in)
		assert.Equal(t, once, CollapseWhitespace(once))
		assert.NotContains(t, once, "  ")
	}
}

func TestCompress_RegistryReference(t *testing.T) {
	reg := registry.Default()
	button, err := reg.Get("primary_button")
	require.NoError(t, err)
	in := "Column(children: [" + button.Code + "])"

	cfg := strategy.ConfigFor(strategy.ComponentRef)

	out := NewEngine(reg).Compress(in, cfg)
	assert.Equal(t, "C{h:[#C_PRIMARY_BUTTON]}", out)

	back := NewEngine(reg).Decompress(out)
	assert.Equal(t, "Column{children:["+CollapseWhitespace(button.Code)+"]}", back)

	plain := NewEngine(nil).Compress(in, cfg)
	assert.NotContains(t, plain, "#C_")
	assert.Contains(t, plain, "E{")
}

func TestCompress_RegistryBelowThreshold(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register("label", "Label", "Text(label)")
	require.NoError(t, err)

	out := NewEngine(reg).Compress("Center(child: Text(label))", strategy.ConfigFor(strategy.ComponentRef))
	assert.NotContains(t, out, "#C_")
}

func TestDecompress(t *testing.T) {
	e := NewEngine(nil)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "class fields and build",
			in:   "c:Home<StatefulWidget>; f:c1=TextEditingController;m:b T'x'}}",
			want: "class Home extends StatefulWidget { final TextEditingController c1 = TextEditingController(); Widget build(BuildContext context) { Text'x'}}",
		},
		{
			name: "generic base",
			in:   "c:_S<State<Counter>>;",
			want: "class _S extends State<Counter> {",
		},
		{
			name: "padding helper",
			in:   "P{p:@16,c:T'a'}",
			want: "Padding{padding:EdgeInsets.all(16),child:Text'a'}",
		},
		{
			name: "import",
			in:   "im:'package:flutter/material.dart';",
			want: "import 'package:flutter/material.dart';",
		},
		{
			name: "async keywords",
			in:   "asy{awt ~fetch}",
			want: "async{await ~fetch}",
		},
		{
			name: "return gets a terminator",
			in:   "ret x",
			want: "return x;",
		},
		{
			name: "tildes and digits stay",
			in:   "S{b:~Foo,x:1}",
			want: "Scaffold{body:~Foo,obscureText:1}",
		},
		{
			name: "strings untouched",
			in:   `T"S and C"`,
			want: `Text"S and C";`,
		},
		{
			name: "apostrophe in comment",
			in:   "/* Don't inline this */ S{b:N{c:C{h:[]}}}",
			want: "/* Don't inline this */ Scaffold{body:Center{child:Column{children:[]}}}",
		},
		{
			name: "codes inside comment untouched",
			in:   "// S and T stay\nT'a'",
			want: "// S and T stay\nText'a';",
		},
		{
			name: "ret inside string untouched",
			in:   "T'ret val'",
			want: "Text'ret val';",
		},
		{
			name: "unknown reference without registry",
			in:   "#C_NOPE",
			want: "#C_NOPE;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Decompress(tt.in))
		})
	}
}

func TestDecompress_IsNotAnInverse(t *testing.T) {
	e := NewEngine(nil)
	in := "Scaffold(body: Center(child: Text('Hi')))"
	out := e.Decompress(e.Compress(in, aggressive))
	assert.Equal(t, "Scaffold{body:Center{child:Text'Hi'}}", out)
	assert.NotEqual(t, in, out)
}

func TestTables_RoundTripNames(t *testing.T) {
	e := NewEngine(nil)
	for _, w := range WidgetCodes() {
		out := e.Decompress(e.Compress(w.Long+"(x)", basic))
		assert.Equal(t, w.Long+"{x}", out, w.Long)
	}
	for _, p := range PropertyCodes() {
		out := e.Decompress(e.Compress("Foo("+p.Long+" x)", basic))
		assert.Equal(t, "Foo{"+p.Long+"x}", out, p.Long)
	}
}

func TestTables_UniqueCodes(t *testing.T) {
	for name, table := range map[string][]Abbreviation{
		"widgets":    WidgetCodes(),
		"properties": PropertyCodes(),
		"keywords":   KeywordCodes(),
	} {
		longs := map[string]bool{}
		shorts := map[string]bool{}
		for _, a := range table {
			assert.False(t, longs[a.Long], "%s: duplicate name %q", name, a.Long)
			assert.False(t, shorts[a.Short], "%s: duplicate code %q", name, a.Short)
			assert.Less(t, len(a.Short), len(a.Long), "%s: %q", name, a.Long)
			longs[a.Long] = true
			shorts[a.Short] = true
		}
	}
}

func TestTerminateLines(t *testing.T) {
	in := strings.Join([]string{"a", "b{", "c;", "d,", "c:X", "f:y", "m:b", "@1", "// z", "", "e}"}, "\n")
	want := strings.Join([]string{"a;", "b{", "c;", "d,", "c:X", "f:y", "m:b", "@1", "// z", "", "e}"}, "\n")
	assert.Equal(t, want, terminateLines(in))
}

func TestEstimateTokensAndRatio(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 1, EstimateTokens("ééééé"))

	assert.Equal(t, 0.0, Ratio(0, 0))
	assert.Equal(t, 0.0, Ratio(0, 5))
	assert.InDelta(t, 0.75, Ratio(100, 25), 1e-9)
	assert.InDelta(t, -1.0, Ratio(10, 20), 1e-9)
}
