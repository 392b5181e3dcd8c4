package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		opts Options
		want string
	}{
		{
			name: "empty",
			in:   "  \n\t\n",
			opts: DefaultOptions(),
			want: "",
		},
		{
			name: "reindents braces",
			in:   "class A {\nint x;\n  void f() {\n        g();\n}\n}",
			opts: DefaultOptions(),
			want: "class A {\n  int x;\n  void f() {\n    g();\n  }\n}\n",
		},
		{
			name: "parens and brackets",
			in:   "Column(\nchildren: [\nText('a'),\n],\n)",
			opts: Options{IndentSpaces: 4},
			want: "Column(\n    children: [\n        Text('a'),\n    ],\n)\n",
		},
		{
			name: "trailing whitespace trimmed",
			in:   "a;   \nb;\t",
			opts: DefaultOptions(),
			want: "a;\nb;\n",
		},
		{
			name: "blank lines preserved",
			in:   "a;\n\n\nb;",
			opts: DefaultOptions(),
			want: "a;\n\n\nb;\n",
		},
		{
			name: "blank lines collapsed",
			in:   "a;\n\n\n\nb;",
			opts: Options{IndentSpaces: 2},
			want: "a;\n\nb;\n",
		},
		{
			name: "blank line before class",
			in:   "import 'x.dart';\nclass A {\n}\nclass B {\n}",
			opts: DefaultOptions(),
			want: "import 'x.dart';\n\nclass A {\n}\n\nclass B {\n}\n",
		},
		{
			name: "else on closing line",
			in:   "if (a) {\nx();\n} else {\ny();\n}",
			opts: DefaultOptions(),
			want: "if (a) {\n  x();\n} else {\n  y();\n}\n",
		},
		{
			name: "brackets in strings ignored",
			in:   "Text(\"{(\"),\nnext();",
			opts: DefaultOptions(),
			want: "Text(\"{(\"),\nnext();\n",
		},
		{
			name: "unbalanced closers clamp at zero",
			in:   "}\n}\nx;",
			opts: DefaultOptions(),
			want: "}\n}\nx;\n",
		},
		{
			name: "zero indent uses default",
			in:   "a {\nb;\n}",
			opts: Options{},
			want: "a {\n  b;\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in, tt.opts))
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	in := "class A extends B {\nWidget build(BuildContext context) {\nreturn Scaffold(\nbody: Text('x'),\n);\n}\n}"
	once := Format(in, DefaultOptions())
	assert.Equal(t, once, Format(once, DefaultOptions()))
}
