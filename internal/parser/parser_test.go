package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/coon/internal/lexer"
)

const counterSource = `
import 'package:flutter/material.dart';
import "package:app/theme.dart" as theme show Palette, Fonts;

final String appTitle = 'Counter';
const int maxCount = 10;
var handlers = <String, Function>{};

class Counter extends StatefulWidget {
  @override
  _CounterState createState() => _CounterState();
}

class _CounterState extends State<Counter> with TickerProviderStateMixin {
  final TextEditingController controller = TextEditingController();
  int count = 0;

  void increment() {
    setState(() {
      count++;
    });
  }
}
`

func TestParse_TopLevelForms(t *testing.T) {
	root := ParseText(counterSource)

	assert.Equal(t, KindRoot, root.Kind)
	assert.Empty(t, root.Name)
	assert.Empty(t, root.BaseType)

	imports := root.Find(KindImport)
	require.Len(t, imports, 2)
	assert.Equal(t, "package:flutter/material.dart", imports[0].Name)
	assert.Equal(t, "import", imports[0].Properties["directive"])
	assert.Equal(t, "theme", imports[1].Properties["as"])
	assert.Equal(t, "Palette,Fonts", imports[1].Properties["show"])

	fields := root.Find(KindField)
	require.Len(t, fields, 3)
	assert.Equal(t, "appTitle", fields[0].Name)
	assert.Equal(t, "String", fields[0].Properties["type"])
	assert.Equal(t, "final", fields[0].Properties["modifiers"])
	assert.Equal(t, "'Counter'", fields[0].Properties["initializer"])
	assert.Equal(t, "maxCount", fields[1].Name)
	assert.Equal(t, "handlers", fields[2].Name)
	assert.NotContains(t, fields[2].Properties, "type")

	classes := root.Find(KindClass)
	require.Len(t, classes, 2)
	assert.Equal(t, "Counter", classes[0].Name)
	assert.Equal(t, "StatefulWidget", classes[0].BaseType)
	assert.Empty(t, classes[0].Children)
	assert.Equal(t, "_CounterState", classes[1].Name)
	assert.Equal(t, "State<Counter>", classes[1].BaseType)
	assert.Equal(t, "TickerProviderStateMixin", classes[1].Properties["mixins"])
}

func TestParse_ClassBodyIsNotDescended(t *testing.T) {
	root := ParseText(`class A extends B { final X x = X(); class Inner {} } final Y y = Y();`)

	require.Len(t, root.Children, 2)
	assert.Equal(t, KindClass, root.Children[0].Kind)
	assert.Equal(t, KindField, root.Children[1].Kind)
	assert.Equal(t, "y", root.Children[1].Name)
	assert.Equal(t, "Y", root.Children[1].Properties["type"])
}

func TestParse_Positions(t *testing.T) {
	root := ParseText("\n\n  class Foo extends Bar { }")
	require.Len(t, root.Children, 1)
	assert.Equal(t, 3, root.Children[0].Line)
	assert.Equal(t, 3, root.Children[0].Column)
}

func TestParse_Permissive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []NodeKind
	}{
		{"empty", "", nil},
		{"garbage only", "))) ;; }} ==> ?? 12", nil},
		{"class without name", "class { }", nil},
		{"import without literal", "import foo; class A {}", []NodeKind{KindClass}},
		{"unterminated class body", "class A extends B { Widget build(", []NodeKind{KindClass}},
		{"abstract class", "abstract class Shape implements Comparable<Shape> {}", []NodeKind{KindClass}},
		{"modifier without name", "final ;", nil},
		{"export and part", "export 'a.dart'; part 'b.dart';", []NodeKind{KindImport, KindImport}},
		{"comments are ignored", "// class Fake {}\n/* final x = 1; */ late String name;", []NodeKind{KindField}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var root Node
			require.NotPanics(t, func() { root = ParseText(tt.input) })

			var got []NodeKind
			for _, c := range root.Children {
				got = append(got, c.Kind)
			}
			assert.Equal(t, tt.kinds, got)
		})
	}
}

func TestParse_AbstractClassProperties(t *testing.T) {
	root := ParseText("abstract class Shape<T> implements Comparable<Shape>, Named {}")
	require.Len(t, root.Children, 1)

	n := root.Children[0]
	assert.Equal(t, "Shape", n.Name)
	assert.Equal(t, "true", n.Properties["abstract"])
	assert.Equal(t, "<T>", n.Properties["type_parameters"])
	assert.Equal(t, "Comparable<Shape>,Named", n.Properties["interfaces"])
}

func TestParse_AlwaysTerminates(t *testing.T) {
	// Every prefix of a realistic source must parse without overrunning.
	for i := 0; i <= len(counterSource); i++ {
		toks := lexer.Tokenize(counterSource[:i]).Tokens
		require.NotPanics(t, func() { Parse(toks) })
	}
}
