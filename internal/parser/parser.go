// Package parser builds a shallow structure tree from a lexer token stream.
//
// Only three top-level forms are recognized: class declarations, import-like
// directives and field declarations. Class bodies are skipped wholesale.
package parser

import (
	"strings"

	"github.com/fyrsmithlabs/coon/internal/lexer"
)

// NodeKind identifies a structure node.
type NodeKind string

const (
	KindRoot   NodeKind = "root"
	KindClass  NodeKind = "class"
	KindImport NodeKind = "import"
	KindField  NodeKind = "field"
)

// Node is an immutable declaration record.
type Node struct {
	Kind       NodeKind          `json:"kind"`
	Name       string            `json:"name,omitempty"`
	BaseType   string            `json:"base_type,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Children   []Node            `json:"children,omitempty"`
	Line       int               `json:"line,omitempty"`
	Column     int               `json:"column,omitempty"`
}

// Find returns the direct children of the given kind.
func (n Node) Find(kind NodeKind) []Node {
	var out []Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// ParseText tokenizes and parses src.
func ParseText(src string) Node {
	return Parse(lexer.Tokenize(src).Tokens)
}

// Parse walks tokens once and returns the root node. Comments are ignored.
func Parse(tokens []lexer.Token) Node {
	p := &parser{toks: lexer.Significant(tokens)}
	root := Node{Kind: KindRoot}
	for p.pos < len(p.toks) {
		start := p.pos
		if n, ok := p.statement(); ok {
			root.Children = append(root.Children, n)
		}
		if p.pos <= start {
			p.pos = start + 1
		}
	}
	return root
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() (lexer.Token, bool) {
	if p.pos < len(p.toks) {
		return p.toks[p.pos], true
	}
	return lexer.Token{}, false
}

func (p *parser) at(kind lexer.Kind, text string) bool {
	t, ok := p.cur()
	return ok && t.Is(kind, text)
}

func (p *parser) name() (lexer.Token, bool) {
	t, ok := p.cur()
	if ok && (t.Kind == lexer.Identifier || t.Kind == lexer.Widget) {
		return t, true
	}
	return lexer.Token{}, false
}

func (p *parser) statement() (Node, bool) {
	t := p.toks[p.pos]
	if t.Kind != lexer.Keyword {
		return Node{}, false
	}
	switch t.Text {
	case "class", "abstract":
		return p.class()
	case "import", "export", "part":
		return p.directive()
	case "final", "const", "var", "late":
		return p.field()
	}
	return Node{}, false
}

func (p *parser) class() (Node, bool) {
	start := p.toks[p.pos]
	props := map[string]string{}
	if start.Text == "abstract" {
		p.pos++
		if !p.at(lexer.Keyword, "class") {
			return Node{}, false
		}
		props["abstract"] = "true"
	}
	p.pos++ // class

	nameTok, ok := p.name()
	if !ok {
		return Node{}, false
	}
	p.pos++
	n := Node{Kind: KindClass, Name: nameTok.Text, Line: start.Line, Column: start.Column}
	if tp := p.typeArgs(); tp != "" {
		props["type_parameters"] = tp
	}

	for {
		switch {
		case p.at(lexer.Keyword, "extends"):
			p.pos++
			n.BaseType = p.typeRef()
		case p.at(lexer.Keyword, "with"):
			p.pos++
			props["mixins"] = p.typeList()
		case p.at(lexer.Keyword, "implements"):
			p.pos++
			props["interfaces"] = p.typeList()
		default:
			if len(props) > 0 {
				n.Properties = props
			}
			p.skipBody()
			return n, true
		}
	}
}

// typeRef reads Name or Name<...>.
func (p *parser) typeRef() string {
	t, ok := p.name()
	if !ok {
		return ""
	}
	p.pos++
	return t.Text + p.typeArgs()
}

func (p *parser) typeList() string {
	var names []string
	for {
		ref := p.typeRef()
		if ref == "" {
			break
		}
		names = append(names, ref)
		if !p.at(lexer.Delimiter, ",") {
			break
		}
		p.pos++
	}
	return strings.Join(names, ",")
}

// typeArgs consumes a balanced <...> group and returns its text.
func (p *parser) typeArgs() string {
	if !p.at(lexer.Operator, "<") {
		return ""
	}
	var b strings.Builder
	depth := 0
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		switch {
		case t.Is(lexer.Operator, "<"):
			depth++
		case t.Is(lexer.Operator, ">"):
			depth--
		case t.Is(lexer.Operator, ">="), t.Is(lexer.Delimiter, ";"), t.Is(lexer.Delimiter, "{"):
			return b.String()
		}
		b.WriteString(t.Text)
		if t.Is(lexer.Delimiter, ",") {
			b.WriteByte(' ')
		}
		p.pos++
		if depth == 0 {
			break
		}
	}
	return b.String()
}

// skipBody advances past a brace-delimited body, or to the next statement
// terminator when no body follows.
func (p *parser) skipBody() {
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		if t.Is(lexer.Delimiter, ";") {
			p.pos++
			return
		}
		if t.Is(lexer.Delimiter, "{") {
			break
		}
		p.pos++
	}
	depth := 0
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		p.pos++
		switch {
		case t.Is(lexer.Delimiter, "{"):
			depth++
		case t.Is(lexer.Delimiter, "}"):
			depth--
			if depth <= 0 {
				return
			}
		}
	}
}

// skipStatement advances past the next ';' that is not nested inside
// brackets.
func (p *parser) skipStatement() {
	depth := 0
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		p.pos++
		if t.Kind != lexer.Delimiter {
			continue
		}
		switch t.Text {
		case "{", "(", "[":
			depth++
		case "}", ")", "]":
			if depth > 0 {
				depth--
			}
		case ";":
			if depth == 0 {
				return
			}
		}
	}
}

func (p *parser) directive() (Node, bool) {
	kw := p.toks[p.pos]
	p.pos++
	lit, ok := p.cur()
	if !ok || lit.Kind != lexer.Literal || !isQuoted(lit.Text) {
		return Node{}, false
	}
	p.pos++

	n := Node{
		Kind:       KindImport,
		Name:       unquote(lit.Text),
		Properties: map[string]string{"directive": kw.Text},
		Line:       kw.Line,
		Column:     kw.Column,
	}
	for p.pos < len(p.toks) {
		t := p.toks[p.pos]
		if t.Is(lexer.Delimiter, ";") {
			p.pos++
			break
		}
		p.pos++
		if t.Kind != lexer.Keyword {
			continue
		}
		switch t.Text {
		case "as":
			if id, ok := p.name(); ok {
				n.Properties["as"] = id.Text
				p.pos++
			}
		case "show", "hide":
			var names []string
			for {
				id, ok := p.name()
				if !ok {
					break
				}
				names = append(names, id.Text)
				p.pos++
				if !p.at(lexer.Delimiter, ",") {
					break
				}
				p.pos++
			}
			n.Properties[t.Text] = strings.Join(names, ",")
		}
	}
	return n, true
}

func isModifier(word string) bool {
	switch word {
	case "final", "const", "var", "late", "static":
		return true
	}
	return false
}

func (p *parser) field() (Node, bool) {
	first := p.toks[p.pos]
	var modifiers []string
	for {
		t, ok := p.cur()
		if !ok || t.Kind != lexer.Keyword || !isModifier(t.Text) {
			break
		}
		modifiers = append(modifiers, t.Text)
		p.pos++
	}

	head, ok := p.name()
	if !ok {
		p.skipStatement()
		return Node{}, false
	}
	p.pos++
	typ := head.Text + p.typeArgs()
	if p.at(lexer.Operator, "?") {
		typ += "?"
		p.pos++
	}

	name := head.Text
	if next, ok := p.name(); ok {
		name = next.Text
		p.pos++
	} else {
		// No declared type: the first identifier was the name.
		typ = ""
	}

	props := map[string]string{"modifiers": strings.Join(modifiers, " ")}
	if typ != "" {
		props["type"] = typ
	}
	if p.at(lexer.Operator, "=") {
		p.pos++
		start := p.pos
		p.skipStatement()
		end := p.pos
		if end > start && p.toks[end-1].Is(lexer.Delimiter, ";") {
			end--
		}
		if init := joinTokens(p.toks[start:end]); init != "" {
			props["initializer"] = init
		}
	} else {
		p.skipStatement()
	}

	return Node{
		Kind:       KindField,
		Name:       name,
		Properties: props,
		Line:       first.Line,
		Column:     first.Column,
	}, true
}

func joinTokens(toks []lexer.Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	return s[1 : len(s)-1]
}
