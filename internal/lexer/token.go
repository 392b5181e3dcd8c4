// Package lexer scans widget-tree source text into a flat stream of typed tokens.
//
// The scanner is deliberately lenient: characters it does not recognize are
// skipped, and unterminated string literals or block comments consume the rest
// of the input. Neither case is an error; the outcome is reported through
// ScanResult.Status so callers can decide how much to trust the stream.
package lexer

import "fmt"

// Kind classifies a token.
type Kind int

const (
	Keyword Kind = iota
	Identifier
	Literal
	Operator
	Delimiter
	Widget
	Comment
)

var kindNames = [...]string{
	Keyword:    "keyword",
	Identifier: "identifier",
	Literal:    "literal",
	Operator:   "operator",
	Delimiter:  "delimiter",
	Widget:     "widget",
	Comment:    "comment",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Token is a single lexical unit. Text is always the exact source slice at
// Offset; Line and Column are 1-based.
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Column int
	Offset int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d:%d", t.Kind, t.Text, t.Line, t.Column)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// Status is the tagged outcome of a scan.
type Status int

const (
	// ScanOK means every literal and comment was terminated.
	ScanOK Status = iota
	// ScanTruncated means an unterminated string or block comment ran to
	// the end of the input.
	ScanTruncated
)

func (s Status) String() string {
	if s == ScanTruncated {
		return "truncated"
	}
	return "ok"
}

// ScanResult is the output of Tokenize.
type ScanResult struct {
	Tokens []Token
	Status Status
	// Skipped counts bytes that matched no lexical rule.
	Skipped int
}

// Keywords is the fixed keyword vocabulary.
var Keywords = newSet(
	"class", "extends", "implements", "with", "mixin",
	"abstract", "final", "const", "static", "void", "var", "late",
	"return", "if", "else", "switch", "case", "default",
	"for", "while", "do", "break", "continue",
	"async", "await", "sync", "yield",
	"import", "export", "library", "part", "as", "show", "hide",
	"true", "false", "null",
	"new", "this", "super", "is",
)

// Widgets is the fixed vocabulary of known widget names.
var Widgets = newSet(
	"Widget", "StatelessWidget", "StatefulWidget", "State",
	"Scaffold", "AppBar", "Container", "Column", "Row",
	"Text", "Padding", "Center", "Align", "SafeArea",
	"SizedBox", "Expanded", "Flexible", "Stack", "Positioned",
	"ListView", "GridView", "CustomScrollView", "SingleChildScrollView",
	"TextField", "TextFormField", "ElevatedButton", "TextButton",
	"IconButton", "FloatingActionButton", "Card", "Divider",
	"Drawer", "BottomNavigationBar", "TabBar", "TabBarView",
	"Image", "Icon", "CircularProgressIndicator", "LinearProgressIndicator",
)

type set map[string]struct{}

func newSet(words ...string) set {
	s := make(set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s set) Has(word string) bool {
	_, ok := s[word]
	return ok
}

// Classify returns the kind for an identifier-shaped word.
func Classify(word string) Kind {
	switch {
	case Keywords.Has(word):
		return Keyword
	case Widgets.Has(word):
		return Widget
	default:
		return Identifier
	}
}
