package compression

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fyrsmithlabs/coon/internal/lexer"
	"github.com/fyrsmithlabs/coon/internal/registry"
	"github.com/fyrsmithlabs/coon/internal/strategy"
)

// Compression rules, in application order.
var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reHorizontal = regexp.MustCompile(`[ \t]+`)
	reAnnotation = regexp.MustCompile(`@\w+ `)
	reClass      = regexp.MustCompile(`class (\w+) extends (\w+(?:<[\w<>, ?]*>)?) \{`)
	reField      = regexp.MustCompile(`final (\w+) (\w+) = (\w+)\(\);? ?`)
	reBuild      = regexp.MustCompile(`Widget build\(BuildContext context\) \{ ?`)
	reReturn     = regexp.MustCompile(`\breturn `)
	reCallStart  = regexp.MustCompile(`\b[A-Z]\w*\(`)
	reEdgeInsets = regexp.MustCompile(`EdgeInsets\.all\((\d+)(?:\.\d+)?\)`)
	reEmptyCall  = regexp.MustCompile(`(\w+)\(\)`)
	reDelimSpace = regexp.MustCompile(` ?([:,{}\[\]()]) ?`)
	reStringArg  = regexp.MustCompile(`([A-Z])\{("[^"]*"|'[^']*')\}`)
	reTrue       = regexp.MustCompile(`\btrue\b`)
	reFalse      = regexp.MustCompile(`\bfalse\b`)
	reSemis      = regexp.MustCompile(`;+`)
	reSemiClose  = regexp.MustCompile(`;+\}`)
	reCloseClose = regexp.MustCompile(`\}\s+\}`)
)

// Decompression rules.
var (
	rePadding   = regexp.MustCompile(`@(\d+)`)
	reFieldList = regexp.MustCompile(`f:(\w+=\w+(?:,\w+=\w+)*);`)
	reClassHead = regexp.MustCompile(`c:(\w+)<([\w<>, ?]+?)>;`)
	reBuildMark = regexp.MustCompile(`\bm:b\b`)
	reRet       = regexp.MustCompile(`\bret\b`)
	reReference = regexp.MustCompile(`#(C_[A-Z0-9_-]+)(?:\{[^{}]*\})?`)
)

const buildSignature = "Widget build(BuildContext context) {"

// Engine applies the rewrite tables. It is safe for concurrent use.
type Engine struct {
	reg *registry.Registry

	widgets, properties, keywords       []rewrite
	unWidgets, unProperties, unKeywords []rewrite
}

// NewEngine returns an engine. reg may be nil; registry strategies then
// behave like their table-only counterparts.
func NewEngine(reg *registry.Registry) *Engine {
	return &Engine{
		reg:          reg,
		widgets:      forward(widgetCodes),
		properties:   forward(propertyCodes),
		keywords:     forward(keywordCodes),
		unWidgets:    reverse(widgetCodes),
		unProperties: reverse(propertyCodes),
		unKeywords:   reverse(keywordCodes),
	}
}

// Registry returns the engine's component registry, which may be nil.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// HasRegistry reports whether registry substitution can do anything.
func (e *Engine) HasRegistry() bool { return e.reg != nil && e.reg.Len() > 0 }

// Compress rewrites text into COON form under cfg.
func (e *Engine) Compress(text string, cfg strategy.Config) string {
	s := stripComments(text, cfg.PreserveComments)

	if cfg.AggressiveWhitespace {
		s = CollapseWhitespace(s)
	} else {
		s = collapseLines(s)
	}

	s = replaceOutsideLiterals(reAnnotation, s, "")
	s = reClass.ReplaceAllString(s, "c:$1<$2>;")

	var fields []string
	s = replaceSubmatch(reField, s, func(m []string) string {
		fields = append(fields, m[2]+"="+m[3])
		return ""
	})

	s = reBuild.ReplaceAllString(s, "m:b ")
	s = replaceOutsideLiterals(reReturn, s, "")
	if cfg.AbbreviateKeywords {
		s = applyOutsideLiterals(e.keywords, s)
	}

	if cfg.UseRegistry && e.HasRegistry() {
		s = e.substituteComponents(s, cfg.ComponentThreshold, cfg.MatchTolerance)
	}

	if cfg.AbbreviateWidgets {
		s = applyOutsideLiterals(e.widgets, s)
	}
	if cfg.AbbreviateProperties {
		s = applyOutsideLiterals(e.properties, s)
	}

	s = reEdgeInsets.ReplaceAllString(s, "@$1")
	s = reEmptyCall.ReplaceAllString(s, "~$1")
	s = reDelimSpace.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("(", "{", ")", "}").Replace(s)
	s = reStringArg.ReplaceAllString(s, "$1$2")
	s = replaceOutsideLiterals(reTrue, s, "1")
	s = replaceOutsideLiterals(reFalse, s, "0")

	if len(fields) > 0 {
		s = insertFields(s, "f:"+strings.Join(fields, ",")+";")
	}

	s = reSemis.ReplaceAllLiteralString(s, ";")
	s = reSemiClose.ReplaceAllLiteralString(s, "}")
	for reCloseClose.MatchString(s) {
		s = reCloseClose.ReplaceAllLiteralString(s, "}}")
	}
	return strings.TrimSpace(s)
}

// Decompress expands the table-driven forms of COON text. Constructor
// tildes, brace normalization, boolean digits and removed return keywords
// are not restored.
func (e *Engine) Decompress(text string) string {
	s := rePadding.ReplaceAllString(text, "EdgeInsets.all($1)")
	s = replaceSubmatch(reFieldList, s, func(m []string) string {
		pairs := strings.Split(m[1], ",")
		decls := make([]string, 0, len(pairs))
		for _, p := range pairs {
			name, typ, _ := strings.Cut(p, "=")
			decls = append(decls, "final "+typ+" "+name+" = "+typ+"();")
		}
		return strings.Join(decls, " ") + " "
	})
	s = reClassHead.ReplaceAllString(s, "class $1 extends $2 {")
	s = reBuildMark.ReplaceAllLiteralString(s, buildSignature)
	s = replaceOutsideLiterals(reRet, s, "return")
	s = applyOutsideLiterals(e.unKeywords, s)
	s = applyOutsideLiterals(e.unProperties, s)
	s = applyOutsideLiterals(e.unWidgets, s)
	if e.reg != nil {
		s = reReference.ReplaceAllStringFunc(s, func(ref string) string {
			id := reReference.FindStringSubmatch(ref)[1]
			c, err := e.reg.ByReference(id)
			if err != nil {
				return ref
			}
			return CollapseWhitespace(c.Code)
		})
	}
	return terminateLines(s)
}

// CollapseWhitespace replaces every whitespace run with one space and trims
// the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllLiteralString(s, " "))
}

// collapseLines keeps line structure but squeezes horizontal runs and drops
// blank lines.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(reHorizontal.ReplaceAllLiteralString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// stripComments removes comment tokens, or rewrites line comments as block
// comments when preserve is set so later whitespace collapsing cannot
// swallow the code that follows them.
func stripComments(text string, preserve bool) string {
	res := lexer.Tokenize(text)
	var b strings.Builder
	last := 0
	for _, t := range res.Tokens {
		if t.Kind != lexer.Comment {
			continue
		}
		b.WriteString(text[last:t.Offset])
		switch {
		case !preserve:
			b.WriteByte(' ')
		case strings.HasPrefix(t.Text, "//"):
			body := strings.ReplaceAll(strings.TrimSpace(t.Text[2:]), "*/", "* /")
			b.WriteString("/* " + body + " */")
		default:
			b.WriteString(t.Text)
		}
		last = t.End()
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// substituteComponents replaces balanced constructor calls that are large
// enough and match a registered component with its reference. Outer calls
// are tried before the calls nested inside them.
func (e *Engine) substituteComponents(s string, threshold int, tolerance float64) string {
	var b strings.Builder
	pos := 0
	for pos < len(s) {
		loc := reCallStart.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, open := pos+loc[0], pos+loc[1]-1
		end := matchParen(s, open)
		if end < 0 {
			break
		}
		frag := s[start : end+1]
		if EstimateTokens(frag) >= threshold {
			if m, ok := e.reg.FindMatching(frag, tolerance); ok {
				b.WriteString(s[pos:start])
				b.WriteString(m.Component.Reference(nil))
				pos = end + 1
				continue
			}
		}
		b.WriteString(s[pos : open+1])
		pos = open + 1
	}
	b.WriteString(s[pos:])
	return b.String()
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1. Parentheses inside string literals and comments are ignored.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); {
		if end := literalEnd(s, i); end >= 0 {
			i = end
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// insertFields places the field directive before the build marker, else
// after the class header, else at the front.
func insertFields(s, directive string) string {
	if i := strings.Index(s, "m:b"); i >= 0 {
		return s[:i] + directive + s[i:]
	}
	if loc := reClassHead.FindStringIndex(s); loc != nil {
		return s[:loc[1]] + directive + s[loc[1]:]
	}
	return directive + s
}

// terminateLines appends a semicolon to lines that do not already end a
// statement or block and are not COON directives.
func terminateLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasSuffix(t, "{") || strings.HasSuffix(t, "}") ||
			strings.HasSuffix(t, ";") || strings.HasSuffix(t, ",") {
			continue
		}
		if hasAnyPrefix(t, "c:", "f:", "m:", "@", "//") {
			continue
		}
		lines[i] = strings.TrimRight(line, " \t") + ";"
	}
	return strings.Join(lines, "\n")
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func applyAll(rules []rewrite, s string) string {
	for _, r := range rules {
		s = r.apply(s)
	}
	return s
}

// applyOutsideLiterals applies rules to the parts of s outside string
// literals and comments.
func applyOutsideLiterals(rules []rewrite, s string) string {
	return mapCode(s, func(code string) string { return applyAll(rules, code) })
}

// replaceOutsideLiterals is ReplaceAllLiteralString restricted to code.
func replaceOutsideLiterals(re *regexp.Regexp, s, repl string) string {
	return mapCode(s, func(code string) string { return re.ReplaceAllLiteralString(code, repl) })
}

// mapCode rewrites each code segment of s with fn and copies string
// literals and comments through unchanged.
func mapCode(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	seg := 0
	for i := 0; i < len(s); {
		end := literalEnd(s, i)
		if end < 0 {
			i++
			continue
		}
		b.WriteString(fn(s[seg:i]))
		b.WriteString(s[i:end])
		seg, i = end, end
	}
	b.WriteString(fn(s[seg:]))
	return b.String()
}

// literalEnd returns the end of the string literal or comment starting at
// i, or -1 when none starts there. Unterminated spans run to the end of s.
func literalEnd(s string, i int) int {
	switch c := s[i]; {
	case c == '"' || c == '\'':
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '\\':
				j++
			case c:
				return j + 1
			}
		}
		return len(s)
	case strings.HasPrefix(s[i:], "/*"):
		if k := strings.Index(s[i+2:], "*/"); k >= 0 {
			return i + 2 + k + 2
		}
		return len(s)
	case strings.HasPrefix(s[i:], "//"):
		if k := strings.IndexByte(s[i:], '\n'); k >= 0 {
			return i + k
		}
		return len(s)
	}
	return -1
}

// replaceSubmatch is ReplaceAllStringFunc with access to submatches.
func replaceSubmatch(re *regexp.Regexp, s string, fn func([]string) string) string {
	idx := re.FindAllStringSubmatchIndex(s, -1)
	if idx == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range idx {
		b.WriteString(s[last:loc[0]])
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// EstimateTokens approximates a token count as one token per four runes.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// Ratio is 1 - compressed/original, or 0 when original is 0.
func Ratio(original, compressed int) float64 {
	if original == 0 {
		return 0
	}
	return 1 - float64(compressed)/float64(original)
}
