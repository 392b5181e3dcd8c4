package lexer

import "strings"

// twoCharOperators are recognized with one character of lookahead.
var twoCharOperators = newSet("==", "!=", "<=", ">=", "&&", "||", "++", "--", "=>", "..", "??")

const (
	singleCharOperators = "+-*/%=<>!&|^~?:;,.(){}[]@"
	delimiters          = "(){}[],.;:@"
)

type scanner struct {
	src    string
	pos    int
	line   int
	col    int
	result ScanResult
}

// Tokenize scans src into tokens. It never fails.
func Tokenize(src string) ScanResult {
	s := &scanner{src: src, line: 1, col: 1}
	s.run()
	return s.result
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.advance()
		case c == '/' && s.peek(1) == '/':
			s.lineComment()
		case c == '/' && s.peek(1) == '*':
			s.blockComment()
		case c == '"' || c == '\'':
			s.str(c)
		case isDigit(c):
			s.number()
		case isIdentStart(c):
			s.ident()
		default:
			if !s.operator() {
				s.advance()
				s.result.Skipped++
			}
		}
	}
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.pos++
}

func (s *scanner) emit(kind Kind, start, line, col int) {
	s.result.Tokens = append(s.result.Tokens, Token{
		Kind:   kind,
		Text:   s.src[start:s.pos],
		Line:   line,
		Column: col,
		Offset: start,
	})
}

func (s *scanner) lineComment() {
	start, line, col := s.pos, s.line, s.col
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.advance()
	}
	s.emit(Comment, start, line, col)
}

func (s *scanner) blockComment() {
	start, line, col := s.pos, s.line, s.col
	s.advance()
	s.advance()
	for {
		if s.pos >= len(s.src) {
			s.result.Status = ScanTruncated
			break
		}
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			s.advance()
			s.advance()
			break
		}
		s.advance()
	}
	s.emit(Comment, start, line, col)
}

func (s *scanner) str(quote byte) {
	start, line, col := s.pos, s.line, s.col
	s.advance()
	for {
		if s.pos >= len(s.src) {
			s.result.Status = ScanTruncated
			break
		}
		c := s.src[s.pos]
		if c == quote {
			s.advance()
			break
		}
		s.advance()
		if c == '\\' && s.pos < len(s.src) {
			s.advance()
		}
	}
	s.emit(Literal, start, line, col)
}

func (s *scanner) number() {
	start, line, col := s.pos, s.line, s.col
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if !isDigit(c) && c != '.' && c != '_' {
			break
		}
		s.advance()
	}
	s.emit(Literal, start, line, col)
}

func (s *scanner) ident() {
	start, line, col := s.pos, s.line, s.col
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.advance()
	}
	s.emit(Classify(s.src[start:s.pos]), start, line, col)
}

func (s *scanner) operator() bool {
	start, line, col := s.pos, s.line, s.col
	if s.pos+2 <= len(s.src) && twoCharOperators.Has(s.src[s.pos:s.pos+2]) {
		s.advance()
		s.advance()
		s.emit(Operator, start, line, col)
		return true
	}
	c := s.src[s.pos]
	if strings.IndexByte(singleCharOperators, c) < 0 {
		return false
	}
	s.advance()
	if strings.IndexByte(delimiters, c) >= 0 {
		s.emit(Delimiter, start, line, col)
	} else {
		s.emit(Operator, start, line, col)
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// Reconstruct rebuilds text from tokens by splicing the original bytes that
// lie between consecutive tokens (whitespace and skipped characters) back
// in by position.
func Reconstruct(src string, tokens []Token) string {
	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, t := range tokens {
		if t.Offset > prev {
			b.WriteString(src[prev:t.Offset])
		}
		b.WriteString(t.Text)
		prev = t.End()
	}
	if prev < len(src) {
		b.WriteString(src[prev:])
	}
	return b.String()
}

// Significant returns tokens with comments removed.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != Comment {
			out = append(out, t)
		}
	}
	return out
}
