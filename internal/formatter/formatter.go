// Package formatter re-indents decompressed widget source so it reads like
// hand-written code again. It is line based and does not parse the input.
package formatter

import (
	"strings"
)

// Options control Format.
type Options struct {
	// IndentSpaces is the width of one indentation level. Values below 1
	// use DefaultOptions().IndentSpaces.
	IndentSpaces int

	// PreserveBlankLines keeps runs of blank lines; otherwise they collapse
	// to one.
	PreserveBlankLines bool
}

// DefaultOptions returns two-space indentation that keeps blank lines.
func DefaultOptions() Options {
	return Options{IndentSpaces: 2, PreserveBlankLines: true}
}

// Format trims trailing whitespace, re-indents by bracket depth, separates
// class declarations by a blank line and ends the text with one newline.
// Empty or all-blank input yields "".
func Format(code string, opts Options) string {
	if opts.IndentSpaces < 1 {
		opts.IndentSpaces = DefaultOptions().IndentSpaces
	}
	if strings.TrimSpace(code) == "" {
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	unit := strings.Repeat(" ", opts.IndentSpaces)
	depth := 0
	prevBlank := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			if len(out) == 0 || (!opts.PreserveBlankLines && prevBlank) {
				continue
			}
			out = append(out, "")
			prevBlank = true
			continue
		}

		if isClassDecl(stripped) && len(out) > 0 && !prevBlank {
			out = append(out, "")
		}

		if opensWithCloser(stripped) && depth > 0 {
			depth--
		}
		out = append(out, strings.Repeat(unit, depth)+stripped)
		depth += netOpen(stripped)
		if depth < 0 {
			depth = 0
		}
		prevBlank = false
	}

	return strings.TrimRight(strings.Join(out, "\n"), "\n ") + "\n"
}

func isClassDecl(line string) bool {
	return strings.HasPrefix(line, "class ") || strings.HasPrefix(line, "abstract class ")
}

func opensWithCloser(line string) bool {
	switch line[0] {
	case '}', ')', ']':
		return true
	}
	return false
}

// netOpen returns the change in depth a line causes after its own
// indentation is fixed: openers minus closers, not counting the leading
// closer already applied. Brackets inside string literals are ignored.
func netOpen(line string) int {
	n := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{', '(', '[':
			n++
		case '}', ')', ']':
			n--
		}
	}
	if opensWithCloser(line) {
		n++
	}
	return n
}
