// Package validator checks a compression round trip: whether the
// decompressed text reproduces the original after normalization, how similar
// the two are, and whether compression reduced the size at all.
package validator

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Findings recorded by Validate.
const (
	WarnNotReduced        = "compression did not reduce code size"
	WarnNotReversible     = "code not perfectly reversible, but may be semantically equivalent"
	ErrNotReversible      = "round-trip validation failed: code not perfectly reversible"
	WarnNotEquivalent     = "decompressed code may not be semantically equivalent to the original"
	ErrNotEquivalent      = "decompressed code is not semantically equivalent to the original"
	WarnTokenCountSuspect = "token count estimation may be inaccurate"
)

// Result is the outcome of validating one round trip.
type Result struct {
	Valid              bool     `json:"valid"`
	Reversible         bool     `json:"reversible"`
	SemanticEquivalent bool     `json:"semantic_equivalent"`
	TokenCountMatch    bool     `json:"token_count_match"`
	Similarity         float64  `json:"similarity"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
}

// Validator validates round trips. In strict mode a normalized mismatch is
// an error; otherwise it is a warning.
type Validator struct {
	strict bool
}

// New returns a validator.
func New(strict bool) *Validator {
	return &Validator{strict: strict}
}

// Strict reports whether the validator runs in strict mode.
func (v *Validator) Strict() bool { return v.strict }

// Validate checks original against its compressed and decompressed forms.
// Failures are reported in the result, never as errors.
func (v *Validator) Validate(original, compressed, decompressed string) Result {
	r := Result{Errors: []string{}, Warnings: []string{}}

	if len(compressed) >= len(original) {
		r.Warnings = append(r.Warnings, WarnNotReduced)
	}

	r.Reversible = Normalize(original) == Normalize(decompressed)
	if !r.Reversible {
		v.record(&r, ErrNotReversible, WarnNotReversible)
	}

	// Equivalence is normalized equality until a structural comparison exists.
	r.SemanticEquivalent = r.Reversible
	if !r.SemanticEquivalent {
		v.record(&r, ErrNotEquivalent, WarnNotEquivalent)
	}

	r.Similarity = Similarity(original, decompressed)

	r.TokenCountMatch = len(compressed) < len(original)
	if !r.TokenCountMatch {
		r.Warnings = append(r.Warnings, WarnTokenCountSuspect)
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (v *Validator) record(r *Result, strictMsg, lenientMsg string) {
	if v.strict {
		r.Errors = append(r.Errors, strictMsg)
		return
	}
	r.Warnings = append(r.Warnings, lenientMsg)
}

// Normalize removes all whitespace and lower-cases s.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Similarity returns 2*LCS/(len(a)+len(b)) measured in runes, where LCS is
// the longest common subsequence found by a minimal Myers diff. Two empty
// strings are identical.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	common := 0
	for _, d := range dmp.DiffMainRunes(ra, rb, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += len([]rune(d.Text))
		}
	}
	return 2 * float64(common) / float64(total)
}

// Diff renders a unified diff from original to decompressed.
func Diff(original, decompressed string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(decompressed),
		FromFile: "original",
		ToFile:   "decompressed",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("failed to render diff: %w", err)
	}
	return out, nil
}

// Case is one round trip to validate.
type Case struct {
	Name         string `json:"name,omitempty"`
	Original     string `json:"original"`
	Compressed   string `json:"compressed"`
	Decompressed string `json:"decompressed"`
}

// BatchResult aggregates ValidateBatch.
type BatchResult struct {
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// ValidateBatch validates every case in order.
func (v *Validator) ValidateBatch(cases []Case) BatchResult {
	br := BatchResult{Results: make([]Result, 0, len(cases))}
	for _, c := range cases {
		r := v.Validate(c.Original, c.Compressed, c.Decompressed)
		br.Results = append(br.Results, r)
		if r.Valid {
			br.Passed++
		} else {
			br.Failed++
		}
	}
	return br
}

// Report writes a human-readable summary of r.
func Report(w io.Writer, r Result) error {
	rule := strings.Repeat("=", 70)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "COMPRESSION VALIDATION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Valid:                   %t\n", r.Valid)
	fmt.Fprintf(&b, "Reversible:              %t\n", r.Reversible)
	fmt.Fprintf(&b, "Semantically equivalent: %t\n", r.SemanticEquivalent)
	fmt.Fprintf(&b, "Token count match:       %t\n", r.TokenCountMatch)
	fmt.Fprintf(&b, "Similarity:              %.2f%%\n", r.Similarity*100)
	if len(r.Errors) > 0 {
		fmt.Fprintln(&b, "\nErrors:")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(&b, "\nWarnings:")
		for _, msg := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}
	fmt.Fprintln(&b, rule)
	_, err := io.WriteString(w, b.String())
	return err
}
