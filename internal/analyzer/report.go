package analyzer

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Report writes a human-readable summary of r to w.
func Report(w io.Writer, r *Result) error {
	var b strings.Builder
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "CODE ANALYSIS REPORT")
	fmt.Fprintln(&b, rule)

	fmt.Fprintln(&b, "\nBasic metrics:")
	fmt.Fprintf(&b, "   - Code size: %d characters\n", r.CodeSize)
	fmt.Fprintf(&b, "   - Estimated tokens: %d\n", r.TokenCount)
	fmt.Fprintf(&b, "   - Complexity score: %.2f\n", r.ComplexityScore)
	fmt.Fprintf(&b, "   - Max nesting depth: %d\n", r.NestingDepth)
	fmt.Fprintf(&b, "   - Widget tree depth: %d\n", r.WidgetTreeDepth)

	fmt.Fprintln(&b, "\nCharacteristics:")
	fmt.Fprintf(&b, "   - Has state management: %s\n", yesNo(r.HasState))
	fmt.Fprintf(&b, "   - Has async operations: %s\n", yesNo(r.HasAsync))

	if len(r.WidgetFrequency) > 0 {
		fmt.Fprintln(&b, "\nTop widgets:")
		for _, c := range r.MostCommonWidgets(5) {
			fmt.Fprintf(&b, "   - %s: %d\n", c.Name, c.Count)
		}
	}
	if len(r.PropertyFrequency) > 0 {
		fmt.Fprintln(&b, "\nTop properties:")
		for _, c := range r.MostCommonProperties(5) {
			fmt.Fprintf(&b, "   - %s: %d\n", c.Name, c.Count)
		}
	}
	if len(r.RepeatedPatterns) > 0 {
		fmt.Fprintf(&b, "\nRepeated patterns found: %d\n", len(r.RepeatedPatterns))
	}
	if len(r.CompressionOpportunities) > 0 {
		fmt.Fprintln(&b, "\nCompression opportunities:")
		names := make([]string, 0, len(r.CompressionOpportunities))
		for name := range r.CompressionOpportunities {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return r.CompressionOpportunities[names[i]] > r.CompressionOpportunities[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(&b, "   - %s: %.1f%% potential savings\n", name, r.CompressionOpportunities[name]*100)
		}
	}

	fmt.Fprintf(&b, "\nRecommended strategy: %s\n", strings.ToUpper(RecommendStrategy(r).String()))

	_, err := io.WriteString(w, b.String())
	return err
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
