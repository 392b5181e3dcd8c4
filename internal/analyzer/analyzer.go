// Package analyzer computes structural metrics over raw widget-tree source
// text. The metrics drive strategy recommendation and reporting.
package analyzer

import (
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/coon/internal/strategy"
)

// WidgetNames is the widget vocabulary tracked for frequency and tree depth.
var WidgetNames = []string{
	"Scaffold", "AppBar", "Container", "Column", "Row",
	"Text", "Padding", "Center", "Align", "SafeArea",
	"SizedBox", "Expanded", "Flexible", "Stack", "Positioned",
	"ListView", "GridView", "CustomScrollView", "SingleChildScrollView",
	"TextField", "TextFormField", "ElevatedButton", "TextButton",
	"IconButton", "FloatingActionButton", "Card", "Divider",
	"Drawer", "BottomNavigationBar", "TabBar", "TabBarView",
	"Image", "Icon", "CircularProgressIndicator", "LinearProgressIndicator",
	"StatelessWidget", "StatefulWidget", "State",
}

// PropertyNames is the property vocabulary tracked for frequency.
var PropertyNames = []string{
	"child", "children", "builder", "controller", "onPressed",
	"onChanged", "text", "title", "body", "appBar", "padding",
	"margin", "height", "width", "color", "backgroundColor",
	"style", "decoration", "alignment", "mainAxisAlignment",
	"crossAxisAlignment", "mainAxisSize", "crossAxisSize",
}

// Opportunity labels.
const (
	OpportunityWidgetAbbreviation   = "widget_abbreviation"
	OpportunityPropertyAbbreviation = "property_abbreviation"
	OpportunityWhitespaceRemoval    = "whitespace_removal"
	OpportunityTemplateMatching     = "template_matching"
	OpportunityComponentExtraction  = "component_extraction"
)

const (
	maxRepeated      = 10
	minRepeatArgs    = 20
	charsPerToken    = 4
	maxComponentGain = 0.6
)

var decisionKeywords = []string{"if", "else", "switch", "case", "for", "while", "&&", "||", "?"}

var (
	widgetPatterns   = wordPatterns(WidgetNames, `[\(<]`)
	propertyPatterns = wordPatterns(PropertyNames, `\s*:`)
	widgetOpenRe     = regexp.MustCompile(`(?:` + alternation(WidgetNames) + `)\s*\(`)
	repeatedRe       = regexp.MustCompile(`\w+\([^)]{20,}\)`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

func wordPatterns(words []string, suffix string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		out[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + suffix)
	}
	return out
}

// alternation quotes words longest first so a name never shadows a longer
// name it prefixes.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Result holds the metrics for one input. It is not modified after Analyze
// returns it.
type Result struct {
	WidgetFrequency          map[string]int     `json:"widget_frequency"`
	PropertyFrequency        map[string]int     `json:"property_frequency"`
	ComplexityScore          float64            `json:"complexity_score"`
	NestingDepth             int                `json:"nesting_depth"`
	CodeSize                 int                `json:"code_size"`
	TokenCount               int                `json:"token_count"`
	HasState                 bool               `json:"has_state"`
	HasAsync                 bool               `json:"has_async"`
	WidgetTreeDepth          int                `json:"widget_tree_depth"`
	RepeatedPatterns         []string           `json:"repeated_patterns"`
	CompressionOpportunities map[string]float64 `json:"compression_opportunities"`
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.WidgetFrequency = maps.Clone(r.WidgetFrequency)
	c.PropertyFrequency = maps.Clone(r.PropertyFrequency)
	c.RepeatedPatterns = slices.Clone(r.RepeatedPatterns)
	c.CompressionOpportunities = maps.Clone(r.CompressionOpportunities)
	return &c
}

// Count is a name with its frequency.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MostCommonWidgets returns up to n widgets by descending frequency.
func (r *Result) MostCommonWidgets(n int) []Count {
	return mostCommon(r.WidgetFrequency, n)
}

// MostCommonProperties returns up to n properties by descending frequency.
func (r *Result) MostCommonProperties(n int) []Count {
	return mostCommon(r.PropertyFrequency, n)
}

// WidgetCount is the total number of widget constructions seen.
func (r *Result) WidgetCount() int {
	total := 0
	for _, c := range r.WidgetFrequency {
		total += c
	}
	return total
}

func mostCommon(freq map[string]int, n int) []Count {
	out := make([]Count, 0, len(freq))
	for name, c := range freq {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Analyze computes all metrics for code.
func Analyze(code string) *Result {
	widgets := countMatches(widgetPatterns, code)
	props := countMatches(propertyPatterns, code)
	nesting := NestingDepth(code)
	treeDepth := WidgetTreeDepth(code)
	repeated := RepeatedPatterns(code)

	return &Result{
		WidgetFrequency:          widgets,
		PropertyFrequency:        props,
		ComplexityScore:          complexity(code, nesting),
		NestingDepth:             nesting,
		CodeSize:                 len(code),
		TokenCount:               len(code) / charsPerToken,
		HasState:                 strings.Contains(code, "StatefulWidget") || strings.Contains(code, "State<"),
		HasAsync:                 strings.Contains(code, "async") || strings.Contains(code, "await"),
		WidgetTreeDepth:          treeDepth,
		RepeatedPatterns:         repeated,
		CompressionOpportunities: opportunities(code, widgets, props, treeDepth, len(repeated)),
	}
}

func countMatches(patterns map[string]*regexp.Regexp, code string) map[string]int {
	freq := make(map[string]int)
	for name, re := range patterns {
		if n := len(re.FindAllStringIndex(code, -1)); n > 0 {
			freq[name] = n
		}
	}
	return freq
}

// Complexity returns the complexity score of code in [0,1]. Decision
// keywords are counted as raw substrings, so "if" inside "modifier" counts.
func Complexity(code string) float64 {
	return complexity(code, NestingDepth(code))
}

func complexity(code string, nesting int) float64 {
	decisions := 0
	for _, kw := range decisionKeywords {
		decisions += strings.Count(code, kw)
	}
	lines := strings.Count(code, "\n") + 1
	score := float64(decisions)*0.01 + float64(nesting)/20.0 + float64(lines)/1000.0*0.3
	if score > 1.0 {
		return 1.0
	}
	return score
}

// NestingDepth returns the maximum bracket depth over {([ and })], with the
// running depth floored at zero.
func NestingDepth(code string) int {
	depth, maxDepth := 0, 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '{', '(', '[':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// WidgetTreeDepth estimates widget nesting line by line: each line adds its
// widget constructor openings, the running maximum is taken, then the
// line's closing parentheses are subtracted.
func WidgetTreeDepth(code string) int {
	current, maxDepth := 0, 0
	for _, line := range strings.Split(code, "\n") {
		current += len(widgetOpenRe.FindAllStringIndex(line, -1))
		if current > maxDepth {
			maxDepth = current
		}
		current -= strings.Count(line, ")")
		if current < 0 {
			current = 0
		}
	}
	return maxDepth
}

// RepeatedPatterns returns constructor calls with at least 20 characters of
// arguments that occur more than once, in first-occurrence order, capped at
// ten entries.
func RepeatedPatterns(code string) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range repeatedRe.FindAllString(code, -1) {
		if counts[m] == 0 {
			order = append(order, m)
		}
		counts[m]++
	}
	out := []string{}
	for _, m := range order {
		if counts[m] > 1 {
			out = append(out, m)
			if len(out) == maxRepeated {
				break
			}
		}
	}
	return out
}

func opportunities(code string, widgets, props map[string]int, treeDepth, repeated int) map[string]float64 {
	out := make(map[string]float64)
	if len(code) == 0 {
		return out
	}
	size := float64(len(code))

	if chars := weightedChars(widgets); chars > 100 {
		out[OpportunityWidgetAbbreviation] = 0.8 * float64(chars) / size
	}
	if chars := weightedChars(props); chars > 50 {
		out[OpportunityPropertyAbbreviation] = 0.8 * float64(chars) / size
	}
	ws := 0
	for _, m := range whitespaceRe.FindAllStringIndex(code, -1) {
		ws += m[1] - m[0]
	}
	if ws > 100 {
		out[OpportunityWhitespaceRemoval] = float64(ws) / size
	}
	if treeDepth > 5 {
		out[OpportunityTemplateMatching] = 0.5
	}
	if repeated > 2 {
		gain := 0.3 * float64(repeated) / 10
		if gain > maxComponentGain {
			gain = maxComponentGain
		}
		out[OpportunityComponentExtraction] = gain
	}
	return out
}

func weightedChars(freq map[string]int) int {
	total := 0
	for name, c := range freq {
		total += len(name) * c
	}
	return total
}

// RecommendStrategy applies the analyzer's fixed decision table. It is
// independent of strategy.Selector; the two may disagree. Deep widget trees
// map to ComponentRef, the closest strategy to template references.
func RecommendStrategy(r *Result) strategy.ID {
	repeated := len(r.RepeatedPatterns)
	switch {
	case r.ComplexityScore > 0.7 && repeated > 3:
		return strategy.Hybrid
	case r.WidgetCount() > 20:
		if repeated > 5 {
			return strategy.ComponentRef
		}
		return strategy.Aggressive
	case r.WidgetTreeDepth > 6:
		return strategy.ComponentRef
	case r.ComplexityScore > 0.5:
		return strategy.ASTBased
	default:
		return strategy.Basic
	}
}
