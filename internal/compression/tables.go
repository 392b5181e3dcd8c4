package compression

import (
	"regexp"
	"sort"
)

// Abbreviation maps a long name to its short code.
type Abbreviation struct {
	Long  string `json:"long"`
	Short string `json:"short"`
}

// widgetCodes are word-bounded widget name substitutions. Every code is
// unique so the decompressor can invert them.
var widgetCodes = []Abbreviation{
	{"Scaffold", "S"},
	{"Column", "C"},
	{"Row", "R"},
	{"SafeArea", "A"},
	{"Padding", "P"},
	{"Text", "T"},
	{"AppBar", "B"},
	{"SizedBox", "Z"},
	{"TextField", "F"},
	{"ElevatedButton", "E"},
	{"TextStyle", "Y"},
	{"InputDecoration", "D"},
	{"OutlineInputBorder", "O"},
	{"TextEditingController", "X"},
	{"Container", "K"},
	{"Center", "N"},
	{"Expanded", "Q"},
	{"ListView", "L"},
}

// propertyCodes are property-name-plus-colon substitutions.
var propertyCodes = []Abbreviation{
	{"appBar:", "a:"},
	{"body:", "b:"},
	{"child:", "c:"},
	{"children:", "h:"},
	{"title:", "t:"},
	{"controller:", "r:"},
	{"padding:", "p:"},
	{"onPressed:", "o:"},
	{"style:", "s:"},
	{"fontSize:", "z:"},
	{"fontWeight:", "w:"},
	{"color:", "l:"},
	{"decoration:", "d:"},
	{"labelText:", "L:"},
	{"hintText:", "H:"},
	{"border:", "B:"},
	{"height:", "e:"},
	{"width:", "W:"},
	{"obscureText:", "x:"},
	{"centerTitle:", "T:"},
	{"mainAxisAlignment:", "A:"},
	{"crossAxisAlignment:", "X:"},
	{"minimumSize:", "M:"},
}

// keywordCodes are applied only when a strategy abbreviates keywords.
var keywordCodes = []Abbreviation{
	{"import ", "im:"},
	{"async", "asy"},
	{"await", "awt"},
}

// WidgetCodes returns a copy of the widget table.
func WidgetCodes() []Abbreviation { return append([]Abbreviation(nil), widgetCodes...) }

// PropertyCodes returns a copy of the property table.
func PropertyCodes() []Abbreviation { return append([]Abbreviation(nil), propertyCodes...) }

// KeywordCodes returns a copy of the keyword table.
func KeywordCodes() []Abbreviation { return append([]Abbreviation(nil), keywordCodes...) }

// rewrite is one compiled substitution.
type rewrite struct {
	re   *regexp.Regexp
	repl string
}

func (r rewrite) apply(s string) string {
	return r.re.ReplaceAllLiteralString(s, r.repl)
}

// forward compiles long→short rewrites, longest names first so that a name
// never clobbers a longer one containing it.
func forward(table []Abbreviation) []rewrite {
	sorted := append([]Abbreviation(nil), table...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Long) > len(sorted[j].Long)
	})
	out := make([]rewrite, len(sorted))
	for i, a := range sorted {
		out[i] = rewrite{re: bounded(a.Long), repl: a.Short}
	}
	return out
}

// reverse compiles short→long rewrites. When two entries share a code the
// first one in the table wins.
func reverse(table []Abbreviation) []rewrite {
	seen := make(map[string]bool, len(table))
	var out []rewrite
	for _, a := range table {
		if seen[a.Short] {
			continue
		}
		seen[a.Short] = true
		out = append(out, rewrite{re: bounded(a.Short), repl: a.Long})
	}
	return out
}

// bounded matches word exactly, with a word boundary on each side that
// starts or ends with a word character.
func bounded(word string) *regexp.Regexp {
	pat := regexp.QuoteMeta(word)
	if isWordByte(word[0]) {
		pat = `\b` + pat
	}
	if isWordByte(word[len(word)-1]) {
		pat += `\b`
	}
	return regexp.MustCompile(pat)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
