// Package strategy defines the closed set of compression strategies, their
// immutable configuration records, a thread-safe metrics store fed by
// completed compressions, and the scoring selector that reads it.
package strategy

import (
	"fmt"
	"strings"
)

// ID identifies a compression strategy. Declaration order is the selector's
// tie-break order.
type ID int

const (
	Auto ID = iota
	Basic
	Aggressive
	ComponentRef
	ASTBased
	Semantic
	Hybrid
)

var idNames = [...]string{
	Auto:         "auto",
	Basic:        "basic",
	Aggressive:   "aggressive",
	ComponentRef: "component_ref",
	ASTBased:     "ast_based",
	Semantic:     "semantic",
	Hybrid:       "hybrid",
}

func (id ID) String() string {
	if id < 0 || int(id) >= len(idNames) {
		return fmt.Sprintf("ID(%d)", int(id))
	}
	return idNames[id]
}

// MarshalText encodes the strategy by name.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a strategy name using Parse.
func (id *ID) UnmarshalText(text []byte) error {
	*id = Parse(string(text))
	return nil
}

// Concrete lists every strategy except Auto, in tie-break order.
func Concrete() []ID {
	return []ID{Basic, Aggressive, ComponentRef, ASTBased, Semantic, Hybrid}
}

// Parse maps a free-text strategy name to an ID. Matching ignores case and
// treats '-', ' ' and '_' alike. Unknown names fall back to Basic.
func Parse(name string) ID {
	id, ok := Lookup(name)
	if !ok {
		return Basic
	}
	return id
}

// Lookup is Parse without the fallback.
func Lookup(name string) (ID, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "componentref", "component":
		key = "component_ref"
	case "ast", "astbased":
		key = "ast_based"
	}
	for i, n := range idNames {
		if n == key {
			return ID(i), true
		}
	}
	return Basic, false
}

// Config is the static, read-only description of a strategy.
type Config struct {
	ID          ID
	Name        string
	Description string
	// MinSize and MaxSize bound the input size in characters. MaxSize 0
	// means unbounded.
	MinSize       int
	MaxSize       int
	ExpectedRatio float64

	PreserveComments     bool
	AggressiveWhitespace bool
	AbbreviateWidgets    bool
	AbbreviateProperties bool
	AbbreviateKeywords   bool
	UseAST               bool
	UseRegistry          bool

	// ComponentThreshold is the minimum token estimate for a fragment to be
	// replaced by a registry reference.
	ComponentThreshold int
	// MatchTolerance is the registry similarity threshold.
	MatchTolerance float64
}

// InBounds reports whether size falls within the strategy's bounds.
func (c Config) InBounds(size int) bool {
	if size < c.MinSize {
		return false
	}
	return c.MaxSize == 0 || size <= c.MaxSize
}

const (
	defaultComponentThreshold = 50
	defaultMatchTolerance     = 0.85
)

var configs = map[ID]Config{
	Basic: {
		ID:                   Basic,
		Name:                 "Basic",
		Description:          "Keyword and widget abbreviations with minimal processing",
		ExpectedRatio:        0.3,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
	},
	Aggressive: {
		ID:                   Aggressive,
		Name:                 "Aggressive",
		Description:          "Ultra-short abbreviations and aggressive structural rewrites",
		MinSize:              100,
		ExpectedRatio:        0.7,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
	},
	ComponentRef: {
		ID:                   ComponentRef,
		Name:                 "Component Reference",
		Description:          "Replace known components with registry references",
		MinSize:              200,
		ExpectedRatio:        0.8,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
		UseAST:               true,
		UseRegistry:          true,
		ComponentThreshold:   defaultComponentThreshold,
		MatchTolerance:       defaultMatchTolerance,
	},
	ASTBased: {
		ID:                   ASTBased,
		Name:                 "AST-Based",
		Description:          "Structure-aware compression that keeps comments",
		MinSize:              300,
		ExpectedRatio:        0.65,
		PreserveComments:     true,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
		UseAST:               true,
	},
	Semantic: {
		ID:                   Semantic,
		Name:                 "Semantic",
		Description:          "Keeps comments and validates the round trip",
		MinSize:              200,
		ExpectedRatio:        0.6,
		PreserveComments:     true,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
		UseAST:               true,
	},
	Hybrid: {
		ID:                   Hybrid,
		Name:                 "Hybrid",
		Description:          "Aggressive rewrites combined with registry references",
		MinSize:              400,
		ExpectedRatio:        0.75,
		AggressiveWhitespace: true,
		AbbreviateWidgets:    true,
		AbbreviateProperties: true,
		AbbreviateKeywords:   true,
		UseAST:               true,
		UseRegistry:          true,
		ComponentThreshold:   defaultComponentThreshold,
		MatchTolerance:       defaultMatchTolerance,
	},
}

// ConfigFor returns the configuration for id. Auto and unknown IDs resolve
// to Basic.
func ConfigFor(id ID) Config {
	if c, ok := configs[id]; ok {
		return c
	}
	return configs[Basic]
}

// Configs returns every concrete configuration in tie-break order.
func Configs() []Config {
	out := make([]Config, 0, len(configs))
	for _, id := range Concrete() {
		out = append(out, configs[id])
	}
	return out
}
