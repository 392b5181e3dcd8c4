// Package registry manages named, reusable widget fragments ("components")
// and matches arbitrary source against them.
//
// Matching is a bag-of-words Jaccard similarity over lower-cased,
// whitespace-split tokens. It recognizes near-identical boilerplate well but
// can match fragments that share vocabulary without sharing structure.
//
// Persisted layout (JSON):
//
//	{
//	  "version": "1.0.0",
//	  "components": {
//	    "<id>": { "id": ..., "name": ..., "code": ..., ... }
//	  }
//	}
package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Errors for registry operations.
var (
	ErrNotFound          = errors.New("component not found")
	ErrInvalidID         = errors.New("invalid component id: must be alphanumeric with underscores/hyphens")
	ErrInvalidComponent  = errors.New("invalid component")
	ErrRegistryCorrupted = errors.New("registry file corrupted")
)

// FormatVersion is written to persisted registries.
const FormatVersion = "1.0.0"

// idPattern validates component ids.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateID checks that id is usable as a key and a reference code.
func ValidateID(id string) error {
	if id == "" || len(id) > 128 || !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// Component is a registered reusable fragment.
type Component struct {
	ID          string   `json:"id" toml:"id"`
	Name        string   `json:"name" toml:"name"`
	Code        string   `json:"code" toml:"code"`
	Parameters  []string `json:"parameters" toml:"parameters"`
	Description string   `json:"description" toml:"description"`
	Category    string   `json:"category" toml:"category"`
	Tags        []string `json:"tags" toml:"tags"`
	Version     string   `json:"version" toml:"version"`
	TokenCount  int      `json:"token_count" toml:"token_count"`
	Ref         string   `json:"compressed_ref" toml:"compressed_ref"`
}

// Reference renders the compressed reference, "#REF" or "#REF{k=v,...}"
// with keys in sorted order.
func (c *Component) Reference(params map[string]string) string {
	if len(params) == 0 {
		return "#" + c.Ref
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	return "#" + c.Ref + "{" + strings.Join(pairs, ",") + "}"
}

// Similarity returns the Jaccard similarity of code against the
// component's canonical code.
func (c *Component) Similarity(code string) float64 {
	return Similarity(c.Code, code)
}

// Matches reports whether code is at least tolerance-similar.
func (c *Component) Matches(code string, tolerance float64) bool {
	return c.Similarity(code) >= tolerance
}

func (c *Component) validate() error {
	if err := ValidateID(c.ID); err != nil {
		return err
	}
	if c.Name == "" {
		return fmt.Errorf("%w: %s: missing name", ErrInvalidComponent, c.ID)
	}
	if c.Code == "" {
		return fmt.Errorf("%w: %s: missing code", ErrInvalidComponent, c.ID)
	}
	return nil
}

// Option customizes a registration.
type Option func(*Component)

// WithParameters declares parameter names.
func WithParameters(params ...string) Option {
	return func(c *Component) { c.Parameters = append([]string(nil), params...) }
}

// WithDescription sets the description.
func WithDescription(d string) Option {
	return func(c *Component) { c.Description = d }
}

// WithCategory sets the category.
func WithCategory(cat string) Option {
	return func(c *Component) { c.Category = cat }
}

// WithTags sets the tags.
func WithTags(tags ...string) Option {
	return func(c *Component) { c.Tags = append([]string(nil), tags...) }
}

// WithVersion sets the version.
func WithVersion(v string) Option {
	return func(c *Component) { c.Version = v }
}

// RefFor returns the reference code assigned to id.
func RefFor(id string) string {
	return "C_" + strings.ToUpper(id)
}

// Registry maps component ids to components. It is safe for concurrent use;
// matching holds the read lock, so it never observes a partial update.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	order      []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{components: make(map[string]*Component)}
}

// Register stores a component under id, overwriting any previous entry.
// An overwritten id keeps its original registration position.
func (r *Registry) Register(id, name, code string, opts ...Option) (*Component, error) {
	c := &Component{
		ID:         id,
		Name:       name,
		Code:       code,
		Parameters: []string{},
		Category:   "general",
		Tags:       []string{},
		Version:    "1.0.0",
		TokenCount: len(code) / 4,
		Ref:        RefFor(id),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(c)
	return clone(c), nil
}

// put stores c; the caller holds the write lock.
func (r *Registry) put(c *Component) {
	if _, ok := r.components[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.components[c.ID] = c
}

// Get returns a copy of the component with id.
func (r *Registry) Get(id string) (*Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.components[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(c), nil
}

// ByReference resolves a reference code such as "C_EMAIL_INPUT".
func (r *Registry) ByReference(ref string) (*Component, error) {
	ref = strings.TrimPrefix(ref, "#")
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if c := r.components[id]; c.Ref == ref {
			return clone(c), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// Delete removes id and reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.components[id]; !ok {
		return false
	}
	delete(r.components, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every component.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = make(map[string]*Component)
	r.order = nil
}

// Len returns the number of components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

// List returns copies of all components in registration order.
func (r *Registry) List() []*Component {
	return r.filter(func(*Component) bool { return true })
}

// SearchByCategory returns components in category.
func (r *Registry) SearchByCategory(category string) []*Component {
	return r.filter(func(c *Component) bool { return c.Category == category })
}

// SearchByTags returns components carrying any of tags.
func (r *Registry) SearchByTags(tags ...string) []*Component {
	return r.filter(func(c *Component) bool {
		for _, want := range tags {
			for _, have := range c.Tags {
				if want == have {
					return true
				}
			}
		}
		return false
	})
}

// SearchByName returns components whose name contains name, ignoring case.
func (r *Registry) SearchByName(name string) []*Component {
	needle := strings.ToLower(name)
	return r.filter(func(c *Component) bool {
		return strings.Contains(strings.ToLower(c.Name), needle)
	})
}

func (r *Registry) filter(keep func(*Component) bool) []*Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Component{}
	for _, id := range r.order {
		if c := r.components[id]; keep(c) {
			out = append(out, clone(c))
		}
	}
	return out
}

// Match is a component with its similarity to the probed code.
type Match struct {
	Component *Component
	Score     float64
}

// FindMatching returns the component most similar to code with a score of
// at least tolerance. Ties go to the earliest registration. ok is false
// when nothing qualifies.
func (r *Registry) FindMatching(code string, tolerance float64) (Match, bool) {
	probe := tokenSet(code)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Match
	found := false
	for _, id := range r.order {
		c := r.components[id]
		score := jaccard(tokenSet(c.Code), probe)
		if score < tolerance {
			continue
		}
		if !found || score > best.Score {
			best = Match{Component: c, Score: score}
			found = true
		}
	}
	if !found {
		return Match{}, false
	}
	best.Component = clone(best.Component)
	return best, true
}

// Stats summarizes the registry contents.
type Stats struct {
	TotalComponents       int            `json:"total_components"`
	Categories            map[string]int `json:"categories"`
	TotalTokens           int            `json:"total_tokens"`
	AvgTokensPerComponent int            `json:"avg_tokens_per_component"`
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Categories: make(map[string]int)}
	for _, c := range r.components {
		s.TotalComponents++
		s.Categories[c.Category]++
		s.TotalTokens += c.TokenCount
	}
	if s.TotalComponents > 0 {
		s.AvgTokensPerComponent = s.TotalTokens / s.TotalComponents
	}
	return s
}

func clone(c *Component) *Component {
	cp := *c
	cp.Parameters = append([]string{}, c.Parameters...)
	cp.Tags = append([]string{}, c.Tags...)
	return &cp
}
