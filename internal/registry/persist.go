package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// requiredFields must be present on every persisted component.
var requiredFields = []string{"id", "name", "code", "parameters", "compressed_ref", "token_count"}

// fileData is the persisted registry structure. Order lists component ids
// in registration order; files without it load in id order.
type fileData struct {
	Version    string                `json:"version"`
	Components map[string]*Component `json:"components"`
	Order      []string              `json:"order,omitempty"`
}

// Save writes the registry to path as JSON, atomically.
func (r *Registry) Save(path string) error {
	r.mu.RLock()
	data := fileData{
		Version:    FormatVersion,
		Components: make(map[string]*Component, len(r.components)),
		Order:      append([]string(nil), r.order...),
	}
	for id, c := range r.components {
		data.Components[id] = c
	}
	b, err := json.MarshalIndent(data, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	return writeAtomic(path, b)
}

func writeAtomic(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename registry: %w", err)
	}
	return nil
}

// Load reads a JSON registry from path and registers its components.
// Entries missing a required field are skipped; their problems are returned
// joined together with the number of components loaded. A file that is not
// valid JSON loads nothing and returns ErrRegistryCorrupted.
func (r *Registry) Load(path string) (int, error) {
	comps, skipped, err := readJSON(path)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for _, c := range comps {
		r.put(c)
	}
	r.mu.Unlock()
	return len(comps), errors.Join(skipped...)
}

// Reload replaces the registry contents with the components in path.
// On a read or parse failure the current contents are kept.
func (r *Registry) Reload(path string) (int, error) {
	comps, skipped, err := readJSON(path)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.components = make(map[string]*Component, len(comps))
	r.order = nil
	for _, c := range comps {
		r.put(c)
	}
	r.mu.Unlock()
	return len(comps), errors.Join(skipped...)
}

// readJSON parses a registry file. Entries that fail validation are
// reported in skipped; err is set only when the file itself is unusable.
func readJSON(path string) (comps []*Component, skipped []error, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var raw struct {
		Version    string                                `json:"version"`
		Components map[string]map[string]json.RawMessage `json:"components"`
		Order      []string                              `json:"order"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRegistryCorrupted, err)
	}

	ids := loadOrder(raw.Order, raw.Components)

	for _, key := range ids {
		c, err := decodeEntry(key, raw.Components[key])
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		comps = append(comps, c)
	}
	return comps, skipped, nil
}

// loadOrder returns the component keys in saved registration order. Keys
// missing from order follow in id order; unknown or repeated order entries
// are ignored.
func loadOrder[V any](order []string, components map[string]V) []string {
	ids := make([]string, 0, len(components))
	seen := make(map[string]bool, len(components))
	for _, id := range order {
		if _, ok := components[id]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	rest := make([]string, 0, len(components)-len(ids))
	for id := range components {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func decodeEntry(key string, fields map[string]json.RawMessage) (*Component, error) {
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return nil, fmt.Errorf("%w: %s: missing field %q", ErrInvalidComponent, key, f)
		}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidComponent, key, err)
	}
	var c Component
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidComponent, key, err)
	}
	if c.ID != key {
		return nil, fmt.Errorf("%w: %s: id field %q does not match key", ErrInvalidComponent, key, c.ID)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	normalize(&c)
	return &c, nil
}

func normalize(c *Component) {
	if c.Parameters == nil {
		c.Parameters = []string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Category == "" {
		c.Category = "general"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
}

// tomlFile is the hand-authored registry format. Only name and code are
// required; id defaults to the table key and the reference code and token
// count are derived.
type tomlFile struct {
	Version    string               `toml:"version"`
	Components map[string]Component `toml:"components"`
}

// LoadTOML registers the components defined in a TOML file.
func (r *Registry) LoadTOML(path string) (int, error) {
	var f tomlFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrRegistryCorrupted, path, err)
	}

	keys := make([]string, 0, len(f.Components))
	for k := range f.Components {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var problems []error
	var comps []*Component
	for _, key := range keys {
		c := f.Components[key]
		if !md.IsDefined("components", key, "id") {
			c.ID = key
		}
		if !md.IsDefined("components", key, "compressed_ref") {
			c.Ref = RefFor(c.ID)
		}
		if !md.IsDefined("components", key, "token_count") {
			c.TokenCount = len(c.Code) / 4
		}
		if err := c.validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		normalize(&c)
		comps = append(comps, &c)
	}

	r.mu.Lock()
	for _, c := range comps {
		r.put(c)
	}
	r.mu.Unlock()
	return len(comps), errors.Join(problems...)
}

// Export writes a single component to path as JSON.
func (r *Registry) Export(id, path string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal component: %w", err)
	}
	return writeAtomic(path, b)
}

// Import reads a single JSON component from path and registers it.
func (r *Registry) Import(path string) (*Component, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryCorrupted, err)
	}
	var id string
	if raw, ok := fields["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	c, err := decodeEntry(id, fields)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.put(c)
	r.mu.Unlock()
	return clone(c), nil
}
