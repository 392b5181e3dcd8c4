// Package samples embeds representative widget-tree sources used by the
// self-test and benchmark commands and by package tests.
package samples

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed dart/*.dart
var files embed.FS

// Sample is a named source fixture.
type Sample struct {
	Name   string
	Source string
}

// Names of the embedded samples.
const (
	SimpleWidget = "simple_widget"
	LoginScreen  = "login_screen"
	Counter      = "counter"
)

// Get returns the source of the named sample.
func Get(name string) (string, error) {
	b, err := files.ReadFile(path.Join("dart", name+".dart"))
	if err != nil {
		return "", fmt.Errorf("sample %q: %w", name, err)
	}
	return string(b), nil
}

// MustGet is Get for package-level fixtures; it panics on unknown names.
func MustGet(name string) string {
	src, err := Get(name)
	if err != nil {
		panic(err)
	}
	return src
}

// All returns every embedded sample sorted by name.
func All() []Sample {
	entries, err := fs.ReadDir(files, "dart")
	if err != nil {
		return nil
	}
	out := make([]Sample, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".dart")
		out = append(out, Sample{Name: name, Source: MustGet(name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
