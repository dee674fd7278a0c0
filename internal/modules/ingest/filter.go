package ingest

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var importantExtensions = map[string]bool{
	".dart": true, ".py": true, ".md": true, ".yaml": true, ".yml": true, ".json": true,
	".toml": true, ".cfg": true, ".ini": true, ".sh": true, ".txt": true,
	".go": true, ".ts": true, ".js": true, ".sql": true,
}

var importantNames = map[string]bool{"Dockerfile": true, "Makefile": true}

// DefaultExcludes drop generated code and vendored trees.
var DefaultExcludes = []string{
	"**/*.g.dart",
	"**/*.freezed.dart",
	"**/build/**",
	"**/.dart_tool/**",
	"**/node_modules/**",
	"**/.git/**",
}

// Filter decides which changed paths become File nodes.
type Filter struct {
	excludes []string
}

// NewFilter validates globs and appends them to DefaultExcludes. Invalid
// patterns are returned and skipped.
func NewFilter(extra ...string) (*Filter, []string) {
	f := &Filter{excludes: append([]string{}, DefaultExcludes...)}
	var bad []string
	for _, g := range extra {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if !doublestar.ValidatePattern(g) {
			bad = append(bad, g)
			continue
		}
		f.excludes = append(f.excludes, g)
	}
	return f, bad
}

func (f *Filter) Excluded(p string) bool {
	for _, g := range f.excludes {
		if ok, err := doublestar.Match(g, p); err == nil && ok {
			return true
		}
	}
	return false
}

// Important reports whether p is worth tracking in the graph.
func (f *Filter) Important(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" || f.Excluded(p) {
		return false
	}
	base := path.Base(p)
	return importantNames[base] || importantExtensions[strings.ToLower(path.Ext(base))]
}
