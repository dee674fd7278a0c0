package ingest

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

var (
	dartImportRe = regexp.MustCompile(`(?m)^\s*(?:import|export|part)\s+['"]([^'"]+)['"]`)
	pyFromRe     = regexp.MustCompile(`(?m)^\s*from\s+(\.*[\w.]*)\s+import\s`)
	pyImportRe   = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
)

// Dependency is one File USES File pair resolved from source imports.
type Dependency struct {
	From string
	To   string
}

// ResolveImports parses dart and python imports of sources and keeps the
// ones that resolve to another file in sources. Output is sorted.
func ResolveImports(sources map[string]string) []Dependency {
	var out []Dependency
	for file, body := range sources {
		var targets []string
		switch path.Ext(file) {
		case ".dart":
			targets = dartTargets(file, body)
		case ".py":
			targets = pythonTargets(file, body)
		default:
			continue
		}
		seen := map[string]bool{}
		for _, t := range targets {
			if t == file || seen[t] {
				continue
			}
			if _, ok := sources[t]; !ok {
				continue
			}
			seen[t] = true
			out = append(out, Dependency{From: file, To: t})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func dartTargets(file, body string) []string {
	var out []string
	// package:app/x.dart resolves under the lib/ dir that holds file
	libRoot := "lib"
	if i := strings.Index(file, "lib/"); i >= 0 {
		libRoot = file[:i] + "lib"
	}
	for _, m := range dartImportRe.FindAllStringSubmatch(body, -1) {
		spec := m[1]
		switch {
		case strings.HasPrefix(spec, "dart:"):
		case strings.HasPrefix(spec, "package:"):
			rest := strings.TrimPrefix(spec, "package:")
			if i := strings.Index(rest, "/"); i >= 0 {
				out = append(out, path.Join(libRoot, rest[i+1:]))
			}
		default:
			out = append(out, path.Join(path.Dir(file), spec))
		}
	}
	return out
}

func pythonTargets(file, body string) []string {
	var out []string
	dir := path.Dir(file)
	modules := []string{}
	for _, m := range pyFromRe.FindAllStringSubmatch(body, -1) {
		modules = append(modules, m[1])
	}
	for _, m := range pyImportRe.FindAllStringSubmatch(body, -1) {
		modules = append(modules, m[1])
	}
	for _, mod := range modules {
		dots := len(mod) - len(strings.TrimLeft(mod, "."))
		rel := strings.ReplaceAll(strings.TrimLeft(mod, "."), ".", "/")
		var bases []string
		if dots > 0 {
			base := dir
			for range dots - 1 {
				base = path.Dir(base)
			}
			bases = []string{base}
		} else {
			bases = []string{".", dir}
		}
		for _, b := range bases {
			if rel == "" {
				out = append(out, path.Join(b, "__init__.py"))
				continue
			}
			out = append(out, path.Join(b, rel+".py"), path.Join(b, rel, "__init__.py"))
		}
	}
	return out
}
