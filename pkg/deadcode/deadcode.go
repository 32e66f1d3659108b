// Package deadcode finds functions and types nothing in the project refers to.
//
// A node is a candidate when no calls, references or imports edge points at it. The
// contains edge from its own file does not count. Exemptions:
//
//   - names listed as entry points (main, init by default)
//   - exported declarations (pub in Rust, upper-case in Go) when ExemptExported is set
//   - tests (#[test], #[bench], functions under #[cfg(test)], Go Test/Benchmark/Example/Fuzz
//     functions in _test.go files) when ExemptTests is set
//   - Rust trait impl methods, #[no_mangle] and extern functions, which are reached through
//     dynamic dispatch or FFI
package deadcode

import (
	"strings"

	"github.com/ritzau/archscope/pkg/graph"
	"github.com/ritzau/archscope/pkg/model"
)

// Options configures the exemption rules
type Options struct {
	EntryPoints    []string
	ExemptExported bool
	ExemptTests    bool
}

// DefaultOptions enables every exemption with main and init as entry points
func DefaultOptions() Options {
	return Options{EntryPoints: []string{"main", "init"}, ExemptExported: true, ExemptTests: true}
}

var goTestPrefixes = []string{"Test", "Benchmark", "Example", "Fuzz"}

// Detect returns the ids of dead-code candidates in graph node order
func Detect(g *model.GraphData, files []*model.ParsedFile, opts Options) []string {
	entry := make(map[string]bool, len(opts.EntryPoints))
	for _, name := range opts.EntryPoints {
		entry[name] = true
	}

	functions := make(map[string]*model.ParsedFunction)
	types := make(map[string]*model.DeclaredType)
	for _, f := range files {
		for i := range f.Functions {
			functions[model.FunctionNodeID(f.Path, f.Functions[i].Name)] = &f.Functions[i]
		}
		for i := range f.Types {
			types[model.TypeNodeID(f.Path, f.Types[i].Name)] = &f.Types[i]
		}
	}

	fanIn := graph.FanIn(g)
	candidates := make([]string, 0)
	for _, n := range g.Nodes {
		if n.Kind == model.NodeKindFile || fanIn[n.ID] > 0 {
			continue
		}
		switch n.Kind {
		case model.NodeKindFunction:
			fn, ok := functions[n.ID]
			if !ok || exemptFunction(fn, entry, opts) {
				continue
			}
		case model.NodeKindType:
			t, ok := types[n.ID]
			if !ok || entry[model.BaseName(t.Name)] || (opts.ExemptExported && t.Exported) {
				continue
			}
		}
		candidates = append(candidates, n.ID)
	}
	return candidates
}

func exemptFunction(fn *model.ParsedFunction, entry map[string]bool, opts Options) bool {
	if entry[fn.BaseName()] {
		return true
	}
	if opts.ExemptExported && fn.Exported {
		return true
	}
	if opts.ExemptTests && isTest(fn) {
		return true
	}
	return fn.TraitImpl || fn.HasAttribute("no_mangle") || fn.HasAttribute("unsafe(no_mangle)") ||
		fn.HasAttribute("extern")
}

func isTest(fn *model.ParsedFunction) bool {
	for _, a := range fn.Attributes {
		if a == "test" || a == "bench" || a == "cfg(test)" || strings.HasSuffix(a, "::test") {
			return true
		}
	}
	if strings.HasSuffix(fn.FilePath, "_test.go") {
		name := fn.BaseName()
		for _, prefix := range goTestPrefixes {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
	}
	return false
}
