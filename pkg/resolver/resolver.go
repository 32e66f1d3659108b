package resolver

import (
	"context"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
)

// Result holds resolved and residual references in source-file then declaration order
type Result struct {
	Resolved    []model.ResolvedDependency
	Unresolved  []model.Dependency
	Ambiguities []model.ResolutionAmbiguity
}

// Resolve resolves every file of the index. Files are processed in parallel and merged
// in index order, so the result does not depend on scheduling.
func Resolve(ctx context.Context, idx *Index, workers int) (*Result, error) {
	files := idx.Files()
	slots := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := &fileResolver{idx: idx, file: f, out: &slots[i]}
			r.run()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Resolved:    []model.ResolvedDependency{},
		Unresolved:  []model.Dependency{},
		Ambiguities: []model.ResolutionAmbiguity{},
	}
	for _, s := range slots {
		res.Resolved = append(res.Resolved, s.Resolved...)
		res.Unresolved = append(res.Unresolved, s.Unresolved...)
		res.Ambiguities = append(res.Ambiguities, s.Ambiguities...)
	}
	logging.Debug("resolved dependencies",
		"resolved", len(res.Resolved),
		"unresolved", len(res.Unresolved),
		"ambiguous", len(res.Ambiguities))
	return res, nil
}

// fileResolver resolves the references of one file into its own result slot
type fileResolver struct {
	idx  *Index
	file *model.ParsedFile
	out  *Result

	// Go package name -> project files of the import, nil for external imports
	goImports map[string][]string
}

func (r *fileResolver) run() {
	fileID := model.FileNodeID(r.file.Path)
	r.goImports = map[string][]string{}

	for _, raw := range r.file.Imports {
		switch r.file.Language {
		case model.LanguageRust:
			for _, leaf := range ExpandUse(raw) {
				r.record(model.Dependency{SourceEntity: fileID, RawTarget: leaf, Kind: model.DependencyImport},
					r.rustImport(leaf))
			}
		case model.LanguageGo:
			targets := r.goImport(raw)
			r.goImports[path.Base(raw)] = targets
			r.record(model.Dependency{SourceEntity: fileID, RawTarget: raw, Kind: model.DependencyImport}, targets)
		}
	}

	for _, t := range r.file.Types {
		id := model.TypeNodeID(r.file.Path, t.Name)
		for _, ref := range t.TypeRefs {
			r.typeRef(id, ref)
		}
	}
	for i := range r.file.Functions {
		fn := &r.file.Functions[i]
		id := model.FunctionNodeID(r.file.Path, fn.Name)
		for _, call := range fn.Calls {
			r.call(id, fn, call)
		}
		for _, ref := range fn.TypeRefs {
			r.typeRef(id, ref)
		}
	}
}

// record stores a dependency. Targets are node ids; an empty list means external.
func (r *fileResolver) record(dep model.Dependency, targets []string) {
	if len(targets) == 0 {
		r.out.Unresolved = append(r.out.Unresolved, dep)
		return
	}
	// A reference to the source entity itself (recursion, self import) is not an edge
	targets = without(unique(targets), dep.SourceEntity)
	if len(targets) == 0 {
		return
	}
	rd := model.ResolvedDependency{
		Dependency: dep,
		Targets:    targets,
		Ambiguous:  len(targets) > 1 && dep.Kind != model.DependencyImport,
	}
	r.out.Resolved = append(r.out.Resolved, rd)
	if rd.Ambiguous {
		r.out.Ambiguities = append(r.out.Ambiguities, model.ResolutionAmbiguity{
			Source:     dep.SourceEntity,
			RawTarget:  dep.RawTarget,
			Candidates: targets,
		})
	}
}

// ExpandUse splits a Rust use argument into one path per imported leaf:
// a::{b, c::{d, e as f}, self} -> a::b, a::c::d, a::c::e, a. Globs and aliases are dropped.
func ExpandUse(raw string) []string {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '{')
	if open < 0 {
		return []string{useLeaf(raw)}
	}
	end := strings.LastIndexByte(raw, '}')
	if end < open {
		return []string{useLeaf(raw[:open])}
	}
	prefix := raw[:open]
	var out []string
	for _, part := range splitTopLevel(raw[open+1 : end]) {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "self":
			out = append(out, strings.TrimSuffix(prefix, "::"))
		default:
			out = append(out, ExpandUse(prefix+part)...)
		}
	}
	return out
}

func useLeaf(p string) string {
	if i := strings.Index(p, " as "); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "::*")
	p = strings.TrimSuffix(p, "::self")
	return strings.TrimSuffix(p, "::")
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unique(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func fileIDs(paths []string) []string {
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		ids = append(ids, model.FileNodeID(p))
	}
	sort.Strings(ids)
	return ids
}
