package resolver

import (
	"path"
	"strings"

	"github.com/ritzau/archscope/pkg/model"
)

// Predeclared Go types never resolve to a declaration in the project
var goPredeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true, "complex64": true,
	"complex128": true, "error": true, "float32": true, "float64": true, "int": true,
	"int8": true, "int16": true, "int32": true, "int64": true, "rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

func (r *fileResolver) separator() string {
	if r.file.Language == model.LanguageGo {
		return "."
	}
	return "::"
}

func (r *fileResolver) call(source string, fn *model.ParsedFunction, cs model.CallSite) {
	raw := cs.Callee
	if cs.Qualifier != "" {
		raw = cs.Qualifier + r.separator() + cs.Callee
	}
	dep := model.Dependency{SourceEntity: source, RawTarget: raw, Kind: model.DependencyCall}
	r.record(dep, r.callTargets(fn, cs))
}

// callTargets returns the candidate function ids for a call site: the same file first
// (qualified name, then base name), the same Go package, then the whole project.
func (r *fileResolver) callTargets(fn *model.ParsedFunction, cs model.CallSite) []string {
	lang := string(r.file.Language)
	sep := r.separator()

	if r.file.Language == model.LanguageGo && cs.Qualifier != "" {
		if ids, ok := r.goImports[cs.Qualifier]; ok {
			if len(ids) == 0 {
				return nil
			}
			return r.functionsIn(ids, cs.Callee)
		}
	}

	owner := cs.Qualifier
	if i := strings.LastIndex(owner, sep); i >= 0 {
		owner = owner[i+len(sep):]
	}
	if r.file.Language == model.LanguageRust && (owner == "Self" || owner == "self") {
		owner = fn.Receiver
	}
	name := cs.Callee
	if owner != "" {
		name = owner + sep + cs.Callee
	}
	exact := r.idx.qualified[lang+"|"+name]
	base := r.idx.functions[lang+"|"+cs.Callee]

	inFile := func(e fnEntry) bool { return e.file == r.file.Path }
	if ids := pick(exact, inFile); len(ids) > 0 {
		return ids
	}
	if ids := pick(base, inFile); len(ids) > 0 {
		return ids
	}
	if r.file.Language == model.LanguageGo {
		dir := path.Dir(r.file.Path)
		inPackage := func(e fnEntry) bool { return path.Dir(e.file) == dir }
		if ids := pick(exact, inPackage); len(ids) > 0 {
			return ids
		}
		if ids := pick(base, inPackage); len(ids) > 0 {
			return ids
		}
	}
	all := func(fnEntry) bool { return true }
	if owner != "" {
		if ids := pick(exact, all); len(ids) > 0 {
			return ids
		}
	}
	return pick(base, all)
}

// functionsIn returns package-level functions named callee in the given files
func (r *fileResolver) functionsIn(ids []string, callee string) []string {
	files := make(map[string]bool, len(ids))
	for _, id := range ids {
		files[id] = true
	}
	return pick(r.idx.qualified[string(r.file.Language)+"|"+callee], func(e fnEntry) bool {
		return e.receiver == "" && files[model.FileNodeID(e.file)]
	})
}

func (r *fileResolver) typeRef(source, name string) {
	if name == "Self" || (r.file.Language == model.LanguageGo && goPredeclared[name]) {
		return
	}
	dep := model.Dependency{SourceEntity: source, RawTarget: name, Kind: model.DependencyReference}

	candidates := r.idx.types[string(r.file.Language)+"|"+name]
	prefix := model.TypeNodeID(r.file.Path, "")
	var local []string
	for _, id := range candidates {
		if strings.HasPrefix(id, prefix) {
			local = append(local, id)
		}
	}
	if len(local) > 0 {
		r.record(dep, local)
		return
	}
	r.record(dep, append([]string(nil), candidates...))
}

func pick(entries []fnEntry, keep func(fnEntry) bool) []string {
	var ids []string
	for _, e := range entries {
		if keep(e) {
			ids = append(ids, e.id)
		}
	}
	return ids
}
