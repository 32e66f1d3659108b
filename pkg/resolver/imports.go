package resolver

import (
	"path"
	"strings"

	"github.com/ritzau/archscope/pkg/parser"
)

// rustImport resolves one expanded use path or "mod name" declaration to file ids.
//
// Absolute paths (crate::, a crate name from Cargo.toml) match module names exactly,
// longest prefix first, so crate::a::Item lands on the file of module crate::a.
// Relative paths (self::, super::, bare paths, mod declarations) are anchored at the
// importing file's module and then at its directory.
func (r *fileResolver) rustImport(leaf string) []string {
	root := parser.RustCrateRoot(r.file.Path)
	module := r.file.ModuleName

	if name, ok := strings.CutPrefix(leaf, "mod "); ok {
		if files := r.idx.rustModule(root, module+"::"+name); len(files) > 0 {
			return fileIDs(files)
		}
		return fileIDs(r.siblingModule(name))
	}

	segs := strings.Split(leaf, "::")
	switch segs[0] {
	case "crate":
		return r.longestModule(root, segs, 1)
	case "self":
		return r.longestModule(root, append(strings.Split(module, "::"), segs[1:]...), len(strings.Split(module, "::")))
	case "super":
		base := strings.Split(module, "::")
		rest := segs
		for len(rest) > 0 && rest[0] == "super" && len(base) > 1 {
			base = base[:len(base)-1]
			rest = rest[1:]
		}
		return r.longestModule(root, append(append([]string{}, base...), rest...), len(base))
	}

	if crateRoot, ok := r.idx.crates[segs[0]]; ok {
		return r.longestModule(crateRoot, append([]string{"crate"}, segs[1:]...), 1)
	}

	// Bare path: a child module of the current module, then a 2015-style crate path.
	// At least one segment past the anchor must match so external crates stay external.
	base := strings.Split(module, "::")
	if ids := r.longestModule(root, append(append([]string{}, base...), segs...), len(base)+1); len(ids) > 0 {
		return ids
	}
	return r.longestModule(root, append([]string{"crate"}, segs...), 2)
}

// longestModule finds the longest prefix of segs naming a module. least is the shortest
// prefix length accepted.
func (r *fileResolver) longestModule(root string, segs []string, least int) []string {
	for n := len(segs); n >= max(least, 1); n-- {
		if files := r.idx.rustModule(root, strings.Join(segs[:n], "::")); len(files) > 0 {
			return fileIDs(files)
		}
	}
	return nil
}

// siblingModule finds name.rs or name/mod.rs next to the importing file
func (r *fileResolver) siblingModule(name string) []string {
	dir := path.Dir(r.file.Path)
	var out []string
	for _, p := range []string{path.Join(dir, name+".rs"), path.Join(dir, name, "mod.rs")} {
		if r.idx.File(p) != nil {
			out = append(out, p)
		}
	}
	return out
}

// goImport resolves an import path to the non-test files of the imported package
func (r *fileResolver) goImport(importPath string) []string {
	if strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../") {
		return fileIDs(r.idx.goDirs[path.Join(path.Dir(r.file.Path), importPath)])
	}
	if dir, ok := r.idx.goImportDir(importPath); ok {
		return fileIDs(r.idx.goDirs[dir])
	}
	if r.idx.goModule != "" {
		return nil
	}
	// Without a module path, match the longest project directory the import ends with
	best := ""
	for dir := range r.idx.goDirs {
		if dir == "." || len(dir) <= len(best) {
			continue
		}
		if importPath == dir || strings.HasSuffix(importPath, "/"+dir) {
			best = dir
		}
	}
	if best == "" {
		return nil
	}
	return fileIDs(r.idx.goDirs[best])
}
