// Package resolver maps raw imports, calls and type references of parsed files to
// graph node ids.
package resolver

import (
	"path"
	"strings"

	"github.com/ritzau/archscope/pkg/model"
	"github.com/ritzau/archscope/pkg/parser"
)

// Index is a read-only snapshot of every declaration in a run. It is built once after
// all files are parsed and shared by the resolution workers.
type Index struct {
	files  []*model.ParsedFile
	byPath map[string]*model.ParsedFile

	goModule string
	crates   map[string]string // crate name -> crate root

	rustModules map[string][]string // crateRoot + "|" + module -> file paths
	goDirs      map[string][]string // directory -> non-test Go file paths

	functions map[string][]fnEntry // language + "|" + base name
	qualified map[string][]fnEntry // language + "|" + full name
	types     map[string][]string  // language + "|" + type name -> type ids
}

type fnEntry struct {
	id       string
	file     string
	receiver string
}

// NewIndex builds the snapshot. The file slice and the files are not modified.
func NewIndex(files []*model.ParsedFile, opts Options) *Index {
	idx := &Index{
		files:       files,
		byPath:      make(map[string]*model.ParsedFile, len(files)),
		goModule:    opts.GoModule,
		crates:      opts.Crates,
		rustModules: make(map[string][]string),
		goDirs:      make(map[string][]string),
		functions:   make(map[string][]fnEntry),
		qualified:   make(map[string][]fnEntry),
		types:       make(map[string][]string),
	}
	if idx.crates == nil {
		idx.crates = map[string]string{}
	}

	for _, f := range files {
		idx.byPath[f.Path] = f
		lang := string(f.Language)

		switch f.Language {
		case model.LanguageRust:
			key := rustKey(parser.RustCrateRoot(f.Path), f.ModuleName)
			idx.rustModules[key] = append(idx.rustModules[key], f.Path)
		case model.LanguageGo:
			if !strings.HasSuffix(f.Path, "_test.go") {
				dir := path.Dir(f.Path)
				idx.goDirs[dir] = append(idx.goDirs[dir], f.Path)
			}
		}

		for _, fn := range f.Functions {
			e := fnEntry{id: model.FunctionNodeID(f.Path, fn.Name), file: f.Path, receiver: fn.Receiver}
			base := lang + "|" + model.BaseName(fn.Name)
			idx.functions[base] = append(idx.functions[base], e)
			full := lang + "|" + stripSuffix(fn.Name)
			idx.qualified[full] = append(idx.qualified[full], e)
		}
		for _, t := range f.Types {
			key := lang + "|" + stripSuffix(t.Name)
			idx.types[key] = append(idx.types[key], model.TypeNodeID(f.Path, t.Name))
		}
	}
	return idx
}

// Files returns the indexed files in collection order
func (idx *Index) Files() []*model.ParsedFile {
	return idx.files
}

// File returns the parsed file for a path, or nil
func (idx *Index) File(p string) *model.ParsedFile {
	return idx.byPath[p]
}

func (idx *Index) rustModule(crateRoot, module string) []string {
	return idx.rustModules[rustKey(crateRoot, module)]
}

func rustKey(crateRoot, module string) string {
	return crateRoot + "|" + module
}

// stripSuffix removes the duplicate-name suffix (helper#2 -> helper)
func stripSuffix(name string) string {
	if i := strings.LastIndexByte(name, '#'); i >= 0 {
		return name[:i]
	}
	return name
}
