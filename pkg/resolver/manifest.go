package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/parser"
)

// Options carries project manifest facts the parsed files do not contain
type Options struct {
	GoModule string            // module path from go.mod at the project root
	Crates   map[string]string // Rust crate name (underscored) -> crate root directory
	Workers  int
}

// cargoManifest is the subset of Cargo.toml used to name crates
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Lib struct {
		Name string `toml:"name"`
	} `toml:"lib"`
}

// LoadOptions reads go.mod at root and the Cargo.toml of every crate root that holds
// one of the given Rust files. Missing manifests are not an error.
func LoadOptions(root string, paths []string) (Options, error) {
	opts := Options{Crates: map[string]string{}}

	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	switch {
	case err == nil:
		opts.GoModule = modfile.ModulePath(data)
		if opts.GoModule == "" {
			logging.Warn("go.mod has no module directive", "root", root)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return opts, fmt.Errorf("failed to read go.mod: %w", err)
	}

	crateRoots := map[string]bool{}
	for _, p := range paths {
		if strings.HasSuffix(p, ".rs") {
			crateRoots[parser.RustCrateRoot(p)] = true
		}
	}
	roots := make([]string, 0, len(crateRoots))
	for r := range crateRoots {
		roots = append(roots, r)
	}
	sort.Strings(roots)

	for _, r := range roots {
		name, err := crateName(filepath.Join(root, filepath.FromSlash(r), "Cargo.toml"))
		if err != nil {
			return opts, err
		}
		if name == "" {
			continue
		}
		if prev, ok := opts.Crates[name]; ok {
			logging.Warn("crate name declared twice", "crate", name, "first", prev, "second", r)
			continue
		}
		opts.Crates[name] = r
	}
	return opts, nil
}

func crateName(manifest string) (string, error) {
	data, err := os.ReadFile(manifest)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", manifest, err)
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		// A workspace manifest or a malformed file only loses crate-name imports
		logging.Warn("failed to parse Cargo.toml", "path", manifest, "error", err)
		return "", nil
	}
	name := m.Lib.Name
	if name == "" {
		name = m.Package.Name
	}
	return strings.ReplaceAll(name, "-", "_"), nil
}

// goImportDir maps a Go import path onto a project directory using the module path
func (idx *Index) goImportDir(importPath string) (string, bool) {
	if idx.goModule == "" {
		return "", false
	}
	if importPath == idx.goModule {
		return ".", true
	}
	if rest, ok := strings.CutPrefix(importPath, idx.goModule+"/"); ok {
		return path.Clean(rest), true
	}
	return "", false
}
