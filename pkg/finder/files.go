package finder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
)

// Options configures source discovery
type Options struct {
	Extensions []string // Allow-list such as ".rs"; empty accepts every file
	Ignore     []string // gitignore-style patterns
}

// Collection is the ordered result of walking a project root
type Collection struct {
	Root     string
	Files    []string // Slash-separated paths relative to Root, lexically ordered
	Warnings []model.ParseWarning
}

type candidate struct {
	rel   string
	canon string
}

type collector struct {
	root       string
	matcher    *Matcher
	extensions map[string]bool
	visited    map[string]bool // canonical directory paths
	found      []candidate
	warnings   []model.ParseWarning
}

// Collect walks root and returns the source files accepted by opts.
// Symlinked directories are followed once per canonical path, so symlink cycles terminate.
// Unreadable entries are skipped and reported as warnings; an unreadable root is a
// *model.CollectionError.
func Collect(root string, opts Options) (*Collection, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &model.CollectionError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &model.CollectionError{Root: root, Err: errors.New("not a directory")}
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, &model.CollectionError{Root: root, Err: err}
	}

	matcher := NewMatcher(opts.Ignore)
	if err := matcher.LoadFile(filepath.Join(root, IgnoreFile)); err != nil {
		logging.Warn("could not read ignore file", "path", IgnoreFile, "error", err)
	}

	c := &collector{
		root:       root,
		matcher:    matcher,
		extensions: make(map[string]bool),
		visited:    make(map[string]bool),
	}
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[strings.ToLower(ext)] = true
	}

	c.walk(root, "")

	// Dedupe files reached through more than one path; the lexically first path wins
	sort.Slice(c.found, func(i, j int) bool { return c.found[i].rel < c.found[j].rel })
	seen := make(map[string]bool, len(c.found))
	files := make([]string, 0, len(c.found))
	for _, f := range c.found {
		if seen[f.canon] {
			logging.Trace("skipping duplicate path", "path", f.rel)
			continue
		}
		seen[f.canon] = true
		files = append(files, f.rel)
	}

	logging.Debug("collected source files", "root", root, "count", len(files), "warnings", len(c.warnings))
	return &Collection{Root: root, Files: files, Warnings: c.warnings}, nil
}

func (c *collector) walk(dir, rel string) {
	canon, err := filepath.EvalSymlinks(dir)
	if err != nil {
		c.warn(rel, err)
		return
	}
	if c.visited[canon] {
		logging.Trace("directory already visited", "path", rel, "canonical", canon)
		return
	}
	c.visited[canon] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		c.warn(rel, err)
		return
	}

	for _, entry := range entries {
		childRel := path.Join(rel, entry.Name())
		childAbs := filepath.Join(dir, entry.Name())

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(childAbs)
			if err != nil {
				c.warn(childRel, fmt.Errorf("broken symlink: %w", err))
				continue
			}
			mode = target.Mode().Type()
		}

		if mode.IsDir() {
			if c.matcher.Match(childRel, true) {
				continue
			}
			c.walk(childAbs, childRel)
			continue
		}
		if !mode.IsRegular() || !c.accepts(entry.Name()) || c.matcher.Match(childRel, false) {
			continue
		}

		canonFile, err := filepath.EvalSymlinks(childAbs)
		if err != nil {
			c.warn(childRel, err)
			continue
		}
		f, err := os.Open(childAbs)
		if err != nil {
			c.warn(childRel, err)
			continue
		}
		f.Close()

		c.found = append(c.found, candidate{rel: childRel, canon: canonFile})
	}
}

func (c *collector) accepts(name string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	return c.extensions[strings.ToLower(filepath.Ext(name))]
}

func (c *collector) warn(rel string, err error) {
	if rel == "" {
		rel = "."
	}
	logging.Warn("skipping unreadable entry", "path", rel, "error", err)
	c.warnings = append(c.warnings, model.ParseWarning{
		Path:       rel,
		Diagnostic: model.Diagnostic{Code: "unreadable", Message: err.Error()},
	})
}
