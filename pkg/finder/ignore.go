package finder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"

	"github.com/ritzau/archscope/pkg/logging"
)

// IgnoreFile is read from the project root when present
const IgnoreFile = ".archscopeignore"

type pattern struct {
	globs    []glob.Glob
	negated  bool
	dirOnly  bool
	anchored bool // leading "/" or an inner slash: match the full relative path
}

// Matcher evaluates slash-separated relative paths against gitignore-style patterns.
// The last matching pattern wins, so a later "!keep.rs" re-includes a file.
// "*" stays within one path component and "**" spans any number of them.
type Matcher struct {
	patterns []pattern
}

// NewMatcher builds a Matcher from raw pattern lines. Blank lines and # comments are
// skipped, as are patterns that do not compile; those are logged.
func NewMatcher(lines []string) *Matcher {
	m := &Matcher{}
	for _, err := range m.add(lines) {
		logging.Warn("skipping ignore pattern", "error", err)
	}
	return m
}

func (m *Matcher) add(lines []string) []error {
	var errs []error
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var p pattern
		if strings.HasPrefix(line, "!") {
			p.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		} else if strings.Contains(line, "/") {
			p.anchored = true
		}
		if line == "" {
			continue
		}
		for _, variant := range expandDoubleStar(line) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				errs = append(errs, fmt.Errorf("pattern %q: %w", line, err))
				p.globs = nil
				break
			}
			p.globs = append(p.globs, g)
		}
		if len(p.globs) > 0 {
			m.patterns = append(m.patterns, p)
		}
	}
	return errs
}

// expandDoubleStar spells out the zero-directory cases of "**": a leading "**/" also
// matches at the root and an inner "/**/" also matches a single "/"
func expandDoubleStar(g string) []string {
	if rest, ok := strings.CutPrefix(g, "**/"); ok {
		var out []string
		for _, tail := range expandDoubleStar(rest) {
			out = append(out, tail, "**/"+tail)
		}
		return out
	}
	if head, rest, ok := strings.Cut(g, "/**/"); ok {
		var out []string
		for _, tail := range expandDoubleStar(rest) {
			out = append(out, head+"/"+tail, head+"/**/"+tail)
		}
		return out
	}
	return []string{g}
}

// LoadFile appends the patterns of an ignore file. A missing file is not an error.
func (m *Matcher) LoadFile(name string) error {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.Join(m.add(lines)...)
}

// Match returns true if the path should be skipped
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil {
		return false
	}
	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.matches(rel) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p pattern) matches(rel string) bool {
	if p.anchored {
		return p.match(rel)
	}
	// Unanchored patterns match any single path component
	for _, part := range strings.Split(rel, "/") {
		if p.match(part) {
			return true
		}
	}
	return false
}

func (p pattern) match(s string) bool {
	for _, g := range p.globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
