package finder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ritzau/archscope/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestCollectOrderAndFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.rs", "fn main() {}\n")
	writeFile(t, root, "src/a/mod.rs", "")
	writeFile(t, root, "src/a.rs", "")
	writeFile(t, root, "target/debug/build.rs", "")
	writeFile(t, root, "vendor/dep/lib.rs", "")
	writeFile(t, root, "README.md", "")
	writeFile(t, root, "tools/gen.go", "package tools\n")

	c, err := Collect(root, Options{
		Extensions: []string{".rs", "go"},
		Ignore:     []string{"target/", "vendor/"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.rs", "src/a/mod.rs", "src/main.rs", "tools/gen.go"}, c.Files)
	assert.Empty(t, c.Warnings)
}

func TestCollectIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.rs", "")
	writeFile(t, root, "gen/out.rs", "")
	writeFile(t, root, "gen/keep_me.rs", "")
	writeFile(t, root, IgnoreFile, "# generated\n/gen/*\n!gen/keep_me.rs\n")

	c, err := Collect(root, Options{Extensions: []string{".rs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/keep_me.rs", "keep.rs"}, c.Files)
}

func TestCollectSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", "package pkg\n")
	if err := os.Symlink(filepath.Join(root, "pkg"), filepath.Join(root, "pkg", "loop")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "pkg"), filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	c, err := Collect(root, Options{Extensions: []string{".go"}})
	require.NoError(t, err)

	// The same file is reachable as alias/a.go and pkg/a.go; only the lexically first survives
	assert.Equal(t, []string{"alias/a.go"}, c.Files)
}

func TestCollectBrokenSymlinkWarns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.rs", "")
	if err := os.Symlink(filepath.Join(root, "missing.rs"), filepath.Join(root, "dangling.rs")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	c, err := Collect(root, Options{Extensions: []string{".rs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.rs"}, c.Files)
	require.Len(t, c.Warnings, 1)
	assert.Equal(t, "dangling.rs", c.Warnings[0].Path)
}

func TestCollectMissingRoot(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "nope"), Options{})

	var ce *model.CollectionError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Root, "nope")
}

func TestCollectRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.rs", "")

	_, err := Collect(filepath.Join(root, "file.rs"), Options{})
	var ce *model.CollectionError
	assert.True(t, errors.As(err, &ce))
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{"target/", "*.gen.rs", "/docs", "!keep.gen.rs"})

	assert.True(t, m.Match("target", true))
	assert.True(t, m.Match("crates/x/target", true))
	assert.False(t, m.Match("target", false), "dir-only pattern ignores files")
	assert.True(t, m.Match("src/a.gen.rs", false))
	assert.False(t, m.Match("src/keep.gen.rs", false))
	assert.True(t, m.Match("docs", true))
	assert.False(t, m.Match("src/docs", true), "anchored pattern only matches at the root")
}

func TestMatcherDoubleStar(t *testing.T) {
	m := NewMatcher([]string{"**/gen/*.rs", "docs/**", "a/**/b.rs"})

	assert.True(t, m.Match("gen/x.rs", false))
	assert.True(t, m.Match("a/gen/x.rs", false))
	assert.True(t, m.Match("a/b/gen/x.rs", false))
	assert.False(t, m.Match("a/gen/sub/x.rs", false), "* stays within one component")

	assert.True(t, m.Match("docs/a/b.rs", false))
	assert.True(t, m.Match("docs/x", true))
	assert.False(t, m.Match("src/docs/a.rs", false))

	assert.True(t, m.Match("a/b.rs", false))
	assert.True(t, m.Match("a/x/y/b.rs", false))
	assert.False(t, m.Match("c/a/b.rs", false))
}

func TestMatcherSkipsInvalidPattern(t *testing.T) {
	m := NewMatcher([]string{"[", "target/"})
	assert.True(t, m.Match("target", true))
	assert.False(t, m.Match("src/a.rs", false))
}

func TestCollectIgnoreFileDoubleStar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFile, "**/generated/**\n")
	writeFile(t, root, "src/lib.rs", "")
	writeFile(t, root, "src/generated/x.rs", "")
	writeFile(t, root, "generated/deep/y.rs", "")
	writeFile(t, root, "crates/generated.rs", "")

	c, err := Collect(root, Options{Extensions: []string{".rs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"crates/generated.rs", "src/lib.rs"}, c.Files)
}
