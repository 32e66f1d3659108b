// Package fetch clones remote repositories into a local workspace before collection.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/zeebo/xxh3"
)

// Fetcher clones repositories into per-URL directories under Dir
type Fetcher struct {
	Dir      string
	executor Executor
}

// NewFetcher creates a fetcher rooted at dir
func NewFetcher(dir string, executor Executor) *Fetcher {
	if executor == nil {
		executor = NewExecutor()
	}
	return &Fetcher{Dir: dir, executor: executor}
}

// Fetch clones url and returns the local directory. A previous clone of the same
// URL is replaced.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	dest := f.Destination(rawURL)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("failed to clear %s: %w", dest, err)
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create fetch dir: %w", err)
	}

	logging.InfoContext(ctx, "cloning repository", "url", rawURL, "dest", dest)
	if _, err := f.executor.Clone(ctx, rawURL, dest); err != nil {
		os.RemoveAll(dest)
		return "", err
	}
	return dest, nil
}

// Destination returns the clone directory for a URL: <name>-<xxh3 of url>
func (f *Fetcher) Destination(rawURL string) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s-%016x", RepoName(rawURL), xxh3.HashString(rawURL)))
}

// RepoName derives a project name from a repository URL
// (https://github.com/org/tool.git -> tool).
func RepoName(rawURL string) string {
	s := strings.TrimSuffix(strings.TrimRight(rawURL, "/"), ".git")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "repo"
	}
	return s
}

func validateURL(rawURL string) error {
	if strings.HasPrefix(rawURL, "git@") {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid repository url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "https", "http", "ssh", "git", "file":
	default:
		return fmt.Errorf("unsupported repository url scheme %q", u.Scheme)
	}
	if u.Scheme != "file" && (u.Host == "" || path.Clean(u.Path) == "/" || u.Path == "") {
		return fmt.Errorf("repository url %q has no host or path", rawURL)
	}
	return nil
}

func writeFile(root, rel, content string) error {
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(content), 0o644)
}
