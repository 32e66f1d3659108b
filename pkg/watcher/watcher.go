package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/archscope/pkg/finder"
	"github.com/ritzau/archscope/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeSource is a change to a file with a registered source extension
	ChangeTypeSource ChangeType = iota
	// ChangeTypeManifest is a change to go.mod, Cargo.toml or the ignore file
	ChangeTypeManifest
)

var manifests = map[string]bool{
	"go.mod":          true,
	"Cargo.toml":      true,
	finder.IgnoreFile: true,
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// Options selects what the watcher reports
type Options struct {
	Extensions []string // Source extensions such as ".rs"
	Ignore     []string // gitignore-style patterns for directories not to watch
}

// FileWatcher watches a project tree for source and manifest changes
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	ignore     []string
	matcher    *finder.Matcher
	extensions map[string]bool
	events     chan ChangeEvent
}

// NewFileWatcher creates a new file system watcher for a project root
func NewFileWatcher(root string, opts Options) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:    watcher,
		root:       root,
		ignore:     opts.Ignore,
		extensions: make(map[string]bool),
		events:     make(chan ChangeEvent, 100),
	}
	fw.loadIgnore()
	for _, ext := range opts.Extensions {
		fw.extensions[strings.ToLower(ext)] = true
	}
	return fw, nil
}

// loadIgnore builds the matcher from the configured patterns and the ignore file.
// Only the event goroutine calls it once watching has started.
func (fw *FileWatcher) loadIgnore() {
	matcher := finder.NewMatcher(fw.ignore)
	if err := matcher.LoadFile(filepath.Join(fw.root, finder.IgnoreFile)); err != nil {
		logging.Warn("could not read ignore file", "path", finder.IgnoreFile, "error", err)
	}
	fw.matcher = matcher
}

// Start watches every non-ignored directory below the root and begins processing events.
// The events channel is closed when ctx is canceled.
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.root)
	if err != nil {
		_ = fw.watcher.Close()
		return err
	}
	logging.Info("started watching project", "path", fw.root, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds dir and its subdirectories, skipping ignored ones
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := fw.relative(path); ok && rel != "" && fw.matcher.Match(rel, true) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk project: %w", err)
	}
	return count, nil
}

func (fw *FileWatcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	if rel == "." {
		return "", true
	}
	return filepath.ToSlash(rel), true
}

// ignored checks the file and each of its parent directories against the matcher
func (fw *FileWatcher) ignored(rel string) bool {
	if fw.matcher.Match(rel, false) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if fw.matcher.Match(dir, true) {
			return true
		}
	}
	return false
}

// classify reports whether a changed path is relevant and what kind of change it is
func (fw *FileWatcher) classify(path string) (ChangeType, bool) {
	rel, ok := fw.relative(path)
	if !ok || fw.ignored(rel) {
		return 0, false
	}
	name := filepath.Base(path)
	if manifests[name] {
		return ChangeTypeManifest, true
	}
	if fw.extensions[strings.ToLower(filepath.Ext(name))] {
		return ChangeTypeSource, true
	}
	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	const settle = 100 * time.Millisecond
	batches := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(settle)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeManifest, ChangeTypeSource} {
			if len(batches[t]) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: batches[t], Timestamp: time.Now()}:
			case <-ctx.Done():
			}
			delete(batches, t)
		}
	}

	defer func() {
		_ = fw.watcher.Close()
		close(fw.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories are watched as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if rel, ok := fw.relative(event.Name); ok && !fw.matcher.Match(rel, true) {
						if _, err := fw.watchTree(event.Name); err != nil {
							logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}

			if t, ok := fw.classify(event.Name); ok {
				logging.Trace("file changed", "path", event.Name, "op", event.Op.String())
				if filepath.Base(event.Name) == finder.IgnoreFile {
					fw.loadIgnore()
					if _, err := fw.watchTree(fw.root); err != nil {
						logging.Warn("failed to rewatch project", "error", err)
					}
				}
				batches[t] = append(batches[t], event.Name)
				flushTimer.Reset(settle)
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}
