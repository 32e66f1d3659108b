package watcher

import (
	"path/filepath"
	"sort"
)

// ChangeAnalysis describes a debounced batch of changes
type ChangeAnalysis struct {
	ManifestChanged bool     // go.mod, Cargo.toml or the ignore file changed
	ChangedFiles    []string // Slash-separated paths relative to the root, sorted and deduplicated
}

// NeedsReanalysis reports whether the batch touched a source file or a manifest
func (c *ChangeAnalysis) NeedsReanalysis() bool {
	return c.ManifestChanged || len(c.ChangedFiles) > 0
}

// AnalyzeChanges folds a batch of change events into one description
func AnalyzeChanges(events []ChangeEvent, root string) *ChangeAnalysis {
	analysis := &ChangeAnalysis{ChangedFiles: make([]string, 0)}
	seen := make(map[string]bool)

	for _, event := range events {
		if event.Type == ChangeTypeManifest {
			analysis.ManifestChanged = true
		}
		for _, p := range event.Paths {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				rel = p
			}
			rel = filepath.ToSlash(rel)
			if !seen[rel] {
				seen[rel] = true
				analysis.ChangedFiles = append(analysis.ChangedFiles, rel)
			}
		}
	}

	sort.Strings(analysis.ChangedFiles)
	return analysis
}
