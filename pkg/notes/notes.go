// Package notes turns graph statistics into human-readable architecture observations.
package notes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ritzau/archscope/pkg/cycles"
	"github.com/ritzau/archscope/pkg/graph"
	"github.com/ritzau/archscope/pkg/model"
)

// Options holds the rule thresholds. A subject is reported when it is strictly above
// the threshold.
type Options struct {
	MaxFileLines  int
	MaxComplexity int
	MaxFanIn      int
}

// DefaultOptions returns the default thresholds
func DefaultOptions() Options {
	return Options{MaxFileLines: 500, MaxComplexity: 10, MaxFanIn: 8}
}

// Generate evaluates the rules in fixed order: oversized files, high complexity,
// central dependencies, circular dependencies. Within a rule subjects are ordered by
// node id.
func Generate(g *model.GraphData, files []*model.ParsedFile, items []model.ComplexityItem, opts Options) []string {
	notes := make([]string, 0)
	notes = append(notes, oversizedFiles(files, opts.MaxFileLines)...)
	notes = append(notes, highComplexity(items, opts.MaxComplexity)...)
	notes = append(notes, centralDependencies(g, opts.MaxFanIn)...)
	notes = append(notes, circularDependencies(g)...)
	return notes
}

type subject struct {
	id   string
	note string
}

func sorted(subjects []subject) []string {
	sort.SliceStable(subjects, func(i, j int) bool {
		return subjects[i].id < subjects[j].id
	})
	out := make([]string, len(subjects))
	for i, s := range subjects {
		out[i] = s.note
	}
	return out
}

func oversizedFiles(files []*model.ParsedFile, limit int) []string {
	var subjects []subject
	for _, f := range files {
		if f.LineCount > limit {
			subjects = append(subjects, subject{
				id:   model.FileNodeID(f.Path),
				note: fmt.Sprintf("oversized file: %s has %d lines (threshold %d)", f.Path, f.LineCount, limit),
			})
		}
	}
	return sorted(subjects)
}

func highComplexity(items []model.ComplexityItem, limit int) []string {
	var subjects []subject
	for _, item := range items {
		if item.Score > limit {
			subjects = append(subjects, subject{
				id: model.FunctionNodeID(item.FilePath, item.FunctionName),
				note: fmt.Sprintf("high complexity: %s in %s scores %d (threshold %d)",
					item.FunctionName, item.FilePath, item.Score, limit),
			})
		}
	}
	return sorted(subjects)
}

func centralDependencies(g *model.GraphData, limit int) []string {
	fanIn := graph.FanIn(g)
	var subjects []subject
	for _, n := range g.Nodes {
		if fanIn[n.ID] > limit {
			subjects = append(subjects, subject{
				id: n.ID,
				note: fmt.Sprintf("central dependency: %s %s has fan-in %d (threshold %d)",
					n.Kind, describe(n), fanIn[n.ID], limit),
			})
		}
	}
	return sorted(subjects)
}

// circularDependencies emits one note per import cycle, not one per direction
func circularDependencies(g *model.GraphData) []string {
	found := cycles.FindFileCycles(graph.FileGraphFrom(g))
	notes := make([]string, 0, len(found))
	for _, c := range found {
		notes = append(notes, fmt.Sprintf("circular dependency: %s import each other (cycle of %d files)",
			strings.Join(c.Files, ", "), len(c.Files)))
	}
	return notes
}

func describe(n model.GraphNode) string {
	kind, path, name := model.SplitNodeID(n.ID)
	if kind == model.NodeKindFile || name == "" {
		return path
	}
	return name + " in " + path
}
