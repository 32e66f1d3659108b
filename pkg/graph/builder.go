package graph

import (
	"sort"

	"github.com/ritzau/archscope/pkg/model"
)

var labelForKind = map[model.DependencyKind]model.EdgeLabel{
	model.DependencyImport:    model.EdgeImports,
	model.DependencyCall:      model.EdgeCalls,
	model.DependencyReference: model.EdgeReferences,
}

// entity is a function or type of one file, ordered by declaration line
type entity struct {
	id    string
	label string
	kind  model.NodeKind
	line  int
	seq   int
}

// Build creates the run graph. Nodes are emitted per file in source order: the file node,
// then its types and functions merged by declaration line. Edges follow the same order:
// contains edges, then imports, then calls and references per entity. Duplicate edges,
// self-loops and edges to unknown nodes are dropped.
func Build(files []*model.ParsedFile, resolved []model.ResolvedDependency) *model.GraphData {
	g := model.NewGraphData()

	bySource := make(map[string][]model.ResolvedDependency)
	for _, rd := range resolved {
		bySource[rd.SourceEntity] = append(bySource[rd.SourceEntity], rd)
	}

	perFile := make([][]entity, len(files))
	nodes := make(map[string]bool)
	for i, f := range files {
		fileID := model.FileNodeID(f.Path)
		g.Nodes = append(g.Nodes, model.GraphNode{ID: fileID, Label: f.Path, Kind: model.NodeKindFile})
		nodes[fileID] = true

		perFile[i] = entities(f)
		for _, e := range perFile[i] {
			g.Nodes = append(g.Nodes, model.GraphNode{ID: e.id, Label: e.label, Kind: e.kind})
			nodes[e.id] = true
		}
	}

	seen := make(map[model.GraphEdge]bool)
	add := func(from, to string, label model.EdgeLabel) {
		edge := model.GraphEdge{From: from, To: to, Label: label}
		if from == to || !nodes[from] || !nodes[to] || seen[edge] {
			return
		}
		seen[edge] = true
		g.Edges = append(g.Edges, edge)
	}
	addDeps := func(source string) {
		for _, rd := range bySource[source] {
			for _, target := range rd.Targets {
				add(source, target, labelForKind[rd.Kind])
			}
		}
	}

	for i, f := range files {
		fileID := model.FileNodeID(f.Path)
		for _, e := range perFile[i] {
			add(fileID, e.id, model.EdgeContains)
		}
		addDeps(fileID)
		for _, e := range perFile[i] {
			addDeps(e.id)
		}
	}
	return g
}

func entities(f *model.ParsedFile) []entity {
	out := make([]entity, 0, len(f.Types)+len(f.Functions))
	for _, t := range f.Types {
		out = append(out, entity{
			id:    model.TypeNodeID(f.Path, t.Name),
			label: t.Name,
			kind:  model.NodeKindType,
			line:  t.LineStart,
			seq:   len(out),
		})
	}
	for _, fn := range f.Functions {
		out = append(out, entity{
			id:    model.FunctionNodeID(f.Path, fn.Name),
			label: fn.Name,
			kind:  model.NodeKindFunction,
			line:  fn.LineStart,
			seq:   len(out),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].line != out[j].line {
			return out[i].line < out[j].line
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// FanIn counts incoming edges per node, excluding contains edges
func FanIn(g *model.GraphData) map[string]int {
	in := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Label != model.EdgeContains {
			in[e.To]++
		}
	}
	return in
}

// FileGraphFrom extracts the file-level import graph
func FileGraphFrom(g *model.GraphData) *FileGraph {
	fg := NewFileGraph()
	for _, n := range g.Nodes {
		if n.Kind == model.NodeKindFile {
			fg.AddFile(n.Label)
		}
	}
	for _, e := range g.Edges {
		if e.Label != model.EdgeImports {
			continue
		}
		_, from, _ := model.SplitNodeID(e.From)
		_, to, _ := model.SplitNodeID(e.To)
		fg.AddDependency(from, to)
	}
	return fg
}
