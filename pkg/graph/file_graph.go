// Package graph builds the run graph and the file-level import graph used for cycle
// detection, digests and diffs.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// FileNode represents a source file in the import graph
type FileNode struct {
	Path string // e.g., "src/net/tcp.rs"
}

// FileGraph represents the file-level import graph
type FileGraph struct {
	graph  *simple.DirectedGraph
	nodes  map[string]*FileNode // Map from file path to node
	ids    map[string]int64     // Map from file path to graph ID
	paths  []string             // Graph ID -> file path
	nextID int64
}

// NewFileGraph creates a new file import graph
func NewFileGraph() *FileGraph {
	return &FileGraph{
		graph:  simple.NewDirectedGraph(),
		nodes:  make(map[string]*FileNode),
		ids:    make(map[string]int64),
		nextID: 0,
	}
}

// AddFile adds a file to the graph
func (fg *FileGraph) AddFile(path string) {
	if _, exists := fg.nodes[path]; exists {
		return
	}

	fg.nodes[path] = &FileNode{Path: path}
	fg.ids[path] = fg.nextID
	fg.paths = append(fg.paths, path)

	fg.graph.AddNode(simple.Node(fg.nextID))

	fg.nextID++
}

// AddDependency adds an import edge from source to target, adding missing files.
// Self-imports are ignored; the underlying graph does not hold self-loops.
func (fg *FileGraph) AddDependency(source, target string) {
	fg.AddFile(source)
	fg.AddFile(target)
	if source == target {
		return
	}

	sourceID := fg.ids[source]
	targetID := fg.ids[target]

	if !fg.graph.HasEdgeFromTo(sourceID, targetID) {
		fg.graph.SetEdge(fg.graph.NewEdge(fg.graph.Node(sourceID), fg.graph.Node(targetID)))
	}
}

// GetNode returns a file node by path
func (fg *FileGraph) GetNode(path string) (*FileNode, bool) {
	node, exists := fg.nodes[path]
	return node, exists
}

// GetNodeByID returns a file node by its graph ID
func (fg *FileGraph) GetNodeByID(id int64) *FileNode {
	if id < 0 || id >= int64(len(fg.paths)) {
		return nil
	}
	return fg.nodes[fg.paths[id]]
}

// Graph returns the underlying directed graph
func (fg *FileGraph) Graph() *simple.DirectedGraph {
	return fg.graph
}

// Nodes returns all file nodes in insertion order
func (fg *FileGraph) Nodes() []*FileNode {
	nodes := make([]*FileNode, 0, len(fg.paths))
	for _, p := range fg.paths {
		nodes = append(nodes, fg.nodes[p])
	}
	return nodes
}

// Edges returns all import edges as [source, target] pairs, sorted
func (fg *FileGraph) Edges() [][2]string {
	var edges [][2]string

	iter := fg.graph.Edges()
	for iter.Next() {
		edge := iter.Edge()
		edges = append(edges, [2]string{fg.paths[edge.From().ID()], fg.paths[edge.To().ID()]})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// GetDependencies returns the files the given file imports, sorted
func (fg *FileGraph) GetDependencies(path string) []string {
	id, exists := fg.ids[path]
	if !exists {
		return nil
	}

	var deps []string
	iter := fg.graph.From(id)
	for iter.Next() {
		deps = append(deps, fg.paths[iter.Node().ID()])
	}
	sort.Strings(deps)
	return deps
}

// GetDependents returns the files importing the given file, sorted
func (fg *FileGraph) GetDependents(path string) []string {
	id, exists := fg.ids[path]
	if !exists {
		return nil
	}

	var deps []string
	iter := fg.graph.To(id)
	for iter.Next() {
		deps = append(deps, fg.paths[iter.Node().ID()])
	}
	sort.Strings(deps)
	return deps
}
