package model

import "strings"

// NodeKind represents the kind of entity a graph node stands for
type NodeKind string

const (
	NodeKindFile     NodeKind = "file"
	NodeKindFunction NodeKind = "function"
	NodeKindType     NodeKind = "type"
)

// EdgeLabel represents the relationship an edge encodes
type EdgeLabel string

const (
	EdgeImports    EdgeLabel = "imports"
	EdgeCalls      EdgeLabel = "calls"
	EdgeContains   EdgeLabel = "contains"
	EdgeReferences EdgeLabel = "references"
)

// GraphNode represents a vertex in the dependency graph.
// The id is derived from entity identity and stable across runs.
type GraphNode struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind"`
}

// GraphEdge represents a directed connection between two nodes
type GraphEdge struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Label EdgeLabel `json:"label,omitempty"`
}

// GraphData is the serialized graph of one run
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NewGraphData creates an empty graph with non-nil slices
func NewGraphData() *GraphData {
	return &GraphData{
		Nodes: make([]GraphNode, 0),
		Edges: make([]GraphEdge, 0),
	}
}

// FileNodeID returns the node id of a file
func FileNodeID(path string) string {
	return "file:" + path
}

// FunctionNodeID returns the node id of a function
func FunctionNodeID(filePath, name string) string {
	return "fn:" + filePath + "::" + name
}

// TypeNodeID returns the node id of a declared type
func TypeNodeID(filePath, name string) string {
	return "type:" + filePath + "::" + name
}

// SplitNodeID returns the kind, file path and entity name encoded in a node id.
// The name is empty for file nodes.
func SplitNodeID(id string) (NodeKind, string, string) {
	switch {
	case strings.HasPrefix(id, "file:"):
		return NodeKindFile, strings.TrimPrefix(id, "file:"), ""
	case strings.HasPrefix(id, "fn:"):
		path, name, _ := strings.Cut(strings.TrimPrefix(id, "fn:"), "::")
		return NodeKindFunction, path, name
	case strings.HasPrefix(id, "type:"):
		path, name, _ := strings.Cut(strings.TrimPrefix(id, "type:"), "::")
		return NodeKindType, path, name
	}
	return "", "", ""
}

// BaseName strips receiver qualifiers ("Type::", "Recv.") and duplicate suffixes ("#2")
func BaseName(name string) string {
	if i := strings.IndexByte(name, '#'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
