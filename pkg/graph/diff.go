package graph

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/ritzau/archscope/pkg/model"
)

// GraphDiff represents the difference between two runs of a project
type GraphDiff struct {
	ProjectID     string            `json:"project_id,omitempty"`
	Digest        string            `json:"digest"`
	AddedNodes    []model.GraphNode `json:"added_nodes"`
	RemovedNodes  []string          `json:"removed_nodes"`  // Node IDs
	ModifiedNodes []model.GraphNode `json:"modified_nodes"` // Same id, different label or kind
	AddedEdges    []model.GraphEdge `json:"added_edges"`
	RemovedEdges  []string          `json:"removed_edges"` // Edge keys (from|to|label)
	FullGraph     bool              `json:"full_graph"`    // True if there was no previous graph
}

// Empty reports whether the diff carries no change
func (d *GraphDiff) Empty() bool {
	return !d.FullGraph && len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 && len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Digest fingerprints the serialized graph. Unchanged input yields the same digest.
func Digest(g *model.GraphData) string {
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// Diff computes the changes between two graphs. A nil old graph produces a full graph diff.
// Added entries follow the new graph's order, removed entries the old graph's order.
func Diff(oldGraph, newGraph *model.GraphData) *GraphDiff {
	diff := &GraphDiff{
		Digest:        Digest(newGraph),
		AddedNodes:    make([]model.GraphNode, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]model.GraphNode, 0),
		AddedEdges:    make([]model.GraphEdge, 0),
		RemovedEdges:  make([]string, 0),
	}

	if oldGraph == nil {
		diff.AddedNodes = append(diff.AddedNodes, newGraph.Nodes...)
		diff.AddedEdges = append(diff.AddedEdges, newGraph.Edges...)
		diff.FullGraph = true
		return diff
	}

	oldNodes := make(map[string]model.GraphNode, len(oldGraph.Nodes))
	for _, n := range oldGraph.Nodes {
		oldNodes[n.ID] = n
	}
	oldEdges := make(map[string]bool, len(oldGraph.Edges))
	for _, e := range oldGraph.Edges {
		oldEdges[EdgeKey(e)] = true
	}

	newNodes := make(map[string]bool, len(newGraph.Nodes))
	for _, n := range newGraph.Nodes {
		newNodes[n.ID] = true
		if prev, exists := oldNodes[n.ID]; !exists {
			diff.AddedNodes = append(diff.AddedNodes, n)
		} else if prev != n {
			diff.ModifiedNodes = append(diff.ModifiedNodes, n)
		}
	}
	for _, n := range oldGraph.Nodes {
		if !newNodes[n.ID] {
			diff.RemovedNodes = append(diff.RemovedNodes, n.ID)
		}
	}

	newEdges := make(map[string]bool, len(newGraph.Edges))
	for _, e := range newGraph.Edges {
		key := EdgeKey(e)
		newEdges[key] = true
		if !oldEdges[key] {
			diff.AddedEdges = append(diff.AddedEdges, e)
		}
	}
	for _, e := range oldGraph.Edges {
		if key := EdgeKey(e); !newEdges[key] {
			diff.RemovedEdges = append(diff.RemovedEdges, key)
		}
	}

	return diff
}

// EdgeKey creates a unique key for an edge
func EdgeKey(e model.GraphEdge) string {
	return fmt.Sprintf("%s|%s|%s", e.From, e.To, e.Label)
}
