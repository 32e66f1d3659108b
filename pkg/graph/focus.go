package graph

import (
	"github.com/ritzau/archscope/pkg/model"
)

// distanceQueueNode represents a node in the BFS queue
type distanceQueueNode struct {
	nodeID   string
	distance int
}

// Distances calculates the undirected hop distance from the given node to every node
// reachable from it. Unreachable nodes are absent from the result.
func Distances(g *model.GraphData, from string) map[string]int {
	adjacency := buildAdjacencyList(g)
	distances := map[string]int{from: 0}

	queue := []distanceQueueNode{{nodeID: from, distance: 0}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current.nodeID] {
			if _, exists := distances[neighbor]; !exists {
				distances[neighbor] = current.distance + 1
				queue = append(queue, distanceQueueNode{nodeID: neighbor, distance: current.distance + 1})
			}
		}
	}
	return distances
}

// Focus returns the sub-graph within depth hops of a node, keeping the input order.
// It returns false when the node does not exist.
func Focus(g *model.GraphData, id string, depth int) (*model.GraphData, bool) {
	found := false
	for _, n := range g.Nodes {
		if n.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	distances := Distances(g, id)
	keep := func(nodeID string) bool {
		d, ok := distances[nodeID]
		return ok && d <= depth
	}

	out := model.NewGraphData()
	for _, n := range g.Nodes {
		if keep(n.ID) {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep(e.From) && keep(e.To) {
			out.Edges = append(out.Edges, e)
		}
	}
	return out, true
}

// buildAdjacencyList creates an undirected adjacency list from graph edges
func buildAdjacencyList(g *model.GraphData) map[string][]string {
	adjacency := make(map[string][]string)

	for _, edge := range g.Edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
		adjacency[edge.To] = append(adjacency[edge.To], edge.From)
	}

	return adjacency
}
