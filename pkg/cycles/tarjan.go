// Package cycles detects strongly connected components in directed graphs.
package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds all strongly connected components using Tarjan's algorithm.
// The traversal keeps its own call stack, so deep import chains cannot exhaust the
// goroutine stack.
type TarjanSCC struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

// frame is one suspended strongConnect call: the node and its remaining successors
type frame struct {
	node       int64
	successors []int64
	next       int
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		index:   0,
		stack:   make([]int64, 0),
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
		sccs:    make([][]int64, 0),
	}
}

// FindSCCs finds all strongly connected components with more than one node.
// Roots are visited in ascending id order so the result is deterministic.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	for _, id := range sortedIDs(t.graph.Nodes()) {
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

func (t *TarjanSCC) visit(nodeID int64) *frame {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	return &frame{node: nodeID, successors: sortedIDs(t.graph.From(nodeID))}
}

// strongConnect runs Tarjan's algorithm from nodeID using an explicit call stack
func (t *TarjanSCC) strongConnect(nodeID int64) {
	calls := []*frame{t.visit(nodeID)}

	for len(calls) > 0 {
		top := calls[len(calls)-1]

		if top.next < len(top.successors) {
			successorID := top.successors[top.next]
			top.next++

			if _, visited := t.indices[successorID]; !visited {
				// Successor has not yet been visited; descend into it
				calls = append(calls, t.visit(successorID))
			} else if t.onStack[successorID] {
				// Successor is on stack and hence in the current SCC
				t.lowLink[top.node] = min(t.lowLink[top.node], t.indices[successorID])
			}
			continue
		}

		// All successors done: return to the caller
		calls = calls[:len(calls)-1]
		if len(calls) > 0 {
			parent := calls[len(calls)-1]
			t.lowLink[parent.node] = min(t.lowLink[parent.node], t.lowLink[top.node])
		}

		// If the node is a root node, pop the stack and create an SCC
		if t.lowLink[top.node] == t.indices[top.node] {
			scc := make([]int64, 0)
			for {
				w := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[w] = false
				scc = append(scc, w)
				if w == top.node {
					break
				}
			}
			// Only add SCCs with more than one node (cycles)
			if len(scc) > 1 {
				t.sccs = append(t.sccs, scc)
			}
		}
	}
}

func sortedIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
