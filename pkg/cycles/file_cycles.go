package cycles

import (
	"sort"

	"github.com/ritzau/archscope/pkg/graph"
)

// FileCycle represents a circular import between source files
type FileCycle struct {
	Files []string // File paths in the cycle, sorted ascending
}

// FindFileCycles finds all circular imports in the file graph, one per strongly
// connected component, ordered by their first file
func FindFileCycles(fg *graph.FileGraph) []FileCycle {
	tarjan := NewTarjanSCC(fg.Graph())
	sccs := tarjan.FindSCCs()

	cycles := make([]FileCycle, 0)
	for _, scc := range sccs {
		// Convert node IDs back to file paths
		files := make([]string, 0, len(scc))
		for _, nodeID := range scc {
			if node := fg.GetNodeByID(nodeID); node != nil {
				files = append(files, node.Path)
			}
		}

		if len(files) > 1 {
			sort.Strings(files)
			cycles = append(cycles, FileCycle{
				Files: files,
			})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Files[0] < cycles[j].Files[0]
	})
	return cycles
}
