package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func chain(ids ...string) *model.GraphData {
	g := model.NewGraphData()
	for _, id := range ids {
		g.Nodes = append(g.Nodes, model.GraphNode{ID: id, Label: id, Kind: model.NodeKindFunction})
	}
	for i := 1; i < len(ids); i++ {
		g.Edges = append(g.Edges, model.GraphEdge{From: ids[i-1], To: ids[i], Label: model.EdgeCalls})
	}
	return g
}

func TestDiffFullGraph(t *testing.T) {
	g := chain("a", "b")
	diff := Diff(nil, g)

	assert.True(t, diff.FullGraph)
	assert.Equal(t, g.Nodes, diff.AddedNodes)
	assert.Equal(t, g.Edges, diff.AddedEdges)
	assert.False(t, diff.Empty())
}

func TestDiffChanges(t *testing.T) {
	before := chain("a", "b", "c")
	after := chain("a", "b", "d")
	after.Nodes[0].Label = "renamed"

	diff := Diff(before, after)

	assert.False(t, diff.FullGraph)
	assert.Equal(t, []model.GraphNode{after.Nodes[2]}, diff.AddedNodes)
	assert.Equal(t, []string{"c"}, diff.RemovedNodes)
	assert.Equal(t, []model.GraphNode{after.Nodes[0]}, diff.ModifiedNodes)
	assert.Equal(t, []model.GraphEdge{{From: "b", To: "d", Label: model.EdgeCalls}}, diff.AddedEdges)
	assert.Equal(t, []string{"b|c|calls"}, diff.RemovedEdges)
	assert.Equal(t, Digest(after), diff.Digest)
}

func TestDiffUnchanged(t *testing.T) {
	diff := Diff(chain("a", "b"), chain("a", "b"))
	assert.True(t, diff.Empty())
}

func TestFocus(t *testing.T) {
	g := chain("a", "b", "c", "d")
	g.Nodes = append(g.Nodes, model.GraphNode{ID: "island", Label: "island"})

	sub, ok := Focus(g, "c", 1)
	require.True(t, ok)

	ids := make([]string, 0, len(sub.Nodes))
	for _, n := range sub.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"b", "c", "d"}, ids)
	assert.Len(t, sub.Edges, 2)

	sub, ok = Focus(g, "a", 0)
	require.True(t, ok)
	assert.Len(t, sub.Nodes, 1)
	assert.Empty(t, sub.Edges)

	_, ok = Focus(g, "nope", 2)
	assert.False(t, ok)

	d := Distances(g, "a")
	assert.Equal(t, 3, d["d"])
	_, reached := d["island"]
	assert.False(t, reached)
}
