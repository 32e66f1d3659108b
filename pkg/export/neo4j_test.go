package export

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

type call struct {
	cypher string
	params map[string]any
}

type mockRunner struct {
	calls  []call
	failOn string
	closed bool
}

func (m *mockRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	m.calls = append(m.calls, call{cypher: cypher, params: params})
	if m.failOn != "" && strings.Contains(cypher, m.failOn) {
		return errors.New("boom")
	}
	return nil
}

func (m *mockRunner) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

func sampleGraph() *model.GraphData {
	return &model.GraphData{
		Nodes: []model.GraphNode{
			{ID: "file:a.go", Label: "a.go", Kind: model.NodeKindFile},
			{ID: "fn:a.go::main", Label: "main", Kind: model.NodeKindFunction},
			{ID: "fn:a.go::run", Label: "run", Kind: model.NodeKindFunction},
			{ID: "fn:a.go::stop", Label: "stop", Kind: model.NodeKindFunction},
		},
		Edges: []model.GraphEdge{
			{From: "file:a.go", To: "fn:a.go::main", Label: model.EdgeContains},
			{From: "fn:a.go::main", To: "fn:a.go::run", Label: model.EdgeCalls},
		},
	}
}

func TestExportBatches(t *testing.T) {
	m := &mockRunner{}
	e := New(m)
	e.batchSize = 2

	require.NoError(t, e.Export(context.Background(), "p1", sampleGraph()))

	var functionBatches, callBatches int
	for _, c := range m.calls {
		if c.params != nil {
			assert.Equal(t, "p1", c.params["project"])
		}
		switch {
		case strings.Contains(c.cypher, "ArchNode:Function"):
			functionBatches++
			assert.LessOrEqual(t, len(c.params["batch"].([]map[string]any)), 2)
		case strings.Contains(c.cypher, ":CALLS"):
			callBatches++
		}
	}
	assert.Equal(t, 2, functionBatches)
	assert.Equal(t, 1, callBatches)
	assert.Contains(t, m.calls[1].cypher, "DETACH DELETE")

	require.NoError(t, e.Close(context.Background()))
	assert.True(t, m.closed)
}

func TestExportSkipsEmptyGroups(t *testing.T) {
	m := &mockRunner{}
	require.NoError(t, New(m).Export(context.Background(), "p1", model.NewGraphData()))
	// index + clear only
	assert.Len(t, m.calls, 2)
}

func TestExportError(t *testing.T) {
	m := &mockRunner{failOn: "CONTAINS"}
	err := New(m).Export(context.Background(), "p1", sampleGraph())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains edges")
}
