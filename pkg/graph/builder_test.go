package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

func sampleFiles() []*model.ParsedFile {
	return []*model.ParsedFile{
		{
			Path: "src/a.rs",
			Functions: []model.ParsedFunction{
				{Name: "run", LineStart: 10},
				{Name: "start", LineStart: 2},
			},
			Types: []model.DeclaredType{{Name: "State", LineStart: 5}},
		},
		{
			Path:      "src/b.rs",
			Functions: []model.ParsedFunction{{Name: "helper", LineStart: 1}},
		},
	}
}

func dep(source, raw string, kind model.DependencyKind, targets ...string) model.ResolvedDependency {
	return model.ResolvedDependency{
		Dependency: model.Dependency{SourceEntity: source, RawTarget: raw, Kind: kind},
		Targets:    targets,
	}
}

func TestBuildOrder(t *testing.T) {
	resolved := []model.ResolvedDependency{
		dep("file:src/a.rs", "crate::b", model.DependencyImport, "file:src/b.rs"),
		dep("fn:src/a.rs::run", "State", model.DependencyReference, "type:src/a.rs::State"),
		dep("fn:src/a.rs::run", "helper", model.DependencyCall, "fn:src/b.rs::helper"),
		dep("fn:src/a.rs::start", "run", model.DependencyCall, "fn:src/a.rs::run"),
		dep("fn:src/a.rs::start", "run", model.DependencyCall, "fn:src/a.rs::run"),
		dep("fn:src/a.rs::start", "start", model.DependencyCall, "fn:src/a.rs::start"),
		dep("fn:src/b.rs::helper", "gone", model.DependencyCall, "fn:src/z.rs::gone"),
	}

	g := Build(sampleFiles(), resolved)

	assert.Equal(t, []model.GraphNode{
		{ID: "file:src/a.rs", Label: "src/a.rs", Kind: model.NodeKindFile},
		{ID: "fn:src/a.rs::start", Label: "start", Kind: model.NodeKindFunction},
		{ID: "type:src/a.rs::State", Label: "State", Kind: model.NodeKindType},
		{ID: "fn:src/a.rs::run", Label: "run", Kind: model.NodeKindFunction},
		{ID: "file:src/b.rs", Label: "src/b.rs", Kind: model.NodeKindFile},
		{ID: "fn:src/b.rs::helper", Label: "helper", Kind: model.NodeKindFunction},
	}, g.Nodes)

	assert.Equal(t, []model.GraphEdge{
		{From: "file:src/a.rs", To: "fn:src/a.rs::start", Label: model.EdgeContains},
		{From: "file:src/a.rs", To: "type:src/a.rs::State", Label: model.EdgeContains},
		{From: "file:src/a.rs", To: "fn:src/a.rs::run", Label: model.EdgeContains},
		{From: "file:src/a.rs", To: "file:src/b.rs", Label: model.EdgeImports},
		{From: "fn:src/a.rs::start", To: "fn:src/a.rs::run", Label: model.EdgeCalls},
		{From: "fn:src/a.rs::run", To: "type:src/a.rs::State", Label: model.EdgeReferences},
		{From: "fn:src/a.rs::run", To: "fn:src/b.rs::helper", Label: model.EdgeCalls},
		{From: "file:src/b.rs", To: "fn:src/b.rs::helper", Label: model.EdgeContains},
	}, g.Edges)
}

func TestBuildNoDanglingEdges(t *testing.T) {
	resolved := []model.ResolvedDependency{
		dep("file:src/a.rs", "x", model.DependencyImport, "file:src/missing.rs", "file:src/b.rs"),
		dep("fn:src/nowhere.rs::f", "helper", model.DependencyCall, "fn:src/b.rs::helper"),
	}
	g := Build(sampleFiles(), resolved)

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		assert.True(t, ids[e.From], "dangling source %s", e.From)
		assert.True(t, ids[e.To], "dangling target %s", e.To)
	}
	assert.Equal(t, 1, FanIn(g)["file:src/b.rs"])
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, nil)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, mustJSON(t, g))
}

func TestDigestStable(t *testing.T) {
	resolved := []model.ResolvedDependency{
		dep("file:src/a.rs", "crate::b", model.DependencyImport, "file:src/b.rs"),
	}
	first := Build(sampleFiles(), resolved)
	second := Build(sampleFiles(), resolved)
	assert.Equal(t, Digest(first), Digest(second))
	assert.Len(t, Digest(first), 16)

	third := Build(sampleFiles(), nil)
	assert.NotEqual(t, Digest(first), Digest(third))
}

func TestFileGraphFrom(t *testing.T) {
	resolved := []model.ResolvedDependency{
		dep("file:src/a.rs", "crate::b", model.DependencyImport, "file:src/b.rs"),
		dep("fn:src/a.rs::run", "helper", model.DependencyCall, "fn:src/b.rs::helper"),
	}
	fg := FileGraphFrom(Build(sampleFiles(), resolved))

	require.Len(t, fg.Nodes(), 2)
	assert.Equal(t, [][2]string{{"src/a.rs", "src/b.rs"}}, fg.Edges())
}
