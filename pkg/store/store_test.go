package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archscope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func artifacts(projectID string) *RunArtifacts {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &RunArtifacts{
		Run: model.Run{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			StartedAt:   start,
			FinishedAt:  start.Add(2 * time.Second),
			GraphDigest: "00000000deadbeef",
		},
		Files: []model.FileEntry{
			{ID: "file:src/main.rs", Path: "src/main.rs", ModuleName: "crate", LineCount: 12},
			{ID: "file:src/util.rs", Path: "src/util.rs", ModuleName: "crate::util", LineCount: 4},
		},
		Graph: &model.GraphData{
			Nodes: []model.GraphNode{
				{ID: "file:src/main.rs", Label: "src/main.rs", Kind: model.NodeKindFile},
				{ID: "fn:src/main.rs::main", Label: "main", Kind: model.NodeKindFunction},
				{ID: "file:src/util.rs", Label: "src/util.rs", Kind: model.NodeKindFile},
				{ID: "fn:src/util.rs::helper", Label: "helper", Kind: model.NodeKindFunction},
			},
			Edges: []model.GraphEdge{
				{From: "file:src/main.rs", To: "fn:src/main.rs::main", Label: model.EdgeContains},
				{From: "file:src/main.rs", To: "file:src/util.rs", Label: model.EdgeImports},
				{From: "file:src/util.rs", To: "fn:src/util.rs::helper", Label: model.EdgeContains},
				{From: "fn:src/main.rs::main", To: "fn:src/util.rs::helper", Label: model.EdgeCalls},
			},
		},
		Complexity: []model.ComplexityItem{
			{FunctionName: "main", FilePath: "src/main.rs", Score: 1, LineStart: 3, LineEnd: 5},
			{FunctionName: "helper", FilePath: "src/util.rs", Score: 2, LineStart: 1, LineEnd: 4, MaxNesting: 1},
		},
		Summary: &model.AnalysisSummary{
			ProjectID:          projectID,
			ProjectName:        "demo",
			TotalFiles:         2,
			TotalFunctions:     2,
			TotalImports:       1,
			AvgComplexity:      1.5,
			DeadCodeCandidates: []string{},
			ArchitectureNotes:  []string{"z note", "a note"},
			Diagnostics:        []string{"src/bad.rs: binary content"},
		},
	}
}

func TestUpsertProject(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, err := s.UpsertProject(ctx, "demo", "/src/demo", "")
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)

	again, err := s.UpsertProject(ctx, "demo", "/src/demo", "https://github.com/acme/demo")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "https://github.com/acme/demo", again.RemoteURL)
	assert.False(t, again.UpdatedAt.Before(first.UpdatedAt))

	other, err := s.UpsertProject(ctx, "demo", "/src/other", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)

	got, err := s.GetProject(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "/src/demo", got.Path)

	_, err = s.GetProject(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p, err := s.UpsertProject(ctx, "demo", "/src/demo", "")
	require.NoError(t, err)

	a := artifacts(p.ID)
	require.NoError(t, s.SaveRun(ctx, a))

	run, err := s.LatestRun(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Run.ID, run.ID)
	assert.True(t, a.Run.FinishedAt.Equal(run.FinishedAt))
	assert.Equal(t, a.Run.GraphDigest, run.GraphDigest)

	files, err := s.LoadFiles(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Files, files)

	g, err := s.LoadGraph(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Graph, g)

	items, err := s.LoadComplexity(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Complexity, items)

	sum, err := s.LoadSummary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Summary, sum)
}

func TestSaveRunReplacesPreviousRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p, err := s.UpsertProject(ctx, "demo", "/src/demo", "")
	require.NoError(t, err)

	require.NoError(t, s.SaveRun(ctx, artifacts(p.ID)))
	second := artifacts(p.ID)
	second.Files = second.Files[:1]
	second.Complexity = second.Complexity[:1]
	second.Summary.AvgComplexity = 1
	require.NoError(t, s.SaveRun(ctx, second))

	files, err := s.LoadFiles(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	sum, err := s.LoadSummary(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sum.AvgComplexity)

	run, err := s.LatestRun(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Run.ID, run.ID)
}

func TestFailedSaveKeepsPreviousRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p, err := s.UpsertProject(ctx, "demo", "/src/demo", "")
	require.NoError(t, err)

	good := artifacts(p.ID)
	require.NoError(t, s.SaveRun(ctx, good))

	bad := artifacts(p.ID)
	bad.Graph.Nodes = append(bad.Graph.Nodes, bad.Graph.Nodes[0])
	require.Error(t, s.SaveRun(ctx, bad))

	run, err := s.LatestRun(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, good.Run.ID, run.ID)

	g, err := s.LoadGraph(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, good.Graph, g)
}

func TestLoadWithoutRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.LoadSummary(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.LoadGraph(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.LatestRun(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}
