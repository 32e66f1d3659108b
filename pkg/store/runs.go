package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ritzau/archscope/pkg/model"
)

// SaveRun replaces the project's previous artifacts with the given run. Either all rows
// are written or none: a failure rolls back and the previous run stays readable.
func (s *Store) SaveRun(ctx context.Context, a *RunArtifacts) (err error) {
	unlock := s.lock(ctx)
	defer unlock()

	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer endFn(&err)

	projectID, runID := a.Run.ProjectID, a.Run.ID
	for _, table := range artifactTables {
		err = sqlitex.Execute(s.conn, "DELETE FROM "+table+" WHERE project_id = ?",
			&sqlitex.ExecOptions{Args: []any{projectID}})
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = s.insertRun(a); err != nil {
		return err
	}
	exec := func(what, query string, args ...any) error {
		if err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("insert %s: %w", what, err)
		}
		return nil
	}

	for i, f := range a.Files {
		err = exec("file", `INSERT INTO files (project_id, run_id, ord, id, path, module_name, line_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, projectID, runID, i, f.ID, f.Path, f.ModuleName, f.LineCount)
		if err != nil {
			return err
		}
	}
	if a.Graph != nil {
		for i, n := range a.Graph.Nodes {
			err = exec("node", `INSERT INTO graph_nodes (project_id, run_id, ord, id, label, kind)
				VALUES (?, ?, ?, ?, ?, ?)`, projectID, runID, i, n.ID, n.Label, string(n.Kind))
			if err != nil {
				return err
			}
		}
		for i, e := range a.Graph.Edges {
			err = exec("edge", `INSERT INTO graph_edges (project_id, run_id, ord, source, target, label)
				VALUES (?, ?, ?, ?, ?, ?)`, projectID, runID, i, e.From, e.To, string(e.Label))
			if err != nil {
				return err
			}
		}
	}
	for i, c := range a.Complexity {
		err = exec("complexity item", `INSERT INTO complexity_items
			(project_id, run_id, ord, function_name, file_path, score, line_start, line_end, max_nesting)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, runID, i, c.FunctionName, c.FilePath, c.Score, c.LineStart, c.LineEnd, c.MaxNesting)
		if err != nil {
			return err
		}
	}
	if a.Summary != nil {
		if err = s.insertSummary(projectID, runID, a.Summary); err != nil {
			return err
		}
	}

	logger.Debug("saved run", "project", projectID, "run", runID,
		"files", len(a.Files), "complexity_items", len(a.Complexity))
	return nil
}

func (s *Store) insertRun(a *RunArtifacts) error {
	r := a.Run
	err := sqlitex.Execute(s.conn, `INSERT INTO runs (id, project_id, started_at, finished_at, graph_digest)
		VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{r.ID, r.ProjectID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.GraphDigest},
	})
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *Store) insertSummary(projectID, runID string, sum *model.AnalysisSummary) error {
	err := sqlitex.Execute(s.conn, `INSERT INTO summaries
		(project_id, run_id, project_name, total_files, total_functions, total_structs, total_imports)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{projectID, runID, sum.ProjectName, sum.TotalFiles, sum.TotalFunctions,
			sum.TotalStructs, sum.TotalImports},
	})
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	lists := []struct {
		kind   string
		values []string
	}{
		{itemDeadCode, sum.DeadCodeCandidates},
		{itemNote, sum.ArchitectureNotes},
		{itemDiagnostic, sum.Diagnostics},
	}
	for _, list := range lists {
		for i, v := range list.values {
			err := sqlitex.Execute(s.conn, `INSERT INTO summary_items (project_id, run_id, kind, ord, value)
				VALUES (?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{Args: []any{projectID, runID, list.kind, i, v}})
			if err != nil {
				return fmt.Errorf("insert summary %s: %w", list.kind, err)
			}
		}
	}
	return nil
}

// LatestRun returns the run whose artifacts are currently stored for the project
func (s *Store) LatestRun(ctx context.Context, projectID string) (*model.Run, error) {
	unlock := s.lock(ctx)
	defer unlock()
	return s.latestRun(projectID)
}

func (s *Store) latestRun(projectID string) (*model.Run, error) {
	var run *model.Run
	err := sqlitex.Execute(s.conn, `SELECT id, project_id, started_at, finished_at, graph_digest
		FROM runs WHERE project_id = ? ORDER BY finished_at DESC LIMIT 1`, &sqlitex.ExecOptions{
		Args: []any{projectID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			run = &model.Run{
				ID:          stmt.ColumnText(0),
				ProjectID:   stmt.ColumnText(1),
				StartedAt:   parseTime(stmt.ColumnText(2)),
				FinishedAt:  parseTime(stmt.ColumnText(3)),
				GraphDigest: stmt.ColumnText(4),
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run for project %s: %w", projectID, ErrNotFound)
	}
	return run, nil
}

// LoadFiles returns the file listing of the project's latest run
func (s *Store) LoadFiles(ctx context.Context, projectID string) ([]model.FileEntry, error) {
	unlock := s.lock(ctx)
	defer unlock()

	if _, err := s.latestRun(projectID); err != nil {
		return nil, err
	}
	files := make([]model.FileEntry, 0)
	err := sqlitex.Execute(s.conn, `SELECT id, path, module_name, line_count
		FROM files WHERE project_id = ? ORDER BY ord`, &sqlitex.ExecOptions{
		Args: []any{projectID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			files = append(files, model.FileEntry{
				ID:         stmt.ColumnText(0),
				Path:       stmt.ColumnText(1),
				ModuleName: stmt.ColumnText(2),
				LineCount:  stmt.ColumnInt(3),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	return files, nil
}

// LoadGraph returns the graph of the project's latest run
func (s *Store) LoadGraph(ctx context.Context, projectID string) (*model.GraphData, error) {
	unlock := s.lock(ctx)
	defer unlock()

	if _, err := s.latestRun(projectID); err != nil {
		return nil, err
	}
	g := model.NewGraphData()
	err := sqlitex.Execute(s.conn, `SELECT id, label, kind FROM graph_nodes WHERE project_id = ? ORDER BY ord`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				g.Nodes = append(g.Nodes, model.GraphNode{
					ID:    stmt.ColumnText(0),
					Label: stmt.ColumnText(1),
					Kind:  model.NodeKind(stmt.ColumnText(2)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	err = sqlitex.Execute(s.conn, `SELECT source, target, label FROM graph_edges WHERE project_id = ? ORDER BY ord`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				g.Edges = append(g.Edges, model.GraphEdge{
					From:  stmt.ColumnText(0),
					To:    stmt.ColumnText(1),
					Label: model.EdgeLabel(stmt.ColumnText(2)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	return g, nil
}

// LoadComplexity returns the complexity list of the project's latest run
func (s *Store) LoadComplexity(ctx context.Context, projectID string) ([]model.ComplexityItem, error) {
	unlock := s.lock(ctx)
	defer unlock()

	if _, err := s.latestRun(projectID); err != nil {
		return nil, err
	}
	return s.complexity(projectID)
}

func (s *Store) complexity(projectID string) ([]model.ComplexityItem, error) {
	items := make([]model.ComplexityItem, 0)
	err := sqlitex.Execute(s.conn, `SELECT function_name, file_path, score, line_start, line_end, max_nesting
		FROM complexity_items WHERE project_id = ? ORDER BY ord`, &sqlitex.ExecOptions{
		Args: []any{projectID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			items = append(items, model.ComplexityItem{
				FunctionName: stmt.ColumnText(0),
				FilePath:     stmt.ColumnText(1),
				Score:        stmt.ColumnInt(2),
				LineStart:    stmt.ColumnInt(3),
				LineEnd:      stmt.ColumnInt(4),
				MaxNesting:   stmt.ColumnInt(5),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query complexity: %w", err)
	}
	return items, nil
}

// LoadSummary returns the summary of the project's latest run. The average complexity is
// recomputed from the stored complexity items.
func (s *Store) LoadSummary(ctx context.Context, projectID string) (*model.AnalysisSummary, error) {
	unlock := s.lock(ctx)
	defer unlock()

	var sum *model.AnalysisSummary
	err := sqlitex.Execute(s.conn, `SELECT project_name, total_files, total_functions, total_structs, total_imports
		FROM summaries WHERE project_id = ?`, &sqlitex.ExecOptions{
		Args: []any{projectID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sum = &model.AnalysisSummary{
				ProjectID:          projectID,
				ProjectName:        stmt.ColumnText(0),
				TotalFiles:         stmt.ColumnInt(1),
				TotalFunctions:     stmt.ColumnInt(2),
				TotalStructs:       stmt.ColumnInt(3),
				TotalImports:       stmt.ColumnInt(4),
				DeadCodeCandidates: make([]string, 0),
				ArchitectureNotes:  make([]string, 0),
				Diagnostics:        make([]string, 0),
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	if sum == nil {
		return nil, fmt.Errorf("summary for project %s: %w", projectID, ErrNotFound)
	}

	err = sqlitex.Execute(s.conn, `SELECT kind, value FROM summary_items WHERE project_id = ? ORDER BY kind, ord`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				v := stmt.ColumnText(1)
				switch stmt.ColumnText(0) {
				case itemDeadCode:
					sum.DeadCodeCandidates = append(sum.DeadCodeCandidates, v)
				case itemNote:
					sum.ArchitectureNotes = append(sum.ArchitectureNotes, v)
				case itemDiagnostic:
					sum.Diagnostics = append(sum.Diagnostics, v)
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query summary items: %w", err)
	}

	items, err := s.complexity(projectID)
	if err != nil {
		return nil, err
	}
	sum.AvgComplexity = model.AverageScore(items)
	return sum, nil
}
