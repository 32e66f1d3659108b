// Package store persists projects and the artifacts of their latest analysis run in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
)

// ErrNotFound is returned when a project or run does not exist
var ErrNotFound = errors.New("not found")

var logger = logging.New("store")

// Store wraps one SQLite connection. Calls are serialised on the connection.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	now  func() time.Time
}

// RunArtifacts is everything one successful run produces
type RunArtifacts struct {
	Run        model.Run
	Files      []model.FileEntry
	Graph      *model.GraphData
	Complexity []model.ComplexityItem
	Summary    *model.AnalysisSummary
}

// Open opens (or creates) the database at path and applies the schema
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{"PRAGMA synchronous = NORMAL", "PRAGMA busy_timeout = 5000"} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	for _, stmt := range schema {
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	logger.Debug("opened database", "path", path)
	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// lock serialises access to the connection and makes ctx interrupt running statements.
// The returned function must be called when done.
func (s *Store) lock(ctx context.Context) func() {
	s.mu.Lock()
	s.conn.SetInterrupt(ctx.Done())
	return func() {
		s.conn.SetInterrupt(nil)
		s.mu.Unlock()
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		logger.Warn("malformed timestamp", "value", s, "error", err)
	}
	return t
}

// UpsertProject returns the project identified by (name, path), creating it with a fresh
// id when it does not exist and bumping updated_at otherwise
func (s *Store) UpsertProject(ctx context.Context, name, path, remoteURL string) (_ *model.Project, err error) {
	unlock := s.lock(ctx)
	defer unlock()

	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return nil, fmt.Errorf("begin upsert project: %w", err)
	}
	defer endFn(&err)

	now := s.now()
	existing, err := s.queryProjects(`SELECT id, name, path, remote_url, created_at, updated_at
		FROM projects WHERE name = ? AND path = ?`, name, path)
	if err != nil {
		return nil, err
	}

	if len(existing) == 1 {
		p := existing[0]
		p.UpdatedAt = now.UTC()
		if remoteURL != "" {
			p.RemoteURL = remoteURL
		}
		err = sqlitex.Execute(s.conn, `UPDATE projects SET updated_at = ?, remote_url = ? WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{formatTime(now), p.RemoteURL, p.ID}})
		if err != nil {
			return nil, fmt.Errorf("update project %s: %w", p.ID, err)
		}
		return &p, nil
	}

	p := model.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		RemoteURL: remoteURL,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	err = sqlitex.Execute(s.conn, `INSERT INTO projects (id, name, path, remote_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{p.ID, p.Name, p.Path, p.RemoteURL, formatTime(now), formatTime(now)}})
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	logger.Info("created project", "id", p.ID, "name", name, "path", path)
	return &p, nil
}

// GetProject returns a project by id
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	unlock := s.lock(ctx)
	defer unlock()

	projects, err := s.queryProjects(`SELECT id, name, path, remote_url, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &projects[0], nil
}

// ListProjects returns all projects ordered by name
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	unlock := s.lock(ctx)
	defer unlock()

	return s.queryProjects(`SELECT id, name, path, remote_url, created_at, updated_at
		FROM projects ORDER BY name, path`)
}

func (s *Store) queryProjects(query string, args ...any) ([]model.Project, error) {
	projects := make([]model.Project, 0)
	err := sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			projects = append(projects, model.Project{
				ID:        stmt.ColumnText(0),
				Name:      stmt.ColumnText(1),
				Path:      stmt.ColumnText(2),
				RemoteURL: stmt.ColumnText(3),
				CreatedAt: parseTime(stmt.ColumnText(4)),
				UpdatedAt: parseTime(stmt.ColumnText(5)),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	return projects, nil
}
