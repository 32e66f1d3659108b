// Package export copies a run graph into Neo4j.
package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement
const DefaultBatchSize = 1000

var logger = logging.New("export")

// Runner executes one Cypher statement
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
	Close(ctx context.Context) error
}

type driverRunner struct {
	driver neo4j.DriverWithContext
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Connect opens a driver and verifies the server is reachable
func Connect(ctx context.Context, uri, user, password string) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j at %s unreachable: %w", uri, err)
	}
	return New(&driverRunner{driver: driver}), nil
}

// Exporter upserts project graphs with batched UNWIND queries
type Exporter struct {
	runner    Runner
	batchSize int
}

// New creates an exporter on top of a runner
func New(runner Runner) *Exporter {
	return &Exporter{runner: runner, batchSize: DefaultBatchSize}
}

// Close releases the underlying driver
func (e *Exporter) Close(ctx context.Context) error {
	return e.runner.Close(ctx)
}

var nodeLabels = map[model.NodeKind]string{
	model.NodeKindFile:     "File",
	model.NodeKindFunction: "Function",
	model.NodeKindType:     "Type",
}

var relTypes = map[model.EdgeLabel]string{
	model.EdgeImports:    "IMPORTS",
	model.EdgeCalls:      "CALLS",
	model.EdgeContains:   "CONTAINS",
	model.EdgeReferences: "REFERENCES",
}

var indexes = []string{
	"CREATE INDEX archscope_node_key IF NOT EXISTS FOR (n:ArchNode) ON (n.project_id, n.id)",
}

// Export replaces the project's graph in Neo4j with g
func (e *Exporter) Export(ctx context.Context, projectID string, g *model.GraphData) error {
	for _, q := range indexes {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	err := e.runner.Run(ctx, "MATCH (n:ArchNode {project_id: $project}) DETACH DELETE n",
		map[string]any{"project": projectID})
	if err != nil {
		return fmt.Errorf("clear project graph: %w", err)
	}

	// Labels and relationship types cannot be parameters, so rows are grouped by them
	for _, kind := range []model.NodeKind{model.NodeKindFile, model.NodeKindFunction, model.NodeKindType} {
		rows := make([]map[string]any, 0)
		for _, n := range g.Nodes {
			if n.Kind == kind {
				rows = append(rows, map[string]any{"id": n.ID, "label": n.Label})
			}
		}
		cypher := fmt.Sprintf(`UNWIND $batch AS row
			MERGE (n:ArchNode:%s {project_id: $project, id: row.id})
			SET n.label = row.label, n.kind = '%s'`, nodeLabels[kind], kind)
		if err := e.batched(ctx, cypher, projectID, rows); err != nil {
			return fmt.Errorf("export %s nodes: %w", kind, err)
		}
	}

	for _, label := range []model.EdgeLabel{model.EdgeContains, model.EdgeImports, model.EdgeCalls, model.EdgeReferences} {
		rows := make([]map[string]any, 0)
		for _, edge := range g.Edges {
			if edge.Label == label {
				rows = append(rows, map[string]any{"from": edge.From, "to": edge.To})
			}
		}
		cypher := fmt.Sprintf(`UNWIND $batch AS row
			MATCH (a:ArchNode {project_id: $project, id: row.from}), (b:ArchNode {project_id: $project, id: row.to})
			MERGE (a)-[:%s]->(b)`, relTypes[label])
		if err := e.batched(ctx, cypher, projectID, rows); err != nil {
			return fmt.Errorf("export %s edges: %w", label, err)
		}
	}

	logger.Info("exported graph to neo4j", "project", projectID, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

func (e *Exporter) batched(ctx context.Context, cypher, projectID string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.batchSize {
		end := min(start+e.batchSize, len(rows))
		params := map[string]any{"project": projectID, "batch": rows[start:end]}
		if err := e.runner.Run(ctx, cypher, params); err != nil {
			return err
		}
	}
	return nil
}
