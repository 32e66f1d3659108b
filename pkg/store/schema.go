package store

// schema is applied on every Open. Every artifact row carries the project id, the run id
// and an ord column so a run reads back in the exact order it was produced.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		remote_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (name, path)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		graph_digest TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		id TEXT NOT NULL,
		path TEXT NOT NULL,
		module_name TEXT NOT NULL DEFAULT '',
		line_count INTEGER NOT NULL,
		PRIMARY KEY (project_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS graph_nodes (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		id TEXT NOT NULL,
		label TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (project_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS graph_edges (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS complexity_items (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		function_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		score INTEGER NOT NULL,
		line_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		max_nesting INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		project_name TEXT NOT NULL,
		total_files INTEGER NOT NULL,
		total_functions INTEGER NOT NULL,
		total_structs INTEGER NOT NULL,
		total_imports INTEGER NOT NULL,
		PRIMARY KEY (project_id)
	)`,
	`CREATE TABLE IF NOT EXISTS summary_items (
		project_id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		ord INTEGER NOT NULL,
		value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_project ON runs (project_id, finished_at)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_project ON graph_edges (project_id, ord)`,
	`CREATE INDEX IF NOT EXISTS idx_complexity_project ON complexity_items (project_id, ord)`,
	`CREATE INDEX IF NOT EXISTS idx_summary_items_project ON summary_items (project_id, kind, ord)`,
}

// artifactTables hold one run's rows per project; SaveRun clears them before inserting
var artifactTables = []string{
	"files", "graph_nodes", "graph_edges", "complexity_items", "summaries", "summary_items", "runs",
}

const (
	itemDeadCode   = "dead_code"
	itemNote       = "note"
	itemDiagnostic = "diagnostic"
)
