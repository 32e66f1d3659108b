package model

import "time"

// Project is a named source tree that owns analysis runs
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	RemoteURL string    `json:"remote_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run is one full execution of the pipeline for a project
type Run struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	GraphDigest string    `json:"graph_digest"`
}

// AnalyzeRequest starts a run for a local path or a remote repository
type AnalyzeRequest struct {
	ProjectName string `json:"project_name,omitempty"`
	Path        string `json:"path,omitempty"`
	GithubURL   string `json:"github_url,omitempty"`
}

// AnalyzeResponse reports a completed run
type AnalyzeResponse struct {
	ProjectID      string `json:"project_id"`
	FilesAnalyzed  int    `json:"files_analyzed"`
	FunctionsFound int    `json:"functions_found"`
	Message        string `json:"message"`
}
