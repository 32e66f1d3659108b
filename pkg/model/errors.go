package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for an AnalyzeRequest naming neither a path nor a URL
var ErrInvalidRequest = errors.New("analyze request needs a path or a github_url")

// CollectionError is returned when the project root cannot be enumerated
type CollectionError struct {
	Root string
	Err  error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect %s: %v", e.Root, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// ParseWarning is a recovered per-file problem surfaced in the run summary
type ParseWarning struct {
	Path       string
	Diagnostic Diagnostic
}

func (w ParseWarning) String() string {
	if w.Diagnostic.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.Path, w.Diagnostic.Line, w.Diagnostic.Message)
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Diagnostic.Message)
}

// ResolutionAmbiguity records a reference that matched more than one entity.
// The reference is resolved to every candidate.
type ResolutionAmbiguity struct {
	Source     string   `json:"source"`
	RawTarget  string   `json:"raw_target"`
	Candidates []string `json:"candidates"`
}

func (a ResolutionAmbiguity) String() string {
	return fmt.Sprintf("ambiguous reference %q from %s resolved to %d candidates: %s",
		a.RawTarget, a.Source, len(a.Candidates), strings.Join(a.Candidates, ", "))
}

// Stage names a pipeline stage in an AnalysisError
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageCollect Stage = "collect"
	StageParse   Stage = "parse"
	StageResolve Stage = "resolve"
	StageScore   Stage = "score"
	StagePersist Stage = "persist"
	StageExport  Stage = "export"
)

// AnalysisError wraps the first fatal failure of a run
type AnalysisError struct {
	Stage Stage
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed during %s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
