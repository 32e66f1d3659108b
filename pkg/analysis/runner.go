// Package analysis runs the full pipeline for one project and publishes the results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/archscope/pkg/complexity"
	"github.com/ritzau/archscope/pkg/config"
	"github.com/ritzau/archscope/pkg/deadcode"
	"github.com/ritzau/archscope/pkg/fetch"
	"github.com/ritzau/archscope/pkg/finder"
	"github.com/ritzau/archscope/pkg/graph"
	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
	"github.com/ritzau/archscope/pkg/notes"
	"github.com/ritzau/archscope/pkg/parser"
	"github.com/ritzau/archscope/pkg/pubsub"
	"github.com/ritzau/archscope/pkg/resolver"
	"github.com/ritzau/archscope/pkg/store"
)

var logger = logging.New("analysis")

// ErrNoParseableFiles is the parse-stage failure when every collected file was undecodable
var ErrNoParseableFiles = errors.New("no collected file could be parsed")

// totalSteps is the number of progress steps of a run
const totalSteps = 8

// Repository stores projects and run artifacts
type Repository interface {
	UpsertProject(ctx context.Context, name, path, remoteURL string) (*model.Project, error)
	SaveRun(ctx context.Context, a *store.RunArtifacts) error
	LoadGraph(ctx context.Context, projectID string) (*model.GraphData, error)
}

// Fetcher clones remote repositories
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Exporter copies a run graph to an external graph database
type Exporter interface {
	Export(ctx context.Context, projectID string, g *model.GraphData) error
}

// Options configures the pipeline stages
type Options struct {
	Workers  int
	Collect  finder.Options
	DeadCode deadcode.Options
	Notes    notes.Options
}

// OptionsFromConfig maps the configuration onto pipeline options. Extensions default to
// the ones the parser has frontends for.
func OptionsFromConfig(cfg *config.Config, p *parser.Parser) Options {
	extensions := cfg.Collect.Extensions
	if len(extensions) == 0 {
		extensions = p.Extensions()
	}
	return Options{
		Workers: cfg.Workers,
		Collect: finder.Options{Extensions: extensions, Ignore: cfg.Collect.Ignore},
		DeadCode: deadcode.Options{
			EntryPoints:    cfg.DeadCode.EntryPoints,
			ExemptExported: cfg.DeadCode.ExemptExported,
			ExemptTests:    cfg.DeadCode.ExemptTests,
		},
		Notes: notes.Options{
			MaxFileLines:  cfg.Thresholds.MaxFileLines,
			MaxComplexity: cfg.Thresholds.MaxComplexity,
			MaxFanIn:      cfg.Thresholds.MaxFanIn,
		},
	}
}

// ProjectRef names the tree to analyse: a local path, or a remote URL to clone
type ProjectRef struct {
	Name      string
	Path      string
	RemoteURL string
}

// Result is everything one successful run produced
type Result struct {
	Project    *model.Project
	Run        model.Run
	Files      []*model.ParsedFile
	Graph      *model.GraphData
	Complexity []model.ComplexityItem
	Summary    *model.AnalysisSummary
	Diff       *graph.GraphDiff
}

// Runner orchestrates the analysis process
type Runner struct {
	parser    *parser.Parser
	repo      Repository
	fetcher   Fetcher
	exporter  Exporter
	publisher pubsub.Publisher
	opts      Options
	locks     *keyedMutex
	now       func() time.Time
}

// NewRunner creates a runner. Fetcher, exporter and publisher are optional.
func NewRunner(p *parser.Parser, repo Repository, opts Options) *Runner {
	if len(opts.Collect.Extensions) == 0 {
		opts.Collect.Extensions = p.Extensions()
	}
	return &Runner{
		parser: p,
		repo:   repo,
		opts:   opts,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

// SetFetcher enables remote repositories
func (r *Runner) SetFetcher(f Fetcher) {
	r.fetcher = f
}

// SetExporter enables graph export after each successful run
func (r *Runner) SetExporter(e Exporter) {
	r.exporter = e
}

// SetPublisher enables progress and graph diff events
func (r *Runner) SetPublisher(p pubsub.Publisher) {
	r.publisher = p
}

// AnalyzeRequest runs the pipeline for an API request
func (r *Runner) AnalyzeRequest(ctx context.Context, req model.AnalyzeRequest) (*model.AnalyzeResponse, error) {
	if req.Path == "" && req.GithubURL == "" {
		return nil, model.ErrInvalidRequest
	}
	res, err := r.Analyze(ctx, ProjectRef{Name: req.ProjectName, Path: req.Path, RemoteURL: req.GithubURL})
	if err != nil {
		return nil, err
	}
	return &model.AnalyzeResponse{
		ProjectID:      res.Project.ID,
		FilesAnalyzed:  res.Summary.TotalFiles,
		FunctionsFound: res.Summary.TotalFunctions,
		Message: fmt.Sprintf("Analysis complete: %d files, %d functions, %d notes",
			res.Summary.TotalFiles, res.Summary.TotalFunctions, len(res.Summary.ArchitectureNotes)),
	}, nil
}

// Analyze runs every stage for one project. Runs of the same project are serialised;
// a failed run returns *model.AnalysisError and leaves the stored artifacts untouched.
func (r *Runner) Analyze(ctx context.Context, ref ProjectRef) (*Result, error) {
	key := ref.RemoteURL
	if key == "" {
		abs, err := filepath.Abs(ref.Path)
		if err != nil {
			return nil, &model.AnalysisError{Stage: model.StageCollect, Err: err}
		}
		ref.Path = abs
		key = abs
	}
	unlock := r.locks.Lock(key)
	defer unlock()

	started := r.now()
	run := &pipeline{runner: r, ref: ref}
	res, err := run.execute(ctx)
	if err != nil {
		var analysisErr *model.AnalysisError
		if !errors.As(err, &analysisErr) {
			err = &model.AnalysisError{Stage: run.stage, Err: err}
		}
		logger.ErrorContext(ctx, "analysis failed", "project", ref.Name, "path", ref.Path, "error", err)
		run.status(pubsub.StateFailed, err.Error())
		return nil, err
	}

	logger.InfoContext(ctx, "analysis complete",
		"project", res.Project.Name,
		"files", res.Summary.TotalFiles,
		"functions", res.Summary.TotalFunctions,
		"duration", r.now().Sub(started).Round(time.Millisecond))
	return res, nil
}

// pipeline is the state of one run
type pipeline struct {
	runner    *Runner
	ref       ProjectRef
	projectID string
	stage     model.Stage
	step      int
}

// fail wraps err in an AnalysisError for the current stage
func (p *pipeline) fail(err error) error {
	return &model.AnalysisError{Stage: p.stage, Err: err}
}

func (p *pipeline) enter(stage model.Stage, state, message string) {
	p.stage = stage
	p.step++
	p.status(state, message)
}

func (p *pipeline) status(state, message string) {
	pub := p.runner.publisher
	if pub == nil {
		return
	}
	status := pubsub.AnalysisStatus{
		ProjectID: p.projectID,
		State:     state,
		Message:   message,
		Step:      p.step,
		Total:     totalSteps,
	}
	if state == pubsub.StateFailed {
		status.Error = message
	}
	if err := pub.Publish(pubsub.TopicAnalysisStatus, p.projectID, state, status); err != nil {
		logger.Debug("could not publish status", "state", state, "error", err)
	}
}

func (p *pipeline) execute(ctx context.Context) (*Result, error) {
	r := p.runner
	opts := r.opts
	started := r.now()

	// 1. Fetch
	root := p.ref.Path
	p.enter(model.StageFetch, pubsub.StateFetching, "Resolving project source...")
	if p.ref.RemoteURL != "" {
		if r.fetcher == nil {
			return nil, p.fail(errors.New("remote repositories are not enabled"))
		}
		dir, err := r.fetcher.Fetch(ctx, p.ref.RemoteURL)
		if err != nil {
			return nil, p.fail(err)
		}
		root = dir
	}
	name := p.ref.Name
	if name == "" {
		if p.ref.RemoteURL != "" {
			name = fetch.RepoName(p.ref.RemoteURL)
		} else {
			name = filepath.Base(root)
		}
	}

	project, err := r.repo.UpsertProject(ctx, name, root, p.ref.RemoteURL)
	if err != nil {
		p.stage = model.StagePersist
		return nil, p.fail(err)
	}
	p.projectID = project.ID
	p.status(pubsub.StateStarted, fmt.Sprintf("Analyzing %s", name))

	// 2. Collect
	p.enter(model.StageCollect, pubsub.StateCollecting, "Collecting source files...")
	collection, err := finder.Collect(root, opts.Collect)
	if err != nil {
		return nil, p.fail(err)
	}
	logger.DebugContext(ctx, "collected files", "count", len(collection.Files))

	// 3. Parse
	p.enter(model.StageParse, pubsub.StateParsing, fmt.Sprintf("Parsing %d files...", len(collection.Files)))
	files, err := r.parser.ParseAll(ctx, root, collection.Files, opts.Workers)
	if err != nil {
		return nil, p.fail(err)
	}
	if allUnparseable(files) {
		return nil, p.fail(ErrNoParseableFiles)
	}

	// 4. Resolve
	p.enter(model.StageResolve, pubsub.StateResolving, "Resolving dependencies...")
	var warnings []string
	resolverOpts, err := resolver.LoadOptions(root, collection.Files)
	if err != nil {
		logger.WarnContext(ctx, "could not read manifests", "error", err)
		warnings = append(warnings, fmt.Sprintf("manifest: %v", err))
	}
	resolved, err := resolver.Resolve(ctx, resolver.NewIndex(files, resolverOpts), opts.Workers)
	if err != nil {
		return nil, p.fail(err)
	}

	// 5. Graph, scores, dead code and notes
	p.enter(model.StageScore, pubsub.StateScoring, "Scoring...")
	g := graph.Build(files, resolved.Resolved)

	var items []model.ComplexityItem
	var candidates []string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		items = complexity.Items(files)
		return nil
	})
	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		candidates = deadcode.Detect(g, files, opts.DeadCode)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, p.fail(err)
	}
	architectureNotes := notes.Generate(g, files, items, opts.Notes)

	summary := summarize(project, files, items, candidates, architectureNotes)
	for _, w := range collection.Warnings {
		summary.Diagnostics = append(summary.Diagnostics, w.String())
	}
	for _, f := range files {
		for _, d := range f.Diagnostics {
			summary.Diagnostics = append(summary.Diagnostics, model.ParseWarning{Path: f.Path, Diagnostic: d}.String())
		}
	}
	for _, a := range resolved.Ambiguities {
		summary.Diagnostics = append(summary.Diagnostics, a.String())
	}
	summary.Diagnostics = append(summary.Diagnostics, warnings...)

	// 6. Persist
	p.enter(model.StagePersist, pubsub.StatePersisting, "Saving results...")
	previous, err := r.repo.LoadGraph(ctx, project.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.WarnContext(ctx, "could not load previous graph", "project", project.ID, "error", err)
		}
		previous = nil
	}
	runInfo := model.Run{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		StartedAt:   started,
		FinishedAt:  r.now(),
		GraphDigest: graph.Digest(g),
	}
	err = r.repo.SaveRun(ctx, &store.RunArtifacts{
		Run:        runInfo,
		Files:      fileEntries(files),
		Graph:      g,
		Complexity: items,
		Summary:    summary,
	})
	if err != nil {
		return nil, p.fail(err)
	}

	// 7. Export. The run is already stored, so a failed export only warns.
	p.enter(model.StageExport, pubsub.StateExporting, "Exporting graph...")
	if r.exporter != nil {
		if err := r.exporter.Export(ctx, project.ID, g); err != nil {
			logger.WarnContext(ctx, "graph export failed", "project", project.ID, "error", err)
			p.status(pubsub.StateExporting, fmt.Sprintf("Graph export failed: %v", err))
		}
	}

	// 8. Publish
	diff := graph.Diff(previous, g)
	diff.ProjectID = project.ID
	if r.publisher != nil && !diff.Empty() {
		if err := r.publisher.Publish(pubsub.TopicGraph, project.ID, "graph_diff", diff); err != nil {
			logger.Debug("could not publish graph diff", "error", err)
		}
	}
	p.step = totalSteps
	p.status(pubsub.StateReady, "Analysis complete")

	return &Result{
		Project:    project,
		Run:        runInfo,
		Files:      files,
		Graph:      g,
		Complexity: items,
		Summary:    summary,
		Diff:       diff,
	}, nil
}

// allUnparseable reports a total parse failure. An empty project is not one.
func allUnparseable(files []*model.ParsedFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Unparseable() {
			return false
		}
	}
	return true
}

func summarize(project *model.Project, files []*model.ParsedFile, items []model.ComplexityItem,
	candidates, architectureNotes []string) *model.AnalysisSummary {
	summary := &model.AnalysisSummary{
		ProjectID:          project.ID,
		ProjectName:        project.Name,
		TotalFiles:         len(files),
		TotalFunctions:     len(items),
		AvgComplexity:      model.AverageScore(items),
		DeadCodeCandidates: candidates,
		ArchitectureNotes:  architectureNotes,
		Diagnostics:        make([]string, 0),
	}
	for _, f := range files {
		summary.TotalStructs += len(f.Types)
		summary.TotalImports += len(f.Imports)
	}
	return summary
}

func fileEntries(files []*model.ParsedFile) []model.FileEntry {
	entries := make([]model.FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, model.FileEntry{
			ID:         model.FileNodeID(f.Path),
			Path:       f.Path,
			ModuleName: f.ModuleName,
			LineCount:  f.LineCount,
		})
	}
	return entries
}
