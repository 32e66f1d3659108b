// Package web serves analysis results over a JSON HTTP API with Server-Sent Events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/archscope/pkg/graph"
	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
	"github.com/ritzau/archscope/pkg/pubsub"
	"github.com/ritzau/archscope/pkg/store"
)

var logger = logging.New("web")

// Analyzer runs one analysis
type Analyzer interface {
	AnalyzeRequest(ctx context.Context, req model.AnalyzeRequest) (*model.AnalyzeResponse, error)
}

// Repository reads stored analysis artifacts. Only the latest run of a project is kept.
type Repository interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	LatestRun(ctx context.Context, projectID string) (*model.Run, error)
	LoadSummary(ctx context.Context, projectID string) (*model.AnalysisSummary, error)
	LoadFiles(ctx context.Context, projectID string) ([]model.FileEntry, error)
	LoadGraph(ctx context.Context, projectID string) (*model.GraphData, error)
	LoadComplexity(ctx context.Context, projectID string) ([]model.ComplexityItem, error)
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	analyzer  Analyzer
	repo      Repository
	publisher pubsub.Publisher
}

// ConfigureTopics sets the replay behaviour of the topics the server streams
func ConfigureTopics(p *pubsub.SSEPublisher) {
	// analysis_status: buffer last 10 events, replay only last event to new subscribers
	p.ConfigureTopic(pubsub.TopicAnalysisStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false, // Only send current state
	})

	// graph: buffer last 5 diffs, replay only the latest
	p.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})
}

// NewServer creates a new web server
func NewServer(analyzer Analyzer, repo Repository, publisher pubsub.Publisher) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		analyzer:  analyzer,
		repo:      repo,
		publisher: publisher,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the request logging middleware
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/analysis_status", s.handleSubscribe(pubsub.TopicAnalysisStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribe(pubsub.TopicGraph)).Methods("GET")

	s.router.HandleFunc("/api/analyze", s.handleAnalyze).Methods("POST")
	s.router.HandleFunc("/api/projects", s.handleProjects).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/files", s.handleFiles).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/complexity", s.handleComplexity).Methods("GET")
	s.router.HandleFunc("/api/projects/{id}/imports", s.handleImports).Methods("GET")
}

// handleSubscribe streams one topic. With ?project=<id> only that project's events are sent.
func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		// Send initial comment to establish connection (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		flush(w)

		project := r.URL.Query().Get("project")
		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if project != "" && event.Key != project {
					continue
				}
				if err := pubsub.WriteSSE(w, event); err != nil {
					logger.Warn("error writing SSE event", "topic", topic, "error", err)
					return
				}
				flush(w)
			}
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := s.analyzer.AnalyzeRequest(r.Context(), req)
	if err != nil {
		var analysisErr *model.AnalysisError
		switch {
		case errors.Is(err, model.ErrInvalidRequest):
			writeError(w, r, http.StatusBadRequest, err)
		case errors.As(err, &analysisErr):
			writeError(w, r, http.StatusUnprocessableEntity, err)
		default:
			writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, r, resp)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.repo.ListProjects(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, projects)
}

// retainedRun answers ?run=<id> on artifact endpoints: an id other than the retained
// run is reported as not found. It returns false once it has written an error.
func (s *Server) retainedRun(w http.ResponseWriter, r *http.Request) bool {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		return true
	}
	run, err := s.repo.LatestRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return false
	}
	if run.ID != runID {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("run %s: %w", runID, store.ErrNotFound))
		return false
	}
	return true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.retainedRun(w, r) {
		return
	}
	summary, err := s.repo.LoadSummary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, summary)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if !s.retainedRun(w, r) {
		return
	}
	files, err := s.repo.LoadFiles(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, files)
}

// handleGraph returns the whole graph, or with ?focus=<node id>&depth=N the neighbourhood
// of one node (depth defaults to 1)
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if !s.retainedRun(w, r) {
		return
	}
	g, err := s.repo.LoadGraph(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	focus := r.URL.Query().Get("focus")
	if focus == "" {
		writeJSON(w, r, g)
		return
	}

	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		depth, err = strconv.Atoi(raw)
		if err != nil || depth < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid depth %q", raw))
			return
		}
	}
	focused, ok := graph.Focus(g, focus, depth)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("node %s not found", focus))
		return
	}
	writeJSON(w, r, focused)
}

func (s *Server) handleComplexity(w http.ResponseWriter, r *http.Request) {
	if !s.retainedRun(w, r) {
		return
	}
	items, err := s.repo.LoadComplexity(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, r, items)
}

// FileImports lists the files one file imports and the files importing it
type FileImports struct {
	Path       string   `json:"path"`
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"imported_by"`
}

// handleImports answers ?file=<path> from the file-level import graph of the latest run
func (s *Server) handleImports(w http.ResponseWriter, r *http.Request) {
	if !s.retainedRun(w, r) {
		return
	}
	path := r.URL.Query().Get("file")
	if path == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("missing file parameter"))
		return
	}
	g, err := s.repo.LoadGraph(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	fg := graph.FileGraphFrom(g)
	if _, ok := fg.GetNode(path); !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("file %s not found", path))
		return
	}
	resp := FileImports{
		Path:       path,
		Imports:    fg.GetDependencies(path),
		ImportedBy: fg.GetDependents(path),
	}
	if resp.Imports == nil {
		resp.Imports = []string{}
	}
	if resp.ImportedBy == nil {
		resp.ImportedBy = []string{}
	}
	writeJSON(w, r, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.WarnContext(r.Context(), "request error", "status", status, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	writeError(w, r, http.StatusInternalServerError, err)
}

// Start serves the API on the given port until ctx is canceled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams end when ctx is canceled
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down web server")
		return srv.Shutdown(shutdownCtx)
	}
}
