package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/archscope/pkg/analysis"
	"github.com/ritzau/archscope/pkg/config"
	"github.com/ritzau/archscope/pkg/export"
	"github.com/ritzau/archscope/pkg/fetch"
	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/parser"
	"github.com/ritzau/archscope/pkg/pubsub"
	"github.com/ritzau/archscope/pkg/store"
	"github.com/ritzau/archscope/pkg/web"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "archscope",
		Short: "Static architecture analysis for Rust and Go projects",
		Long: `archscope parses a source tree, resolves dependencies between files,
functions and types, and reports complexity, dead-code candidates and
architecture notes. Results are stored per project and served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (archscope.toml or archscope.yaml by default)")
	flags.String("db", "", "SQLite database path")
	flags.Int("workers", 0, "Parallel parse and resolve workers")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.Bool("json", false, "Log as JSON")
	flags.String("log-file", "", "Append logs to this file instead of stderr")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a project once and print a report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().String("name", "", "Project name (defaults to the directory or repository name)")
	analyzeCmd.Flags().String("github-url", "", "Clone and analyze a public GitHub repository")
	analyzeCmd.Flags().String("format", "text", "Report format: text|json")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and live analysis events",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().Int("port", 0, "HTTP port")

	watchCmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Re-analyze a project whenever its sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().String("name", "", "Project name (defaults to the directory name)")
	watchCmd.Flags().Int("port", 0, "Also serve the HTTP API on this port")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("archscope v%s\n", version)
		},
	}

	rootCmd.AddCommand(analyzeCmd, serveCmd, watchCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app is the wired pipeline shared by all subcommands
type app struct {
	cfg       *config.Config
	parser    *parser.Parser
	store     *store.Store
	runner    *analysis.Runner
	exporter  *export.Exporter
	publisher *pubsub.SSEPublisher
	logFile   *os.File
}

// setup loads configuration, configures logging and wires the runner
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	level := logging.LevelFromConfig(cfg.Verbosity, cfg.VerboseCnt)
	var logFile *os.File
	if cfg.LogFile != "" {
		logFile, err = os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
		}
		logging.SetOutput(logFile, level)
	}
	if cfg.JSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("opening database %s: %w", cfg.DB, err)
	}

	p := parser.Default()
	runner := analysis.NewRunner(p, st, analysis.OptionsFromConfig(cfg, p))
	runner.SetFetcher(fetch.NewFetcher(cfg.Fetch.Dir, fetch.NewExecutor()))

	a := &app{cfg: cfg, parser: p, store: st, runner: runner, logFile: logFile}

	if cfg.Neo4j.URI != "" {
		exporter, err := export.Connect(cmd.Context(), cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
		if err != nil {
			logging.Warn("neo4j export disabled", "uri", cfg.Neo4j.URI, "error", err)
		} else {
			a.exporter = exporter
			runner.SetExporter(exporter)
		}
	}

	logging.Debug("configuration loaded", "db", cfg.DB, "workers", cfg.Workers)
	return a, nil
}

// enablePublisher attaches an SSE publisher for the HTTP API
func (a *app) enablePublisher() *pubsub.SSEPublisher {
	a.publisher = pubsub.NewSSEPublisher()
	web.ConfigureTopics(a.publisher)
	a.runner.SetPublisher(a.publisher)
	return a.publisher
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.exporter != nil {
		if err := a.exporter.Close(context.Background()); err != nil {
			logging.Warn("closing neo4j driver", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logging.Warn("closing database", "error", err)
	}
	if a.logFile != nil {
		logging.SetOutput(os.Stderr, logging.LevelFromConfig(a.cfg.Verbosity, a.cfg.VerboseCnt))
		_ = a.logFile.Close()
	}
}

// serveAsync starts the HTTP server in the background
func (a *app) serveAsync(ctx context.Context, port int) <-chan error {
	server := web.NewServer(a.runner, a.store, a.publisher)
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(ctx, port)
	}()
	return errc
}
