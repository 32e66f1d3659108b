package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ritzau/archscope/pkg/analysis"
	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/watcher"
)

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	root := a.cfg.Workspace
	if len(args) > 0 {
		root = args[0]
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	ref := analysis.ProjectRef{Name: name, Path: root}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var serverErr <-chan error
	if cmd.Flags().Changed("port") {
		a.enablePublisher()
		serverErr = a.serveAsync(ctx, a.cfg.Port)
	}

	analyze := func() {
		res, err := a.runner.Analyze(ctx, ref)
		if err != nil {
			logging.Error("analysis failed", "error", err)
			return
		}
		logging.Info("analysis updated",
			"project", res.Project.Name,
			"files", res.Summary.TotalFiles,
			"notes", len(res.Summary.ArchitectureNotes),
			"changes", len(res.Diff.AddedNodes)+len(res.Diff.RemovedNodes)+len(res.Diff.ModifiedNodes))
	}
	analyze()

	opts := analysis.OptionsFromConfig(a.cfg, a.parser)
	fw, err := watcher.NewFileWatcher(root, watcher.Options{
		Extensions: opts.Collect.Extensions,
		Ignore:     opts.Collect.Ignore,
	})
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}
	debouncer := watcher.NewDebouncer(fw.Events(), a.cfg.Watch.QuietPeriod(), a.cfg.Watch.MaxWait())
	debouncer.Start(ctx)

	logging.Info("watching for changes", "root", root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return err
		case event, ok := <-debouncer.Output():
			if !ok {
				return nil
			}
			batch := []watcher.ChangeEvent{event}
			for drained := false; !drained; {
				select {
				case more, ok := <-debouncer.Output():
					if !ok {
						drained = true
						break
					}
					batch = append(batch, more)
				default:
					drained = true
				}
			}
			changes := watcher.AnalyzeChanges(batch, root)
			if !changes.NeedsReanalysis() {
				logging.Debug("ignoring empty change batch")
				continue
			}
			if changes.ManifestChanged {
				logging.Info("project configuration changed", "files", changes.ChangedFiles)
			} else {
				logging.Info("changes detected", "files", len(changes.ChangedFiles))
			}
			analyze()
		}
	}
}
