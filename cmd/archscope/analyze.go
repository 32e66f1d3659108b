package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/archscope/pkg/analysis"
	"github.com/ritzau/archscope/pkg/model"
	"github.com/ritzau/archscope/pkg/output"
)

// report is the --format json document
type report struct {
	ProjectID   string                 `json:"project_id"`
	GraphDigest string                 `json:"graph_digest"`
	Summary     *model.AnalysisSummary `json:"summary"`
	Complexity  []model.ComplexityItem `json:"complexity"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	githubURL, _ := cmd.Flags().GetString("github-url")
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	if githubURL != "" && len(args) > 0 {
		return errors.New("give either a path or --github-url, not both")
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ref := analysis.ProjectRef{Name: name, RemoteURL: githubURL}
	if githubURL == "" {
		ref.Path = a.cfg.Workspace
		if len(args) > 0 {
			ref.Path = args[0]
		}
	}

	res, err := a.runner.Analyze(cmd.Context(), ref)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report{
			ProjectID:   res.Project.ID,
			GraphDigest: res.Run.GraphDigest,
			Summary:     res.Summary,
			Complexity:  res.Complexity,
		})
	}
	output.PrintReport(os.Stdout, res.Summary, res.Complexity, a.cfg.Thresholds.MaxComplexity)
	return nil
}
