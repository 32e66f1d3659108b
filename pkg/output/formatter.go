// Package output renders analysis results for the console.
package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/ritzau/archscope/pkg/model"
)

// TopComplexity is the number of functions listed in the complexity section
const TopComplexity = 10

// PrintReport prints a nicely formatted analysis report with colors
func PrintReport(w io.Writer, summary *model.AnalysisSummary, items []model.ComplexityItem, maxComplexity int) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "archscope - Architecture Report")
	bold.Fprintln(w, "===============================")
	fmt.Fprintf(w, "Project: %s (%s)\n", summary.ProjectName, summary.ProjectID)
	fmt.Fprintf(w, "Files: %d  Functions: %d  Types: %d  Imports: %d\n",
		summary.TotalFiles, summary.TotalFunctions, summary.TotalStructs, summary.TotalImports)

	avgColor := green
	if summary.AvgComplexity > float64(maxComplexity)/2 {
		avgColor = yellow
	}
	if summary.AvgComplexity > float64(maxComplexity) {
		avgColor = red
	}
	avgColor.Fprintf(w, "Average complexity: %.2f\n", summary.AvgComplexity)
	fmt.Fprintln(w)

	// Most complex functions, highest first; ties keep source order
	if len(items) > 0 {
		ranked := append([]model.ComplexityItem(nil), items...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
		if len(ranked) > TopComplexity {
			ranked = ranked[:TopComplexity]
		}

		bold.Fprintln(w, "MOST COMPLEX FUNCTIONS:")
		for _, item := range ranked {
			line := fmt.Sprintf("  %4d  %s (%s:%d-%d) nesting %d\n",
				item.Score, item.FunctionName, item.FilePath, item.LineStart, item.LineEnd, item.MaxNesting)
			if item.Score > maxComplexity {
				red.Fprint(w, line)
				continue
			}
			fmt.Fprint(w, line)
		}
		fmt.Fprintln(w)
	}

	if len(summary.DeadCodeCandidates) > 0 {
		yellow.Fprintf(w, "DEAD CODE CANDIDATES (%d):\n", len(summary.DeadCodeCandidates))
		for _, id := range summary.DeadCodeCandidates {
			fmt.Fprintf(w, "  %s\n", id)
		}
		fmt.Fprintln(w)
	}

	if len(summary.ArchitectureNotes) > 0 {
		cyan.Fprintln(w, "ARCHITECTURE NOTES:")
		for _, note := range summary.ArchitectureNotes {
			fmt.Fprintf(w, "  - %s\n", note)
		}
		fmt.Fprintln(w)
	}

	if len(summary.Diagnostics) > 0 {
		yellow.Fprintf(w, "WARNINGS (%d):\n", len(summary.Diagnostics))
		for _, d := range summary.Diagnostics {
			fmt.Fprintf(w, "  %s\n", d)
		}
		fmt.Fprintln(w)
	}

	if len(summary.DeadCodeCandidates) == 0 && len(summary.ArchitectureNotes) == 0 {
		green.Fprintln(w, "✓ No dead code candidates or architecture notes")
	}
}
