package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/promptpack/promptpack/pkg/trace"
)

// GraphReport renders the dependency graph as a console table: one row per
// node with its outgoing internal references.
func GraphReport(graph *trace.Graph) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	tbl.AppendHeader(table.Row{"File", "Imports", "Symbols"})

	for _, node := range graph.Nodes {
		edges := graph.Edges[node]
		if len(edges) == 0 {
			tbl.AppendRow(table.Row{node, "", ""})

			continue
		}

		for i, edge := range edges {
			name := node
			if i > 0 {
				name = ""
			}

			tbl.AppendRow(table.Row{name, edge.To, strings.Join(edge.Symbols, ", ")})
		}
	}

	summary := graph.Summary()
	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d files", summary.InternalFiles),
		fmt.Sprintf("%d external", summary.Externals),
		fmt.Sprintf("%d unresolved", summary.Unresolved),
	})

	return tbl.Render()
}

// RunStats is what the console summary prints after a generate run.
type RunStats struct {
	Files      int
	TotalBytes int64
	Summary    *trace.Summary
	Skipped    int
	Failures   int
	// Destination names where the pack went: a path, "stdout", or
	// "clipboard".
	Destination string
}

// PrintSummary writes a short colored run summary.
func PrintSummary(w io.Writer, stats RunStats) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	green.Fprintf(w, "packed %d files (%s) -> %s\n",
		stats.Files, humanize.Bytes(uint64(stats.TotalBytes)), stats.Destination)

	if stats.Summary != nil {
		fmt.Fprintf(w, "  dependencies: %d internal, %d external, %d stdlib\n",
			stats.Summary.InternalFiles, stats.Summary.Externals, stats.Summary.Stdlib)

		if stats.Summary.Unresolved > 0 {
			yellow.Fprintf(w, "  unresolved references: %d\n", stats.Summary.Unresolved)
		}
	}

	if stats.Skipped > 0 {
		fmt.Fprintf(w, "  skipped by usage filter: %d\n", stats.Skipped)
	}

	if stats.Failures > 0 {
		red.Fprintf(w, "  files failed to parse: %d\n", stats.Failures)
	}
}
