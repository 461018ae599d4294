package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/promptpack/promptpack/internal/output"
	"github.com/promptpack/promptpack/pkg/trace"
)

// Trace report formats.
const (
	traceFormatTable = "table"
	traceFormatJSON  = "json"
	traceFormatYAML  = "yaml"
)

// ErrUnknownTraceFormat marks unsupported trace report formats.
var ErrUnknownTraceFormat = errors.New("unknown trace report format")

// TraceCommand holds flag state for the trace command.
type TraceCommand struct {
	root         string
	sourceRoots  []string
	excludedDirs []string
	filterUnused bool
	maxFiles     int
	workers      int
	format       string
	plot         string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	tc := &TraceCommand{}

	cmd := &cobra.Command{
		Use:   "trace <entry-file>...",
		Short: "Resolve and print the static dependency graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tc.run(cmd, args)
		},
	}

	flags := cmd.Flags()

	flags.StringVar(&tc.root, "root", ".", "project root directory")
	flags.StringSliceVar(&tc.sourceRoots, "source-root", nil, "alternate source root names under the project root")
	flags.StringSliceVar(&tc.excludedDirs, "exclude-dir", nil, "directory names never traversed")
	flags.BoolVar(&tc.filterUnused, "filter-unused", false, "skip imports whose symbols are never used")
	flags.IntVar(&tc.maxFiles, "max-files", 0, "cap on traced files, 0 for no limit")
	flags.IntVar(&tc.workers, "workers", 0, "parallel parse workers, 0 for GOMAXPROCS")
	flags.StringVarP(&tc.format, "format", "f", traceFormatTable, "report format: table, json, or yaml")
	flags.StringVar(&tc.plot, "plot", "", "write the graph as an HTML chart")

	return cmd
}

func (tc *TraceCommand) run(cmd *cobra.Command, entries []string) error {
	root, err := filepath.Abs(tc.root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	engine, err := trace.NewEngine(trace.Options{
		ProjectRoot:  root,
		SourceRoots:  tc.sourceRoots,
		ExcludedDirs: tc.excludedDirs,
		FilterUnused: tc.filterUnused,
		MaxFiles:     tc.maxFiles,
		Workers:      tc.workers,
	})
	if err != nil {
		return err
	}

	abs := make([]string, len(entries))
	for i, entry := range entries {
		abs[i] = filepath.Join(root, filepath.FromSlash(entry))
	}

	result, err := engine.Trace(cmd.Context(), abs)
	if err != nil {
		return err
	}

	graph := result.Graph.Rel(root)

	if tc.plot != "" {
		if err = output.WritePlot(tc.plot, graph); err != nil {
			return err
		}
	}

	if err = tc.report(graph); err != nil {
		return err
	}

	warnOutcome(result, graph)

	return nil
}

func (tc *TraceCommand) report(graph *trace.Graph) error {
	switch tc.format {
	case traceFormatTable:
		fmt.Fprintln(os.Stdout, output.GraphReport(graph))
	case traceFormatJSON:
		encoded, err := json.MarshalIndent(graph, "", "  ")
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}

		fmt.Fprintln(os.Stdout, string(encoded))
	case traceFormatYAML:
		encoded, err := yaml.Marshal(graph)
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}

		fmt.Fprint(os.Stdout, string(encoded))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTraceFormat, tc.format)
	}

	return nil
}

// warnOutcome surfaces partial results on stderr without failing the run.
func warnOutcome(result *trace.Result, graph *trace.Graph) {
	yellow := color.New(color.FgYellow)

	if result.LimitExceeded {
		yellow.Fprintln(os.Stderr, "traversal stopped at the file limit; the graph is partial")
	}

	for _, failure := range result.Failures {
		yellow.Fprintf(os.Stderr, "failed: %s (%s)\n", failure.Path, failure.Reason)
	}

	for _, unresolved := range graph.Unresolved {
		yellow.Fprintf(os.Stderr, "unresolved: %s imported by %s:%d\n",
			unresolved.Module, unresolved.File, unresolved.Line)
	}
}
