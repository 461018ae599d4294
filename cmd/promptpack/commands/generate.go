// Package commands implements CLI command handlers for promptpack.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/promptpack/promptpack/internal/config"
	"github.com/promptpack/promptpack/internal/discovery"
	"github.com/promptpack/promptpack/internal/gitinfo"
	"github.com/promptpack/promptpack/internal/output"
	"github.com/promptpack/promptpack/pkg/trace"
)

// GenerateCommand holds flag state for the generate command.
type GenerateCommand struct {
	configPath  string
	profile     string
	saveProfile string

	include         []string
	exclude         []string
	includePriority bool
	hidden          bool
	noIgnore        bool

	format        string
	templatePath  string
	lineNumbers   bool
	absolutePaths bool
	noCodeblock   bool
	sortOrder     string

	outputFile string
	clipboard  bool
	plot       string

	gitDiff      bool
	diffBranches []string
	logBranches  []string

	entries      []string
	filterUnused bool
	maxFiles     int
	workers      int
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	gc := &GenerateCommand{}

	cmd := &cobra.Command{
		Use:   "generate [path|repository-url]",
		Short: "Build the pack from a project directory or repository URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			return gc.run(cmd, target)
		},
	}

	flags := cmd.Flags()

	flags.StringVar(&gc.configPath, "config", "", "config file path")
	flags.StringVar(&gc.profile, "profile", "", "named config profile to apply")
	flags.StringVar(&gc.saveProfile, "save-profile", "", "save the effective settings as a named profile and exit")

	flags.StringSliceVarP(&gc.include, "include", "i", nil, "glob patterns to include")
	flags.StringSliceVarP(&gc.exclude, "exclude", "e", nil, "glob patterns to exclude")
	flags.BoolVar(&gc.includePriority, "include-priority", false, "include patterns win over exclude patterns")
	flags.BoolVar(&gc.hidden, "hidden", false, "include dotfiles")
	flags.BoolVar(&gc.noIgnore, "no-ignore", false, "ignore .gitignore rules")

	flags.StringVarP(&gc.format, "format", "f", "", "output format: markdown, xml, or plain")
	flags.StringVar(&gc.templatePath, "template", "", "custom template file")
	flags.BoolVarP(&gc.lineNumbers, "line-numbers", "n", false, "prefix content lines with numbers")
	flags.BoolVar(&gc.absolutePaths, "absolute-paths", false, "print absolute file paths")
	flags.BoolVar(&gc.noCodeblock, "no-codeblock", false, "omit fenced code blocks")
	flags.StringVar(&gc.sortOrder, "sort", "", "file order: name_asc, name_desc, date_asc, date_desc")

	flags.StringVarP(&gc.outputFile, "output", "o", "", "write the pack to a file")
	flags.BoolVar(&gc.clipboard, "clipboard", false, "copy the pack to the clipboard")
	flags.StringVar(&gc.plot, "plot", "", "write the dependency graph as an HTML chart")

	flags.BoolVar(&gc.gitDiff, "diff", false, "include staged changes")
	flags.StringSliceVar(&gc.diffBranches, "git-diff-branch", nil, "two branches to diff, e.g. main,feature")
	flags.StringSliceVar(&gc.logBranches, "git-log-branch", nil, "two branches to log between, e.g. main,feature")

	flags.StringSliceVar(&gc.entries, "trace", nil, "entry files for dependency tracing")
	flags.BoolVar(&gc.filterUnused, "filter-unused", false, "skip imports whose symbols are never used")
	flags.IntVar(&gc.maxFiles, "max-files", 0, "cap on traced files, 0 for no limit")
	flags.IntVar(&gc.workers, "workers", 0, "parallel parse workers, 0 for GOMAXPROCS")

	return cmd
}

func (gc *GenerateCommand) run(cmd *cobra.Command, target string) error {
	cfg, err := config.Load(gc.configPath, gc.profile)
	if err != nil {
		return err
	}

	gc.applyFlags(cmd, cfg)

	if err = cfg.Validate(); err != nil {
		return err
	}

	if gc.saveProfile != "" {
		return config.SaveProfile(gc.configPath, gc.saveProfile, cfg)
	}

	root, cleanup, err := resolveTarget(cmd.Context(), target)
	if err != nil {
		return err
	}

	if cleanup != nil {
		defer cleanup()
	}

	return generate(cmd.Context(), root, cfg)
}

// applyFlags overlays explicitly set flags onto the loaded configuration.
func (gc *GenerateCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("include") {
		cfg.Include = gc.include
	}

	if flags.Changed("exclude") {
		cfg.Exclude = gc.exclude
	}

	if flags.Changed("include-priority") {
		cfg.IncludePriority = gc.includePriority
	}

	if flags.Changed("hidden") {
		cfg.Hidden = gc.hidden
	}

	if flags.Changed("no-ignore") {
		cfg.NoIgnore = gc.noIgnore
	}

	if flags.Changed("format") {
		cfg.Format = gc.format
	}

	if flags.Changed("template") {
		cfg.Template = gc.templatePath
	}

	if flags.Changed("line-numbers") {
		cfg.LineNumbers = gc.lineNumbers
	}

	if flags.Changed("absolute-paths") {
		cfg.AbsolutePaths = gc.absolutePaths
	}

	if flags.Changed("no-codeblock") {
		cfg.NoCodeblock = gc.noCodeblock
	}

	if flags.Changed("sort") {
		cfg.Sort = gc.sortOrder
	}

	if flags.Changed("output") {
		cfg.Output.File = gc.outputFile
	}

	if flags.Changed("clipboard") {
		cfg.Output.Clipboard = gc.clipboard
	}

	if flags.Changed("plot") {
		cfg.Output.Plot = gc.plot
	}

	if flags.Changed("diff") {
		cfg.Git.Diff = gc.gitDiff
	}

	if flags.Changed("git-diff-branch") {
		cfg.Git.DiffBranches = gc.diffBranches
	}

	if flags.Changed("git-log-branch") {
		cfg.Git.LogBranches = gc.logBranches
	}

	if flags.Changed("trace") {
		cfg.Trace.Entries = gc.entries
	}

	if flags.Changed("filter-unused") {
		cfg.Trace.FilterUnused = gc.filterUnused
	}

	if flags.Changed("max-files") {
		cfg.Trace.MaxFiles = gc.maxFiles
	}

	if flags.Changed("workers") {
		cfg.Trace.Workers = gc.workers
	}
}

// resolveTarget maps the positional argument to a local directory, cloning
// remote repository URLs into a temp dir.
func resolveTarget(ctx context.Context, target string) (string, func(), error) {
	ref, parseErr := gitinfo.ParseRemoteURL(target)
	if parseErr != nil {
		if !errors.Is(parseErr, gitinfo.ErrNotRemoteURL) {
			return "", nil, parseErr
		}

		abs, absErr := filepath.Abs(target)
		if absErr != nil {
			return "", nil, fmt.Errorf("resolve path %s: %w", target, absErr)
		}

		return abs, nil, nil
	}

	slog.Info("cloning remote repository", "url", ref.CloneURL)

	dir, cloneErr := gitinfo.CloneTemp(ctx, ref)
	if cloneErr != nil {
		return "", nil, cloneErr
	}

	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// generate runs the full pipeline: discover, trace, build, render, deliver.
func generate(ctx context.Context, root string, cfg *config.Config) error {
	files, err := discovery.Run(discovery.Options{
		Root:            root,
		Include:         cfg.Include,
		Exclude:         cfg.Exclude,
		IncludePriority: cfg.IncludePriority,
		Hidden:          cfg.Hidden,
		NoIgnore:        cfg.NoIgnore,
		Sort:            cfg.Sort,
	})
	if err != nil {
		return err
	}

	var traceResult *trace.Result

	if len(cfg.Trace.Entries) > 0 {
		traceResult, err = runTrace(ctx, root, cfg)
		if err != nil {
			return err
		}

		files = mergeTraced(root, files, traceResult)
	}

	packCtx, err := output.BuildContext(files, output.ContextOptions{
		Root:          root,
		LineNumbers:   cfg.LineNumbers,
		AbsolutePaths: cfg.AbsolutePaths,
		SplitPython:   true,
	})
	if err != nil {
		return err
	}

	packCtx.NoCodeblock = cfg.NoCodeblock
	packCtx.Git = buildGitSection(root, cfg)

	stats := output.RunStats{Files: len(packCtx.Files)}

	for _, section := range packCtx.Files {
		stats.TotalBytes += section.Size
	}

	if traceResult != nil {
		graph := traceResult.Graph.Rel(root)
		summary := graph.Summary()

		packCtx.Graph = graph
		packCtx.Summary = &summary

		stats.Summary = &summary
		stats.Skipped = len(graph.Skipped)
		stats.Failures = len(traceResult.Failures)

		if cfg.Output.Plot != "" {
			if err = output.WritePlot(cfg.Output.Plot, graph); err != nil {
				return err
			}
		}
	}

	renderer, err := output.NewRenderer(cfg.Format, cfg.Template)
	if err != nil {
		return err
	}

	text, err := renderer.Render(packCtx)
	if err != nil {
		return err
	}

	stats.Destination, err = pickSink(cfg).Deliver(text)
	if err != nil {
		return err
	}

	output.PrintSummary(os.Stderr, stats)

	return nil
}

func pickSink(cfg *config.Config) output.Sink {
	switch {
	case cfg.Output.Clipboard:
		return output.ClipboardSink{}
	case cfg.Output.File != "":
		return output.FileSink{Path: cfg.Output.File}
	default:
		return output.StdoutSink{}
	}
}

// runTrace resolves the dependency graph from the configured entry files.
func runTrace(ctx context.Context, root string, cfg *config.Config) (*trace.Result, error) {
	engine, err := trace.NewEngine(trace.Options{
		ProjectRoot:  root,
		SourceRoots:  cfg.Trace.SourceRoots,
		ExcludedDirs: cfg.Trace.ExcludedDirs,
		FilterUnused: cfg.Trace.FilterUnused,
		MaxFiles:     cfg.Trace.MaxFiles,
		Workers:      cfg.Trace.Workers,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]string, len(cfg.Trace.Entries))
	for i, entry := range cfg.Trace.Entries {
		entries[i] = filepath.Join(root, filepath.FromSlash(entry))
	}

	return engine.Trace(ctx, entries)
}

// mergeTraced appends traced files discovery did not already select,
// preserving discovery order first and trace order second.
func mergeTraced(root string, files []discovery.File, result *trace.Result) []discovery.File {
	seen := make(map[string]bool, len(files))
	for _, file := range files {
		seen[file.Path] = true
	}

	for _, path := range result.Files {
		if seen[path] {
			continue
		}

		file, err := discovery.Stat(root, path)
		if err != nil {
			slog.Debug("traced file vanished", "path", path, "error", err)

			continue
		}

		files = append(files, file)
	}

	return files
}

// buildGitSection gathers the requested repository context. A project that
// is not a git repository silently yields no section.
func buildGitSection(root string, cfg *config.Config) *output.GitSection {
	if !cfg.Git.Diff && len(cfg.Git.DiffBranches) == 0 && len(cfg.Git.LogBranches) == 0 {
		return nil
	}

	repo, err := gitinfo.Open(root, nil)
	if err != nil {
		slog.Debug("git context unavailable", "root", root, "error", err)

		return nil
	}

	section := &output.GitSection{}

	if cfg.Git.Diff {
		section.Staged, err = repo.StagedChanges()
		if err != nil {
			slog.Debug("staged changes unavailable", "error", err)
		}
	}

	if len(cfg.Git.DiffBranches) == 2 {
		section.Diff, err = repo.BranchDiff(cfg.Git.DiffBranches[0], cfg.Git.DiffBranches[1])
		if err != nil {
			slog.Debug("branch diff unavailable", "error", err)
		}
	}

	if len(cfg.Git.LogBranches) == 2 {
		section.Log, err = repo.BranchLog(cfg.Git.LogBranches[0], cfg.Git.LogBranches[1])
		if err != nil {
			slog.Debug("branch log unavailable", "error", err)
		}
	}

	return section
}
