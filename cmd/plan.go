package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/parser"
	"github.com/mickamy/qbplan/internal/plantree"
	"github.com/mickamy/qbplan/internal/render/html"
	"github.com/mickamy/qbplan/internal/render/jsontree"
	"github.com/mickamy/qbplan/internal/render/tui"
)

// errNoPlan is returned when the rows could not be turned into a tree; the reason has
// already been logged.
var errNoPlan = errors.New("no plan could be built from the explain rows (see log output)")

// renderFlags are shared by the commands that print a plan.
type renderFlags struct {
	mode       string
	output     string
	title      string
	color      bool
	maxDepth   int
	warnings   bool
	includeCSS bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "tui", "Output mode: tui, html or json")
	cmd.Flags().StringVar(&f.output, "out", "", "Output path (stdout if omitted)")
	cmd.Flags().StringVar(&f.title, "title", "qbplan report", "Report title (HTML)")
	cmd.Flags().BoolVar(&f.color, "color", true, "Enable ANSI colors for TUI output (default from config, off when stdout is not a terminal)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "Limit tree depth (TUI, default from config)")
	cmd.Flags().BoolVar(&f.warnings, "warnings", true, "Show warnings (TUI, default from config)")
	cmd.Flags().BoolVar(&f.includeCSS, "css", true, "Include inline styles (HTML)")
}

func (f *renderFlags) tuiOptions(cmd *cobra.Command) tui.Options {
	cfg := config.Active().Render
	opts := tui.Options{
		EnableColor:  cfg.Color && stdoutIsTerminal() && f.output == "",
		MaxDepth:     cfg.MaxDepth,
		ShowWarnings: cfg.ShowWarnings,
	}
	if cmd.Flags().Changed("color") {
		opts.EnableColor = f.color
	}
	if cmd.Flags().Changed("max-depth") {
		opts.MaxDepth = f.maxDepth
	}
	if cmd.Flags().Changed("warnings") {
		opts.ShowWarnings = f.warnings
	}
	return opts
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (f *renderFlags) render(cmd *cobra.Command, plan *model.Plan) error {
	return withOutput(cmd, f.output, func(w io.Writer) error {
		if f.mode == "json" {
			return jsontree.Render(w, plan)
		}
		analysis, err := analyzer.Analyze(plan)
		if err != nil {
			return err
		}
		switch f.mode {
		case "tui":
			return tui.Render(w, analysis, f.tuiOptions(cmd))
		case "html":
			return html.Render(w, analysis, html.Options{
				Title:         f.title,
				IncludeStyles: f.includeCSS,
			})
		default:
			return fmt.Errorf("unknown mode %q (expected tui, html or json)", f.mode)
		}
	})
}

// withOutput hands fn the command's stdout, or the file at path when one is given.
func withOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func loadRows(path string) ([]model.ExplainRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	rows, err := parser.Parse(file, parser.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func buildPlan(rows []model.ExplainRow) (*model.Plan, error) {
	plan := plantree.Visualize(rows)
	if plan == nil {
		return nil, errNoPlan
	}
	return plan, nil
}

func loadAnalysis(path string) (*analyzer.PlanAnalysis, error) {
	rows, err := loadRows(path)
	if err != nil {
		return nil, err
	}
	plan, err := buildPlan(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return analyzer.Analyze(plan)
}

func readSQL(path, inline string) (string, error) {
	switch {
	case path != "" && inline != "":
		return "", fmt.Errorf("specify only one of --sql or --query")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read sql file: %w", err)
		}
		return string(data), nil
	case strings.TrimSpace(inline) != "":
		return inline, nil
	default:
		return "", fmt.Errorf("--sql or --query is required")
	}
}
