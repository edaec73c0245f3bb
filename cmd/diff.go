package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/diff"
)

var (
	diffBase   string
	diffTarget string
	diffFormat string
	diffOutput string
	diffLimit  int
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two plans and emit a Markdown or JSON summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if diffBase == "" || diffTarget == "" {
			return fmt.Errorf("--base and --target are required")
		}
		if diffFormat != "md" && diffFormat != "markdown" && diffFormat != "json" {
			return fmt.Errorf("unsupported format %q", diffFormat)
		}

		var base, target *analyzer.PlanAnalysis
		var g errgroup.Group
		g.Go(func() error {
			var err error
			if base, err = loadAnalysis(diffBase); err != nil {
				return fmt.Errorf("load base: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			if target, err = loadAnalysis(diffTarget); err != nil {
				return fmt.Errorf("load target: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		report, err := diff.Compare(base, target, diff.Options{MaxItems: diffLimit})
		if err != nil {
			return err
		}

		return withOutput(cmd, diffOutput, func(w io.Writer) error {
			if diffFormat == "json" {
				payload, err := report.JSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "%s\n", payload)
				return err
			}
			_, err := io.WriteString(w, report.Markdown())
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVar(&diffBase, "base", "", "Path to the baseline explain rows")
	diffCmd.Flags().StringVar(&diffTarget, "target", "", "Path to the target explain rows")
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "md", "Output format: md or json")
	diffCmd.Flags().StringVar(&diffOutput, "out", "", "Output path (stdout if omitted)")
	diffCmd.Flags().IntVar(&diffLimit, "limit", 0, "Maximum rows per section (default from config)")
}
