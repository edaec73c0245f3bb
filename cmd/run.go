package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/logging"
	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/parser"
	"github.com/mickamy/qbplan/internal/runner"
)

// explainFlags select the database, the statement and how it is explained.
type explainFlags struct {
	url     string
	sqlPath string
	query   string
	schema  string
	queryNo int
	commit  bool
	timeout time.Duration
}

func (f *explainFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "Database connection string; defaults to $DATABASE_URL")
	cmd.Flags().StringVar(&f.sqlPath, "sql", "", "Path to the SQL file to explain")
	cmd.Flags().StringVar(&f.query, "query", "", "Inline SQL string to explain")
	cmd.Flags().StringVar(&f.schema, "schema", "", "Schema that owns PLAN_TABLE (default from config)")
	cmd.Flags().IntVar(&f.queryNo, "query-no", 0, "QUERYNO to explain under (default from config)")
	cmd.Flags().BoolVar(&f.commit, "commit", false, "Keep the explain rows in PLAN_TABLE")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Optional execution timeout, e.g. 45s (default from config)")
}

func (f *explainFlags) options(cmd *cobra.Command) runner.Options {
	cfg := config.Active().Runner
	opts := runner.Options{
		Schema:          cfg.Schema,
		QueryNo:         cfg.QueryNo,
		Commit:          f.commit,
		Timeout:         cfg.Timeout,
		ExplainTemplate: cfg.ExplainTemplate,
	}
	if cmd.Flags().Changed("schema") {
		opts.Schema = f.schema
	}
	if cmd.Flags().Changed("query-no") {
		opts.QueryNo = f.queryNo
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = f.timeout
	}
	return opts
}

func (f *explainFlags) explain(cmd *cobra.Command) ([]model.ExplainRow, error) {
	connection := strings.TrimSpace(f.url)
	if connection == "" {
		connection = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if connection == "" {
		return nil, fmt.Errorf("--url is required or set $DATABASE_URL")
	}
	sqlText, err := readSQL(f.sqlPath, f.query)
	if err != nil {
		return nil, err
	}
	opts := f.options(cmd)
	logging.Info().Int("queryno", opts.QueryNo).Str("schema", opts.Schema).Bool("commit", opts.Commit).Msg("explaining statement")
	return runner.Run(cmd.Context(), connection, sqlText, opts)
}

var (
	runFlags  explainFlags
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Explain a statement and write its PLAN_TABLE rows as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := runFlags.explain(cmd)
		if err != nil {
			return err
		}
		payload, err := parser.MarshalRows(rows)
		if err != nil {
			return err
		}
		return withOutput(cmd, runOutput, func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&runOutput, "out", "", "Path to write the resulting JSON (defaults to stdout)")
}
