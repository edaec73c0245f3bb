package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/logging"
	"github.com/mickamy/qbplan/test"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() {
		logging.SetGlobalLogger(zerolog.Nop())
		config.Use(config.Default())
	})

	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default, since command state is package-level.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func sample(t *testing.T, name string) string {
	return filepath.Join(test.RootPath(t), "samples", name)
}

func TestReportJSON(t *testing.T) {
	out, _, err := execute(t, "report", "--input", sample(t, "grouped.json"), "--mode", "json")
	require.NoError(t, err)

	var doc struct {
		Trees []map[string]any `json:"trees"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Trees, 1)
	assert.Equal(t, "SORT", doc.Trees[0]["method_name"])
	assert.Contains(t, out, "DSNWFQB(02)")
}

func TestReportTUIFromCSVWithConfig(t *testing.T) {
	out, _, err := execute(t,
		"report", "--input", sample(t, "join.csv"), "--mode", "tui", "--color=false",
		"--config", sample(t, "config.example.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "QB1/P3 HBJOIN ACT\n|-- L TABLE ACT\n`-- R QB1/P2 NLJOIN EMP\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestReportUnionHTMLToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.html")
	out, _, err := execute(t, "report", "--input", sample(t, "union.json"), "--mode", "html", "--out", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2nd leg (QB3)")
}

func TestReportRejectedRowsAreLogged(t *testing.T) {
	input := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(input, []byte(`[{"QBLOCKNO": 0, "PLANNO": 1, "METHOD": 0, "TNAME": "EMP"}]`), 0o644))

	_, logs, err := execute(t, "report", "--input", input, "--mode", "json")
	require.ErrorIs(t, err, errNoPlan)
	assert.Contains(t, logs, "kind=InvalidRowError")
}

func TestReportUnknownMode(t *testing.T) {
	_, _, err := execute(t, "report", "--input", sample(t, "grouped.json"), "--mode", "svg")
	require.ErrorContains(t, err, `unknown mode "svg"`)
}

func TestDiffJSON(t *testing.T) {
	out, _, err := execute(t,
		"diff", "--base", sample(t, "grouped.json"), "--target", sample(t, "grouped_tuned.json"), "--format", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report["added"], 1)
}

func TestDiffMissingTarget(t *testing.T) {
	_, _, err := execute(t,
		"diff", "--base", sample(t, "grouped.json"), "--target", sample(t, "missing.json"), "--format", "md")
	require.ErrorContains(t, err, "load target")
}

func TestRunRequiresConnection(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, _, err := execute(t, "run", "--query", "SELECT 1")
	require.ErrorContains(t, err, "--url is required")
}

func TestVersionShort(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}
