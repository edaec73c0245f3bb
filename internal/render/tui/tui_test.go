package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/render/tui"
	"github.com/mickamy/qbplan/test"
)

func TestRenderSampleTUI(t *testing.T) {
	config.Use(config.Default())
	analysis := test.LoadSampleAnalysis(t, "grouped.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, analysis, tui.Options{EnableColor: false}))

	output := buf.String()
	assert.Contains(t, output, "Query blocks 2 | Explain rows 6 | Nodes 8 | Depth 5\n")
	assert.Contains(t, output, "Insights:\n")

	tree := strings.Join([]string{
		"QB1/P4 SORT",
		"`-- R QB1/P3 MSJOIN DEPT",
		"    |-- L TABLE DEPT",
		"    `-- R QB1/P2 NLJOIN EMP",
		"        |-- L TABLE EMP",
		"        `-- R QB1/P1 ACCESS DSNWFQB(02) <= QB2",
		"            `-- R QB2/P2 SORT",
		"                `-- R QB2/P1 ACCESS EMP",
		"",
	}, "\n")
	assert.True(t, strings.HasSuffix(output, tree), output)
	assert.NotContains(t, output, "\x1b[")
}

func TestRenderMaxDepth(t *testing.T) {
	analysis := test.LoadSampleAnalysis(t, "grouped.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, analysis, tui.Options{MaxDepth: 2}))

	output := buf.String()
	assert.Contains(t, output, "        `-- ... (4 more nodes)\n")
	assert.NotContains(t, output, "QB2/P1")
}

func TestRenderUnionLegs(t *testing.T) {
	analysis := test.LoadSampleAnalysis(t, "union.json")

	var buf bytes.Buffer
	require.NoError(t, tui.Render(&buf, analysis, tui.Options{}))

	output := buf.String()
	assert.Contains(t, output, "UNION (QB1/P1) with 2 legs\n1st leg (QB2):\nQB2/P2 NLJOIN EMP\n`-- R QB2/P1 ACCESS DEPT\n")
	assert.Contains(t, output, "\n2nd leg (QB3):\nQB3/P2 SORT\n`-- R QB3/P1 ACCESS PROJ\n")
}

func TestRenderWarningsAndColor(t *testing.T) {
	analysis := test.LoadSampleAnalysis(t, "degraded.json")

	var plain bytes.Buffer
	require.NoError(t, tui.Render(&plain, analysis, tui.Options{ShowWarnings: true}))
	assert.Contains(t, plain.String(), "`-- R QB1/P1 ACCESS DSNWFQB(05) [workfile source block not found]\n")

	var hidden bytes.Buffer
	require.NoError(t, tui.Render(&hidden, analysis, tui.Options{}))
	assert.NotContains(t, hidden.String(), "[workfile source block not found]")

	var colored bytes.Buffer
	require.NoError(t, tui.Render(&colored, analysis, tui.Options{EnableColor: true, ShowWarnings: true}))
	assert.Contains(t, colored.String(), "\x1b[")
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, tui.Render(&buf, nil, tui.Options{}))
	require.Error(t, tui.Render(nil, test.LoadSampleAnalysis(t, "grouped.json"), tui.Options{}))
}
