package diff_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/diff"
	"github.com/mickamy/qbplan/test"
)

func TestCompareSamplesAndJSON(t *testing.T) {
	config.Use(config.Default())
	base := test.LoadSampleAnalysis(t, "grouped.json")
	target := test.LoadSampleAnalysis(t, "grouped_tuned.json")

	report, err := diff.Compare(base, target, diff.Options{})
	require.NoError(t, err)

	assert.Equal(t, config.Default().Diff.MaxItems, report.Options.MaxItems)
	assert.Equal(t, 1, report.Summary.Base.Workfiles)
	assert.Equal(t, 0, report.Summary.Target.Workfiles)
	assert.Equal(t, 2, report.Summary.Base.QueryBlocks)
	assert.Equal(t, 1, report.Summary.Target.QueryBlocks)

	assert.Equal(t, []diff.Entry{
		{Table: "DEPT", Base: []string{"MSJOIN under sort"}, Target: []string{"NLJOIN under sort"}},
		{Table: "EMP", Base: []string{"ACCESS via workfile", "NLJOIN"}, Target: []string{"NLJOIN"}},
	}, report.Changed)
	assert.Equal(t, []diff.Entry{{Table: "PROJ", Target: []string{"ACCESS"}}}, report.Added)
	assert.Empty(t, report.Removed)

	require.Len(t, report.Insights, 2)
	assert.Equal(t, "improvement", report.Insights[0].Severity)
	assert.Equal(t, "Workfiles 1 → 0", report.Insights[0].Message)
	assert.Equal(t, "Sorts 2 → 1", report.Insights[1].Message)

	jsonOut, err := report.JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(jsonOut, &decoded))
	assert.Contains(t, decoded, "changed")
	assert.Contains(t, decoded, "summary")
}

func TestCompareRegressionAndMarkdown(t *testing.T) {
	config.Use(config.Default())
	base := test.LoadSampleAnalysis(t, "grouped_tuned.json")
	target := test.LoadSampleAnalysis(t, "grouped.json")

	report, err := diff.Compare(base, target, diff.Options{MaxItems: 1})
	require.NoError(t, err)

	require.Len(t, report.Changed, 1, "limited by MaxItems")
	assert.Equal(t, "DEPT", report.Changed[0].Table)
	assert.Equal(t, []diff.Entry{{Table: "PROJ", Base: []string{"ACCESS"}}}, report.Removed)

	var messages []string
	for _, in := range report.Insights {
		assert.Equal(t, "warning", in.Severity)
		messages = append(messages, in.Message)
	}
	assert.Equal(t, []string{"Workfiles 0 → 1", "Sorts 1 → 2"}, messages)

	md := report.Markdown()
	assert.Contains(t, md, "# qbplan diff")
	assert.Contains(t, md, "| Workfiles | 0 | 1 | +1 |")
	assert.Contains(t, md, "| DEPT | NLJOIN under sort | MSJOIN under sort |")
	assert.Contains(t, md, "### Removed tables\n- PROJ: ACCESS\n")
	assert.Contains(t, md, "### Added tables\n- None\n")
}

func TestCompareWorkfileIntroduced(t *testing.T) {
	config.Use(config.Default())
	base := test.LoadSampleAnalysis(t, "grouped_tuned.json")
	target := test.LoadSampleAnalysis(t, "grouped.json")

	report, err := diff.Compare(base, target, diff.Options{MaxItems: 5})
	require.NoError(t, err)

	require.Len(t, report.Changed, 2)
	last := report.Insights[len(report.Insights)-1]
	assert.Equal(t, "EMP is now read through a workfile", last.Message)
}

func TestCompareMissingAnalysis(t *testing.T) {
	target := test.LoadSampleAnalysis(t, "grouped.json")
	_, err := diff.Compare(nil, target, diff.Options{})
	require.Error(t, err)
	_, err = diff.Compare(target, nil, diff.Options{})
	require.Error(t, err)
}
