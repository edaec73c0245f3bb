package insight_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/config"
	"github.com/mickamy/qbplan/internal/insight"
	"github.com/mickamy/qbplan/test"
)

func useInsights(t *testing.T, fn func(*config.InsightConfig)) {
	t.Helper()
	cfg := config.Default()
	fn(&cfg.Insights)
	config.Use(cfg)
	t.Cleanup(func() { config.Use(config.Default()) })
}

func TestBuildMessages_DefaultsOnGroupedPlan(t *testing.T) {
	config.Use(config.Default())
	analysis := test.LoadSampleAnalysis(t, "grouped.json")

	msgs := insight.BuildMessages(analysis)
	require.Len(t, msgs, 1)
	assert.Equal(t, insight.SeverityInfo, msgs[0].Severity)
	assert.Equal(t, "Workfiles: 1 workfile materialized (DSNWFQB(02))", msgs[0].Text)
	assert.Equal(t, "leg0-qb1-p1-access", msgs[0].Anchor)
}

func TestBuildMessages_Thresholds(t *testing.T) {
	useInsights(t, func(c *config.InsightConfig) {
		c.JoinChainWarning = 2
		c.JoinChainCritical = 3
		c.WorkfileWarning = 1
		c.SortWarning = 2
		c.TableScanWarning = 1
	})
	analysis := test.LoadSampleAnalysis(t, "grouped.json")

	msgs := insight.BuildMessages(analysis)
	require.Len(t, msgs, 4)

	assert.Equal(t, insight.SeverityWarning, msgs[0].Severity)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Join chain: 2 joins stacked down to QB1/P2 NLJOIN EMP"), msgs[0].Text)

	assert.Equal(t, insight.SeverityWarning, msgs[1].Severity)
	assert.Contains(t, msgs[1].Text, "consider rewriting the subqueries as joins")

	assert.Contains(t, msgs[2].Text, "Sorts: 2 sort steps")
	assert.Equal(t, "Table accesses: 1 table read directly across 2 query blocks", msgs[3].Text)
}

func TestBuildMessages_CriticalJoinChain(t *testing.T) {
	useInsights(t, func(c *config.InsightConfig) {
		c.JoinChainWarning = 1
		c.JoinChainCritical = 2
	})
	analysis := test.LoadSampleAnalysis(t, "join.csv")

	msgs := insight.BuildMessages(analysis)
	require.NotEmpty(t, msgs)
	assert.Equal(t, insight.SeverityCritical, msgs[0].Severity)
	assert.Equal(t, "leg0-qb1-p2-nljoin", msgs[0].Anchor)
}

func TestBuildMessages_DegradedReference(t *testing.T) {
	config.Use(config.Default())
	analysis := test.LoadSampleAnalysis(t, "degraded.json")

	msgs := insight.BuildMessages(analysis)
	require.NotEmpty(t, msgs)
	assert.Equal(t, insight.SeverityCritical, msgs[0].Severity)
	assert.Equal(t,
		"Incomplete branch: QB1/P1 ACCESS DSNWFQB(05) (workfile source block not found); the subplan below it is not shown",
		msgs[0].Text)
}

func TestBuildMessages_Union(t *testing.T) {
	config.Use(config.Default())
	analysis := test.LoadSampleAnalysis(t, "union.json")

	msgs := insight.BuildMessages(analysis)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Union: 2 legs, each planned on its own", msgs[0].Text)
	assert.Empty(t, msgs[0].Anchor)

	assert.Equal(t, "1st leg (QB2)", insight.LegTitle(analysis.Roots[0]))
	assert.Equal(t, "2nd leg (QB3)", insight.LegTitle(analysis.Roots[1]))
}

func TestLabels(t *testing.T) {
	analysis := test.LoadSampleAnalysis(t, "join.csv")

	root := analysis.Roots[0]
	assert.Equal(t, "QB1/P3 HBJOIN ACT", insight.NodeLabel(root))
	require.Len(t, root.Children, 2)
	leaf := root.Children[0]
	assert.Equal(t, "TABLE ACT", insight.NodeLabel(leaf))
	assert.Equal(t, "leg0-qb1-p3-table-act", insight.AnchorID(leaf))
	assert.Empty(t, insight.NodeLabel(nil))
	assert.Equal(t, "a b", insight.NormalizeWhitespace("  a \n b "))
}
