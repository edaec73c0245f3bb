package plantree

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/logging"
	"github.com/mickamy/qbplan/internal/model"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetGlobalLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logging.SetGlobalLogger(zerolog.Nop()) })
	return &buf
}

func TestVisualize_EmptyInputLogsAndReturnsNil(t *testing.T) {
	logs := captureLogs(t)

	assert.Nil(t, Visualize(nil))
	assert.Contains(t, logs.String(), `"kind":"EmptyPlanError"`)
	assert.Contains(t, logs.String(), `"level":"error"`)
}

func TestVisualize_InvalidRowLogsAndReturnsNil(t *testing.T) {
	logs := captureLogs(t)

	plan := Visualize([]model.ExplainRow{step(0, 1, model.MethodAccess, "EMP")})
	assert.Nil(t, plan)
	assert.Contains(t, logs.String(), `"kind":"InvalidRowError"`)
	assert.Contains(t, logs.String(), `"tname":"EMP"`)
}

func TestVisualize_LogsDegradedBranches(t *testing.T) {
	logs := captureLogs(t)

	plan := Visualize([]model.ExplainRow{
		step(1, 2, model.MethodNestedLoop, "T1"),
		workfile(1, 1, "DSNWFQB(07)"),
	})
	require.NotNil(t, plan)
	require.Len(t, plan.Diagnostics, 1)

	out := logs.String()
	assert.Contains(t, out, `"kind":"UnresolvedReferenceError"`)
	assert.Contains(t, out, `"qblockno":1`)
	assert.Contains(t, out, `"planno":1`)
	assert.Contains(t, out, `"tname":"DSNWFQB(07)"`)
}

func TestVisualize_ReportsUnplacedRows(t *testing.T) {
	logs := captureLogs(t)

	plan := Visualize([]model.ExplainRow{
		step(1, 2, model.MethodNestedLoop, "T1"),
		step(1, 1, model.MethodAccess, "T0"),
		step(2, 1, model.MethodAccess, "ORPHAN"),
	})
	require.NotNil(t, plan)
	assert.Contains(t, logs.String(), "rows left unplaced")
	assert.Contains(t, logs.String(), `"qblockno":2`)
}

func TestVisualize_WellFormedPlan(t *testing.T) {
	logs := captureLogs(t)

	plan := Visualize(groupedBy())
	require.NotNil(t, plan)
	require.NotNil(t, plan.Root)
	assert.Empty(t, logs.String())
}
