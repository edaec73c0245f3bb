package qblock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/qbplan/internal/model"
)

func row(qb, step, method int, table string) model.ExplainRow {
	return model.ExplainRow{QueryBlock: qb, PlanStep: step, Method: method, TableName: table, TableType: "T"}
}

func TestPartition_GroupsContiguousRuns(t *testing.T) {
	rows := []model.ExplainRow{
		row(1, 2, 1, "EMP"),
		row(1, 1, 0, "DEPT"),
		row(2, 1, 0, "PROJ"),
		row(4, 2, 3, ""),
		row(4, 1, 0, "ACT"),
	}

	arena, err := Partition(rows)
	require.NoError(t, err)
	require.Equal(t, 3, arena.Len())

	assert.Equal(t, 1, arena.Queue(0).BlockID())
	assert.Equal(t, rows[:2], arena.Queue(0).Remaining())
	assert.Equal(t, 2, arena.Queue(1).BlockID())
	assert.Equal(t, rows[2:3], arena.Queue(1).Remaining())
	// Block ids with gaps still land in append order.
	assert.Equal(t, 4, arena.Queue(2).BlockID())
	assert.Equal(t, rows[3:], arena.Queue(2).Remaining())
}

func TestPartition_EmptyInput(t *testing.T) {
	arena, err := Partition(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, arena.Len())
	assert.True(t, arena.Drained())
	assert.Nil(t, arena.Sequence().Front())
}

func TestPartition_NonContiguousRepeatStartsNewQueue(t *testing.T) {
	rows := []model.ExplainRow{
		row(1, 1, 0, "A"),
		row(2, 1, 0, "B"),
		row(1, 2, 0, "C"),
	}
	arena, err := Partition(rows)
	require.NoError(t, err)
	require.Equal(t, 3, arena.Len())
	assert.Equal(t, 1, arena.Queue(2).BlockID())
}

func TestPartition_RejectsInvalidRows(t *testing.T) {
	cases := map[string]struct {
		row   model.ExplainRow
		field string
	}{
		"zero block":       {row: row(0, 1, 0, "A"), field: "QBLOCKNO"},
		"negative step":    {row: row(1, -1, 0, "A"), field: "PLANNO"},
		"negative method":  {row: row(1, 1, -2, "A"), field: "METHOD"},
		"unnamed workfile": {row: model.ExplainRow{QueryBlock: 1, PlanStep: 1, TableType: "W", TableName: "  "}, field: "TNAME"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Partition([]model.ExplainRow{row(1, 3, 1, "OK"), tc.row})
			var invalid *InvalidRowError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, 1, invalid.Index)
			assert.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestQueue_PopIsExactlyOnce(t *testing.T) {
	arena, err := Partition([]model.ExplainRow{row(1, 2, 1, "A"), row(1, 1, 0, "B")})
	require.NoError(t, err)
	q := arena.Queue(0)

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "A", first.TableName)
	assert.Equal(t, 1, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "B", head.TableName)

	_, ok = q.Pop()
	require.True(t, ok)
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
	assert.True(t, arena.Drained())
}

func TestSequence_DropExhaustedAndTake(t *testing.T) {
	arena, err := Partition([]model.ExplainRow{
		row(1, 1, 0, "A"),
		row(2, 1, 0, "B"),
		row(3, 1, 0, "C"),
		row(2, 1, 0, "D"),
	})
	require.NoError(t, err)
	seq := arena.Sequence()
	require.Equal(t, 4, seq.Len())

	_, _ = seq.Front().Pop()
	seq.DropExhausted()
	require.Equal(t, 3, seq.Len())
	assert.Equal(t, 2, seq.Front().BlockID())

	// The front queue is never a candidate.
	_, ok := seq.Take(2)
	require.True(t, ok)
	assert.Equal(t, 2, seq.Len())
	assert.Equal(t, 2, seq.Front().BlockID())
	assert.Equal(t, 3, seq.Queues()[1].BlockID())

	_, ok = seq.Take(9)
	assert.False(t, ok)
	assert.Equal(t, 2, seq.Len())
}

func TestSequence_SingleWrapsTakenQueue(t *testing.T) {
	arena, err := Partition([]model.ExplainRow{
		row(1, 1, 0, "A"),
		row(2, 1, 0, "B"),
		row(2, 2, 0, "C"),
	})
	require.NoError(t, err)
	seq := arena.Sequence()
	h, ok := seq.Take(2)
	require.True(t, ok)
	_, _ = arena.Queue(h).Pop()

	single := seq.Single(h)
	assert.Equal(t, 1, single.Len())
	assert.Equal(t, "C", single.Front().Remaining()[0].TableName)
}
