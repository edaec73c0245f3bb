package qblock

import "github.com/mickamy/qbplan/internal/model"

// Queue holds the rows of one query block and hands them out front to back, once.
type Queue struct {
	blockID int
	rows    []model.ExplainRow
	next    int
}

func newQueue(blockID int) *Queue {
	return &Queue{blockID: blockID}
}

// BlockID is the query block every row of the queue belongs to.
func (q *Queue) BlockID() int {
	return q.blockID
}

// Len returns the number of rows not yet popped.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.rows) - q.next
}

// Empty reports whether every row has been popped.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Peek returns the next row without consuming it.
func (q *Queue) Peek() (model.ExplainRow, bool) {
	if q.Empty() {
		return model.ExplainRow{}, false
	}
	return q.rows[q.next], true
}

// Pop consumes and returns the next row.
func (q *Queue) Pop() (model.ExplainRow, bool) {
	row, ok := q.Peek()
	if ok {
		q.next++
	}
	return row, ok
}

// Remaining copies the rows not yet popped.
func (q *Queue) Remaining() []model.ExplainRow {
	if q.Empty() {
		return nil
	}
	return append([]model.ExplainRow(nil), q.rows[q.next:]...)
}
