package qblock

import (
	"fmt"
	"strings"

	"github.com/mickamy/qbplan/internal/model"
)

// InvalidRowError rejects a row that cannot take part in tree reconstruction.
type InvalidRowError struct {
	Index  int
	Field  string
	Reason string
	Row    model.ExplainRow
}

func (e *InvalidRowError) Error() string {
	return fmt.Sprintf("qblock: row %d (%s): invalid %s: %s", e.Index, e.Row, e.Field, e.Reason)
}

// Partition groups plan-ordered rows into one queue per contiguous run of rows sharing a
// query block id. Queues keep the order in which the runs appear.
func Partition(rows []model.ExplainRow) (*Arena, error) {
	arena := &Arena{}
	var current *Queue
	for i, row := range rows {
		if err := validate(i, row); err != nil {
			return nil, err
		}
		if current == nil || row.QueryBlock != current.blockID {
			current = newQueue(row.QueryBlock)
			arena.queues = append(arena.queues, current)
		}
		current.rows = append(current.rows, row)
	}
	return arena, nil
}

func validate(index int, row model.ExplainRow) error {
	switch {
	case row.QueryBlock <= 0:
		return &InvalidRowError{Index: index, Field: "QBLOCKNO", Reason: "must be positive", Row: row}
	case row.PlanStep < 0:
		return &InvalidRowError{Index: index, Field: "PLANNO", Reason: "must not be negative", Row: row}
	case row.Method < 0:
		return &InvalidRowError{Index: index, Field: "METHOD", Reason: "must not be negative", Row: row}
	case row.IsWorkfile() && strings.TrimSpace(row.TableName) == "":
		return &InvalidRowError{Index: index, Field: "TNAME", Reason: "workfile access without a name", Row: row}
	}
	return nil
}
