package plantree

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/mickamy/qbplan/internal/logging"
	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/qblock"
)

// Visualize partitions rows and builds their plan tree. It never fails: every problem
// is logged, and a plan that cannot be built is returned as nil.
func Visualize(rows []model.ExplainRow) (plan *model.Plan) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Int("rows", len(rows)).Msg("plan tree: build aborted")
			plan = nil
		}
	}()

	arena, err := qblock.Partition(rows)
	if err != nil {
		event := logging.Error().Err(err).Str("kind", "InvalidRowError")
		var invalid *qblock.InvalidRowError
		if errors.As(err, &invalid) {
			event = withRow(event, invalid.Row)
		}
		event.Msg("plan tree: rejected explain rows")
		return nil
	}

	plan, err = Build(arena)
	if err != nil {
		event := logging.Error().Err(err).Str("kind", kindOf(err))
		var empty *EmptyPlanError
		if errors.As(err, &empty) && empty.BlockID != 0 {
			event = event.Int("qblockno", empty.BlockID)
		}
		event.Msg("plan tree: nothing to build")
		return nil
	}

	for _, d := range plan.Diagnostics {
		withRow(logging.Warn().Err(d.Err).Str("kind", d.Kind), d.Row).Msg("plan tree: branch degraded to a leaf")
	}
	if !arena.Drained() {
		for handle := range arena.Len() {
			if q := arena.Queue(handle); !q.Empty() {
				logging.Debug().Int("qblockno", q.BlockID()).Int("rows", q.Len()).Msg("plan tree: rows left unplaced")
			}
		}
	}
	return plan
}

func withRow(event *zerolog.Event, row model.ExplainRow) *zerolog.Event {
	return event.
		Int("qblockno", row.QueryBlock).
		Int("planno", row.PlanStep).
		Int("method", row.Method).
		Str("tname", row.TableName)
}
