package plantree

import (
	"errors"
	"fmt"

	"github.com/mickamy/qbplan/internal/model"
)

var (
	ErrEmptyPlan           = errors.New("plantree: no plan to build")
	ErrMalformedReference  = errors.New("plantree: malformed workfile reference")
	ErrUnresolvedReference = errors.New("plantree: unresolved workfile reference")
)

// Diagnostic kinds, as recorded in model.Diagnostic.Kind.
const (
	KindEmptyPlan           = "EmptyPlanError"
	KindMalformedReference  = "MalformedReferenceError"
	KindUnresolvedReference = "UnresolvedReferenceError"
)

// EmptyPlanError means there was no row to start a tree from. BlockID is zero when
// there were no query blocks at all.
type EmptyPlanError struct {
	BlockID int
}

func (e *EmptyPlanError) Error() string {
	if e.BlockID == 0 {
		return ErrEmptyPlan.Error()
	}
	return fmt.Sprintf("%s: query block %d has no rows left", ErrEmptyPlan, e.BlockID)
}

func (e *EmptyPlanError) Is(target error) bool { return target == ErrEmptyPlan }

// MalformedReferenceError means a workfile name is not of the form NAME(n).
type MalformedReferenceError struct {
	Row model.ExplainRow
	Err error
}

func (e *MalformedReferenceError) Error() string {
	msg := fmt.Sprintf("%s %q in %s", ErrMalformedReference, e.Row.TableName, e.Row)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedReferenceError) Is(target error) bool { return target == ErrMalformedReference }

func (e *MalformedReferenceError) Unwrap() error { return e.Err }

// UnresolvedReferenceError means no remaining query block materializes the workfile.
type UnresolvedReferenceError struct {
	Row     model.ExplainRow
	BlockID int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: %s names query block %d", ErrUnresolvedReference, e.Row, e.BlockID)
}

func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPlan):
		return KindEmptyPlan
	case errors.Is(err, ErrMalformedReference):
		return KindMalformedReference
	case errors.Is(err, ErrUnresolvedReference):
		return KindUnresolvedReference
	default:
		return "Error"
	}
}
