package plantree

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/mickamy/qbplan/internal/model"
)

// WorkfileRef is a decoded workfile name such as DSNWFQB(02).
type WorkfileRef struct {
	Name    string
	BlockID int
}

var workfilePattern = regexp.MustCompile(`^([A-Za-z_$#@][A-Za-z0-9_$#@.]*)\(([^()]*)\)$`)

// ParseWorkfileRef decodes the query block that materializes a workfile from its
// NAME(n) table name. Surrounding blanks are ignored.
func ParseWorkfileRef(tableName string) (WorkfileRef, error) {
	return parseRef(model.ExplainRow{TableName: tableName, TableType: model.TableTypeWorkfile})
}

func parseRef(row model.ExplainRow) (WorkfileRef, error) {
	m := workfilePattern.FindStringSubmatch(strings.TrimSpace(row.TableName))
	if m == nil {
		return WorkfileRef{}, &MalformedReferenceError{Row: row, Err: errors.New("expected NAME(n)")}
	}
	digits := m[2]
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return WorkfileRef{}, &MalformedReferenceError{Row: row, Err: &strconv.NumError{Func: "Atoi", Num: digits, Err: strconv.ErrSyntax}}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return WorkfileRef{}, &MalformedReferenceError{Row: row, Err: err}
	}
	if n <= 0 {
		return WorkfileRef{}, &MalformedReferenceError{Row: row, Err: errors.New("query block must be positive")}
	}
	return WorkfileRef{Name: m[1], BlockID: n}, nil
}
