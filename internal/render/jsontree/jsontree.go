package jsontree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mickamy/qbplan/internal/model"
)

// Document is the JSON shape of a rendered plan.
type Document struct {
	Union       *Step        `json:"union,omitempty"`
	Trees       []*Node      `json:"trees"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Step mirrors one explain row.
type Step struct {
	QueryBlock int    `json:"qblockno"`
	PlanStep   int    `json:"planno"`
	BlockType  string `json:"qblock_type,omitempty"`
	Method     int    `json:"method"`
	MethodName string `json:"method_name"`
	TableName  string `json:"tname,omitempty"`
	TableType  string `json:"table_type,omitempty"`
}

// Node is a plan node. Table is set instead of Step for the inner-table leaf of a join.
type Node struct {
	*Step
	Table string `json:"table,omitempty"`
	Left  *Node  `json:"left,omitempty"`
	Right *Node  `json:"right,omitempty"`
}

// Diagnostic reports a branch that was cut short.
type Diagnostic struct {
	Kind  string `json:"kind"`
	Step  Step   `json:"step"`
	Error string `json:"error"`
}

// Build converts a plan into its JSON document.
func Build(plan *model.Plan) (*Document, error) {
	if plan == nil || len(plan.Trees()) == 0 {
		return nil, errors.New("jsontree: empty plan")
	}
	doc := &Document{Trees: make([]*Node, 0, len(plan.Trees()))}
	if plan.UnionRow != nil {
		doc.Union = stepOf(*plan.UnionRow)
	}
	for _, tree := range plan.Trees() {
		doc.Trees = append(doc.Trees, nodeOf(tree))
	}
	for _, d := range plan.Diagnostics {
		diag := Diagnostic{Kind: d.Kind, Step: *stepOf(d.Row)}
		if d.Err != nil {
			diag.Error = d.Err.Error()
		}
		doc.Diagnostics = append(doc.Diagnostics, diag)
	}
	return doc, nil
}

// Render writes the plan as indented JSON.
func Render(w io.Writer, plan *model.Plan) error {
	doc, err := Build(plan)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("jsontree: encode: %w", err)
	}
	return nil
}

func nodeOf(n *model.PlanNode) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Table: n.Table, Left: nodeOf(n.Left), Right: nodeOf(n.Right)}
	if n.Row != nil {
		out.Step = stepOf(*n.Row)
	}
	return out
}

func stepOf(row model.ExplainRow) *Step {
	return &Step{
		QueryBlock: row.QueryBlock,
		PlanStep:   row.PlanStep,
		BlockType:  strings.TrimSpace(row.BlockType),
		Method:     row.Method,
		MethodName: row.MethodName(),
		TableName:  strings.TrimSpace(row.TableName),
		TableType:  strings.TrimSpace(row.TableType),
	}
}
