package model

import (
	"fmt"
	"strings"
)

// Access method codes as reported in PLAN_TABLE.METHOD.
const (
	MethodAccess      = 0
	MethodNestedLoop  = 1
	MethodMergeScan   = 2
	MethodSort        = 3
	MethodHybridJoin  = 4
	TableTypeWorkfile = "W"
)

// ExplainRow is one PLAN_TABLE row, i.e. one step of an access plan.
type ExplainRow struct {
	QueryBlock int    `json:"QBLOCKNO"`
	PlanStep   int    `json:"PLANNO"`
	BlockType  string `json:"QBLOCK_TYPE"`
	Method     int    `json:"METHOD"`
	TableName  string `json:"TNAME"`
	TableType  string `json:"TABLE_TYPE"`
}

// IsWorkfile reports whether the row accesses an engine-materialized workfile.
func (r ExplainRow) IsWorkfile() bool {
	return strings.EqualFold(strings.TrimSpace(r.TableType), TableTypeWorkfile)
}

// IsUnion reports whether the row belongs to a UNION or UNION ALL query block.
func (r ExplainRow) IsUnion() bool {
	switch strings.ToUpper(strings.TrimSpace(r.BlockType)) {
	case "UNION", "UNIONA":
		return true
	default:
		return false
	}
}

// MethodName returns a short display name for the access method.
func (r ExplainRow) MethodName() string {
	switch r.Method {
	case MethodAccess:
		return "ACCESS"
	case MethodNestedLoop:
		return "NLJOIN"
	case MethodMergeScan:
		return "MSJOIN"
	case MethodSort:
		return "SORT"
	case MethodHybridJoin:
		return "HBJOIN"
	default:
		return fmt.Sprintf("METHOD %d", r.Method)
	}
}

// String identifies the row in logs and diagnostics.
func (r ExplainRow) String() string {
	s := fmt.Sprintf("QB%d/P%d %s", r.QueryBlock, r.PlanStep, r.MethodName())
	if name := strings.TrimSpace(r.TableName); name != "" {
		s += " " + name
	}
	return s
}

// PlanNode is one node of the reconstructed access plan. Row is nil for the synthetic
// leaf that labels the inner table of a join step; Table carries that label.
type PlanNode struct {
	Row   *ExplainRow
	Table string
	Left  *PlanNode
	Right *PlanNode
}

// NewNode wraps a row in a childless node.
func NewNode(row ExplainRow) *PlanNode {
	return &PlanNode{Row: &row}
}

// NewTableLeaf builds the synthetic leaf for a join step's inner table.
func NewTableLeaf(table string) *PlanNode {
	return &PlanNode{Table: strings.TrimSpace(table)}
}

// IsSynthetic reports whether the node carries only a table label.
func (n *PlanNode) IsSynthetic() bool {
	return n != nil && n.Row == nil
}

// IsLeaf reports whether the node has no children.
func (n *PlanNode) IsLeaf() bool {
	return n == nil || (n.Left == nil && n.Right == nil)
}

// Children returns the non-nil children, left first.
func (n *PlanNode) Children() []*PlanNode {
	if n == nil {
		return nil
	}
	var out []*PlanNode
	if n.Left != nil {
		out = append(out, n.Left)
	}
	if n.Right != nil {
		out = append(out, n.Right)
	}
	return out
}

// Walk visits the subtree depth first, node before children.
func (n *PlanNode) Walk(fn func(*PlanNode)) {
	if n == nil {
		return
	}
	fn(n)
	n.Left.Walk(fn)
	n.Right.Walk(fn)
}

// PlanForest holds one tree per union leg.
type PlanForest []*PlanNode

// Diagnostic records a branch that was degraded while building the tree.
type Diagnostic struct {
	Kind string
	Row  ExplainRow
	Err  error
}

// Plan is the result of a build. Exactly one of Root or Legs is set.
type Plan struct {
	Root *PlanNode
	Legs PlanForest
	// UnionRow is the consumed root row of a union plan.
	UnionRow    *ExplainRow
	Diagnostics []Diagnostic
}

// IsUnion reports whether the plan is a forest of union legs.
func (p *Plan) IsUnion() bool {
	return p != nil && p.Root == nil && p.UnionRow != nil
}

// Trees returns the roots to render: the single root, or every union leg.
func (p *Plan) Trees() []*PlanNode {
	if p == nil {
		return nil
	}
	if p.Root != nil {
		return []*PlanNode{p.Root}
	}
	return p.Legs
}

// Rows returns every explain row referenced by the plan, in depth-first order.
func (p *Plan) Rows() []ExplainRow {
	if p == nil {
		return nil
	}
	var out []ExplainRow
	if p.UnionRow != nil {
		out = append(out, *p.UnionRow)
	}
	for _, tree := range p.Trees() {
		tree.Walk(func(n *PlanNode) {
			if n.Row != nil {
				out = append(out, *n.Row)
			}
		})
	}
	return out
}
