package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/plantree"
)

// Kind classifies a plan node for reporting.
type Kind string

const (
	KindAccess   Kind = "access"
	KindWorkfile Kind = "workfile"
	KindSort     Kind = "sort"
	KindJoin     Kind = "join"
	KindTable    Kind = "table"
)

// Side tells which child slot of its parent a node occupies.
type Side string

const (
	SideRoot  Side = ""
	SideLeft  Side = "L"
	SideRight Side = "R"
)

// PlanAnalysis contains derived metrics for a reconstructed plan.
type PlanAnalysis struct {
	Plan        *model.Plan
	Roots       []*NodeStats
	Union       bool
	NodeCount   int
	RowCount    int
	QueryBlocks int
	MaxDepth    int
	// LongestJoinChain is the largest number of joins stacked on one path.
	LongestJoinChain int
	Joins            []*NodeStats
	Workfiles        []*NodeStats
	Sorts            []*NodeStats
	TableAccesses    []*NodeStats
	Tables           []string
	Diagnostics      []string
}

// NodeStats augments a plan node with derived attributes.
type NodeStats struct {
	Node      *model.PlanNode
	Parent    *NodeStats
	Kind      Kind
	Side      Side
	Depth     int
	Leg       int
	JoinDepth int
	Warnings  []string
	Children  []*NodeStats
}

// Row returns the explain row of the node, or nil for a synthetic table leaf.
func (n *NodeStats) Row() *model.ExplainRow {
	if n == nil || n.Node == nil {
		return nil
	}
	return n.Node.Row
}

// Analyze derives metrics for the provided plan.
func Analyze(plan *model.Plan) (*PlanAnalysis, error) {
	if plan == nil || len(plan.Trees()) == 0 {
		return nil, fmt.Errorf("analyze: missing plan")
	}

	analysis := &PlanAnalysis{Plan: plan, Union: plan.IsUnion()}
	warnings := diagnosticWarnings(plan)
	for leg, tree := range plan.Trees() {
		analysis.Roots = append(analysis.Roots, buildStats(tree, nil, SideRoot, 0, leg, warnings))
	}

	blocks := map[int]struct{}{}
	tables := map[string]struct{}{}
	if plan.UnionRow != nil {
		analysis.RowCount++
		blocks[plan.UnionRow.QueryBlock] = struct{}{}
	}
	for _, root := range analysis.Roots {
		walk(root, func(n *NodeStats) {
			analysis.NodeCount++
			analysis.MaxDepth = max(analysis.MaxDepth, n.Depth)
			analysis.LongestJoinChain = max(analysis.LongestJoinChain, n.JoinDepth)
			switch n.Kind {
			case KindJoin:
				analysis.Joins = append(analysis.Joins, n)
			case KindWorkfile:
				analysis.Workfiles = append(analysis.Workfiles, n)
			case KindSort:
				analysis.Sorts = append(analysis.Sorts, n)
			case KindAccess:
				analysis.TableAccesses = append(analysis.TableAccesses, n)
			}
			if row := n.Row(); row != nil {
				analysis.RowCount++
				blocks[row.QueryBlock] = struct{}{}
				if name := strings.TrimSpace(row.TableName); name != "" && !row.IsWorkfile() {
					tables[name] = struct{}{}
				}
			}
		})
	}

	analysis.QueryBlocks = len(blocks)
	for name := range tables {
		analysis.Tables = append(analysis.Tables, name)
	}
	sort.Strings(analysis.Tables)
	for _, d := range plan.Diagnostics {
		analysis.Diagnostics = append(analysis.Diagnostics, fmt.Sprintf("%s: %v", d.Kind, d.Err))
	}
	return analysis, nil
}

func buildStats(node *model.PlanNode, parent *NodeStats, side Side, depth, leg int, warnings map[rowKey][]string) *NodeStats {
	stats := &NodeStats{
		Node:   node,
		Parent: parent,
		Kind:   classify(node),
		Side:   side,
		Depth:  depth,
		Leg:    leg,
	}
	if parent != nil {
		stats.JoinDepth = parent.JoinDepth
	}
	if stats.Kind == KindJoin {
		stats.JoinDepth++
	}
	if row := node.Row; row != nil {
		stats.Warnings = append(stats.Warnings, warnings[keyOf(*row)]...)
	}

	if node.Left != nil {
		stats.Children = append(stats.Children, buildStats(node.Left, stats, SideLeft, depth+1, leg, warnings))
	}
	if node.Right != nil {
		stats.Children = append(stats.Children, buildStats(node.Right, stats, SideRight, depth+1, leg, warnings))
	}
	return stats
}

func classify(node *model.PlanNode) Kind {
	if node.IsSynthetic() {
		return KindTable
	}
	switch node.Row.Method {
	case model.MethodAccess:
		if node.Row.IsWorkfile() {
			return KindWorkfile
		}
		return KindAccess
	case model.MethodSort:
		return KindSort
	default:
		return KindJoin
	}
}

type rowKey struct {
	block, step int
	table       string
}

func keyOf(row model.ExplainRow) rowKey {
	return rowKey{block: row.QueryBlock, step: row.PlanStep, table: strings.TrimSpace(row.TableName)}
}

func diagnosticWarnings(plan *model.Plan) map[rowKey][]string {
	out := map[rowKey][]string{}
	for _, d := range plan.Diagnostics {
		var text string
		switch d.Kind {
		case plantree.KindMalformedReference:
			text = "workfile reference not understood"
		case plantree.KindUnresolvedReference:
			text = "workfile source block not found"
		default:
			continue
		}
		k := keyOf(d.Row)
		out[k] = append(out[k], text)
	}
	return out
}

// Walk visits every node of the analysis depth first.
func (a *PlanAnalysis) Walk(fn func(*NodeStats)) {
	if a == nil {
		return
	}
	for _, root := range a.Roots {
		walk(root, fn)
	}
}

func walk(n *NodeStats, fn func(*NodeStats)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		walk(child, fn)
	}
}
