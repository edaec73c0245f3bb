package plantree

import (
	"github.com/mickamy/qbplan/internal/model"
	"github.com/mickamy/qbplan/internal/qblock"
)

// maxChildren is the fan-out of every plan node.
const maxChildren = 2

type builder struct {
	diagnostics []model.Diagnostic
}

// Build assembles the access plan from partitioned query blocks, consuming their rows.
//
// The first row of the first block is the plan root. A root that is a sort step of a
// UNION block turns the result into a forest with one tree per query block; any other
// root is expanded into a single binary tree against every block. A join root gets its
// inner table as a left leaf, and a workfile root is fed by the block it names.
// Workfile references that cannot be parsed or resolved leave a leaf behind and are
// reported in Plan.Diagnostics.
func Build(arena *qblock.Arena) (*model.Plan, error) {
	if arena.Len() == 0 {
		return nil, &EmptyPlanError{}
	}
	seq := arena.Sequence()
	first := seq.Front()
	rootRow, ok := first.Pop()
	if !ok {
		return nil, &EmptyPlanError{BlockID: first.BlockID()}
	}

	b := &builder{}
	if rootRow.Method == model.MethodSort && rootRow.IsUnion() {
		return b.buildUnion(arena, seq, rootRow), nil
	}

	root := model.NewNode(rootRow)
	switch {
	case isJoin(rootRow):
		root.Left = model.NewTableLeaf(rootRow.TableName)
		b.expand(root, seq, 1)
	case rootRow.Method == model.MethodAccess && rootRow.IsWorkfile():
		if !b.spliceWorkfile(root, seq) {
			b.expand(root, seq, maxChildren)
		}
	default:
		b.expand(root, seq, maxChildren)
	}
	return &model.Plan{Root: root, Diagnostics: b.diagnostics}, nil
}

func (b *builder) buildUnion(arena *qblock.Arena, seq *qblock.Sequence, unionRow model.ExplainRow) *model.Plan {
	legs := make(model.PlanForest, 0, arena.Len())
	for handle := range arena.Len() {
		q := arena.Queue(handle)
		// The union block itself usually holds nothing but the union row.
		legRow, ok := q.Pop()
		if !ok {
			continue
		}
		leg := model.NewNode(legRow)
		expected := maxChildren
		if legRow.Method == model.MethodSort {
			expected = 1
		}
		b.expand(leg, seq.Single(handle), expected)
		legs = append(legs, leg)
	}
	return &model.Plan{Legs: legs, UnionRow: &unionRow, Diagnostics: b.diagnostics}
}

// expand pops up to expected children for node off the front of seq. One child goes to
// the right, two children fill left then right.
func (b *builder) expand(node *model.PlanNode, seq *qblock.Sequence, expected int) {
	seq.DropExhausted()
	expected = min(expected, maxChildren)

	children := make([]*model.PlanNode, 0, maxChildren)
	for range expected {
		row, ok := seq.Front().Pop()
		if !ok {
			continue
		}
		child := model.NewNode(row)
		switch {
		case row.Method == model.MethodAccess:
			if row.IsWorkfile() {
				b.spliceWorkfile(child, seq)
			}
		case row.Method == model.MethodSort:
			b.expand(child, seq, 1)
		default:
			child.Left = model.NewTableLeaf(row.TableName)
			b.expand(child, seq, 1)
		}
		children = append(children, child)
	}

	switch len(children) {
	case 1:
		node.Right = children[0]
	case 2:
		node.Left, node.Right = children[0], children[1]
	}
}

// spliceWorkfile hangs the subplan of the query block that materializes the workfile
// read by node below it, and removes that block from seq. It reports false when the
// reference could not be followed.
func (b *builder) spliceWorkfile(node *model.PlanNode, seq *qblock.Sequence) bool {
	row := *node.Row
	ref, err := parseRef(row)
	if err != nil {
		b.degrade(err, row)
		return false
	}
	handle, ok := seq.Take(ref.BlockID)
	if !ok {
		b.degrade(&UnresolvedReferenceError{Row: row, BlockID: ref.BlockID}, row)
		return false
	}
	b.expand(node, seq.Single(handle), 1)
	return true
}

func isJoin(row model.ExplainRow) bool {
	return row.Method != model.MethodAccess && row.Method != model.MethodSort
}

func (b *builder) degrade(err error, row model.ExplainRow) {
	b.diagnostics = append(b.diagnostics, model.Diagnostic{Kind: kindOf(err), Row: row, Err: err})
}
