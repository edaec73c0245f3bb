package insight

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/config"
)

// Severity expresses the urgency of an insight message.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Message represents an actionable observation about a plan.
type Message struct {
	Severity Severity
	Text     string
	Anchor   string
}

// BuildMessages derives human-readable insight messages for a plan.
func BuildMessages(analysis *analyzer.PlanAnalysis) []Message {
	if analysis == nil {
		return nil
	}
	var out []Message

	for _, msg := range degradedMessages(analysis) {
		out = append(out, msg)
	}

	if msg := joinChainMessage(analysis); msg != nil {
		out = append(out, *msg)
	}

	if msg := workfileMessage(analysis); msg != nil {
		out = append(out, *msg)
	}

	if msg := sortMessage(analysis); msg != nil {
		out = append(out, *msg)
	}

	if msg := tableAccessMessage(analysis); msg != nil {
		out = append(out, *msg)
	}

	if msg := unionMessage(analysis); msg != nil {
		out = append(out, *msg)
	}

	return out
}

func degradedMessages(analysis *analyzer.PlanAnalysis) []Message {
	var msgs []Message
	analysis.Walk(func(node *analyzer.NodeStats) {
		if len(node.Warnings) == 0 {
			return
		}
		text := fmt.Sprintf("Incomplete branch: %s (%s); the subplan below it is not shown",
			CompactLabel(node), strings.Join(node.Warnings, "; "))
		msgs = append(msgs, Message{Severity: SeverityCritical, Text: text, Anchor: AnchorID(node)})
	})
	return msgs
}

func joinChainMessage(analysis *analyzer.PlanAnalysis) *Message {
	cfg := config.Active().Insights
	if cfg.JoinChainWarning <= 0 || analysis.LongestJoinChain < cfg.JoinChainWarning {
		return nil
	}
	deepest := deepestJoin(analysis)
	text := fmt.Sprintf("Join chain: %d joins stacked down to %s; check the join order and the indexes on the inner tables",
		analysis.LongestJoinChain, CompactLabel(deepest))
	severity := SeverityWarning
	if cfg.JoinChainCritical > 0 && analysis.LongestJoinChain >= cfg.JoinChainCritical {
		severity = SeverityCritical
	}
	return &Message{Severity: severity, Text: text, Anchor: AnchorID(deepest)}
}

func deepestJoin(analysis *analyzer.PlanAnalysis) *analyzer.NodeStats {
	var deepest *analyzer.NodeStats
	for _, join := range analysis.Joins {
		if deepest == nil || join.JoinDepth > deepest.JoinDepth {
			deepest = join
		}
	}
	return deepest
}

func workfileMessage(analysis *analyzer.PlanAnalysis) *Message {
	if len(analysis.Workfiles) == 0 {
		return nil
	}
	cfg := config.Active().Insights
	names := make([]string, 0, len(analysis.Workfiles))
	for _, wf := range analysis.Workfiles {
		names = append(names, strings.TrimSpace(wf.Row().TableName))
	}
	const shown = 3
	list := strings.Join(names[:min(shown, len(names))], ", ")
	if len(names) > shown {
		list += fmt.Sprintf(" and %d more", len(names)-shown)
	}
	text := fmt.Sprintf("Workfiles: %s materialized (%s)", pluralize(len(names), "workfile"), list)
	severity := SeverityInfo
	if cfg.WorkfileWarning > 0 && len(names) >= cfg.WorkfileWarning {
		severity = SeverityWarning
		text += "; consider rewriting the subqueries as joins"
	}
	return &Message{Severity: severity, Text: text, Anchor: AnchorID(analysis.Workfiles[0])}
}

func sortMessage(analysis *analyzer.PlanAnalysis) *Message {
	cfg := config.Active().Insights
	count := len(analysis.Sorts)
	if cfg.SortWarning <= 0 || count < cfg.SortWarning {
		return nil
	}
	text := fmt.Sprintf("Sorts: %s in the plan; an index on the ordering or grouping columns may remove some",
		pluralize(count, "sort step"))
	return &Message{Severity: SeverityWarning, Text: text, Anchor: AnchorID(analysis.Sorts[0])}
}

func tableAccessMessage(analysis *analyzer.PlanAnalysis) *Message {
	cfg := config.Active().Insights
	count := len(analysis.TableAccesses)
	if cfg.TableScanWarning <= 0 || count < cfg.TableScanWarning {
		return nil
	}
	text := fmt.Sprintf("Table accesses: %s read directly across %s",
		pluralize(count, "table"), pluralize(analysis.QueryBlocks, "query block"))
	return &Message{Severity: SeverityWarning, Text: text, Anchor: AnchorID(analysis.TableAccesses[0])}
}

func unionMessage(analysis *analyzer.PlanAnalysis) *Message {
	if !analysis.Union {
		return nil
	}
	text := fmt.Sprintf("Union: %s, each planned on its own", pluralize(len(analysis.Roots), "leg"))
	return &Message{Severity: SeverityInfo, Text: text}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

// NodeLabel builds a descriptive label for a plan node.
func NodeLabel(node *analyzer.NodeStats) string {
	if node == nil || node.Node == nil {
		return ""
	}
	if node.Node.IsSynthetic() {
		return "TABLE " + node.Node.Table
	}
	return node.Node.Row.String()
}

// CompactLabel shortens long labels for inline summaries.
func CompactLabel(node *analyzer.NodeStats) string {
	label := NodeLabel(node)
	if len(label) > 60 {
		return label[:57] + "..."
	}
	return label
}

// LegTitle names a union leg for headings, e.g. "2nd leg (QB3)".
func LegTitle(root *analyzer.NodeStats) string {
	if root == nil {
		return ""
	}
	title := humanize.Ordinal(root.Leg+1) + " leg"
	if row := root.Row(); row != nil {
		title += fmt.Sprintf(" (QB%d)", row.QueryBlock)
	}
	return title
}

// NormalizeWhitespace collapses whitespace for use in HTML or text.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AnchorID derives a stable HTML id for a node.
func AnchorID(node *analyzer.NodeStats) string {
	if node == nil || node.Node == nil {
		return ""
	}
	var label string
	if node.Node.IsSynthetic() {
		parent := "root"
		if row := node.Parent.Row(); row != nil {
			parent = fmt.Sprintf("qb%d-p%d", row.QueryBlock, row.PlanStep)
		}
		label = fmt.Sprintf("leg%d-%s-table-%s", node.Leg, parent, node.Node.Table)
	} else {
		row := node.Node.Row
		label = fmt.Sprintf("leg%d-qb%d-p%d-%s", node.Leg, row.QueryBlock, row.PlanStep, row.MethodName())
	}
	label = strings.ToLower(label)
	label = strings.ReplaceAll(label, " ", "-")
	label = strings.ReplaceAll(label, "/", "-")
	label = strings.ReplaceAll(label, "\\", "-")
	label = strings.ReplaceAll(label, "(", "")
	label = strings.ReplaceAll(label, ")", "")
	label = strings.ReplaceAll(label, ",", "")
	label = strings.ReplaceAll(label, "--", "-")
	return label
}
