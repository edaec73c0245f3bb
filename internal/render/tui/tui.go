package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/insight"
)

// Options controls how the TUI renderer behaves.
type Options struct {
	EnableColor  bool
	MaxDepth     int
	ShowWarnings bool
}

type palette struct {
	kinds   map[analyzer.Kind]*color.Color
	warning *color.Color
	heading *color.Color
}

func newPalette(enable bool) palette {
	p := palette{
		kinds: map[analyzer.Kind]*color.Color{
			analyzer.KindJoin:     color.New(color.FgCyan, color.Bold),
			analyzer.KindWorkfile: color.New(color.FgMagenta),
			analyzer.KindSort:     color.New(color.FgBlue),
			analyzer.KindAccess:   color.New(color.FgGreen),
			analyzer.KindTable:    color.New(color.Faint),
		},
		warning: color.New(color.FgYellow),
		heading: color.New(color.Bold),
	}
	for _, c := range p.all() {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) all() []*color.Color {
	out := []*color.Color{p.warning, p.heading}
	for _, c := range p.kinds {
		out = append(out, c)
	}
	return out
}

// Render prints an ASCII tree of the plan, one line per node with its side under
// the parent.
func Render(w io.Writer, analysis *analyzer.PlanAnalysis, opts Options) error {
	if w == nil {
		return errors.New("tui: writer is nil")
	}
	if analysis == nil || len(analysis.Roots) == 0 {
		return errors.New("tui: empty analysis")
	}
	colors := newPalette(opts.EnableColor)

	_, _ = fmt.Fprintf(w, "Query blocks %s | Explain rows %s | Nodes %s | Depth %d\n",
		humanize.Comma(int64(analysis.QueryBlocks)), humanize.Comma(int64(analysis.RowCount)),
		humanize.Comma(int64(analysis.NodeCount)), analysis.MaxDepth)
	_, _ = fmt.Fprintf(w, "Joins %d (longest chain %d) | Workfiles %d | Sorts %d | Table accesses %d\n\n",
		len(analysis.Joins), analysis.LongestJoinChain, len(analysis.Workfiles), len(analysis.Sorts), len(analysis.TableAccesses))

	renderInsights(w, analysis)

	if analysis.Union {
		union := "UNION"
		if row := analysis.Plan.UnionRow; row != nil {
			union = fmt.Sprintf("%s (QB%d/P%d)", strings.TrimSpace(row.BlockType), row.QueryBlock, row.PlanStep)
		}
		_, _ = fmt.Fprintf(w, "%s with %d legs\n", colors.heading.Sprint(union), len(analysis.Roots))
	}
	for i, root := range analysis.Roots {
		if analysis.Union {
			if i > 0 {
				_, _ = fmt.Fprintln(w)
			}
			_, _ = fmt.Fprintf(w, "%s:\n", insight.LegTitle(root))
		}
		_, _ = fmt.Fprintf(w, "%s\n", renderLine(root, colors, opts))
		printChildren(w, root, "", colors, opts)
	}

	return nil
}

func printChildren(w io.Writer, parent *analyzer.NodeStats, prefix string, colors palette, opts Options) {
	for i, child := range parent.Children {
		renderBranch(w, child, prefix, i == len(parent.Children)-1, colors, opts)
	}
}

func renderBranch(w io.Writer, node *analyzer.NodeStats, prefix string, isLast bool, colors palette, opts Options) {
	connector := "|-- "
	childPrefix := prefix + "|   "
	if isLast {
		connector = "`-- "
		childPrefix = prefix + "    "
	}

	line := renderLine(node, colors, opts)
	_, _ = fmt.Fprintf(w, "%s%s%s %s\n", prefix, connector, node.Side, line)

	if opts.MaxDepth > 0 && node.Depth >= opts.MaxDepth {
		if len(node.Children) > 0 {
			_, _ = fmt.Fprintf(w, "%s`-- ... (%d more nodes)\n", childPrefix, countDescendants(node))
		}
		return
	}

	printChildren(w, node, childPrefix, colors, opts)
}

func renderLine(node *analyzer.NodeStats, colors palette, opts Options) string {
	line := insight.NodeLabel(node)
	if c, ok := colors.kinds[node.Kind]; ok {
		line = c.Sprint(line)
	}

	if node.Kind == analyzer.KindWorkfile && len(node.Children) > 0 {
		if source := node.Children[0].Row(); source != nil {
			line += fmt.Sprintf(" <= QB%d", source.QueryBlock)
		}
	}

	if opts.ShowWarnings && len(node.Warnings) > 0 {
		line += " [" + colors.warning.Sprint(strings.Join(node.Warnings, "; ")) + "]"
	}
	return line
}

func renderInsights(w io.Writer, analysis *analyzer.PlanAnalysis) {
	messages := insight.BuildMessages(analysis)
	if len(messages) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "Insights:")
	for _, msg := range messages {
		icon := severityIcon(msg.Severity)
		_, _ = fmt.Fprintf(w, "  - %s %s\n", icon, msg.Text)
	}
	_, _ = fmt.Fprintln(w)
}

func countDescendants(node *analyzer.NodeStats) int {
	total := 0
	var walk func(*analyzer.NodeStats)
	walk = func(n *analyzer.NodeStats) {
		for _, child := range n.Children {
			total++
			walk(child)
		}
	}
	walk(node)
	return total
}

func severityIcon(sev insight.Severity) string {
	switch sev {
	case insight.SeverityCritical:
		return "🔥"
	case insight.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
