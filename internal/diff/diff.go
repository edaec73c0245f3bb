package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/config"
)

// Options configures the diff output.
type Options struct {
	MaxItems int
}

// Report summarises the delta between two plan analyses.
type Report struct {
	Summary  SummaryDiff      `json:"summary"`
	Changed  []Entry          `json:"changed"`
	Added    []Entry          `json:"added"`
	Removed  []Entry          `json:"removed"`
	Insights []insightMessage `json:"insights"`
	Options  Options          `json:"-"`
}

// Counts are the plan shape metrics compared by a diff.
type Counts struct {
	Nodes         int `json:"nodes"`
	QueryBlocks   int `json:"query_blocks"`
	Joins         int `json:"joins"`
	JoinChain     int `json:"join_chain"`
	Workfiles     int `json:"workfiles"`
	Sorts         int `json:"sorts"`
	TableAccesses int `json:"table_accesses"`
	Degraded      int `json:"degraded"`
}

// SummaryDiff covers high-level shape differences.
type SummaryDiff struct {
	Base   Counts `json:"base"`
	Target Counts `json:"target"`
}

// Entry captures how one table is reached in each plan. An access reads
// "<method>[ under sort| via workfile]"; a table joined or read more than once has
// several.
type Entry struct {
	Table  string   `json:"table"`
	Base   []string `json:"base,omitempty"`
	Target []string `json:"target,omitempty"`
}

type insightMessage struct {
	Severity string `json:"severity"`
	Icon     string `json:"icon"`
	Message  string `json:"message"`
}

// Compare builds a diff report for two plan analyses.
func Compare(base, target *analyzer.PlanAnalysis, opts Options) (*Report, error) {
	if base == nil || len(base.Roots) == 0 {
		return nil, fmt.Errorf("diff: base analysis missing")
	}
	if target == nil || len(target.Roots) == 0 {
		return nil, fmt.Errorf("diff: target analysis missing")
	}

	opts = applyDefaults(opts)

	baseAgg := aggregate(base)
	targetAgg := aggregate(target)

	var changed, added, removed []Entry
	for _, table := range unionKeys(baseAgg, targetAgg) {
		b, inBase := baseAgg[table]
		t, inTarget := targetAgg[table]
		entry := Entry{Table: table, Base: b, Target: t}
		switch {
		case !inBase:
			added = append(added, entry)
		case !inTarget:
			removed = append(removed, entry)
		case strings.Join(b, "\x00") != strings.Join(t, "\x00"):
			changed = append(changed, entry)
		}
	}

	if opts.MaxItems > 0 {
		changed = truncate(changed, opts.MaxItems)
		added = truncate(added, opts.MaxItems)
		removed = truncate(removed, opts.MaxItems)
	}

	report := &Report{
		Summary: SummaryDiff{
			Base:   countsOf(base),
			Target: countsOf(target),
		},
		Changed: changed,
		Added:   added,
		Removed: removed,
		Options: opts,
	}
	report.Insights = synthesizeInsights(report)
	return report, nil
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# qbplan diff\n\n")
	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Base | Target | Δ |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, m := range metrics(r.Summary) {
		_, _ = fmt.Fprintf(&b, "| %s | %s | %s | %+d |\n",
			m.name, humanize.Comma(int64(m.base)), humanize.Comma(int64(m.target)), m.target-m.base)
	}
	b.WriteString("\n")

	b.WriteString("### Insights\n")
	if len(r.Insights) == 0 {
		b.WriteString("- No notable plan changes detected\n")
	} else {
		for _, insight := range r.Insights {
			b.WriteString(fmt.Sprintf("- %s %s\n", insight.Icon, insight.Message))
		}
	}
	b.WriteString("\n")

	b.WriteString("### Changed access paths\n")
	if len(r.Changed) == 0 {
		b.WriteString("- None\n")
	} else {
		b.WriteString("| Table | Base | Target |\n")
		b.WriteString("|---|---|---|\n")
		for _, entry := range r.Changed {
			_, _ = fmt.Fprintf(&b, "| %s | %s | %s |\n", entry.Table, accessList(entry.Base), accessList(entry.Target))
		}
	}
	b.WriteString("\n### Added tables\n")
	writeTables(&b, r.Added, func(e Entry) []string { return e.Target })
	b.WriteString("\n### Removed tables\n")
	writeTables(&b, r.Removed, func(e Entry) []string { return e.Base })
	return b.String()
}

// JSON marshals the diff report into an indented JSON document.
func (r *Report) JSON() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	type alias Report
	return json.MarshalIndent((*alias)(r), "", "  ")
}

func writeTables(b *strings.Builder, entries []Entry, access func(Entry) []string) {
	if len(entries) == 0 {
		b.WriteString("- None\n")
		return
	}
	for _, entry := range entries {
		_, _ = fmt.Fprintf(b, "- %s: %s\n", entry.Table, accessList(access(entry)))
	}
}

func accessList(accesses []string) string {
	if len(accesses) == 0 {
		return "-"
	}
	return strings.Join(accesses, ", ")
}

type metric struct {
	name         string
	base, target int
	// worse is true when growth of the metric is a regression.
	worse bool
}

func metrics(s SummaryDiff) []metric {
	return []metric{
		{"Nodes", s.Base.Nodes, s.Target.Nodes, false},
		{"Query blocks", s.Base.QueryBlocks, s.Target.QueryBlocks, false},
		{"Joins", s.Base.Joins, s.Target.Joins, false},
		{"Join chain", s.Base.JoinChain, s.Target.JoinChain, true},
		{"Workfiles", s.Base.Workfiles, s.Target.Workfiles, true},
		{"Sorts", s.Base.Sorts, s.Target.Sorts, true},
		{"Table accesses", s.Base.TableAccesses, s.Target.TableAccesses, false},
		{"Degraded branches", s.Base.Degraded, s.Target.Degraded, true},
	}
}

func synthesizeInsights(r *Report) []insightMessage {
	if r == nil {
		return nil
	}
	var insights []insightMessage
	cfg := config.Active().Insights

	for _, m := range metrics(r.Summary) {
		if !m.worse || m.base == m.target {
			continue
		}
		text := fmt.Sprintf("%s %d → %d", m.name, m.base, m.target)
		if m.target < m.base {
			insights = append(insights, insightMessage{Severity: "improvement", Icon: "✅", Message: text})
			continue
		}
		level, icon := "warning", "⚠️"
		if m.name == "Degraded branches" ||
			(m.name == "Join chain" && cfg.JoinChainCritical > 0 && m.target >= cfg.JoinChainCritical) {
			level, icon = "critical", "🔥"
		}
		insights = append(insights, insightMessage{Severity: level, Icon: icon, Message: text})
	}

	for _, entry := range r.Changed {
		if hasContext(entry.Target, viaWorkfile) && !hasContext(entry.Base, viaWorkfile) {
			text := fmt.Sprintf("%s is now read through a workfile", entry.Table)
			insights = append(insights, insightMessage{Severity: "warning", Icon: "⚠️", Message: text})
		}
	}
	return insights
}

const (
	underSort   = " under sort"
	viaWorkfile = " via workfile"
)

func hasContext(accesses []string, suffix string) bool {
	for _, a := range accesses {
		if strings.HasSuffix(a, suffix) {
			return true
		}
	}
	return false
}

func countsOf(a *analyzer.PlanAnalysis) Counts {
	return Counts{
		Nodes:         a.NodeCount,
		QueryBlocks:   a.QueryBlocks,
		Joins:         len(a.Joins),
		JoinChain:     a.LongestJoinChain,
		Workfiles:     len(a.Workfiles),
		Sorts:         len(a.Sorts),
		TableAccesses: len(a.TableAccesses),
		Degraded:      len(a.Diagnostics),
	}
}

// aggregate maps every table named by an explain row to the sorted list of its
// access signatures.
func aggregate(a *analyzer.PlanAnalysis) map[string][]string {
	result := map[string][]string{}
	a.Walk(func(n *analyzer.NodeStats) {
		row := n.Row()
		if row == nil || row.IsWorkfile() {
			return
		}
		table := strings.TrimSpace(row.TableName)
		if table == "" {
			return
		}
		result[table] = append(result[table], signature(n))
	})
	for _, accesses := range result {
		sort.Strings(accesses)
	}
	return result
}

func signature(node *analyzer.NodeStats) string {
	sig := node.Row().MethodName()
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Kind == analyzer.KindWorkfile {
			return sig + viaWorkfile
		}
	}
	if node.Parent != nil && node.Parent.Kind == analyzer.KindSort {
		return sig + underSort
	}
	return sig
}

func unionKeys(base, target map[string][]string) []string {
	seen := map[string]struct{}{}
	for k := range base {
		seen[k] = struct{}{}
	}
	for k := range target {
		seen[k] = struct{}{}
	}
	all := make([]string, 0, len(seen))
	for k := range seen {
		all = append(all, k)
	}
	sort.Strings(all)
	return all
}

func truncate(entries []Entry, n int) []Entry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func applyDefaults(opts Options) Options {
	cfg := config.Active().Diff
	if opts.MaxItems <= 0 {
		opts.MaxItems = cfg.MaxItems
	}
	return opts
}
