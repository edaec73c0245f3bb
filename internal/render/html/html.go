package html

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mickamy/qbplan/internal/analyzer"
	"github.com/mickamy/qbplan/internal/insight"
)

// Options configures the HTML renderer.
type Options struct {
	Title         string
	IncludeStyles bool
}

// Render writes an HTML report containing a plan summary and annotated tree.
func Render(w io.Writer, analysis *analyzer.PlanAnalysis, opts Options) error {
	if analysis == nil || len(analysis.Roots) == 0 {
		return fmt.Errorf("html render: empty analysis")
	}
	if opts.Title == "" {
		opts.Title = "qbplan report"
	}
	data := buildTemplateData(analysis, opts)
	tpl, err := template.New("report").Funcs(template.FuncMap{"join": strings.Join}).Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("html render: compile template: %w", err)
	}
	if err := tpl.Execute(w, data); err != nil {
		return fmt.Errorf("html render: execute template: %w", err)
	}
	return nil
}

type templateData struct {
	Title         string
	IncludeStyles bool
	Summary       summaryView
	Union         string
	Trees         []treeView
	Workfiles     []listView
	Tables        []listView
	Insights      []insightView
}

type summaryView struct {
	QueryBlocks string
	Rows        string
	NodeCount   string
	Joins       int
	JoinChain   int
	Workfiles   int
	Sorts       int
}

type listView struct {
	Label  string
	Detail string
	Extra  string
	Anchor string
}

type insightView struct {
	Icon     string
	Severity string
	Text     string
	Anchor   string
}

type treeView struct {
	Title string
	Root  *nodeView
}

type nodeView struct {
	Label      string
	Anchor     string
	Kind       string
	Side       string
	BlockType  string
	Warnings   []string
	Children   []*nodeView
	HasWarning bool
}

func buildTemplateData(analysis *analyzer.PlanAnalysis, opts Options) templateData {
	messages := insight.BuildMessages(analysis)
	insights := make([]insightView, 0, len(messages))
	for _, msg := range messages {
		insights = append(insights, insightView{
			Icon:     severityIcon(msg.Severity),
			Severity: string(msg.Severity),
			Text:     msg.Text,
			Anchor:   msg.Anchor,
		})
	}

	trees := make([]treeView, 0, len(analysis.Roots))
	for _, root := range analysis.Roots {
		view := treeView{Root: buildNodeView(root)}
		if analysis.Union {
			view.Title = insight.LegTitle(root)
		}
		trees = append(trees, view)
	}

	workfiles := make([]listView, 0, len(analysis.Workfiles))
	for _, node := range analysis.Workfiles {
		item := listView{
			Label:  strings.TrimSpace(node.Row().TableName),
			Detail: insight.NodeLabel(node),
			Extra:  strings.Join(node.Warnings, "; "),
			Anchor: insight.AnchorID(node),
		}
		if len(node.Children) > 0 {
			if source := node.Children[0].Row(); source != nil {
				item.Extra = fmt.Sprintf("built by QB%d", source.QueryBlock)
			}
		}
		workfiles = append(workfiles, item)
	}

	accesses := map[string][]string{}
	analysis.Walk(func(node *analyzer.NodeStats) {
		row := node.Row()
		if row == nil || row.IsWorkfile() {
			return
		}
		if table := strings.TrimSpace(row.TableName); table != "" {
			accesses[table] = append(accesses[table], row.MethodName())
		}
	})
	tables := make([]listView, 0, len(analysis.Tables))
	for _, table := range analysis.Tables {
		tables = append(tables, listView{
			Label:  table,
			Detail: strings.Join(accesses[table], ", "),
			Extra:  humanize.Comma(int64(len(accesses[table]))) + " steps",
		})
	}

	var union string
	if row := analysis.Plan.UnionRow; analysis.Union && row != nil {
		union = fmt.Sprintf("%s (QB%d/P%d) with %d legs", strings.TrimSpace(row.BlockType), row.QueryBlock, row.PlanStep, len(analysis.Roots))
	}

	return templateData{
		Title:         opts.Title,
		IncludeStyles: opts.IncludeStyles,
		Summary: summaryView{
			QueryBlocks: humanize.Comma(int64(analysis.QueryBlocks)),
			Rows:        humanize.Comma(int64(analysis.RowCount)),
			NodeCount:   humanize.Comma(int64(analysis.NodeCount)),
			Joins:       len(analysis.Joins),
			JoinChain:   analysis.LongestJoinChain,
			Workfiles:   len(analysis.Workfiles),
			Sorts:       len(analysis.Sorts),
		},
		Union:     union,
		Trees:     trees,
		Workfiles: workfiles,
		Tables:    tables,
		Insights:  insights,
	}
}

func buildNodeView(node *analyzer.NodeStats) *nodeView {
	view := &nodeView{
		Label:    insight.NodeLabel(node),
		Anchor:   insight.AnchorID(node),
		Kind:     string(node.Kind),
		Side:     string(node.Side),
		Warnings: append([]string(nil), node.Warnings...),
	}
	if row := node.Row(); row != nil {
		view.BlockType = strings.TrimSpace(row.BlockType)
	}
	if len(view.Warnings) > 0 {
		view.HasWarning = true
	}
	for _, child := range node.Children {
		view.Children = append(view.Children, buildNodeView(child))
	}
	return view
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

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	{{- if .IncludeStyles }}
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; padding: 0; background: #f7f7f8; color: #202124; }
		main { max-width: 960px; margin: 0 auto; padding: 32px 24px 48px; }
		header { background: #212a3b; color: #f7f7f8; padding: 32px 24px; }
		header h1 { margin: 0 0 8px; font-size: 28px; }
		header p { margin: 4px 0; opacity: 0.8; }
		section { margin-top: 32px; }
		section h2 { margin-bottom: 12px; font-size: 20px; }
		section h3.leg { margin: 20px 0 10px; font-size: 16px; color: #364a63; }
		.summary-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: 12px; }
		.summary-tile { background: #fff; border-radius: 10px; padding: 16px; box-shadow: 0 6px 18px rgba(13,28,39,0.12); }
		.summary-tile strong { display: block; font-size: 14px; text-transform: uppercase; letter-spacing: 0.04em; color: #5b7083; margin-bottom: 6px; }
		.summary-tile span { font-size: 18px; font-weight: 600; }
		.flex-list { display: flex; flex-direction: column; gap: 10px; }
		.list-card { background: #fff; border-radius: 12px; padding: 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); }
		.list-card header { display: flex; justify-content: space-between; align-items: baseline; background: none; color: inherit; padding: 0; }
		.list-card header h3 { margin: 0; font-size: 16px; color: #253043; }
		.list-card header span { font-size: 13px; color: #5b7083; }
		.list-card ul { list-style: none; padding: 0; margin: 12px 0 0; }
		.list-card li { display: grid; grid-template-columns: 1fr auto auto; gap: 12px; font-size: 14px; padding: 8px 0; border-bottom: 1px solid rgba(91,112,131,0.16); }
		.list-card li:last-child { border-bottom: none; }
		.plan-tree { list-style: none; margin: 0; padding: 0; }
		.plan-tree > li { margin-bottom: 12px; }
		.node-card { background: #fff; border-radius: 12px; margin-bottom: 12px; position: relative; padding: 14px 18px; box-shadow: 0 8px 20px rgba(16,37,58,0.12); border-left: 6px solid rgba(33,42,59,0.1); }
		.node-card.kind-join { border-left-color: #1a9fb5; }
		.node-card.kind-workfile { border-left-color: #a23fb5; }
		.node-card.kind-sort { border-left-color: #3f63b5; }
		.node-card.kind-access { border-left-color: #2e9c4f; }
		.node-card.kind-table { border-left-color: rgba(33,42,59,0.1); box-shadow: none; }
		.node-header { display: flex; justify-content: space-between; gap: 12px; align-items: baseline; }
		.node-side { display: inline-block; min-width: 18px; font-size: 12px; font-weight: 700; color: #5b7083; }
		.node-label { font-weight: 600; font-size: 15px; }
		.node-metrics { font-size: 13px; color: #5b7083; }
		.node-meta { margin-top: 8px; font-size: 13px; color: #364a63; display: flex; flex-wrap: wrap; gap: 12px 18px; }
		.node-warning { color: #b25600; font-weight: 600; }
		.node-children { margin-left: 24px; border-left: 1px dashed rgba(33,42,59,0.15); padding-left: 20px; list-style: none; }
		.insight-list { list-style: none; margin: 0; padding: 0; display: flex; flex-direction: column; gap: 10px; }
		.insight-list li { background: #fff; border-radius: 12px; padding: 14px 16px; box-shadow: 0 4px 12px rgba(13,28,39,0.10); font-size: 14px; color: #253043; display: flex; align-items: center; gap: 10px; }
		.insight-list li span.icon { font-size: 18px; }
		.insight-list li span.insight-text a { color: inherit; }
		.insight-list li.severity-critical { border-left: 4px solid #f44747; }
		.insight-list li.severity-warning { border-left: 4px solid #faae32; }
		.insight-list li.severity-info { border-left: 4px solid rgba(33,42,59,0.15); }
		@media (max-width: 640px) {
			main { padding: 24px 16px 32px; }
			.list-card li { grid-template-columns: 1fr auto; }
		}
	</style>
	{{- end }}
</head>
<body>
	<header>
		<h1>{{.Title}}</h1>
		<p>Query blocks {{.Summary.QueryBlocks}} · Explain rows {{.Summary.Rows}} · Nodes {{.Summary.NodeCount}}</p>
		{{- if .Union }}
		<p>{{.Union}}</p>
		{{- end }}
	</header>
	<main>
		<section>
			<h2>Highlights</h2>
			<div class="summary-grid">
				<div class="summary-tile">
					<strong>Query blocks</strong>
					<span>{{.Summary.QueryBlocks}}</span>
				</div>
				<div class="summary-tile">
					<strong>Plan nodes</strong>
					<span>{{.Summary.NodeCount}}</span>
				</div>
				<div class="summary-tile">
					<strong>Joins / chain</strong>
					<span>{{.Summary.Joins}} / {{.Summary.JoinChain}}</span>
				</div>
				<div class="summary-tile">
					<strong>Workfiles</strong>
					<span>{{.Summary.Workfiles}}</span>
				</div>
				<div class="summary-tile">
					<strong>Sorts</strong>
					<span>{{.Summary.Sorts}}</span>
				</div>
			</div>
		</section>

		{{- if .Insights }}
		<section>
			<h2>Insights</h2>
			<ul class="insight-list">
				{{- range .Insights }}
				<li class="severity-{{.Severity}}"><span class="icon">{{.Icon}}</span><span class="insight-text">
					{{- if .Anchor -}}
						<a href="#{{.Anchor}}">{{.Text}}</a>
					{{- else -}}
						{{.Text}}
					{{- end -}}
				</span></li>
				{{- end }}
			</ul>
		</section>
		{{- end }}

		<section>
			<h2>Signals</h2>
			<div class="flex-list">
				<div class="list-card">
					<header>
						<h3>Workfiles</h3>
						<span>Materialized query blocks</span>
					</header>
					<ul>
						{{- if .Workfiles }}
							{{- range .Workfiles }}
							<li>
								<span><a href="#{{.Anchor}}">{{.Label}}</a></span>
								<span>{{.Detail}}</span>
								<span>{{.Extra}}</span>
							</li>
							{{- end }}
						{{- else }}
							<li><span>No workfiles in this plan</span></li>
						{{- end }}
					</ul>
				</div>
				<div class="list-card">
					<header>
						<h3>Tables</h3>
						<span>How each table is reached</span>
					</header>
					<ul>
						{{- if .Tables }}
							{{- range .Tables }}
							<li>
								<span>{{.Label}}</span>
								<span>{{.Detail}}</span>
								<span>{{.Extra}}</span>
							</li>
							{{- end }}
						{{- else }}
							<li><span>No tables named by the plan</span></li>
						{{- end }}
					</ul>
				</div>
			</div>
		</section>

		<section>
			<h2>Plan Tree</h2>
			{{- range .Trees }}
			{{- if .Title }}
			<h3 class="leg">{{.Title}}</h3>
			{{- end }}
			<ul class="plan-tree">
				{{ template "node" .Root }}
			</ul>
			{{- end }}
		</section>
	</main>

	{{ define "node" }}
	<li>
		<div class="node-card kind-{{.Kind}}" id="{{.Anchor}}">
		<div class="node-header">
			<span class="node-label">{{if .Side}}<span class="node-side">{{.Side}}</span>{{end}}{{.Label}}</span>
			<span class="node-metrics">{{.Kind}}{{if .BlockType}} · {{.BlockType}}{{end}}</span>
		</div>
			{{- if .HasWarning }}
			<div class="node-meta">
				<span class="node-warning">{{ join .Warnings "; " }}</span>
			</div>
			{{- end }}
		</div>
		{{- if .Children }}
		<ul class="node-children">
			{{- range .Children }}
				{{ template "node" . }}
			{{- end }}
		</ul>
		{{- end }}
	</li>
	{{ end }}
</body>
</html>
`
