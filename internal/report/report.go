// Package report renders a session into a self-contained, print-ready HTML
// executive report: inline CSS and SVG only, no scripts beyond the print
// controls, suitable for opening in a browser and saving to PDF.
package report

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"supercritical/internal/scl"
)

// ExecutiveHTML renders the full report. It is a pure function of the session
// and clock; missing optional data renders as empty sections, never an error.
func ExecutiveHTML(sess scl.Session, now time.Time) string {
	nodes := sess.EffectGraph.Nodes
	edges := sess.EffectGraph.Edges
	modeLabel := titleCase(strings.ReplaceAll(string(sess.Mode), "-", " "))
	date := now.Format("January 2, 2006")
	clock := now.Format("03:04 PM")

	totalEffects := len(nodes)
	firstOrder := 0
	higherOrder := 0
	for _, n := range nodes {
		if n.Order == 1 {
			firstOrder++
		} else if n.Order >= 2 {
			higherOrder++
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\"/>\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\"/>\n")
	fmt.Fprintf(&b, "<title>SCL Executive Report - %s Analysis</title>\n", html.EscapeString(modeLabel))
	b.WriteString("<style>\n")
	b.WriteString(reportCSS)
	b.WriteString("</style>\n</head>\n<body>\n")

	// Print controls, hidden when printing.
	b.WriteString(`<div class="print-bar no-print">
<button class="btn btn-outline" onclick="window.close()">Close</button>
<button class="btn btn-primary" onclick="window.print()">Print / Save PDF</button>
</div>
<div class="spacer-top no-print"></div>
`)

	sessionIDShort := sess.ID
	if len(sessionIDShort) > 8 {
		sessionIDShort = sessionIDShort[:8]
	}
	fmt.Fprintf(&b, `<div class="report-cover">
<div class="container">
<div>
<h1>Super Critical Learning</h1>
<div class="subtitle">Executive Analysis Report</div>
</div>
<div class="meta">
<div class="mode-badge">%s Analysis</div>
<div>%s · %s</div>
<div style="margin-top:4px;font-size:12px;opacity:0.7">Session %s</div>
</div>
</div>
</div>
<div class="container">
`, html.EscapeString(modeLabel), date, clock, html.EscapeString(sessionIDShort))

	writeSummary(&b, sess, totalEffects, firstOrder, higherOrder, len(edges))
	writeDependencySection(&b, sess.EffectGraph)
	writeImpactSection(&b, nodes)
	writeEffectsCatalogue(&b, nodes)
	writeLeaps(&b, sess.Leaps)
	writeStringListSection(&b, "Key Risks", sess.Synthesis.Risks, colorWarning)
	writeStringListSection(&b, "Opportunities", sess.Synthesis.Opportunities, colorSuccess)
	writePractices(&b, sess.Synthesis.RecommendedPractices)
	writeKPIs(&b, sess.Synthesis.KPIs)
	writeActionPlan(&b, sess.Synthesis.ActionPlan)
	writeDeepDives(&b, sess.DeepDives)
	writeMetadata(&b, sess, modeLabel)

	fmt.Fprintf(&b, `<div class="report-footer">
<div style="font-weight:600;margin-bottom:4px">Open Agent School</div>
<div>openagentschool.org · Super Critical Learning Executive Report</div>
<div style="margin-top:4px">Generated %s at %s · Session %s</div>
</div>
</div>
</body>
</html>`, date, clock, html.EscapeString(sess.ID))

	return b.String()
}

func writeSummary(b *strings.Builder, sess scl.Session, totalEffects, firstOrder, higherOrder, edgeCount int) {
	sectionHeader(b, "Executive Summary", "")

	fmt.Fprintf(b, `<div class="dashboard">
<div class="stat-card"><div class="value">%d</div><div class="label">Total Effects</div></div>
<div class="stat-card"><div class="value">%d</div><div class="label">Connections</div></div>
<div class="stat-card risk"><div class="value">%d</div><div class="label">Identified Risks</div></div>
<div class="stat-card success"><div class="value">%d</div><div class="label">Opportunities</div></div>
</div>
`, totalEffects, edgeCount, len(sess.Synthesis.Risks), len(sess.Synthesis.Opportunities))

	fmt.Fprintf(b, `<div style="display:grid;grid-template-columns:1fr 1fr 1fr;gap:12px;margin-bottom:20px">
<div class="card" style="text-align:center"><div style="font-size:22px;font-weight:700;color:%s">%d</div><div style="font-size:11px;color:%s">1st Order Effects</div></div>
<div class="card" style="text-align:center"><div style="font-size:22px;font-weight:700;color:%s">%d</div><div style="font-size:11px;color:%s">Higher-Order Effects</div></div>
<div class="card" style="text-align:center"><div style="font-size:22px;font-weight:700;color:%s">%d</div><div style="font-size:11px;color:%s">Critical Leaps</div></div>
</div>
`, colorPrimary, firstOrder, colorMuted, colorAccent, higherOrder, colorMuted, colorDanger, len(sess.Leaps), colorMuted)

	writeDomainStrip(b, sess.EffectGraph, totalEffects)

	b.WriteString(`<div class="gauge-row">` + "\n")
	b.WriteString(scoreGaugeSVG("Overall", sess.Score.Overall()))
	b.WriteString(scoreGaugeSVG("Complete", sess.Score.Completeness))
	b.WriteString(scoreGaugeSVG("Novelty", sess.Score.Novelty))
	b.WriteString(scoreGaugeSVG("Feasibility", sess.Score.Feasibility))
	b.WriteString(scoreGaugeSVG("Leap Quality", sess.Score.LeapDetection))
	b.WriteString("</div>\n")
}

func writeDomainStrip(b *strings.Builder, g scl.EffectGraph, total int) {
	if total == 0 {
		return
	}
	counts := g.DomainCounts()
	b.WriteString(`<div class="card"><h4 style="margin-bottom:8px;font-size:13px">Domain Distribution</h4><div class="domain-strip">` + "\n")
	for _, d := range scl.Domains {
		count := counts[d]
		if count == 0 {
			continue
		}
		pct := float64(count) / float64(total) * 100
		label := ""
		if pct >= 10 {
			label = fmt.Sprintf("%s (%d)", d, count)
		}
		fmt.Fprintf(b, `<div style="width:%.1f%%;background:%s" title="%s: %d">%s</div>`,
			pct, colorsFor(d).text, html.EscapeString(string(d)), count, html.EscapeString(label))
		b.WriteByte('\n')
	}
	b.WriteString(`</div><div style="display:flex;gap:12px;flex-wrap:wrap;margin-top:8px">` + "\n")
	for _, d := range scl.Domains {
		count := counts[d]
		if count == 0 {
			continue
		}
		fmt.Fprintf(b, `<span style="display:flex;align-items:center;gap:4px;font-size:11px"><span style="width:10px;height:10px;border-radius:3px;background:%s"></span>%s: %d</span>`,
			colorsFor(d).text, html.EscapeString(string(d)), count)
		b.WriteByte('\n')
	}
	b.WriteString("</div></div>\n")
}

func writeDependencySection(b *strings.Builder, g scl.EffectGraph) {
	if len(g.Nodes) == 0 {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeader(b, "Effect Dependency Graph", "")
	b.WriteString(`<div class="card" style="padding:20px;overflow-x:auto">` + "\n")
	b.WriteString(dependencyGraphSVG(g))
	b.WriteString("\n</div>\n")

	if len(g.Edges) == 0 {
		return
	}
	fmt.Fprintf(b, `<div style="margin-top:16px"><h4 style="font-size:13px;color:%s;margin-bottom:8px">Connections Detail</h4>`, colorMuted)
	b.WriteByte('\n')
	for _, e := range g.Edges {
		fromNode, okFrom := g.Node(e.From)
		toNode, okTo := g.Node(e.To)
		if !okFrom || !okTo {
			continue
		}
		mechanism := ""
		if e.Mechanism != "" {
			mechanism = fmt.Sprintf(`<span class="connection-mechanism">%s</span>`, html.EscapeString(e.Mechanism))
		}
		fmt.Fprintf(b, `<div class="connection-item"><span style="font-weight:600;font-size:12px">%s</span><span class="connection-arrow">&#8594;</span><span style="font-weight:600;font-size:12px">%s</span>%s%s</div>`,
			html.EscapeString(fromNode.Title), html.EscapeString(toNode.Title), confidenceBadge(e.Confidence), mechanism)
		b.WriteByte('\n')
	}
	b.WriteString("</div>\n")
}

func writeImpactSection(b *strings.Builder, nodes []scl.EffectNode) {
	svg := impactHeatmapSVG(nodes)
	if svg == "" {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeader(b, "Impact Analysis", "")
	b.WriteString(`<div class="card" style="padding:20px;overflow-x:auto">` + "\n")
	b.WriteString(svg)
	b.WriteString("\n</div>\n")
}

func writeEffectsCatalogue(b *strings.Builder, nodes []scl.EffectNode) {
	if len(nodes) == 0 {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeader(b, "Effects Catalogue", fmt.Sprintf("%d", len(nodes)))

	for order := 1; order <= 3; order++ {
		var group []scl.EffectNode
		for _, n := range nodes {
			if n.Order == order {
				group = append(group, n)
			}
		}
		if len(group) == 0 {
			continue
		}
		c := orderColor(order)
		fmt.Fprintf(b, `<h3 style="font-size:15px;color:%[1]s;margin:20px 0 10px;display:flex;align-items:center;gap:8px"><span style="width:8px;height:8px;border-radius:4px;background:%[1]s"></span>%s (%d)</h3>`,
			c, html.EscapeString(orderSectionLabels[order]), len(group))
		b.WriteByte('\n')
		for _, n := range group {
			impactClass := "positive"
			if n.Impact < 0 {
				impactClass = "negative"
			}
			fmt.Fprintf(b, `<div class="effect-card avoid-break">
<div class="order-indicator" style="background:%s"></div>
<div class="effect-body">
<div class="effect-title">%s</div>
<div class="effect-meta">%s%s%s</div>
<div class="effect-justification">%s</div>
<div class="effect-stats">
<span>Impact: <strong class="%s">%s</strong></span>
<span>Likelihood: <strong>%d%%</strong></span>
<span>Confidence: <strong>%d%%</strong></span>
</div>
</div>
</div>
`,
				orderColor(n.Order), html.EscapeString(n.Title),
				domainBadge(n.Domain), orderBadge(n.Order), confidenceBadge(n.Confidence),
				html.EscapeString(n.Justification),
				impactClass, signedImpact(n.Impact),
				int(math.Round(n.Likelihood*100)), int(math.Round(n.Confidence*100)))
		}
	}
}

func writeLeaps(b *strings.Builder, leaps []scl.Leap) {
	if len(leaps) == 0 {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeaderColored(b, "Critical Discontinuities (Leaps)", fmt.Sprintf("%d", len(leaps)), colorDanger)
	for _, leap := range leaps {
		fmt.Fprintf(b, `<div class="leap-card avoid-break">
<div style="display:flex;align-items:center;gap:8px;margin-bottom:8px"><h4>%s</h4>%s</div>
<div style="font-size:13px;margin-bottom:6px"><strong>Threshold:</strong> %s</div>
<div style="font-size:13px;margin-bottom:6px"><strong>Result:</strong> %s</div>
<div class="mechanism"><strong>Mechanism:</strong> %s</div>
</div>
`,
			html.EscapeString(leap.Trigger), confidenceBadge(leap.Confidence),
			html.EscapeString(leap.Threshold), html.EscapeString(leap.Result), html.EscapeString(leap.Mechanism))
	}
}

func writeStringListSection(b *strings.Builder, title string, items []string, color string) {
	if len(items) == 0 {
		return
	}
	sectionHeaderColored(b, title, fmt.Sprintf("%d", len(items)), color)
	b.WriteString(`<div class="card">` + "\n")
	for _, item := range items {
		fmt.Fprintf(b, `<div class="list-item"><div class="list-dot" style="background:%s"></div><span>%s</span></div>`,
			color, html.EscapeString(item))
		b.WriteByte('\n')
	}
	b.WriteString("</div>\n")
}

func writePractices(b *strings.Builder, practices []string) {
	if len(practices) == 0 {
		return
	}
	sectionHeader(b, "Recommended Practice Changes", "")
	b.WriteString(`<div class="card">` + "\n")
	for _, p := range practices {
		fmt.Fprintf(b, `<div class="list-item"><span style="color:%s;font-size:16px;margin-top:2px;flex-shrink:0">&#8594;</span><span>%s</span></div>`,
			colorPrimary, html.EscapeString(p))
		b.WriteByte('\n')
	}
	b.WriteString("</div>\n")
}

func writeKPIs(b *strings.Builder, kpis []string) {
	if len(kpis) == 0 {
		return
	}
	sectionHeader(b, "Key Performance Indicators", "")
	b.WriteString(`<div style="display:grid;grid-template-columns:1fr 1fr;gap:10px">` + "\n")
	for _, kpi := range kpis {
		fmt.Fprintf(b, `<div class="card" style="display:flex;align-items:center;gap:10px"><span style="font-size:13px">%s</span></div>`, html.EscapeString(kpi))
		b.WriteByte('\n')
	}
	b.WriteString("</div>\n")
}

func writeActionPlan(b *strings.Builder, actions []string) {
	if len(actions) == 0 {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeader(b, "Implementation Action Plan", "")
	b.WriteString(`<div class="card">` + "\n")
	for i, action := range actions {
		fmt.Fprintf(b, `<div class="list-item" style="padding:8px 0"><div class="list-number" style="background:%s">%d</div><span style="font-size:13px">%s</span></div>`,
			colorPrimary, i+1, html.EscapeString(action))
		b.WriteByte('\n')
	}
	b.WriteString("</div>\n")
}

func writeDeepDives(b *strings.Builder, dives []scl.DeepDive) {
	if len(dives) == 0 {
		return
	}
	b.WriteString(`<div class="page-break"></div>` + "\n")
	sectionHeader(b, "Deep Dive Findings", fmt.Sprintf("%d", len(dives)))

	for _, dive := range dives {
		levelColor := colorPrimary
		if dive.Level == scl.LevelTertiary {
			levelColor = colorAccent
		}
		titles := make([]string, 0, len(dive.SelectedNodes))
		for _, n := range dive.SelectedNodes {
			titles = append(titles, n.Title)
		}

		fmt.Fprintf(b, `<div class="card avoid-break" style="border-left:4px solid %[1]s;margin-bottom:16px">
<div style="display:flex;align-items:center;gap:8px;margin-bottom:12px">
<span style="display:inline-block;padding:3px 12px;border-radius:12px;font-size:12px;font-weight:700;background:%[1]s15;color:%[1]s;text-transform:capitalize">%s</span>
<span style="font-size:13px;font-weight:600">%s</span>
</div>
`, levelColor, html.EscapeString(string(dive.Level)), html.EscapeString(strings.Join(titles, " + ")))

		if dive.UserQuestion != "" {
			fmt.Fprintf(b, `<div style="font-size:12px;color:%s;font-style:italic;margin-bottom:10px">Focus: &quot;%s&quot;</div>`,
				colorMuted, html.EscapeString(dive.UserQuestion))
			b.WriteByte('\n')
		}

		if len(dive.Effects) > 0 {
			fmt.Fprintf(b, `<h4 style="font-size:13px;margin-bottom:8px;color:%s">Sub-Effects (%d)</h4>`, levelColor, len(dive.Effects))
			b.WriteByte('\n')
			for _, eff := range dive.Effects {
				impactColor := colorSuccess
				if eff.Impact < 0 {
					impactColor = colorDanger
				}
				fmt.Fprintf(b, `<div style="display:flex;gap:8px;align-items:flex-start;padding:6px 0;font-size:12px;border-bottom:1px solid %s">%s<span style="flex:1">%s</span><span style="color:%s;font-weight:700">%s</span></div>`,
					colorBorder, domainBadge(eff.Domain), html.EscapeString(eff.Title), impactColor, signedImpact(eff.Impact))
				b.WriteByte('\n')
			}
		}

		switch f := dive.Findings.(type) {
		case scl.SecondaryFindings:
			writeSecondaryFindings(b, f)
		case scl.TertiaryFindings:
			writeTertiaryFindings(b, f)
		}
		b.WriteString("</div>\n")
	}
}

func writeSecondaryFindings(b *strings.Builder, f scl.SecondaryFindings) {
	writeFindingList(b, "Hidden Risks", f.HiddenRisks, colorWarning)
	writeFindingList(b, "Cross-Connections", f.CrossConnections, colorPrimary)
	writeNumberedFindingList(b, "Implementation Steps", f.ImplementationSteps)
	writeFindingList(b, "Revised KPIs", f.RevisedKPIs, colorAccent)
	writeFindingList(b, "Open Questions", f.OpenQuestions, colorMuted)
}

func writeTertiaryFindings(b *strings.Builder, f scl.TertiaryFindings) {
	writeNumberedFindingList(b, "Operational Runbook", f.Runbook)

	if len(f.ToolRecommendations) > 0 {
		fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">Tool Recommendations</h4><div style="display:grid;grid-template-columns:1fr 1fr;gap:8px">`, colorPrimary)
		b.WriteByte('\n')
		for _, rec := range f.ToolRecommendations {
			fmt.Fprintf(b, `<div style="padding:10px;border:1px solid %s;border-radius:8px;font-size:12px;background:white"><div style="font-weight:700">%s</div><div style="color:%s;margin-top:4px">%s</div><div style="color:%s;font-style:italic;margin-top:4px;font-size:11px">Tradeoffs: %s</div></div>`,
				colorBorder, html.EscapeString(rec.Tool), colorTextSecond, html.EscapeString(rec.Purpose), colorMuted, html.EscapeString(rec.Tradeoffs))
			b.WriteByte('\n')
		}
		b.WriteString("</div>\n")
	}

	if len(f.FMEAEntries) > 0 {
		fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">Failure Mode Analysis (FMEA)</h4>`, colorDanger)
		b.WriteString(`<table class="data-table"><thead><tr><th>Failure Mode</th><th>Cause</th><th style="text-align:center">S</th><th style="text-align:center">L</th><th style="text-align:center">D</th><th style="text-align:center">RPN</th><th>Mitigation</th></tr></thead><tbody>` + "\n")
		for _, e := range f.FMEAEntries {
			rpnClass := "rpn-low"
			if e.RPN >= 200 {
				rpnClass = "rpn-high"
			} else if e.RPN >= 100 {
				rpnClass = "rpn-med"
			}
			fmt.Fprintf(b, `<tr><td style="font-weight:600">%s</td><td style="color:%s">%s</td><td style="text-align:center">%d</td><td style="text-align:center">%d</td><td style="text-align:center">%d</td><td style="text-align:center" class="%s">%d</td><td style="color:%s">%s</td></tr>`,
				html.EscapeString(e.FailureMode), colorTextSecond, html.EscapeString(e.Cause),
				e.Severity, e.Likelihood, e.Detection, rpnClass, e.RPN,
				colorTextSecond, html.EscapeString(e.Mitigation))
			b.WriteByte('\n')
		}
		fmt.Fprintf(b, `</tbody></table><div style="font-size:10px;color:%s;margin-top:4px">S = Severity, L = Likelihood, D = Detection difficulty (1-10). RPN = S x L x D. Higher = higher priority.</div>`, colorMuted)
		b.WriteByte('\n')
	}

	if len(f.Projections) > 0 {
		fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">Quantitative Projections</h4>`, colorPrimary)
		b.WriteString(`<table class="data-table"><thead><tr><th>Metric</th><th>Baseline</th><th>Projected</th><th>Timeframe</th><th style="text-align:center">Confidence</th></tr></thead><tbody>` + "\n")
		for _, p := range f.Projections {
			fmt.Fprintf(b, `<tr><td style="font-weight:600">%s</td><td style="color:%s">%s</td><td>%s</td><td style="color:%s">%s</td><td style="text-align:center">%s</td></tr>`,
				html.EscapeString(p.Metric), colorMuted, html.EscapeString(p.Baseline),
				html.EscapeString(p.Projected), colorMuted, html.EscapeString(p.Timeframe),
				confidenceBadge(p.Confidence))
			b.WriteByte('\n')
		}
		b.WriteString("</tbody></table>\n")
	}

	if len(f.MitigationComparison) > 0 {
		fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">Mitigation Strategy Comparison</h4><div style="display:grid;grid-template-columns:1fr 1fr;gap:8px">`, colorPrimary)
		b.WriteByte('\n')
		for _, m := range f.MitigationComparison {
			risks := ""
			if m.Risks != "" {
				risks = fmt.Sprintf(`<div style="font-size:11px;color:%s;font-style:italic;margin-top:2px">Risks: %s</div>`, colorMuted, html.EscapeString(m.Risks))
			}
			fmt.Fprintf(b, `<div style="padding:10px;border:1px solid %s;border-radius:8px;font-size:12px;background:white"><div style="font-weight:700;margin-bottom:4px">%s</div><div style="display:flex;gap:12px;font-size:11px"><span>Effort: <strong style="color:%s">%s</strong></span><span>Impact: <strong style="color:%s">%s</strong></span></div><div style="font-size:11px;color:%s;margin-top:4px">Time to value: %s</div>%s</div>`,
				colorBorder, html.EscapeString(m.Strategy),
				effortColor(m.Effort), html.EscapeString(m.Effort),
				impactLevelColor(m.Impact), html.EscapeString(m.Impact),
				colorMuted, html.EscapeString(m.TimeToValue), risks)
			b.WriteByte('\n')
		}
		b.WriteString("</div>\n")
	}
}

func writeFindingList(b *strings.Builder, title string, items []string, color string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">%s</h4>`, color, html.EscapeString(title))
	b.WriteByte('\n')
	for _, item := range items {
		fmt.Fprintf(b, `<div class="list-item"><div class="list-dot" style="background:%s"></div><span style="font-size:12px">%s</span></div>`,
			color, html.EscapeString(item))
		b.WriteByte('\n')
	}
}

func writeNumberedFindingList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, `<h4 style="font-size:13px;margin:12px 0 6px;color:%s">%s</h4>`, colorPrimary, html.EscapeString(title))
	b.WriteByte('\n')
	for i, item := range items {
		fmt.Fprintf(b, `<div class="list-item"><div class="list-number" style="background:%s;width:20px;height:20px;font-size:10px">%d</div><span style="font-size:12px">%s</span></div>`,
			colorPrimary, i+1, html.EscapeString(item))
		b.WriteByte('\n')
	}
}

func writeMetadata(b *strings.Builder, sess scl.Session, modeLabel string) {
	b.WriteString(`<div class="section-header" style="margin-top:40px"><h2 style="color:` + colorMuted + `">Session Metadata</h2></div>` + "\n")

	diveBadges := ""
	if sess.HasSecondaryDive() {
		diveBadges += " ✓ secondary"
	}
	if sess.HasTertiaryDive() {
		diveBadges += " ✓ tertiary"
	}
	source := sess.Source
	if source == "" {
		source = scl.SourceLocal
	}

	fmt.Fprintf(b, `<div style="display:grid;grid-template-columns:1fr 1fr;gap:12px;font-size:12px;color:%s">
<div class="card">
<div style="font-weight:600;margin-bottom:8px;color:%s">Analysis Configuration</div>
<div><strong>Mode:</strong> %s</div>
<div><strong>Seeds:</strong> %s</div>
<div><strong>Patterns:</strong> %s</div>
<div><strong>Practices:</strong> %s</div>
<div><strong>Budget:</strong> %s</div>
<div><strong>Time Horizon:</strong> %s</div>
</div>
<div class="card">
<div style="font-weight:600;margin-bottom:8px;color:%s">Generation Details</div>
<div><strong>Model:</strong> %s</div>
<div><strong>SCL Version:</strong> %s</div>
<div><strong>Prompt Tokens:</strong> %d</div>
<div><strong>Response Tokens:</strong> %d</div>
<div><strong>Deep Dives:</strong> %d (%s)</div>
<div><strong>Source:</strong> %s</div>
</div>
</div>
`,
		colorTextSecond, colorText,
		html.EscapeString(modeLabel),
		html.EscapeString(joinOrNone(sess.Seeds.ConceptIDs)),
		html.EscapeString(joinOrNone(sess.Seeds.PatternIDs)),
		html.EscapeString(joinOrNone(sess.Seeds.Practices)),
		html.EscapeString(string(sess.Constraints.Budget)),
		html.EscapeString(string(sess.Constraints.TimeHorizon)),
		colorText,
		html.EscapeString(orNA(sess.Audit.Model)),
		html.EscapeString(orNA(sess.Audit.Version)),
		sess.Audit.PromptTokens, sess.Audit.ResponseTokens,
		len(sess.DeepDives), html.EscapeString(strings.TrimSpace(diveBadges)),
		html.EscapeString(string(source)))
}

func sectionHeader(b *strings.Builder, title, count string) {
	b.WriteString(`<div class="section-header"><h2>` + html.EscapeString(title) + "</h2>")
	if count != "" {
		b.WriteString(`<span class="count">` + html.EscapeString(count) + "</span>")
	}
	b.WriteString("</div>\n")
}

func sectionHeaderColored(b *strings.Builder, title, count, color string) {
	b.WriteString(`<div class="section-header"><h2>` + html.EscapeString(title) + "</h2>")
	if count != "" {
		fmt.Fprintf(b, `<span class="count" style="background:%[1]s15;color:%[1]s">%s</span>`, color, html.EscapeString(count))
	}
	b.WriteString("</div>\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func effortColor(effort string) string {
	switch effort {
	case "high":
		return colorDanger
	case "medium":
		return colorWarning
	default:
		return colorSuccess
	}
}

func impactLevelColor(impact string) string {
	switch impact {
	case "high":
		return colorSuccess
	case "medium":
		return colorWarning
	default:
		return colorDanger
	}
}
