package report

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"supercritical/internal/scl"
)

// Print-safe palette shared by the stylesheet and the inline SVG charts.
const (
	colorPrimary     = "#3b82f6"
	colorPrimaryDark = "#1d4ed8"
	colorAccent      = "#8b5cf6"
	colorSuccess     = "#059669"
	colorWarning     = "#d97706"
	colorDanger      = "#dc2626"
	colorMuted       = "#6b7280"
	colorCardBg      = "#f8fafc"
	colorBorder      = "#e2e8f0"
	colorText        = "#1e293b"
	colorTextSecond  = "#475569"
)

type domainColor struct {
	bg     string
	text   string
	border string
}

var domainColors = map[scl.Domain]domainColor{
	scl.DomainOps:      {bg: "#dbeafe", text: "#1e40af", border: "#93c5fd"},
	scl.DomainProduct:  {bg: "#ede9fe", text: "#5b21b6", border: "#c4b5fd"},
	scl.DomainSecurity: {bg: "#fee2e2", text: "#991b1b", border: "#fca5a5"},
	scl.DomainOrg:      {bg: "#fef3c7", text: "#92400e", border: "#fcd34d"},
	scl.DomainCost:     {bg: "#d1fae5", text: "#065f46", border: "#6ee7b7"},
	scl.DomainPerf:     {bg: "#cffafe", text: "#155e75", border: "#67e8f9"},
}

var defaultDomainColor = domainColor{bg: "#f1f5f9", text: "#334155", border: "#cbd5e1"}

func colorsFor(d scl.Domain) domainColor {
	if c, ok := domainColors[d]; ok {
		return c
	}
	return defaultDomainColor
}

var orderColors = map[int]string{1: colorPrimary, 2: colorAccent, 3: colorDanger}

var orderSectionLabels = map[int]string{
	1: "First-Order Effects",
	2: "Higher-Order Effects",
	3: "Tertiary Effects",
}

func orderColor(order int) string {
	if c, ok := orderColors[order]; ok {
		return c
	}
	return colorMuted
}

// gaugeArc maps value 0..1 onto a 180 degree arc path.
func gaugeArc(value float64, radius float64) string {
	clamped := math.Max(0, math.Min(1, value))
	angle := math.Pi * clamped
	cx, cy := 50.0, 55.0
	x := cx - radius*math.Cos(angle)
	y := cy - radius*math.Sin(angle)
	largeArc := 0
	if clamped > 0.5 {
		largeArc = 1
	}
	return fmt.Sprintf("M %g %g A %g %g 0 %d 1 %.2f %.2f", cx-radius, cy, radius, radius, largeArc, x, y)
}

func gaugeColor(value float64) string {
	switch {
	case value >= 0.7:
		return colorSuccess
	case value >= 0.4:
		return colorWarning
	default:
		return colorDanger
	}
}

func confidenceBadge(confidence float64) string {
	pct := int(math.Round(confidence * 100))
	color := gaugeColor(confidence)
	return fmt.Sprintf(`<span style="display:inline-block;padding:2px 8px;border-radius:10px;font-size:11px;font-weight:600;background:%[1]s15;color:%[1]s;border:1px solid %[1]s40">%d%%</span>`, color, pct)
}

func domainBadge(domain scl.Domain) string {
	d := colorsFor(domain)
	return fmt.Sprintf(`<span style="display:inline-block;padding:2px 10px;border-radius:12px;font-size:11px;font-weight:600;background:%s;color:%s;border:1px solid %s">%s</span>`,
		d.bg, d.text, d.border, html.EscapeString(strings.ToUpper(string(domain))))
}

func orderBadge(order int) string {
	labels := map[int]string{1: "1st Order", 2: "2nd Order", 3: "3rd Order"}
	label, ok := labels[order]
	if !ok {
		label = fmt.Sprintf("%dth", order)
	}
	c := orderColor(order)
	return fmt.Sprintf(`<span style="display:inline-block;padding:2px 8px;border-radius:10px;font-size:10px;font-weight:600;background:%[1]s15;color:%[1]s;border:1px solid %[1]s40">%s</span>`, c, label)
}

func scoreGaugeSVG(label string, value float64) string {
	color := gaugeColor(value)
	pct := int(math.Round(value * 100))
	return fmt.Sprintf(`<svg width="120" height="90" viewBox="0 0 100 90" xmlns="http://www.w3.org/2000/svg" style="font-family:Inter,system-ui,sans-serif">
  <path d="%s" fill="none" stroke="#e2e8f0" stroke-width="8" stroke-linecap="round"/>
  <path d="%s" fill="none" stroke="%s" stroke-width="8" stroke-linecap="round"/>
  <text x="50" y="52" text-anchor="middle" font-size="20" font-weight="700" fill="%s">%d</text>
  <text x="50" y="68" text-anchor="middle" font-size="9" fill="%s">%s</text>
</svg>`, gaugeArc(1, 40), gaugeArc(value, 40), color, color, pct, colorMuted, html.EscapeString(label))
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-2]) + "…"
}

type position struct {
	x, y float64
}

// dependencyGraphSVG lays nodes out in rows by order and draws curved,
// confidence-weighted edges between them.
func dependencyGraphSVG(g scl.EffectGraph) string {
	if len(g.Nodes) == 0 {
		return ""
	}
	const (
		width    = 780.0
		nodeH    = 56.0
		nodeW    = 220.0
		levelGap = 90.0
		colGap   = 30.0
	)

	byOrder := map[int][]scl.EffectNode{}
	for _, n := range g.Nodes {
		byOrder[n.Order] = append(byOrder[n.Order], n)
	}
	orders := make([]int, 0, len(byOrder))
	for o := range byOrder {
		orders = append(orders, o)
	}
	sort.Ints(orders)

	positions := map[string]position{}
	for rowIdx, order := range orders {
		row := byOrder[order]
		totalWidth := float64(len(row))*nodeW + float64(len(row)-1)*colGap
		startX := (width - totalWidth) / 2
		for colIdx, node := range row {
			positions[node.ID] = position{
				x: startX + float64(colIdx)*(nodeW+colGap),
				y: 30 + float64(rowIdx)*(nodeH+levelGap),
			}
		}
	}
	height := 30 + float64(len(orders))*(nodeH+levelGap) + 20

	var edgePaths strings.Builder
	for _, e := range g.Edges {
		from, okFrom := positions[e.From]
		to, okTo := positions[e.To]
		if !okFrom || !okTo {
			continue
		}
		x1, y1 := from.x+nodeW/2, from.y+nodeH
		x2, y2 := to.x+nodeW/2, to.y
		midY := (y1 + y2) / 2
		opacity := math.Max(0.3, e.Confidence)
		color := colorMuted
		if e.Confidence >= 0.7 {
			color = colorPrimary
		} else if e.Confidence >= 0.4 {
			color = colorWarning
		}
		fmt.Fprintf(&edgePaths, `<path d="M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f" fill="none" stroke="%s" stroke-width="2" stroke-opacity="%.2f" marker-end="url(#arrowhead)"/>`,
			x1, y1, x1, midY, x2, midY, x2, y2, color, opacity)
		edgePaths.WriteByte('\n')
		if e.Mechanism != "" {
			fmt.Fprintf(&edgePaths, `<text x="%.1f" y="%.1f" text-anchor="middle" font-size="9" fill="%s" opacity="0.8">%s</text>`,
				(x1+x2)/2, midY-4, colorMuted, html.EscapeString(truncate(e.Mechanism, 30)))
			edgePaths.WriteByte('\n')
		}
	}

	var nodeRects strings.Builder
	for _, n := range g.Nodes {
		pos, ok := positions[n.ID]
		if !ok {
			continue
		}
		d := colorsFor(n.Domain)
		fmt.Fprintf(&nodeRects, `<g>
  <rect x="%.1f" y="%.1f" width="%g" height="%g" rx="8" fill="%s" stroke="%s" stroke-width="2"/>
  <text x="%.1f" y="%.1f" font-size="12" font-weight="600" fill="%s">%s</text>
  <text x="%.1f" y="%.1f" font-size="10" fill="%s">Impact: %s · Conf: %d%% · %s</text>
</g>
`,
			pos.x, pos.y, nodeW, nodeH, d.bg, orderColor(n.Order),
			pos.x+12, pos.y+22, d.text, html.EscapeString(truncate(n.Title, 26)),
			pos.x+12, pos.y+40, colorMuted, signedImpact(n.Impact), int(math.Round(n.Confidence*100)), html.EscapeString(string(n.Domain)))
	}

	var levelLabels strings.Builder
	for rowIdx, order := range orders {
		label, ok := orderSectionLabels[order]
		if !ok {
			label = fmt.Sprintf("%dth Order", order)
		}
		y := 30 + float64(rowIdx)*(nodeH+levelGap) + nodeH/2
		fmt.Fprintf(&levelLabels, `<text x="8" y="%.1f" font-size="10" fill="%s" font-weight="600" writing-mode="vertical-rl" opacity="0.6">%s</text>`,
			y, colorMuted, html.EscapeString(label))
		levelLabels.WriteByte('\n')
	}

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%.0f" viewBox="0 0 %g %.0f" style="font-family:Inter,system-ui,sans-serif;max-width:100%%">
<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto">
    <polygon points="0 0, 10 3.5, 0 7" fill="%s" opacity="0.7"/>
  </marker>
</defs>
<rect width="%g" height="%.0f" fill="white" rx="8"/>
%s%s%s</svg>`,
		width, height, width, height, colorPrimary, width, height,
		levelLabels.String(), edgePaths.String(), nodeRects.String())
}

// impactHeatmapSVG renders a diverging bar chart: negative impacts grow left,
// positive grow right, opacity weighted by confidence.
func impactHeatmapSVG(nodes []scl.EffectNode) string {
	var negative, positive []scl.EffectNode
	for _, n := range nodes {
		switch {
		case n.Impact < 0:
			negative = append(negative, n)
		case n.Impact > 0:
			positive = append(positive, n)
		}
	}
	sort.Slice(negative, func(i, j int) bool { return negative[i].Impact < negative[j].Impact })
	sort.Slice(positive, func(i, j int) bool { return positive[i].Impact > positive[j].Impact })
	all := append(negative, positive...)
	if len(all) == 0 {
		return ""
	}

	const (
		width     = 780.0
		barHeight = 28.0
		gap       = 6.0
		axisX     = 390.0
	)
	height := float64(len(all))*(barHeight+gap) + 60
	maxAbs := 1.0
	for _, n := range all {
		if a := math.Abs(float64(n.Impact)); a > maxAbs {
			maxAbs = a
		}
	}

	var bars strings.Builder
	for i, n := range all {
		y := 40 + float64(i)*(barHeight+gap)
		barWidth := math.Abs(float64(n.Impact)) / maxAbs * 340
		isNeg := n.Impact < 0
		barX := axisX
		color := colorSuccess
		labelX := axisX - 8
		anchor := "end"
		valueX := barX + barWidth + 4
		valueAnchor := "start"
		if isNeg {
			barX = axisX - barWidth
			color = colorDanger
			labelX = axisX + 12
			anchor = "start"
			valueX = barX - 4
			valueAnchor = "end"
		}
		fmt.Fprintf(&bars, `<g>
  <rect x="%.1f" y="%.1f" width="%.1f" height="%g" rx="4" fill="%s" opacity="%.2f"/>
  <text x="%.1f" y="%.1f" font-size="11" fill="%s" text-anchor="%s" font-weight="500">%s</text>
  <text x="%.1f" y="%.1f" font-size="11" fill="%s" font-weight="700" text-anchor="%s">%s</text>
</g>
`,
			barX, y, barWidth, barHeight, color, 0.2+n.Confidence*0.6,
			labelX, y+18, colorText, anchor, html.EscapeString(truncate(n.Title, 32)),
			valueX, y+18, color, valueAnchor, signedImpact(n.Impact))
	}

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%.0f" viewBox="0 0 %g %.0f" style="font-family:Inter,system-ui,sans-serif;max-width:100%%">
<rect width="%g" height="%.0f" fill="white" rx="8"/>
<line x1="%g" y1="30" x2="%g" y2="%.0f" stroke="%s" stroke-width="1" stroke-dasharray="4"/>
<text x="200" y="22" font-size="11" fill="%s" font-weight="600" text-anchor="middle">&#8592; NEGATIVE IMPACT</text>
<text x="580" y="22" font-size="11" fill="%s" font-weight="600" text-anchor="middle">POSITIVE IMPACT &#8594;</text>
%s</svg>`,
		width, height, width, height, width, height,
		axisX, axisX, height-10, colorBorder, colorDanger, colorSuccess, bars.String())
}

func signedImpact(impact int) string {
	if impact > 0 {
		return fmt.Sprintf("+%d", impact)
	}
	return fmt.Sprintf("%d", impact)
}
