package orchestrator

import (
	"bytes"
	"fmt"
	"strings"

	"supercritical/internal/scl"
	"supercritical/internal/util/jsonutil"
)

const firstOrderSystemPrompt = `You are an expert systems analyst specializing in agentic AI effects analysis.

Your task is to generate first-order effects from AI agent implementations in production systems.

Focus on DIRECT, IMMEDIATE effects that happen within the first few weeks of deployment.

Consider these domains:
- ops: Operations, reliability, monitoring, incidents
- product: User experience, features, performance
- security: Authentication, authorization, data protection
- org: Team structure, processes, responsibilities
- cost: Infrastructure, development, maintenance costs
- perf: Latency, throughput, resource utilization

IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or additional text.

Return valid JSON with this structure:
{
  "effects": [
    {
      "id": "effect_1",
      "title": "Descriptive effect title",
      "order": 1,
      "domain": "ops|product|security|org|cost|perf",
      "likelihood": 0.0-1.0,
      "impact": -5 to +5,
      "justification": "Why this effect occurs",
      "confidence": 0.0-1.0
    }
  ],
  "connections": [],
  "leaps": []
}

Be specific, actionable, and grounded in real production experience.`

const higherOrderSystemPrompt = `You are an expert systems analyst specializing in cascade effect analysis.

Given first-order effects from an AI agent implementation, generate the second and third-order effects that would follow.

SECOND-ORDER: Effects that happen 1-3 months later as a result of first-order effects
THIRD-ORDER: Effects that happen 3-12 months later as cascades stabilize

Also identify LEAPS - discontinuous changes where small inputs cause qualitative shifts.

IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or additional text.

Return valid JSON with this structure:
{
  "effects": [
    {
      "id": "effect_2_1",
      "title": "Second-order effect title",
      "order": 2,
      "domain": "ops|product|security|org|cost|perf",
      "likelihood": 0.0-1.0,
      "impact": -5 to +5,
      "justification": "How this emerges from first-order effects",
      "confidence": 0.0-1.0
    }
  ],
  "connections": [
    {
      "from": "effect_1",
      "to": "effect_2_1",
      "mechanism": "How effect_1 causes effect_2_1",
      "confidence": 0.0-1.0,
      "delay": "2-4 weeks"
    }
  ],
  "leaps": [
    {
      "trigger": "What causes the discontinuity",
      "threshold": "At what point it occurs",
      "result": "What changes qualitatively",
      "mechanism": "Why the leap happens",
      "confidence": 0.0-1.0
    }
  ]
}

Look for emergent behaviors, feedback loops, and threshold effects.`

const synthesisSystemPrompt = `You are a strategic advisor synthesizing insights from a complex effect analysis.

Given a complete effect graph with first, second, and third-order effects plus identified leaps, generate actionable synthesis.

IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or additional text.

Return valid JSON with this structure:
{
  "risks": ["Risk 1", "Risk 2"],
  "opportunities": ["Opportunity 1", "Opportunity 2"],
  "recommendedPractices": ["Practice 1", "Practice 2"],
  "kpis": ["KPI 1", "KPI 2"],
  "actionPlan": ["Action 1", "Action 2"],
  "implementationOrder": ["First priority", "Second priority"],
  "successMetrics": ["Metric 1", "Metric 2"]
}

Focus on:
- Actionable insights that teams can implement
- Measurable outcomes and KPIs
- Risk mitigation strategies
- Implementation roadmap with priorities`

// modeGuidance returns generation hints per analysis mode.
func modeGuidance(mode scl.Mode) []string {
	switch mode {
	case scl.ModeConsolidate:
		return []string{
			"Focus on well-understood patterns and predictable cascades",
			"High confidence, documented effects",
		}
	case scl.ModeExtrapolate:
		return []string{
			"Explore novel interactions and unexpected combinations",
			"Include lower-confidence but high-impact possibilities",
		}
	case scl.ModeTransfer:
		return []string{
			"Map effects onto an adjacent domain and note which mechanisms carry over",
		}
	case scl.ModeStressTest:
		return []string{
			"Perturb constraints (budget/latency/accuracy) and show before/after deltas",
			"Surface brittle links and saturation points",
		}
	case scl.ModeIntervene:
		return []string{
			"Propose 2-3 concrete levers (rate limit, caching, rollout) and compare downstream outcomes",
		}
	case scl.ModeCounterfactual:
		return []string{
			"Toggle key assumptions (memory on/off, tool use on/off) and highlight graph divergences",
		}
	case scl.ModeLeapFocus:
		return []string{
			"Emphasize threshold triggers and discontinuities; promote leaps and their prerequisites",
		}
	case scl.ModeMechanismAudit:
		return []string{
			"Require mechanisms and delays for edges; flag weak/low-confidence links with audit notes",
		}
	case scl.ModeRedTeam:
		return []string{
			"Adopt an adversarial stance; enumerate attack paths and failure injections per effect",
		}
	case scl.ModeTemporalSim:
		return []string{
			"Lay effects on a timeline; call out delays, decay, and order-of-arrival sensitivities",
		}
	case scl.ModeCompose:
		return []string{
			"Treat seeds as composed subsystems; surface interaction effects between them",
		}
	case scl.ModeRegulatoryImpact:
		return []string{
			"Trace effects through compliance obligations; flag audit, reporting, and data-residency consequences",
		}
	default:
		return nil
	}
}

// buildFirstOrderPrompt renders the seed/constraint context for the first
// generation step.
func buildFirstOrderPrompt(sess scl.Session, summary scl.ContextSummary) (string, error) {
	constraintsJSON, err := jsonutil.MarshalNoEscape(sess.Constraints)
	if err != nil {
		return "", err
	}
	objectives := make([]string, 0, len(sess.Objectives))
	for _, o := range sess.Objectives {
		objectives = append(objectives, o.Label())
	}

	var buf bytes.Buffer
	writeSection(&buf, "TASK", "Analyze first-order effects for this agentic AI implementation.")
	writeSection(&buf, "CONCEPT_SEEDS", strings.Join(sess.Seeds.ConceptIDs, ", "))
	writeSection(&buf, "PATTERN_SEEDS", strings.Join(sess.Seeds.PatternIDs, ", "))
	writeSection(&buf, "PRACTICE_SEEDS", strings.Join(sess.Seeds.Practices, ", "))
	writeSection(&buf, "OBJECTIVES", strings.Join(objectives, ", "))
	writeSection(&buf, "CONSTRAINTS", string(constraintsJSON))
	writeSection(&buf, "MODE", string(sess.Mode))
	writeSection(&buf, "CONTEXT_SUMMARY", summaryLines(summary))
	writeSection(&buf, "RULES",
		"Generate 3-5 first-order effects that would occur immediately when implementing these concepts and patterns in production.\n"+
			"Focus on the most likely and impactful direct consequences.")
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// buildHigherOrderPrompt renders first-order effects plus mode guidance for
// the cascade step.
func buildHigherOrderPrompt(sess scl.Session, firstOrder []scl.EffectNode) (string, error) {
	constraintsJSON, err := jsonutil.MarshalNoEscape(sess.Constraints)
	if err != nil {
		return "", err
	}
	var effects strings.Builder
	for _, e := range firstOrder {
		fmt.Fprintf(&effects, "%s: %s (%s, impact: %d)\n", e.ID, e.Title, e.Domain, e.Impact)
	}

	var buf bytes.Buffer
	writeSection(&buf, "TASK", "Generate second and third-order effects cascading from these first-order effects, plus any leaps where threshold effects cause qualitative change.")
	writeSection(&buf, "FIRST_ORDER_EFFECTS", effects.String())
	writeSection(&buf, "CONSTRAINTS", string(constraintsJSON))
	writeSection(&buf, "MODE", string(sess.Mode))
	if sess.Constraints.Knobs != nil {
		knobsJSON, err := jsonutil.MarshalNoEscape(sess.Constraints.Knobs)
		if err != nil {
			return "", err
		}
		writeSection(&buf, "MODE_KNOBS", string(knobsJSON))
	}
	writeSection(&buf, "MODE_GUIDANCE", formatLines(modeGuidance(sess.Mode)))
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// buildSynthesisPrompt renders the complete graph for the synthesis step.
func buildSynthesisPrompt(sess scl.Session, effects []scl.EffectNode, leaps []scl.Leap) (string, error) {
	byOrder := map[int][]scl.EffectNode{}
	for _, e := range effects {
		byOrder[e.Order] = append(byOrder[e.Order], e)
	}
	renderOrder := func(order int) string {
		var b strings.Builder
		for _, e := range byOrder[order] {
			fmt.Fprintf(&b, "- %s (%s, impact: %d)\n", e.Title, e.Domain, e.Impact)
		}
		return b.String()
	}
	var leapsSummary strings.Builder
	for _, l := range leaps {
		fmt.Fprintf(&leapsSummary, "- %s -> %s (confidence: %.2f)\n", l.Trigger, l.Result, l.Confidence)
	}
	objectives := make([]string, 0, len(sess.Objectives))
	for _, o := range sess.Objectives {
		objectives = append(objectives, o.Label())
	}

	var buf bytes.Buffer
	writeSection(&buf, "TASK", "Synthesize insights from this complete effect analysis.")
	writeSection(&buf, "FIRST_ORDER_EFFECTS", renderOrder(1))
	writeSection(&buf, "SECOND_ORDER_EFFECTS", renderOrder(2))
	writeSection(&buf, "THIRD_ORDER_EFFECTS", renderOrder(3))
	writeSection(&buf, "IDENTIFIED_LEAPS", leapsSummary.String())
	writeSection(&buf, "OBJECTIVES", strings.Join(objectives, ", "))
	writeSection(&buf, "RULES", "Prioritize actions the team can start this quarter and tie every KPI to an effect in the graph.")
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func formatLines(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
