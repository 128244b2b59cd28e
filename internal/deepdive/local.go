package deepdive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"supercritical/internal/llmclient"
	"supercritical/internal/scl"
	"supercritical/internal/util/jsonutil"
)

// LocalExpander runs dive expansions directly against an LLM client.
type LocalExpander struct {
	client llmclient.LLMClient
}

func NewLocalExpander(client llmclient.LLMClient) *LocalExpander {
	return &LocalExpander{client: client}
}

var _ Expander = (*LocalExpander)(nil)

const secondarySystemPrompt = `You are an expert systems analyst performing a focused deep-dive on selected effects.

Expand the selected effects into their own second-order consequences and surface what a first pass typically misses.

IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or additional text.

Return valid JSON with this structure:
{
  "effects": [
    {
      "id": "sub_1",
      "title": "Sub-effect title",
      "order": 2,
      "domain": "ops|product|security|org|cost|perf",
      "likelihood": 0.0-1.0,
      "impact": -5 to +5,
      "justification": "How this follows from the selected effects",
      "confidence": 0.0-1.0
    }
  ],
  "edges": [
    {"from": "selected id", "to": "sub_1", "mechanism": "causal mechanism", "confidence": 0.0-1.0, "delay": "2-4 weeks"}
  ],
  "leaps": [],
  "findings": {
    "kind": "secondary",
    "hiddenRisks": ["..."],
    "crossConnections": ["..."],
    "implementationSteps": ["..."],
    "revisedKPIs": ["..."],
    "openQuestions": ["..."]
  }
}`

const tertiarySystemPrompt = `You are an operations architect turning an effect analysis into an executable playbook.

For the selected effects, produce third-order consequences plus operational detail: a runbook, tooling, an FMEA table, quantitative projections, and a comparison of mitigation strategies.

IMPORTANT: Return ONLY valid JSON without any markdown formatting, code blocks, or additional text.

Return valid JSON with this structure:
{
  "effects": [
    {
      "id": "sub_1",
      "title": "Sub-effect title",
      "order": 3,
      "domain": "ops|product|security|org|cost|perf",
      "likelihood": 0.0-1.0,
      "impact": -5 to +5,
      "justification": "How this follows from the selected effects",
      "confidence": 0.0-1.0
    }
  ],
  "edges": [],
  "leaps": [],
  "findings": {
    "kind": "tertiary",
    "runbook": ["Step 1", "Step 2"],
    "toolRecommendations": [{"tool": "...", "purpose": "...", "tradeoffs": "..."}],
    "fmeaEntries": [{"failureMode": "...", "cause": "...", "effect": "...", "severity": 1-10, "likelihood": 1-10, "detection": 1-10, "rpn": 1-1000, "mitigation": "..."}],
    "projections": [{"metric": "...", "baseline": "...", "projected": "...", "timeframe": "...", "confidence": 0.0-1.0}],
    "mitigationComparison": [{"strategy": "...", "effort": "low|medium|high", "impact": "low|medium|high", "timeToValue": "...", "risks": "..."}]
  }
}`

// Expand prompts the model with the selection context and parses the dive
// payload, routing findings through the tagged-union decoder.
func (x *LocalExpander) Expand(ctx context.Context, req ExpandRequest) (Expansion, error) {
	system := secondarySystemPrompt
	if req.Level == scl.LevelTertiary {
		system = tertiarySystemPrompt
	}
	user, err := buildDivePrompt(req)
	if err != nil {
		return Expansion{}, err
	}
	prompt := system + "\n\n" + user

	raw, err := x.client.GenerateJSON(ctx, prompt, nil)
	if err != nil {
		return Expansion{}, err
	}

	var payload struct {
		Effects  []scl.EffectNode `json:"effects"`
		Edges    []scl.Edge       `json:"edges"`
		Leaps    []scl.Leap       `json:"leaps"`
		Findings json.RawMessage  `json:"findings"`
	}
	if err := jsonutil.UnmarshalRaw(raw, &payload); err != nil {
		return Expansion{}, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
	}
	findings, err := scl.UnmarshalFindings(payload.Findings)
	if err != nil {
		return Expansion{}, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
	}
	return Expansion{
		Effects:        payload.Effects,
		Edges:          payload.Edges,
		Leaps:          payload.Leaps,
		Findings:       findings,
		PromptTokens:   len(prompt) / 4,
		ResponseTokens: len(raw) / 4,
	}, nil
}

func buildDivePrompt(req ExpandRequest) (string, error) {
	constraintsJSON, err := jsonutil.MarshalNoEscape(req.Session.Constraints)
	if err != nil {
		return "", err
	}
	var nodes strings.Builder
	for _, n := range req.SelectedNodes {
		fmt.Fprintf(&nodes, "%s: %s (order %d, %s, impact: %d) - %s\n",
			n.ID, n.Title, n.Order, n.Domain, n.Impact, n.Justification)
	}

	var buf bytes.Buffer
	writeSection(&buf, "SELECTED_EFFECTS", nodes.String())
	writeSection(&buf, "MODE", string(req.Session.Mode))
	writeSection(&buf, "CONSTRAINTS", string(constraintsJSON))
	if req.UserQuestion != "" {
		writeSection(&buf, "USER_QUESTION", req.UserQuestion)
	}
	writeSection(&buf, "RULES", "Stay scoped to the selected effects; do not restate the full analysis.")
	return strings.TrimSpace(buf.String()) + "\n", nil
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
