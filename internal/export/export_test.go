package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"supercritical/internal/scl"
)

func fullSession() scl.Session {
	constraints := scl.DefaultConstraints()
	constraints.Knobs = scl.StressTestKnobs{}

	return scl.Session{
		ID:         "scl-roundtrip",
		Mode:       scl.ModeStressTest,
		Objectives: []scl.Objective{scl.ObjectiveMinimizeRisk},
		Seeds: scl.Seeds{
			ConceptIDs: []string{"multi-agent-systems"},
			PatternIDs: []string{"orchestrator-worker"},
			Practices:  []string{"chaos drills"},
		},
		Constraints: constraints,
		EffectGraph: scl.EffectGraph{
			Nodes: []scl.EffectNode{
				{ID: "e1", Title: "Faster triage", Order: 1, Domain: scl.DomainOps, Likelihood: 0.9, Impact: 3, Justification: "agents pre-sort", References: []string{"postmortem-42"}, Confidence: 0.8},
				{ID: "e2", Title: "Token cost growth", Order: 2, Domain: scl.DomainCost, Likelihood: 0.7, Impact: -3, Confidence: 0.6},
			},
			Edges: []scl.Edge{{From: "e1", To: "e2", Confidence: 0.7, Mechanism: "per-incident inference", Delay: "2-4 weeks"}},
		},
		Leaps: []scl.Leap{
			{Trigger: "auto-resolution rate", Threshold: "80%", Result: "humans stop reviewing", Mechanism: "trust transfer", Evidence: []string{"pilot data"}, Confidence: 0.5},
		},
		Synthesis: scl.Synthesis{
			Risks:                []string{"automation complacency"},
			Opportunities:        []string{"reinvest on-call time"},
			RecommendedPractices: []string{"weekly triage audit"},
			KPIs:                 []string{"MTTR"},
			ActionPlan:           []string{"flagged rollout"},
			ImplementationOrder:  []string{"flag first"},
			SuccessMetrics:       []string{"MTTR under 10m"},
		},
		Score: scl.Score{Completeness: 0.6, SecondOrderDepth: 1, Novelty: 0.4, Feasibility: 0.7, LeapDetection: 0.5, DeepDiveDepth: 2, TotalSubEffects: 2},
		DeepDives: []scl.DeepDive{
			{
				ID:              "dive-1",
				Level:           scl.LevelSecondary,
				SelectedNodeIDs: []string{"e1"},
				SelectedNodes:   []scl.EffectNode{{ID: "e1", Title: "Faster triage", Order: 1, Domain: scl.DomainOps}},
				UserQuestion:    "what breaks first?",
				Effects:         []scl.EffectNode{{ID: "s1", Title: "Alert fatigue", Order: 2, Domain: scl.DomainOps, Impact: -2}},
				Findings: scl.SecondaryFindings{
					HiddenRisks:         []string{"silent suppression"},
					CrossConnections:    []string{"ties into paging policy"},
					ImplementationSteps: []string{"add alert budget"},
					RevisedKPIs:         []string{"alert precision"},
					OpenQuestions:       []string{"who owns runbooks?"},
				},
				PromptTokens:   300,
				ResponseTokens: 220,
				CreatedAt:      1760000000000,
			},
			{
				ID:              "dive-2",
				Level:           scl.LevelTertiary,
				SelectedNodeIDs: []string{"e2"},
				SelectedNodes:   []scl.EffectNode{{ID: "e2", Title: "Token cost growth", Order: 2, Domain: scl.DomainCost}},
				Effects:         []scl.EffectNode{{ID: "t1", Title: "Budget process change", Order: 3, Domain: scl.DomainOrg, Impact: 1}},
				Findings: scl.TertiaryFindings{
					Runbook:             []string{"set per-team budgets"},
					ToolRecommendations: []scl.ToolRecommendation{{Tool: "cost dashboard", Purpose: "visibility", Tradeoffs: "setup effort"}},
					FMEAEntries:         []scl.FMEAEntry{{FailureMode: "runaway spend", Cause: "retry loop", Effect: "budget blown", Severity: 8, Likelihood: 4, Detection: 6, RPN: 192, Mitigation: "hard cap"}},
					Projections:         []scl.Projection{{Metric: "monthly spend", Baseline: "$2k", Projected: "$9k", Timeframe: "3 months", Confidence: 0.6}},
					MitigationComparison: []scl.MitigationOption{
						{Strategy: "response caching", Effort: "low", Impact: "high", TimeToValue: "1 week", Risks: "stale answers"},
					},
				},
				CreatedAt: 1760000100000,
			},
		},
		Audit:     scl.Audit{Sources: []string{"multi-agent-systems"}, Model: "scripted", Version: "1.0.0", Timestamp: 1760000000000, PromptTokens: 1200, ResponseTokens: 900},
		CreatedAt: 1759990000000,
		UpdatedAt: 1760000100000,
		Status:    scl.StatusComplete,
		Source:    scl.SourceBackend,
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	original := fullSession()
	exportedAt := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	data, err := Marshal(original, exportedAt)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.ExportedAt != exportedAt.UnixMilli() {
		t.Fatalf("exportedAt = %d, want %d", doc.ExportedAt, exportedAt.UnixMilli())
	}
	if diff := cmp.Diff(original, doc.Session); diff != "" {
		t.Fatalf("session round trip mismatch (-want +got):\n%s", diff)
	}
}

// A freshly created session carries empty non-nil derived slices. Those
// must export as [] (not null) and come back equal, or restoring a draft
// changes its shape.
func TestDocumentRoundTripDraftSession(t *testing.T) {
	draft := scl.Session{
		ID:          "scl-draft",
		Mode:        scl.ModeConsolidate,
		Seeds:       scl.Seeds{ConceptIDs: []string{"multi-agent-systems"}},
		Constraints: scl.DefaultConstraints(),
		EffectGraph: scl.EffectGraph{Nodes: []scl.EffectNode{}, Edges: []scl.Edge{}},
		Leaps:       []scl.Leap{},
		DeepDives:   []scl.DeepDive{},
		Audit:       scl.Audit{Sources: []string{"multi-agent-systems"}, Version: "1.0.0", Timestamp: 1760000000000},
		CreatedAt:   1760000000000,
		UpdatedAt:   1760000000000,
		Status:      scl.StatusDraft,
	}

	data, err := Marshal(draft, time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"edges": null`) || strings.Contains(string(data), `"leaps": null`) {
		t.Fatalf("empty slices exported as null:\n%s", data)
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(draft, doc.Session); diff != "" {
		t.Fatalf("draft round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestClipboardTextRoundTrip(t *testing.T) {
	original := fullSession()
	text, err := ClipboardText(original)
	if err != nil {
		t.Fatalf("ClipboardText: %v", err)
	}
	var restored scl.Session
	if err := json.Unmarshal([]byte(text), &restored); err != nil {
		t.Fatalf("unmarshal clipboard text: %v", err)
	}
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Fatalf("clipboard round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	if _, err := Parse([]byte(`{}`)); err == nil {
		t.Fatal("expected error for document without session id")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestObjectKeyUsesSessionsPrefix(t *testing.T) {
	at := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	key := objectKey("scl-abc", at)
	if key != "sessions/scl-abc/20260314T093000Z.json" {
		t.Fatalf("key = %q", key)
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	name := FileName(scl.Session{ID: "scl-0123456789abcdef"}, at)
	if !strings.HasPrefix(name, "scl-session-scl-01234567") {
		t.Fatalf("name = %q", name)
	}
	if !strings.HasSuffix(name, "20260314.json") {
		t.Fatalf("name = %q", name)
	}
}
