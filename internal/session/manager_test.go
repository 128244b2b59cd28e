package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"supercritical/internal/scl"
)

func generationResult() GenerationResult {
	return GenerationResult{
		EffectGraph: scl.EffectGraph{
			Nodes: []scl.EffectNode{
				{ID: "e1", Title: "Paging load rises", Order: 1, Domain: scl.DomainOps, Impact: -3, Likelihood: 0.8, Confidence: 0.7},
				{ID: "e2", Title: "Retention dips", Order: 2, Domain: scl.DomainOrg, Impact: -2, Likelihood: 0.5, Confidence: 0.5},
			},
			Edges: []scl.Edge{{From: "e1", To: "e2", Confidence: 0.5, Mechanism: "sustained on-call strain"}},
		},
		Leaps: []scl.Leap{{
			Trigger: "alert volume", Threshold: "50/day", Result: "rotation collapses",
			Mechanism: "attrition", Confidence: 0.6,
		}},
		Synthesis: scl.Synthesis{
			Risks:      []string{"rotation burnout"},
			ActionPlan: []string{"add second rotation"},
		},
		Score:  scl.Score{Completeness: 0.4, Novelty: 0.5, Feasibility: 0.3, LeapDetection: 0.6, SecondOrderDepth: 1},
		Audit:  scl.Audit{Sources: []string{"seed"}, Model: "test", Version: Version, Timestamp: 42},
		Source: scl.SourceLocal,
	}
}

func TestCreateStartsDraftWithDefaults(t *testing.T) {
	m := NewManager()
	seeds := scl.Seeds{
		ConceptIDs: []string{"RAG pipeline"},
		PatternIDs: []string{"retrieval then synthesis"},
		Practices:  []string{"weekly refresh"},
	}
	sess := m.Create(scl.ModeConsolidate, []scl.Objective{"understand"}, seeds)

	if sess.ID == "" || sess.Status != scl.StatusDraft {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Constraints.Budget == "" || sess.Constraints.TimeHorizon == "" {
		t.Fatalf("constraints not defaulted: %+v", sess.Constraints)
	}
	if len(sess.EffectGraph.Nodes) != 0 || len(sess.DeepDives) != 0 {
		t.Fatal("derived data not empty on create")
	}
	// Audit sources collect both seed id lists.
	want := []string{"RAG pipeline", "retrieval then synthesis"}
	if diff := cmp.Diff(want, sess.Audit.Sources); diff != "" {
		t.Fatalf("audit sources (-want +got):\n%s", diff)
	}
	if sess.CreatedAt == 0 || sess.CreatedAt != sess.UpdatedAt {
		t.Fatalf("timestamps = %d/%d", sess.CreatedAt, sess.UpdatedAt)
	}
}

func TestCurrentReturnsIndependentCopy(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c"}})
	if err := m.ApplyGenerationResult(generationResult()); err != nil {
		t.Fatalf("ApplyGenerationResult: %v", err)
	}

	first, _ := m.Current()
	first.EffectGraph.Nodes[0].Title = "mutated"
	first.Synthesis.Risks[0] = "mutated"

	second, _ := m.Current()
	if second.EffectGraph.Nodes[0].Title == "mutated" || second.Synthesis.Risks[0] == "mutated" {
		t.Fatal("Current leaked internal state")
	}
}

func TestApplyGenerationResultReplacesDerivedData(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeExtrapolate, nil, scl.Seeds{ConceptIDs: []string{"c"}})

	res := generationResult()
	if err := m.ApplyGenerationResult(res); err != nil {
		t.Fatalf("ApplyGenerationResult: %v", err)
	}

	sess, _ := m.Current()
	if sess.Status != scl.StatusComplete {
		t.Fatalf("status = %q", sess.Status)
	}
	if sess.Source != scl.SourceLocal {
		t.Fatalf("source = %q", sess.Source)
	}
	if diff := cmp.Diff(res.EffectGraph, sess.EffectGraph); diff != "" {
		t.Fatalf("graph (-want +got):\n%s", diff)
	}
	if len(sess.Leaps) != 1 || sess.Audit.Model != "test" {
		t.Fatalf("session = %+v", sess)
	}

	// A second generation fully replaces the first, never merges.
	res2 := generationResult()
	res2.EffectGraph = scl.EffectGraph{Nodes: []scl.EffectNode{
		{ID: "n1", Title: "Fresh start", Order: 1, Domain: scl.DomainProduct, Impact: 1, Likelihood: 0.5, Confidence: 0.5},
	}}
	res2.Leaps = nil
	if err := m.ApplyGenerationResult(res2); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	sess, _ = m.Current()
	if len(sess.EffectGraph.Nodes) != 1 || sess.EffectGraph.Nodes[0].ID != "n1" {
		t.Fatalf("graph after regenerate = %+v", sess.EffectGraph)
	}
	if len(sess.Leaps) != 0 {
		t.Fatalf("leaps not replaced: %+v", sess.Leaps)
	}
}

func TestApplyGenerationResultKeepsDiveCounters(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c"}})
	if err := m.ApplyGenerationResult(generationResult()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := m.AppendDeepDive(scl.DeepDive{
		ID: "dive-1", Level: scl.LevelSecondary,
		Effects:  []scl.EffectNode{{ID: "s1", Title: "Sub", Order: 2, Domain: scl.DomainOps}},
		Findings: scl.SecondaryFindings{HiddenRisks: []string{"r"}},
	}); err != nil {
		t.Fatalf("AppendDeepDive: %v", err)
	}

	// Regeneration replaces the score but the dive counters are derived
	// from the surviving dive records.
	if err := m.ApplyGenerationResult(generationResult()); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	sess, _ := m.Current()
	if len(sess.DeepDives) != 1 {
		t.Fatalf("dives = %d", len(sess.DeepDives))
	}
	if sess.Score.DeepDiveDepth != 1 || sess.Score.TotalSubEffects != 1 {
		t.Fatalf("score counters = %+v", sess.Score)
	}
}

func TestRestoreReplacesActiveSession(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"first"}})

	imported := scl.Session{
		ID:     "scl-imported",
		Mode:   scl.ModeRedTeam,
		Status: scl.StatusComplete,
		Seeds:  scl.Seeds{ConceptIDs: []string{"imported concept"}},
	}
	m.Restore(imported)

	sess, ok := m.Current()
	if !ok || sess.ID != "scl-imported" || sess.Mode != scl.ModeRedTeam {
		t.Fatalf("restored = %+v", sess)
	}

	// The manager must not alias the caller's value.
	imported.Seeds.ConceptIDs[0] = "mutated"
	sess, _ = m.Current()
	if sess.Seeds.ConceptIDs[0] == "mutated" {
		t.Fatal("Restore aliased caller slices")
	}
}

func TestRemoveEffectDropsIncidentEdges(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c"}})
	if err := m.ApplyGenerationResult(generationResult()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := m.RemoveEffect("e1"); err != nil {
		t.Fatalf("RemoveEffect: %v", err)
	}
	sess, _ := m.Current()
	if len(sess.EffectGraph.Nodes) != 1 || sess.EffectGraph.Nodes[0].ID != "e2" {
		t.Fatalf("nodes = %+v", sess.EffectGraph.Nodes)
	}
	if len(sess.EffectGraph.Edges) != 0 {
		t.Fatalf("edges = %+v", sess.EffectGraph.Edges)
	}
}

func TestAddEffectAssignsIDWhenMissing(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c"}})

	if err := m.AddEffect(scl.EffectNode{Title: "Manual", Order: 1, Domain: scl.DomainOps}); err != nil {
		t.Fatalf("AddEffect: %v", err)
	}
	sess, _ := m.Current()
	if len(sess.EffectGraph.Nodes) != 1 || sess.EffectGraph.Nodes[0].ID == "" {
		t.Fatalf("nodes = %+v", sess.EffectGraph.Nodes)
	}
}

func TestMutationsWithoutSession(t *testing.T) {
	m := NewManager()
	if _, ok := m.Current(); ok {
		t.Fatal("Current reported a session on a fresh manager")
	}
	if err := m.ApplyGenerationResult(generationResult()); err != ErrNoSession {
		t.Fatalf("ApplyGenerationResult err = %v", err)
	}
	if err := m.AppendDeepDive(scl.DeepDive{ID: "d"}); err != ErrNoSession {
		t.Fatalf("AppendDeepDive err = %v", err)
	}
	if err := m.AddEffect(scl.EffectNode{Title: "x"}); err != ErrNoSession {
		t.Fatalf("AddEffect err = %v", err)
	}
	if err := m.RemoveEffect("x"); err != ErrNoSession {
		t.Fatalf("RemoveEffect err = %v", err)
	}
	// UpdateConstraints and SetStatus are documented no-ops.
	m.UpdateConstraints(scl.ConstraintsPatch{})
	m.SetStatus(scl.StatusError)
}

func TestClearDiscardsSession(t *testing.T) {
	m := NewManager()
	m.Create(scl.ModeConsolidate, nil, scl.Seeds{ConceptIDs: []string{"c"}})
	m.Clear()
	if _, ok := m.Current(); ok {
		t.Fatal("session survived Clear")
	}
}
