package scl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testGraph() EffectGraph {
	return EffectGraph{
		Nodes: []EffectNode{
			{ID: "a", Title: "Paging volume rises", Order: 1, Domain: DomainOps, Impact: -3, Likelihood: 0.8, Confidence: 0.7},
			{ID: "b", Title: "Triage gets faster", Order: 2, Domain: DomainProduct, Impact: 3, Likelihood: 0.6, Confidence: 0.6},
			{ID: "c", Title: "Token spend compounds", Order: 3, Domain: DomainCost, Impact: -4, Likelihood: 0.5, Confidence: 0.4},
		},
		Edges: []Edge{
			{From: "a", To: "b", Confidence: 0.6},
			{From: "b", To: "c", Confidence: 0.5},
		},
	}
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	warnings, err := testGraph().Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EffectGraph)
		want   string
	}{
		{"empty id", func(g *EffectGraph) { g.Nodes[0].ID = "" }, "empty id"},
		{"duplicate id", func(g *EffectGraph) { g.Nodes[1].ID = "a" }, "duplicate"},
		{"order below range", func(g *EffectGraph) { g.Nodes[0].Order = 0 }, "order"},
		{"order above range", func(g *EffectGraph) { g.Nodes[0].Order = 4 }, "order"},
		{"self loop", func(g *EffectGraph) { g.Edges[0].To = "a" }, "self-loop"},
		{"dangling from", func(g *EffectGraph) { g.Edges[0].From = "ghost" }, "missing node"},
		{"dangling to", func(g *EffectGraph) { g.Edges[1].To = "ghost" }, "missing node"},
	}
	for _, tc := range cases {
		g := testGraph()
		tc.mutate(&g)
		_, err := g.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestValidateWarnsOnOrderDecrease(t *testing.T) {
	g := testGraph()
	g.Edges = append(g.Edges, Edge{From: "c", To: "a", Confidence: 0.5})
	warnings, err := g.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "decreases order") {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	g := testGraph()
	hits := g.Match("TOKEN")
	if len(hits) != 1 || hits[0].ID != "c" {
		t.Fatalf("hits = %+v", hits)
	}
	if got := g.Match(""); len(got) != 0 {
		t.Fatalf("empty query matched %d nodes", len(got))
	}
}

func TestByOrderAndDomainCounts(t *testing.T) {
	g := testGraph()
	byOrder := g.ByOrder()
	if len(byOrder[1]) != 1 || len(byOrder[2]) != 1 || len(byOrder[3]) != 1 {
		t.Fatalf("byOrder = %v", byOrder)
	}
	counts := g.DomainCounts()
	if counts[DomainOps] != 1 || counts[DomainCost] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if g.CountByOrder(2) != 1 {
		t.Fatalf("CountByOrder(2) = %d", g.CountByOrder(2))
	}
}

func TestGraphCloneIsIndependent(t *testing.T) {
	g := testGraph()
	c := g.Clone()
	c.Nodes[0].Title = "mutated"
	c.Edges[0].Confidence = 0.99
	if g.Nodes[0].Title == "mutated" || g.Edges[0].Confidence == 0.99 {
		t.Fatal("Clone shares backing arrays")
	}
}

// Empty and nil slices marshal differently ([] vs null), so Clone must
// preserve the distinction for exports to round-trip byte-for-byte.
func TestSessionCloneKeepsSliceEmptiness(t *testing.T) {
	sess := Session{
		ID:   "scl-empt",
		Mode: ModeConsolidate,
		Seeds: Seeds{
			ConceptIDs: []string{"c1"},
			PatternIDs: []string{},
		},
		EffectGraph: EffectGraph{Nodes: []EffectNode{}, Edges: []Edge{}},
		Leaps:       []Leap{},
		DeepDives:   []DeepDive{},
		Audit:       Audit{Sources: []string{}},
	}

	clone := sess.Clone()
	if diff := cmp.Diff(sess, clone); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}
	if clone.EffectGraph.Edges == nil || clone.Leaps == nil || clone.Seeds.PatternIDs == nil || clone.Audit.Sources == nil {
		t.Fatal("Clone collapsed an empty slice to nil")
	}
	if clone.Seeds.Practices != nil || clone.Objectives != nil {
		t.Fatal("Clone materialized a nil slice")
	}
}
