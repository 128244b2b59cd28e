package scl

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestModeKnobsRoundTripKeepsDiscriminator(t *testing.T) {
	cases := []ModeKnobs{
		StressTestKnobs{PerturbBudget: true, PerturbationPct: 0.25, SaturationProbes: 3},
		InterveneKnobs{Levers: []string{"rate limit", "staged rollout"}},
		CounterfactualKnobs{Toggles: map[string]bool{"memory": false, "toolUse": true}},
		TemporalSimKnobs{Steps: 12, StepDuration: "1 week"},
		RegulatoryImpactKnobs{Regime: "EU AI Act", ControlPoints: []string{"Annex III"}},
		RedTeamKnobs{ThreatActors: []string{"insider"}, AttackSurface: []string{"tool calls"}},
	}
	for _, knobs := range cases {
		data, err := MarshalModeKnobs(knobs)
		if err != nil {
			t.Fatalf("%s: marshal: %v", knobs.KnobsMode(), err)
		}
		if !strings.Contains(string(data), `"mode":"`+string(knobs.KnobsMode())+`"`) {
			t.Fatalf("%s: discriminator missing in %s", knobs.KnobsMode(), data)
		}
		back, err := UnmarshalModeKnobs(data)
		if err != nil {
			t.Fatalf("%s: unmarshal: %v", knobs.KnobsMode(), err)
		}
		if diff := cmp.Diff(knobs, back); diff != "" {
			t.Fatalf("%s: round trip mismatch (-want +got):\n%s", knobs.KnobsMode(), diff)
		}
	}
}

func TestUnmarshalModeKnobsRejectsUnknownMode(t *testing.T) {
	if _, err := UnmarshalModeKnobs([]byte(`{"mode":"consolidate"}`)); err == nil {
		t.Fatal("expected error for mode without knobs variant")
	}
	if _, err := UnmarshalModeKnobs([]byte(`{`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestConstraintsJSONCarriesKnobs(t *testing.T) {
	c := Constraints{
		Budget:            BudgetHigh,
		LatencyP99Ms:      800,
		ComplianceProfile: DefaultConstraints().ComplianceProfile,
		TimeHorizon:       DefaultConstraints().TimeHorizon,
		Knobs:             TemporalSimKnobs{Steps: 6, StepDuration: "1 month"},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Constraints
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(c, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConstraintsApplyMergesOnlySetFields(t *testing.T) {
	c := DefaultConstraints()
	origHorizon := c.TimeHorizon

	budget := BudgetLow
	team := 12
	c.Apply(ConstraintsPatch{
		Budget:   &budget,
		TeamSize: &team,
		Knobs:    RedTeamKnobs{ThreatActors: []string{"external"}},
	})

	if c.Budget != BudgetLow || c.TeamSize != 12 {
		t.Fatalf("applied = %+v", c)
	}
	if c.TimeHorizon != origHorizon {
		t.Fatalf("timeHorizon changed to %q", c.TimeHorizon)
	}
	if c.Knobs == nil || c.Knobs.KnobsMode() != ModeRedTeam {
		t.Fatalf("knobs = %#v", c.Knobs)
	}
}
