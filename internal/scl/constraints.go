package scl

import (
	"encoding/json"
	"fmt"
)

type Budget string

const (
	BudgetLow       Budget = "low"
	BudgetMedium    Budget = "medium"
	BudgetHigh      Budget = "high"
	BudgetUnlimited Budget = "unlimited"
)

type TimeHorizon string

const (
	Horizon1Month  TimeHorizon = "1month"
	Horizon3Months TimeHorizon = "3months"
	Horizon6Months TimeHorizon = "6months"
	Horizon1Year   TimeHorizon = "1year"
	Horizon2Years  TimeHorizon = "2years"
)

type ComplianceProfile string

const (
	ComplianceNone      ComplianceProfile = "none"
	ComplianceBasic     ComplianceProfile = "basic"
	ComplianceStrict    ComplianceProfile = "strict"
	ComplianceRegulated ComplianceProfile = "regulated"
)

// Constraints bound a generation run. Knobs carries the mode-specific
// configuration as a typed union instead of an open string map.
type Constraints struct {
	Budget            Budget            `json:"budget"`
	LatencyP99Ms      int               `json:"latencyP99,omitempty"`
	Accuracy          float64           `json:"accuracy,omitempty"` // 0..1
	ComplianceProfile ComplianceProfile `json:"complianceProfile"`
	TeamSize          int               `json:"teamSize,omitempty"`
	TimeHorizon       TimeHorizon       `json:"timeHorizon"`
	Knobs             ModeKnobs         `json:"knobs,omitempty"`
}

// DefaultConstraints are applied at session creation.
func DefaultConstraints() Constraints {
	return Constraints{
		Budget:            BudgetMedium,
		TimeHorizon:       Horizon3Months,
		ComplianceProfile: ComplianceBasic,
	}
}

// Clone returns a deep copy of the constraints.
func (c Constraints) Clone() Constraints {
	out := c
	if c.Knobs != nil {
		out.Knobs = c.Knobs.cloneKnobs()
	}
	return out
}

// ConstraintsPatch is a partial update; nil fields are left untouched.
type ConstraintsPatch struct {
	Budget            *Budget            `json:"budget,omitempty"`
	LatencyP99Ms      *int               `json:"latencyP99,omitempty"`
	Accuracy          *float64           `json:"accuracy,omitempty"`
	ComplianceProfile *ComplianceProfile `json:"complianceProfile,omitempty"`
	TeamSize          *int               `json:"teamSize,omitempty"`
	TimeHorizon       *TimeHorizon       `json:"timeHorizon,omitempty"`
	Knobs             ModeKnobs          `json:"-"`
}

// Apply shallow-merges the patch into c.
func (c *Constraints) Apply(p ConstraintsPatch) {
	if p.Budget != nil {
		c.Budget = *p.Budget
	}
	if p.LatencyP99Ms != nil {
		c.LatencyP99Ms = *p.LatencyP99Ms
	}
	if p.Accuracy != nil {
		c.Accuracy = *p.Accuracy
	}
	if p.ComplianceProfile != nil {
		c.ComplianceProfile = *p.ComplianceProfile
	}
	if p.TeamSize != nil {
		c.TeamSize = *p.TeamSize
	}
	if p.TimeHorizon != nil {
		c.TimeHorizon = *p.TimeHorizon
	}
	if p.Knobs != nil {
		c.Knobs = p.Knobs.cloneKnobs()
	}
}

// UnmarshalJSON decodes the knobs union by its mode discriminator.
func (c *Constraints) UnmarshalJSON(data []byte) error {
	type alias Constraints
	aux := struct {
		*alias
		Knobs json.RawMessage `json:"knobs,omitempty"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Knobs) == 0 || string(aux.Knobs) == "null" {
		c.Knobs = nil
		return nil
	}
	k, err := UnmarshalModeKnobs(aux.Knobs)
	if err != nil {
		return err
	}
	c.Knobs = k
	return nil
}

// UnmarshalJSON decodes an optional knobs object inside the patch.
func (p *ConstraintsPatch) UnmarshalJSON(data []byte) error {
	type alias ConstraintsPatch
	aux := struct {
		*alias
		Knobs json.RawMessage `json:"knobs,omitempty"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Knobs) == 0 || string(aux.Knobs) == "null" {
		return nil
	}
	k, err := UnmarshalModeKnobs(aux.Knobs)
	if err != nil {
		return err
	}
	p.Knobs = k
	return nil
}

// ModeKnobs is the per-mode configuration union. Each variant belongs to
// exactly one analysis mode and serializes as {"mode": ..., fields...}.
type ModeKnobs interface {
	KnobsMode() Mode
	cloneKnobs() ModeKnobs
}

// StressTestKnobs perturb constraints to surface brittle links.
type StressTestKnobs struct {
	PerturbBudget    bool    `json:"perturbBudget"`
	PerturbLatency   bool    `json:"perturbLatency"`
	PerturbAccuracy  bool    `json:"perturbAccuracy"`
	PerturbationPct  float64 `json:"perturbationPct"` // fraction, e.g. 0.25
	SaturationProbes int     `json:"saturationProbes"`
}

func (StressTestKnobs) KnobsMode() Mode { return ModeStressTest }
func (k StressTestKnobs) cloneKnobs() ModeKnobs { return k }

// InterveneKnobs name concrete levers to compare downstream outcomes.
type InterveneKnobs struct {
	Levers []string `json:"levers"` // e.g. "rate limit", "caching", "staged rollout"
}

func (InterveneKnobs) KnobsMode() Mode { return ModeIntervene }
func (k InterveneKnobs) cloneKnobs() ModeKnobs {
	k.Levers = cloneStrings(k.Levers)
	return k
}

// CounterfactualKnobs toggle key assumptions on or off.
type CounterfactualKnobs struct {
	Toggles map[string]bool `json:"toggles"` // e.g. "memory": false, "toolUse": true
}

func (CounterfactualKnobs) KnobsMode() Mode { return ModeCounterfactual }
func (k CounterfactualKnobs) cloneKnobs() ModeKnobs {
	if k.Toggles != nil {
		m := make(map[string]bool, len(k.Toggles))
		for key, v := range k.Toggles {
			m[key] = v
		}
		k.Toggles = m
	}
	return k
}

// TemporalSimKnobs bound a time-stepped simulation.
type TemporalSimKnobs struct {
	Steps        int    `json:"steps"`
	StepDuration string `json:"stepDuration"` // e.g. "1 month"
}

func (TemporalSimKnobs) KnobsMode() Mode { return ModeTemporalSim }
func (k TemporalSimKnobs) cloneKnobs() ModeKnobs { return k }

// RegulatoryImpactKnobs select the regime to assess against.
type RegulatoryImpactKnobs struct {
	Regime        string   `json:"regime"` // e.g. "EU AI Act"
	ControlPoints []string `json:"controlPoints,omitempty"`
}

func (RegulatoryImpactKnobs) KnobsMode() Mode { return ModeRegulatoryImpact }
func (k RegulatoryImpactKnobs) cloneKnobs() ModeKnobs {
	k.ControlPoints = cloneStrings(k.ControlPoints)
	return k
}

// RedTeamKnobs scope the adversarial analysis.
type RedTeamKnobs struct {
	ThreatActors  []string `json:"threatActors,omitempty"`
	AttackSurface []string `json:"attackSurface,omitempty"`
}

func (RedTeamKnobs) KnobsMode() Mode { return ModeRedTeam }
func (k RedTeamKnobs) cloneKnobs() ModeKnobs {
	k.ThreatActors = cloneStrings(k.ThreatActors)
	k.AttackSurface = cloneStrings(k.AttackSurface)
	return k
}

type knobsEnvelope struct {
	Mode Mode `json:"mode"`
}

// MarshalModeKnobs serializes knobs with their mode discriminator.
func MarshalModeKnobs(k ModeKnobs) ([]byte, error) {
	if k == nil {
		return []byte("null"), nil
	}
	return json.Marshal(k)
}

// UnmarshalModeKnobs decodes a knobs object by its mode discriminator.
func UnmarshalModeKnobs(raw json.RawMessage) (ModeKnobs, error) {
	var env knobsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("knobs: %w", err)
	}
	switch env.Mode {
	case ModeStressTest:
		var k StressTestKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case ModeIntervene:
		var k InterveneKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case ModeCounterfactual:
		var k CounterfactualKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case ModeTemporalSim:
		var k TemporalSimKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case ModeRegulatoryImpact:
		var k RegulatoryImpactKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	case ModeRedTeam:
		var k RedTeamKnobs
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, fmt.Errorf("knobs: mode %q has no knobs variant", env.Mode)
	}
}

// MarshalJSON implementations route through MarshalModeKnobs so the
// discriminator is always present on the wire.

func (k StressTestKnobs) MarshalJSON() ([]byte, error)       { return marshalKnobsWithMode(k) }
func (k InterveneKnobs) MarshalJSON() ([]byte, error)        { return marshalKnobsWithMode(k) }
func (k CounterfactualKnobs) MarshalJSON() ([]byte, error)   { return marshalKnobsWithMode(k) }
func (k TemporalSimKnobs) MarshalJSON() ([]byte, error)      { return marshalKnobsWithMode(k) }
func (k RegulatoryImpactKnobs) MarshalJSON() ([]byte, error) { return marshalKnobsWithMode(k) }
func (k RedTeamKnobs) MarshalJSON() ([]byte, error)          { return marshalKnobsWithMode(k) }

func marshalKnobsWithMode(k ModeKnobs) ([]byte, error) {
	m, err := knobsFields(k)
	if err != nil {
		return nil, err
	}
	m["mode"] = k.KnobsMode()
	return json.Marshal(m)
}

func knobsFields(k ModeKnobs) (map[string]any, error) {
	var body []byte
	var err error
	switch v := k.(type) {
	case StressTestKnobs:
		type plain StressTestKnobs
		body, err = json.Marshal(plain(v))
	case InterveneKnobs:
		type plain InterveneKnobs
		body, err = json.Marshal(plain(v))
	case CounterfactualKnobs:
		type plain CounterfactualKnobs
		body, err = json.Marshal(plain(v))
	case TemporalSimKnobs:
		type plain TemporalSimKnobs
		body, err = json.Marshal(plain(v))
	case RegulatoryImpactKnobs:
		type plain RegulatoryImpactKnobs
		body, err = json.Marshal(plain(v))
	case RedTeamKnobs:
		type plain RedTeamKnobs
		body, err = json.Marshal(plain(v))
	default:
		return nil, fmt.Errorf("knobs: unsupported type %T", k)
	}
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}
