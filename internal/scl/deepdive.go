package scl

import (
	"encoding/json"
	"fmt"
)

// DeepDiveLevel selects the depth of a refinement pass.
type DeepDiveLevel string

const (
	LevelSecondary DeepDiveLevel = "secondary"
	LevelTertiary  DeepDiveLevel = "tertiary"
)

func (l DeepDiveLevel) Valid() bool {
	return l == LevelSecondary || l == LevelTertiary
}

// DeepDive is one refinement pass over a chosen subset of effect nodes.
// SelectedNodes is a snapshot taken at drill time, not a live reference,
// so later edits to the parent graph never leak into the dive.
// A dive is immutable once appended to a session.
type DeepDive struct {
	ID              string        `json:"id"`
	Level           DeepDiveLevel `json:"level"`
	SelectedNodeIDs []string      `json:"selectedNodeIds"`
	SelectedNodes   []EffectNode  `json:"selectedNodes"`
	UserQuestion    string        `json:"userQuestion,omitempty"`
	Effects         []EffectNode  `json:"effects"`
	Edges           []Edge        `json:"edges,omitempty"`
	Leaps           []Leap        `json:"leaps,omitempty"`
	Findings        Findings      `json:"findings"`
	PromptTokens    int           `json:"promptTokens"`
	ResponseTokens  int           `json:"responseTokens"`
	CreatedAt       int64         `json:"createdAt"`
}

// Clone returns a deep copy of the dive.
func (d DeepDive) Clone() DeepDive {
	out := d
	out.SelectedNodeIDs = cloneStrings(d.SelectedNodeIDs)
	out.SelectedNodes = cloneEffectNodes(d.SelectedNodes)
	out.Effects = cloneEffectNodes(d.Effects)
	out.Edges = cloneEdges(d.Edges)
	out.Leaps = CloneLeaps(d.Leaps)
	if d.Findings != nil {
		out.Findings = d.Findings.clone()
	}
	return out
}

// UnmarshalJSON decodes the findings field through the tagged envelope.
func (d *DeepDive) UnmarshalJSON(data []byte) error {
	type alias DeepDive
	aux := struct {
		*alias
		Findings json.RawMessage `json:"findings"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Findings) == 0 || string(aux.Findings) == "null" {
		d.Findings = nil
		return nil
	}
	f, err := UnmarshalFindings(aux.Findings)
	if err != nil {
		return err
	}
	d.Findings = f
	return nil
}

// Findings is the sum type of level-specific deep-dive results,
// discriminated by Kind.
type Findings interface {
	Kind() DeepDiveLevel
	clone() Findings
}

// SecondaryFindings carry implementation-level detail.
type SecondaryFindings struct {
	HiddenRisks         []string `json:"hiddenRisks"`
	CrossConnections    []string `json:"crossConnections"`
	ImplementationSteps []string `json:"implementationSteps"`
	RevisedKPIs         []string `json:"revisedKPIs"`
	OpenQuestions       []string `json:"openQuestions"`
}

func (SecondaryFindings) Kind() DeepDiveLevel { return LevelSecondary }

func (f SecondaryFindings) clone() Findings {
	return SecondaryFindings{
		HiddenRisks:         cloneStrings(f.HiddenRisks),
		CrossConnections:    cloneStrings(f.CrossConnections),
		ImplementationSteps: cloneStrings(f.ImplementationSteps),
		RevisedKPIs:         cloneStrings(f.RevisedKPIs),
		OpenQuestions:       cloneStrings(f.OpenQuestions),
	}
}

// MarshalJSON emits the kind discriminator alongside the fields.
func (f SecondaryFindings) MarshalJSON() ([]byte, error) {
	type alias SecondaryFindings
	return json.Marshal(struct {
		Kind DeepDiveLevel `json:"kind"`
		alias
	}{Kind: LevelSecondary, alias: alias(f)})
}

// ToolRecommendation names a tool and why it applies.
type ToolRecommendation struct {
	Tool      string `json:"tool"`
	Purpose   string `json:"purpose"`
	Tradeoffs string `json:"tradeoffs"`
}

// FMEAEntry is one failure-mode row. RPN = severity * likelihood * detection.
type FMEAEntry struct {
	FailureMode string `json:"failureMode"`
	Cause       string `json:"cause"`
	Effect      string `json:"effect"`
	Severity    int    `json:"severity"`   // 1..10
	Likelihood  int    `json:"likelihood"` // 1..10
	Detection   int    `json:"detection"`  // 1..10
	RPN         int    `json:"rpn"`
	Mitigation  string `json:"mitigation"`
}

// Projection is a quantitative forecast for one metric.
type Projection struct {
	Metric     string  `json:"metric"`
	Baseline   string  `json:"baseline"`
	Projected  string  `json:"projected"`
	Timeframe  string  `json:"timeframe"`
	Confidence float64 `json:"confidence"`
}

// MitigationOption compares one strategy against its cost and payoff.
type MitigationOption struct {
	Strategy    string `json:"strategy"`
	Effort      string `json:"effort"` // low | medium | high
	Impact      string `json:"impact"` // low | medium | high
	TimeToValue string `json:"timeToValue"`
	Risks       string `json:"risks"`
}

// TertiaryFindings carry operational-playbook detail.
type TertiaryFindings struct {
	Runbook              []string             `json:"runbook"`
	ToolRecommendations  []ToolRecommendation `json:"toolRecommendations"`
	FMEAEntries          []FMEAEntry          `json:"fmeaEntries"`
	Projections          []Projection         `json:"projections"`
	MitigationComparison []MitigationOption   `json:"mitigationComparison"`
}

func (TertiaryFindings) Kind() DeepDiveLevel { return LevelTertiary }

func (f TertiaryFindings) clone() Findings {
	return TertiaryFindings{
		Runbook:              cloneStrings(f.Runbook),
		ToolRecommendations:  CloneSlice(f.ToolRecommendations),
		FMEAEntries:          CloneSlice(f.FMEAEntries),
		Projections:          CloneSlice(f.Projections),
		MitigationComparison: CloneSlice(f.MitigationComparison),
	}
}

// MarshalJSON emits the kind discriminator alongside the fields.
func (f TertiaryFindings) MarshalJSON() ([]byte, error) {
	type alias TertiaryFindings
	return json.Marshal(struct {
		Kind DeepDiveLevel `json:"kind"`
		alias
	}{Kind: LevelTertiary, alias: alias(f)})
}

// UnmarshalFindings decodes a findings payload by its kind discriminator.
func UnmarshalFindings(raw json.RawMessage) (Findings, error) {
	var probe struct {
		Kind DeepDiveLevel `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("findings: %w", err)
	}
	switch probe.Kind {
	case LevelSecondary:
		var f SecondaryFindings
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("secondary findings: %w", err)
		}
		return f, nil
	case LevelTertiary:
		var f TertiaryFindings
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("tertiary findings: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("findings: unknown kind %q", probe.Kind)
	}
}
