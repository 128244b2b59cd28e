package scl

import (
	"time"
)

// Domain classifies which part of a system an effect lands on.
type Domain string

const (
	DomainOps      Domain = "ops"
	DomainProduct  Domain = "product"
	DomainSecurity Domain = "security"
	DomainOrg      Domain = "org"
	DomainCost     Domain = "cost"
	DomainPerf     Domain = "perf"
)

// Domains lists all known domains in display order.
var Domains = []Domain{DomainOps, DomainProduct, DomainSecurity, DomainOrg, DomainCost, DomainPerf}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainOps, DomainProduct, DomainSecurity, DomainOrg, DomainCost, DomainPerf:
		return true
	}
	return false
}

// Mode selects the analysis strategy for a session.
type Mode string

const (
	ModeConsolidate      Mode = "consolidate"
	ModeExtrapolate      Mode = "extrapolate"
	ModeTransfer         Mode = "transfer"
	ModeStressTest       Mode = "stress-test"
	ModeIntervene        Mode = "intervene"
	ModeCounterfactual   Mode = "counterfactual"
	ModeLeapFocus        Mode = "leap-focus"
	ModeMechanismAudit   Mode = "mechanism-audit"
	ModeRedTeam          Mode = "red-team"
	ModeTemporalSim      Mode = "temporal-sim"
	ModeCompose          Mode = "compose"
	ModeRegulatoryImpact Mode = "regulatory-impact"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeConsolidate, ModeExtrapolate, ModeTransfer, ModeStressTest,
		ModeIntervene, ModeCounterfactual, ModeLeapFocus, ModeMechanismAudit,
		ModeRedTeam, ModeTemporalSim, ModeCompose, ModeRegulatoryImpact:
		return true
	}
	return false
}

// Objective is a user-selected goal that steers generation.
type Objective string

const (
	ObjectiveOptimize                Objective = "optimize"
	ObjectiveMinimizeRisk            Objective = "minimizeRisk"
	ObjectiveHitSLOs                 Objective = "hitSLOs"
	ObjectiveScaleTeam               Objective = "scaleTeam"
	ObjectiveReduceComplexity        Objective = "reduceComplexity"
	ObjectiveLatencyTailReduction    Objective = "latencyTailReduction"
	ObjectiveMarginalLiftValidation  Objective = "marginalLiftValidation"
	ObjectiveCalibratedConfidenceGap Objective = "calibratedConfidenceGap"
)

// ObjectiveLabels maps objectives to their display names.
var ObjectiveLabels = map[Objective]string{
	ObjectiveOptimize:                "Optimize Outcomes",
	ObjectiveMinimizeRisk:            "Minimize Risk",
	ObjectiveHitSLOs:                 "Hit SLOs",
	ObjectiveScaleTeam:               "Scale Team Capability",
	ObjectiveReduceComplexity:        "Reduce Complexity",
	ObjectiveLatencyTailReduction:    "Latency Tail Reduction",
	ObjectiveMarginalLiftValidation:  "Marginal Lift Validation",
	ObjectiveCalibratedConfidenceGap: "Calibrated Confidence Gap",
}

// Label returns the display name for o, falling back to the raw value.
func (o Objective) Label() string {
	if l, ok := ObjectiveLabels[o]; ok {
		return l
	}
	return string(o)
}

// EffectNode is a single claimed causal consequence in the analysis.
// Order is the causal distance from the seed (1, 2, or 3).
type EffectNode struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Order         int      `json:"order"`
	Domain        Domain   `json:"domain"`
	Likelihood    float64  `json:"likelihood"` // 0..1
	Impact        int      `json:"impact"`     // -5..+5
	Justification string   `json:"justification"`
	References    []string `json:"references,omitempty"`
	Confidence    float64  `json:"confidence"` // 0..1
}

// Edge is a causal link between two effect nodes.
type Edge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
	Mechanism  string  `json:"mechanism,omitempty"`
	Delay      string  `json:"delay,omitempty"` // e.g. "2-4 weeks", "immediate"
}

// Leap is a modeled discontinuity: a threshold crossing that produces a
// qualitatively different regime, distinct from smooth incremental effects.
type Leap struct {
	Trigger    string   `json:"trigger"`
	Threshold  string   `json:"threshold"`
	Result     string   `json:"result"`
	Mechanism  string   `json:"mechanism"`
	Evidence   []string `json:"evidence,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Synthesis is the narrative rollup produced once per session from the
// primary effect graph. Deep-dive findings are never folded back in here.
type Synthesis struct {
	Risks                []string `json:"risks"`
	Opportunities        []string `json:"opportunities"`
	RecommendedPractices []string `json:"recommendedPractices"`
	KPIs                 []string `json:"kpis"`
	ActionPlan           []string `json:"actionPlan"`
	ImplementationOrder  []string `json:"implementationOrder"`
	SuccessMetrics       []string `json:"successMetrics"`
}

// Empty reports whether the synthesis carries no content at all.
func (s Synthesis) Empty() bool {
	return len(s.Risks) == 0 && len(s.Opportunities) == 0 &&
		len(s.RecommendedPractices) == 0 && len(s.KPIs) == 0 &&
		len(s.ActionPlan) == 0 && len(s.ImplementationOrder) == 0 &&
		len(s.SuccessMetrics) == 0
}

// Score rates an analysis. The 0..1 fields are quality scalars; the depth
// fields are raw counters and stay out of the overall mean.
type Score struct {
	Completeness     float64 `json:"completeness"`  // 0..1
	SecondOrderDepth int     `json:"secondOrderDepth"`
	ThirdOrderDepth  int     `json:"thirdOrderDepth"`
	Novelty          float64 `json:"novelty"`       // 0..1
	Feasibility      float64 `json:"feasibility"`   // 0..1
	LeapDetection    float64 `json:"leapDetection"` // 0..1
	DeepDiveDepth    int     `json:"deepDiveDepth"`   // 0 initial, 1 secondary, 2 tertiary
	TotalSubEffects  int     `json:"totalSubEffects"` // cumulative effects across dives
}

// Overall is the arithmetic mean of the 0..1 quality scalars only.
// Raw counters are intentionally excluded from the average.
func (s Score) Overall() float64 {
	return (s.Completeness + s.Novelty + s.Feasibility + s.LeapDetection) / 4
}

// Audit records provenance for the generated outputs.
type Audit struct {
	Sources        []string `json:"sources"`
	Model          string   `json:"model"`
	Version        string   `json:"version"`
	Timestamp      int64    `json:"timestamp"`
	PromptTokens   int      `json:"promptTokens"`
	ResponseTokens int      `json:"responseTokens"`
}

// Seeds anchor the analysis: concept/pattern ids plus free-text practices.
type Seeds struct {
	ConceptIDs []string `json:"conceptIds"`
	PatternIDs []string `json:"patternIds"`
	Practices  []string `json:"practices"`
}

// SessionStatus tracks the session lifecycle.
type SessionStatus string

const (
	StatusDraft      SessionStatus = "draft"
	StatusGenerating SessionStatus = "generating"
	StatusComplete   SessionStatus = "complete"
	StatusError      SessionStatus = "error"
)

// Source indicates where the current outputs came from.
type Source string

const (
	SourceBackend Source = "backend"
	SourceLocal   Source = "local"
)

// Session is the aggregate root of one analysis. It exclusively owns its
// effect graph, leaps, synthesis, deep dives, and score.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Mode   Mode   `json:"mode"`
	Source Source `json:"source,omitempty"`

	Seeds       Seeds       `json:"seeds"`
	Objectives  []Objective `json:"objectives"`
	Constraints Constraints `json:"constraints"`

	EffectGraph EffectGraph `json:"effectGraph"`
	Leaps       []Leap      `json:"leaps"`
	Synthesis   Synthesis   `json:"synthesis"`

	DeepDives []DeepDive `json:"deepDives"`

	Score Score `json:"score"`
	Audit Audit `json:"audit"`

	CreatedAt int64         `json:"createdAt"` // unix ms
	UpdatedAt int64         `json:"updatedAt"` // unix ms
	Status    SessionStatus `json:"status"`
}

// Clone returns a deep copy of the session. The copy shares nothing with
// the original, so callers may mutate either side freely.
func (s Session) Clone() Session {
	out := s
	out.Seeds = Seeds{
		ConceptIDs: cloneStrings(s.Seeds.ConceptIDs),
		PatternIDs: cloneStrings(s.Seeds.PatternIDs),
		Practices:  cloneStrings(s.Seeds.Practices),
	}
	out.Objectives = CloneSlice(s.Objectives)
	out.Constraints = s.Constraints.Clone()
	out.EffectGraph = s.EffectGraph.Clone()
	out.Leaps = CloneLeaps(s.Leaps)
	out.Synthesis = s.Synthesis.Clone()
	if s.DeepDives != nil {
		out.DeepDives = make([]DeepDive, len(s.DeepDives))
		for i := range s.DeepDives {
			out.DeepDives[i] = s.DeepDives[i].Clone()
		}
	}
	out.Audit.Sources = cloneStrings(s.Audit.Sources)
	return out
}

// Clone returns a deep copy of the synthesis.
func (s Synthesis) Clone() Synthesis {
	return Synthesis{
		Risks:                cloneStrings(s.Risks),
		Opportunities:        cloneStrings(s.Opportunities),
		RecommendedPractices: cloneStrings(s.RecommendedPractices),
		KPIs:                 cloneStrings(s.KPIs),
		ActionPlan:           cloneStrings(s.ActionPlan),
		ImplementationOrder:  cloneStrings(s.ImplementationOrder),
		SuccessMetrics:       cloneStrings(s.SuccessMetrics),
	}
}

// HasSecondaryDive reports whether at least one secondary dive exists.
func (s Session) HasSecondaryDive() bool {
	for _, d := range s.DeepDives {
		if d.Level == LevelSecondary {
			return true
		}
	}
	return false
}

// HasTertiaryDive reports whether at least one tertiary dive exists.
func (s Session) HasTertiaryDive() bool {
	for _, d := range s.DeepDives {
		if d.Level == LevelTertiary {
			return true
		}
	}
	return false
}

// NowUnixMilli is the clock used for session timestamps. Tests may override it.
var NowUnixMilli = func() int64 { return time.Now().UnixMilli() }

// CloneSlice copies a slice of plain values, keeping nil nil and empty
// empty so a cloned session marshals byte-for-byte like the original.
func CloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string { return CloneSlice(in) }

// CloneLeaps deep-copies leaps, including each evidence list.
func CloneLeaps(in []Leap) []Leap {
	if in == nil {
		return nil
	}
	out := make([]Leap, len(in))
	for i, l := range in {
		l.Evidence = cloneStrings(l.Evidence)
		out[i] = l
	}
	return out
}

func cloneEffectNodes(in []EffectNode) []EffectNode {
	if in == nil {
		return nil
	}
	out := make([]EffectNode, len(in))
	for i, n := range in {
		n.References = cloneStrings(n.References)
		out[i] = n
	}
	return out
}

func cloneEdges(in []Edge) []Edge { return CloneSlice(in) }
