package scl

// ContextSummary is the knowledge digest fed to generation: for each seed
// kind, a short structured description the generator can reason over.
type ContextSummary struct {
	Concepts  []ConceptContext  `json:"concepts"`
	Patterns  []PatternContext  `json:"patterns"`
	Practices []PracticeContext `json:"practices"`
}

type ConceptContext struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	KeyMechanisms []string `json:"keyMechanisms"`
	Dependencies  []string `json:"dependencies"`
	Guarantees    []string `json:"guarantees"`
}

type PatternContext struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Components    []string `json:"components"`
	Tradeoffs     []string `json:"tradeoffs"`
	Applicability []string `json:"applicability"`
}

type PracticeContext struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Outcomes      []string `json:"outcomes"`
	Prerequisites []string `json:"prerequisites"`
	Risks         []string `json:"risks"`
}
