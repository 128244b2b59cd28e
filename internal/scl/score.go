package scl

// ComputeScore rates a generation result. Completeness weighs deeper orders
// more heavily; novelty is the inverse of average confidence (a low-confidence
// graph explored less charted territory); feasibility counts positive-impact
// nodes and actionable synthesis items; leap detection averages leap
// confidence. Dive counters are filled in separately by RefreshDiveCounters.
func ComputeScore(effects []EffectNode, leaps []Leap, synthesis Synthesis) Score {
	var first, second, third int
	for _, e := range effects {
		switch e.Order {
		case 1:
			first++
		case 2:
			second++
		case 3:
			third++
		}
	}

	completeness := clamp01((float64(first)*0.2 + float64(second)*0.3 + float64(third)*0.5) / 5)

	novelty := 0.0
	if len(effects) > 0 {
		sum := 0.0
		for _, e := range effects {
			sum += e.Confidence
		}
		novelty = clamp01(1 - sum/float64(len(effects)))
	}

	positive := 0
	for _, e := range effects {
		if e.Impact > 0 {
			positive++
		}
	}
	actionable := len(synthesis.ActionPlan) + len(synthesis.RecommendedPractices)
	feasibility := clamp01(float64(positive)*0.1 + float64(actionable)*0.1)

	leapDetection := 0.0
	if len(leaps) > 0 {
		sum := 0.0
		for _, l := range leaps {
			sum += l.Confidence
		}
		leapDetection = clamp01(sum / float64(len(leaps)))
	}

	return Score{
		Completeness:     completeness,
		SecondOrderDepth: second,
		ThirdOrderDepth:  third,
		Novelty:          novelty,
		Feasibility:      feasibility,
		LeapDetection:    leapDetection,
	}
}

// RefreshDiveCounters recomputes the deep-dive counters from the dive list.
func (s *Score) RefreshDiveCounters(dives []DeepDive) {
	depth := 0
	total := 0
	for _, d := range dives {
		total += len(d.Effects)
		switch d.Level {
		case LevelSecondary:
			if depth < 1 {
				depth = 1
			}
		case LevelTertiary:
			depth = 2
		}
	}
	s.DeepDiveDepth = depth
	s.TotalSubEffects = total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
