package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"supercritical/internal/llmclient"
	"supercritical/internal/scl"
	"supercritical/internal/util/jsonutil"
	"supercritical/internal/utils"
)

// LocalGenerator runs the three-step generation pipeline directly against an
// LLM client: first-order effects, higher-order cascade, synthesis.
type LocalGenerator struct {
	client    llmclient.LLMClient
	knowledge Knowledge
}

func NewLocalGenerator(client llmclient.LLMClient, knowledge Knowledge) *LocalGenerator {
	return &LocalGenerator{client: client, knowledge: knowledge}
}

// LocalResult carries everything a finished local run produced.
type LocalResult struct {
	Effects   []scl.EffectNode
	Edges     []scl.Edge
	Leaps     []scl.Leap
	Synthesis scl.Synthesis
	Audit     scl.Audit
}

// stepPayload matches the JSON contract of the effect-generation prompts.
type stepPayload struct {
	Effects     []scl.EffectNode `json:"effects"`
	Connections []scl.Edge       `json:"connections"`
	Leaps       []scl.Leap       `json:"leaps"`
}

// Generate runs the full pipeline. progress may be nil; it receives the step
// label and cumulative fraction after each phase.
func (g *LocalGenerator) Generate(ctx context.Context, sess scl.Session, progress func(step string, fraction float64)) (LocalResult, error) {
	report := func(step string, fraction float64) {
		if progress != nil {
			progress(step, fraction)
		}
	}

	summary, err := BuildContextSummary(ctx, g.knowledge, sess.Seeds)
	if err != nil {
		return LocalResult{}, err
	}

	var audit scl.Audit
	audit.Model = g.client.Name()
	audit.Sources = append(audit.Sources, sess.Seeds.ConceptIDs...)
	audit.Sources = append(audit.Sources, sess.Seeds.PatternIDs...)

	first, err := g.runStep(ctx, firstOrderSystemPrompt, func() (string, error) {
		return buildFirstOrderPrompt(sess, summary)
	}, &audit)
	if err != nil {
		return LocalResult{}, fmt.Errorf("first-order effects: %w", err)
	}
	report("Generating first-order effects...", 0.2)

	higher, err := g.runStep(ctx, higherOrderSystemPrompt, func() (string, error) {
		return buildHigherOrderPrompt(sess, first.Effects)
	}, &audit)
	if err != nil {
		return LocalResult{}, fmt.Errorf("higher-order effects: %w", err)
	}
	report("Analyzing cascade effects...", 0.5)

	effects := append(first.Effects, higher.Effects...)
	edges := append(first.Connections, higher.Connections...)
	leaps := append(first.Leaps, higher.Leaps...)

	synthesis, err := g.synthesize(ctx, sess, effects, leaps, &audit)
	if err != nil {
		return LocalResult{}, fmt.Errorf("synthesis: %w", err)
	}
	report("Synthesizing insights...", 0.8)

	effects, edges = remapIDs(effects, edges)
	audit.Timestamp = scl.NowUnixMilli()
	report("Complete!", 1.0)

	return LocalResult{
		Effects:   effects,
		Edges:     edges,
		Leaps:     leaps,
		Synthesis: synthesis,
		Audit:     audit,
	}, nil
}

func (g *LocalGenerator) runStep(ctx context.Context, system string, build func() (string, error), audit *scl.Audit) (stepPayload, error) {
	user, err := build()
	if err != nil {
		return stepPayload{}, err
	}
	prompt := system + "\n\n" + user
	raw, err := g.client.GenerateJSON(ctx, prompt, nil)
	if err != nil {
		return stepPayload{}, err
	}
	var payload stepPayload
	if err := jsonutil.UnmarshalRaw(raw, &payload); err != nil {
		return stepPayload{}, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
	}
	accountTokens(audit, prompt, raw)
	return payload, nil
}

func (g *LocalGenerator) synthesize(ctx context.Context, sess scl.Session, effects []scl.EffectNode, leaps []scl.Leap, audit *scl.Audit) (scl.Synthesis, error) {
	user, err := buildSynthesisPrompt(sess, effects, leaps)
	if err != nil {
		return scl.Synthesis{}, err
	}
	prompt := synthesisSystemPrompt + "\n\n" + user
	raw, err := g.client.GenerateJSON(ctx, prompt, nil)
	if err != nil {
		return scl.Synthesis{}, err
	}
	var synthesis scl.Synthesis
	if err := jsonutil.UnmarshalRaw(raw, &synthesis); err != nil {
		return scl.Synthesis{}, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
	}
	accountTokens(audit, prompt, raw)
	return synthesis, nil
}

// remapIDs replaces model-chosen effect ids with stable slug ids and rewrites
// edges to match. Edges pointing at unknown ids are dropped.
func remapIDs(effects []scl.EffectNode, edges []scl.Edge) ([]scl.EffectNode, []scl.Edge) {
	gen := utils.NewUIDGenerator()
	mapping := make(map[string]string, len(effects))
	out := make([]scl.EffectNode, 0, len(effects))
	for _, e := range effects {
		id := gen.GenerateForKey(e.ID, e.Title)
		if e.ID != "" {
			mapping[e.ID] = id
		}
		e.ID = id
		out = append(out, e)
	}
	kept := make([]scl.Edge, 0, len(edges))
	for _, ed := range edges {
		from, okFrom := mapping[ed.From]
		to, okTo := mapping[ed.To]
		if !okFrom || !okTo {
			continue
		}
		ed.From = from
		ed.To = to
		kept = append(kept, ed)
	}
	return out, kept
}

// accountTokens approximates token usage at four bytes per token. Providers
// that report usage should override these numbers upstream.
func accountTokens(audit *scl.Audit, prompt string, response json.RawMessage) {
	audit.PromptTokens += len(prompt) / 4
	audit.ResponseTokens += len(response) / 4
}
