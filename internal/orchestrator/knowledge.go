package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"supercritical/internal/scl"
)

// Knowledge resolves seed ids into short textual context for prompting.
type Knowledge interface {
	Concept(ctx context.Context, id string) (scl.ConceptContext, error)
	Pattern(ctx context.Context, id string) (scl.PatternContext, error)
	Practice(ctx context.Context, id string) (scl.PracticeContext, error)
}

// BuildContextSummary resolves every seed in parallel. Unresolvable seeds are
// skipped rather than failing the whole generation; only the context error is
// propagated.
func BuildContextSummary(ctx context.Context, k Knowledge, seeds scl.Seeds) (scl.ContextSummary, error) {
	var summary scl.ContextSummary
	if k == nil {
		return summary, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	concepts := make([]*scl.ConceptContext, len(seeds.ConceptIDs))
	patterns := make([]*scl.PatternContext, len(seeds.PatternIDs))
	practices := make([]*scl.PracticeContext, len(seeds.Practices))

	for i, id := range seeds.ConceptIDs {
		g.Go(func() error {
			c, err := k.Concept(gctx, id)
			if err == nil {
				concepts[i] = &c
			}
			return gctx.Err()
		})
	}
	for i, id := range seeds.PatternIDs {
		g.Go(func() error {
			p, err := k.Pattern(gctx, id)
			if err == nil {
				patterns[i] = &p
			}
			return gctx.Err()
		})
	}
	for i, id := range seeds.Practices {
		g.Go(func() error {
			p, err := k.Practice(gctx, id)
			if err == nil {
				practices[i] = &p
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return scl.ContextSummary{}, err
	}

	for _, c := range concepts {
		if c != nil {
			summary.Concepts = append(summary.Concepts, *c)
		}
	}
	for _, p := range patterns {
		if p != nil {
			summary.Patterns = append(summary.Patterns, *p)
		}
	}
	for _, p := range practices {
		if p != nil {
			summary.Practices = append(summary.Practices, *p)
		}
	}
	return summary, nil
}

// StaticKnowledge serves seed context from an in-memory catalog. Used by the
// CLI and as the default when no knowledge service is configured.
type StaticKnowledge struct {
	Concepts  map[string]scl.ConceptContext
	Patterns  map[string]scl.PatternContext
	Practices map[string]scl.PracticeContext
}

func NewStaticKnowledge() *StaticKnowledge {
	return &StaticKnowledge{
		Concepts:  map[string]scl.ConceptContext{},
		Patterns:  map[string]scl.PatternContext{},
		Practices: map[string]scl.PracticeContext{},
	}
}

func (s *StaticKnowledge) Concept(_ context.Context, id string) (scl.ConceptContext, error) {
	if c, ok := s.Concepts[id]; ok {
		return c, nil
	}
	// Fall back to a titled stub so unseen ids still anchor the prompt.
	return scl.ConceptContext{ID: id, Title: titleFromID(id)}, nil
}

func (s *StaticKnowledge) Pattern(_ context.Context, id string) (scl.PatternContext, error) {
	if p, ok := s.Patterns[id]; ok {
		return p, nil
	}
	return scl.PatternContext{ID: id, Title: titleFromID(id)}, nil
}

func (s *StaticKnowledge) Practice(_ context.Context, id string) (scl.PracticeContext, error) {
	if p, ok := s.Practices[id]; ok {
		return p, nil
	}
	return scl.PracticeContext{ID: id, Title: titleFromID(id)}, nil
}

func titleFromID(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	if len(parts) == 0 {
		return id
	}
	return strings.Join(parts, " ")
}

var _ Knowledge = (*StaticKnowledge)(nil)

// summaryLines renders a context summary for prompt embedding.
func summaryLines(summary scl.ContextSummary) string {
	var b strings.Builder
	for _, c := range summary.Concepts {
		fmt.Fprintf(&b, "- concept %q", c.Title)
		if len(c.KeyMechanisms) > 0 {
			fmt.Fprintf(&b, ": mechanisms %s", strings.Join(c.KeyMechanisms, ", "))
		}
		b.WriteByte('\n')
	}
	for _, p := range summary.Patterns {
		fmt.Fprintf(&b, "- pattern %q", p.Title)
		if len(p.Tradeoffs) > 0 {
			fmt.Fprintf(&b, ": tradeoffs %s", strings.Join(p.Tradeoffs, ", "))
		}
		b.WriteByte('\n')
	}
	for _, p := range summary.Practices {
		fmt.Fprintf(&b, "- practice %q", p.Title)
		if len(p.Outcomes) > 0 {
			fmt.Fprintf(&b, ": outcomes %s", strings.Join(p.Outcomes, ", "))
		}
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "- (no additional context)\n"
	}
	return b.String()
}
