// Package session holds the single source of truth for one analysis session.
// Every mutation is one atomic transition under the manager's lock, so run
// goroutines and HTTP handlers never observe a half-applied update.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"supercritical/internal/scl"
)

var ErrNoSession = errors.New("session: no active session")

// Version stamps the audit record of generated sessions.
const Version = "1.0.0"

// GenerationResult is the decomposed output of a completed generation call.
type GenerationResult struct {
	EffectGraph scl.EffectGraph
	Leaps       []scl.Leap
	Synthesis   scl.Synthesis
	Score       scl.Score
	Audit       scl.Audit
	Source      scl.Source
}

// Manager owns at most one session at a time.
type Manager struct {
	mu      sync.RWMutex
	session *scl.Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Create starts a new draft session with empty derived data and default
// constraints. Any previous session is discarded.
func (m *Manager) Create(mode scl.Mode, objectives []scl.Objective, seeds scl.Seeds) scl.Session {
	now := scl.NowUnixMilli()
	sources := make([]string, 0, len(seeds.ConceptIDs)+len(seeds.PatternIDs))
	sources = append(sources, seeds.ConceptIDs...)
	sources = append(sources, seeds.PatternIDs...)

	sess := scl.Session{
		ID:          fmt.Sprintf("scl-%s", uuid.NewString()),
		Mode:        mode,
		Seeds:       seeds,
		Objectives:  scl.CloneSlice(objectives),
		Constraints: scl.DefaultConstraints(),
		EffectGraph: scl.EffectGraph{Nodes: []scl.EffectNode{}, Edges: []scl.Edge{}},
		Leaps:       []scl.Leap{},
		Synthesis:   scl.Synthesis{},
		DeepDives:   []scl.DeepDive{},
		Audit: scl.Audit{
			Sources:   sources,
			Version:   Version,
			Timestamp: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    scl.StatusDraft,
	}

	m.mu.Lock()
	m.session = &sess
	m.mu.Unlock()
	return sess.Clone()
}

// Restore replaces the active session with an imported one.
func (m *Manager) Restore(sess scl.Session) {
	clone := sess.Clone()
	m.mu.Lock()
	m.session = &clone
	m.mu.Unlock()
}

// Current returns a deep copy of the active session.
func (m *Manager) Current() (scl.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return scl.Session{}, false
	}
	return m.session.Clone(), true
}

// UpdateConstraints shallow-merges a partial constraints patch into the
// active session. A no-op when no session is active.
func (m *Manager) UpdateConstraints(patch scl.ConstraintsPatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	m.session.Constraints.Apply(patch)
	m.session.UpdatedAt = scl.NowUnixMilli()
}

// SetStatus transitions the session lifecycle status.
func (m *Manager) SetStatus(status scl.SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return
	}
	m.session.Status = status
	m.session.UpdatedAt = scl.NowUnixMilli()
}

// ApplyGenerationResult replaces the derived data with the values from a
// completed generation call and marks the session complete.
func (m *Manager) ApplyGenerationResult(res GenerationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	m.session.EffectGraph = res.EffectGraph.Clone()
	m.session.Leaps = scl.CloneLeaps(res.Leaps)
	m.session.Synthesis = res.Synthesis.Clone()
	m.session.Score = res.Score
	m.session.Score.RefreshDiveCounters(m.session.DeepDives)
	m.session.Audit = res.Audit
	if res.Source != "" {
		m.session.Source = res.Source
	}
	m.session.Status = scl.StatusComplete
	m.session.UpdatedAt = scl.NowUnixMilli()
	return nil
}

// AppendDeepDive appends a completed dive. The dive's effects stay scoped to
// the dive record; the primary effect graph is deliberately left untouched so
// exploratory dives can never corrupt it.
func (m *Manager) AppendDeepDive(dive scl.DeepDive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	m.session.DeepDives = append(m.session.DeepDives, dive.Clone())
	m.session.Score.RefreshDiveCounters(m.session.DeepDives)
	m.session.Status = scl.StatusComplete
	m.session.UpdatedAt = scl.NowUnixMilli()
	return nil
}

// AddEffect inserts a manually authored node into the primary graph.
func (m *Manager) AddEffect(node scl.EffectNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	if node.ID == "" {
		node.ID = fmt.Sprintf("manual-%s", uuid.NewString())
	}
	m.session.EffectGraph.Nodes = append(m.session.EffectGraph.Nodes, node)
	m.session.UpdatedAt = scl.NowUnixMilli()
	return nil
}

// RemoveEffect drops a node and every edge incident to it.
func (m *Manager) RemoveEffect(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	nodes := m.session.EffectGraph.Nodes[:0]
	for _, n := range m.session.EffectGraph.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	m.session.EffectGraph.Nodes = nodes
	edges := m.session.EffectGraph.Edges[:0]
	for _, e := range m.session.EffectGraph.Edges {
		if e.From != nodeID && e.To != nodeID {
			edges = append(edges, e)
		}
	}
	m.session.EffectGraph.Edges = edges
	m.session.UpdatedAt = scl.NowUnixMilli()
	return nil
}

// Clear discards the active session entirely.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
}
