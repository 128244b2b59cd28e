// Package deepdive implements scoped refinement of an effect graph: the user
// selects a handful of nodes and the engine requests an expansion whose
// findings are appended to the session's dive history.
package deepdive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"supercritical/internal/scl"
	"supercritical/internal/session"
)

var (
	ErrSelectionBounds        = errors.New("deepdive: select between 1 and 5 nodes")
	ErrTertiaryNeedsSecondary = errors.New("deepdive: a tertiary dive requires an existing secondary dive")
	ErrInvalidLevel           = errors.New("deepdive: invalid dive level")
	ErrFindingsMismatch       = errors.New("deepdive: findings kind does not match requested level")
)

const maxSelection = 5

// ExpandRequest is the scoped refinement request sent to an Expander.
type ExpandRequest struct {
	Session       scl.Session
	Level         scl.DeepDiveLevel
	SelectedNodes []scl.EffectNode
	UserQuestion  string
}

// Expansion is an Expander's raw output before it becomes a DeepDive record.
type Expansion struct {
	Effects        []scl.EffectNode
	Edges          []scl.Edge
	Leaps          []scl.Leap
	Findings       scl.Findings
	PromptTokens   int
	ResponseTokens int
}

// Expander produces a dive expansion. Implemented by the workflow backend
// client and by the local LLM expander.
type Expander interface {
	Expand(ctx context.Context, req ExpandRequest) (Expansion, error)
}

// Gate serializes expensive operations. The orchestrator's single-flight slot
// satisfies it, so a dive can never overlap a generation run.
type Gate interface {
	Acquire(label string) (func(), error)
}

// Request names the nodes and level for one dive.
type Request struct {
	Level           scl.DeepDiveLevel
	SelectedNodeIDs []string
	UserQuestion    string
}

// Engine validates dive requests and appends completed dives to the session.
type Engine struct {
	sessions *session.Manager
	expander Expander
	gate     Gate
}

func NewEngine(sessions *session.Manager, expander Expander, gate Gate) *Engine {
	return &Engine{sessions: sessions, expander: expander, gate: gate}
}

// Dive runs one refinement pass. All preconditions are checked before any
// request is issued; on failure or cancellation nothing is appended.
func (e *Engine) Dive(ctx context.Context, req Request) (scl.DeepDive, error) {
	if !req.Level.Valid() {
		return scl.DeepDive{}, fmt.Errorf("%w: %q", ErrInvalidLevel, req.Level)
	}
	if len(req.SelectedNodeIDs) < 1 || len(req.SelectedNodeIDs) > maxSelection {
		return scl.DeepDive{}, fmt.Errorf("%w: got %d", ErrSelectionBounds, len(req.SelectedNodeIDs))
	}

	sess, ok := e.sessions.Current()
	if !ok {
		return scl.DeepDive{}, session.ErrNoSession
	}
	if req.Level == scl.LevelTertiary && !sess.HasSecondaryDive() {
		return scl.DeepDive{}, ErrTertiaryNeedsSecondary
	}

	// Snapshot the selection by value so later graph edits cannot reach
	// into the dive record.
	selected := make([]scl.EffectNode, 0, len(req.SelectedNodeIDs))
	for _, id := range req.SelectedNodeIDs {
		node, found := sess.EffectGraph.Node(id)
		if !found {
			return scl.DeepDive{}, fmt.Errorf("deepdive: unknown node %q", id)
		}
		node.References = scl.CloneSlice(node.References)
		selected = append(selected, node)
	}

	release, err := e.gate.Acquire("deep-dive")
	if err != nil {
		return scl.DeepDive{}, err
	}
	defer release()

	expansion, err := e.expander.Expand(ctx, ExpandRequest{
		Session:       sess,
		Level:         req.Level,
		SelectedNodes: selected,
		UserQuestion:  req.UserQuestion,
	})
	if err != nil {
		return scl.DeepDive{}, err
	}
	if expansion.Findings == nil || expansion.Findings.Kind() != req.Level {
		return scl.DeepDive{}, ErrFindingsMismatch
	}

	dive := scl.DeepDive{
		ID:              "dive-" + uuid.NewString(),
		Level:           req.Level,
		SelectedNodeIDs: scl.CloneSlice(req.SelectedNodeIDs),
		SelectedNodes:   selected,
		UserQuestion:    req.UserQuestion,
		Effects:         expansion.Effects,
		Edges:           expansion.Edges,
		Leaps:           expansion.Leaps,
		Findings:        expansion.Findings,
		PromptTokens:    expansion.PromptTokens,
		ResponseTokens:  expansion.ResponseTokens,
		CreatedAt:       scl.NowUnixMilli(),
	}
	if err := e.sessions.AppendDeepDive(dive); err != nil {
		return scl.DeepDive{}, err
	}
	return dive.Clone(), nil
}
