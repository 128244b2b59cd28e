// Package store persists session snapshots across restarts. Two backends
// share one contract: a JSON file per session under a directory, and a
// Postgres table for deployments with a database. A small LRU wrapper keeps
// hot sessions out of the backend entirely.
package store

import (
	"context"
	"errors"

	"supercritical/internal/scl"
)

// ErrNotFound is returned when no snapshot exists for the session id.
var ErrNotFound = errors.New("store: session not found")

// Summary is the listing row for a stored session.
type Summary struct {
	ID        string            `json:"id"`
	Mode      scl.Mode          `json:"mode"`
	Status    scl.SessionStatus `json:"status"`
	NodeCount int               `json:"nodeCount"`
	UpdatedAt int64             `json:"updatedAt"`
}

// SessionStore is the persistence contract shared by all backends.
type SessionStore interface {
	Save(ctx context.Context, sess scl.Session) error
	Load(ctx context.Context, id string) (scl.Session, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

func summarize(sess scl.Session) Summary {
	return Summary{
		ID:        sess.ID,
		Mode:      sess.Mode,
		Status:    sess.Status,
		NodeCount: len(sess.EffectGraph.Nodes),
		UpdatedAt: sess.UpdatedAt,
	}
}
