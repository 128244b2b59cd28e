package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"supercritical/internal/scl"
)

// PostgresStore keeps the full session document in a JSONB column with the
// fields the listing needs denormalized alongside it.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS scl_sessions (
  session_id TEXT PRIMARY KEY,
  mode TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'draft',
  node_count INTEGER NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL DEFAULT 0,
  doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scl_sessions_updated_at ON scl_sessions (updated_at DESC);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Save(ctx context.Context, sess scl.Session) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	id := strings.TrimSpace(sess.ID)
	if id == "" {
		return errors.New("store: empty session id")
	}
	doc, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO scl_sessions (session_id, mode, status, node_count, updated_at, doc)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (session_id)
DO UPDATE SET mode=EXCLUDED.mode,
  status=EXCLUDED.status,
  node_count=EXCLUDED.node_count,
  updated_at=EXCLUDED.updated_at,
  doc=EXCLUDED.doc`,
		id, string(sess.Mode), string(sess.Status), len(sess.EffectGraph.Nodes), sess.UpdatedAt, doc)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, id string) (scl.Session, error) {
	if err := s.ensureSchema(); err != nil {
		return scl.Session{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return scl.Session{}, errors.New("store: empty session id")
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM scl_sessions WHERE session_id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return scl.Session{}, ErrNotFound
	}
	if err != nil {
		return scl.Session{}, err
	}
	var sess scl.Session
	if err := json.Unmarshal(doc, &sess); err != nil {
		return scl.Session{}, err
	}
	return sess, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, mode, status, node_count, updated_at
FROM scl_sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var mode, status string
		if err := rows.Scan(&sum.ID, &mode, &status, &sum.NodeCount, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.Mode = scl.Mode(mode)
		sum.Status = scl.SessionStatus(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scl_sessions WHERE session_id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
