package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"supercritical/internal/scl"
	"supercritical/internal/util/jsonutil"
)

// FileStore keeps one JSON document per session under a directory. Writes
// go through a temp file and rename so a crash never leaves a torn
// snapshot behind.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("store: empty session id")
	}
	// Session ids are uuids, but a stored file name must never escape the
	// directory regardless of where the id came from.
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return "", fmt.Errorf("store: invalid session id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileStore) Save(_ context.Context, sess scl.Session) error {
	p, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	data, err := jsonutil.MarshalNoEscapeIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) Load(_ context.Context, id string) (scl.Session, error) {
	p, err := s.path(id)
	if err != nil {
		return scl.Session{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return scl.Session{}, ErrNotFound
		}
		return scl.Session{}, err
	}
	var sess scl.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return scl.Session{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	return sess, nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		sess, err := s.Load(ctx, id)
		if err != nil {
			// Skip snapshots that fail to decode rather than failing the
			// whole listing.
			continue
		}
		out = append(out, summarize(sess))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
