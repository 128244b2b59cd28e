package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Prefs are small per-install UI preferences.
type Prefs struct {
	IntroDismissed bool `json:"introDismissed"`
}

// PrefsStore persists Prefs as a single JSON file.
type PrefsStore struct {
	path string

	mu       sync.Mutex
	loadOnce sync.Once
	current  Prefs
}

func NewPrefsStore(path string) *PrefsStore {
	return &PrefsStore{path: path}
}

func (s *PrefsStore) ensureLoaded() {
	s.loadOnce.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var p Prefs
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.current = p
		s.mu.Unlock()
	})
}

// Load returns the stored prefs, defaulting to the zero value when the
// file is missing or unreadable.
func (s *PrefsStore) Load() Prefs {
	s.ensureLoaded()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Save replaces the stored prefs.
func (s *PrefsStore) Save(p Prefs) error {
	s.ensureLoaded()
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}
