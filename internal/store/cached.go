package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"supercritical/internal/scl"
)

// CachedStore layers an LRU of recently touched sessions over a backend.
// Cached values are deep-cloned on the way in and out so callers can never
// mutate a cached snapshot in place.
type CachedStore struct {
	inner SessionStore
	cache *lru.Cache[string, scl.Session]
}

// NewCachedStore wraps inner with an LRU of the given size.
func NewCachedStore(inner SessionStore, size int) (*CachedStore, error) {
	cache, err := lru.New[string, scl.Session](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Save(ctx context.Context, sess scl.Session) error {
	if err := s.inner.Save(ctx, sess); err != nil {
		return err
	}
	s.cache.Add(sess.ID, sess.Clone())
	return nil
}

func (s *CachedStore) Load(ctx context.Context, id string) (scl.Session, error) {
	if sess, ok := s.cache.Get(id); ok {
		return sess.Clone(), nil
	}
	sess, err := s.inner.Load(ctx, id)
	if err != nil {
		return scl.Session{}, err
	}
	s.cache.Add(id, sess.Clone())
	return sess, nil
}

// List always hits the backend. Listing is rare next to loads and the
// cache holds no deletion-aware view of the full set.
func (s *CachedStore) List(ctx context.Context) ([]Summary, error) {
	return s.inner.List(ctx)
}

func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.inner.Delete(ctx, id)
}
