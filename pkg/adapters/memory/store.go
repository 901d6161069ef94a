package memory

import (
	"context"
	"time"

	"github.com/aretw0/configurator/pkg/domain"
	"github.com/patrickmn/go-cache"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// StoreOption configures the Store.
type StoreOption func(*Store)

// WithTTL expires idle sessions after ttl. Sessions never expire by default.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{ttl: cache.NoExpiration}
	for _, opt := range opts {
		opt(s)
	}
	cleanup := time.Duration(0)
	if s.ttl > 0 {
		cleanup = s.ttl
	}
	s.cache = cache.New(s.ttl, cleanup)
	return s
}

// Save persists a copy of the session.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	s.cache.Set(userID, session.Snapshot(), cache.DefaultExpiration)
	return nil
}

// Load returns a copy so callers can't mutate store state directly by pointer.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	x, found := s.cache.Get(userID)
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return x.(*domain.Session).Snapshot(), nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.cache.Delete(userID)
	return nil
}

// List returns the users holding a session.
func (s *Store) List(ctx context.Context) ([]string, error) {
	items := s.cache.Items()
	users := make([]string, 0, len(items))
	for id := range items {
		users = append(users, id)
	}
	return users, nil
}
