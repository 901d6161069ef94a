package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises access to each user's session.
// Actions of one user are applied one at a time; different users never block each other.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker // Optional, for multi-replica deployments
	lockTTL time.Duration
	logger  *zap.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// Load retrieves the user's session.
// Returns domain.ErrSessionNotFound when the user has none.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, userID)
		return err
	})
	return s, err
}

// Start discards any session the user had and stores a fresh one for flow.
func (m *Manager) Start(ctx context.Context, userID string, flow domain.Flow) (*domain.Session, error) {
	s := domain.NewSession(userID, flow)
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, userID, s); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Update loads the user's session, applies fn and persists the result atomically
// with respect to other calls for the same user. If fn returns a nil session the
// stored one is deleted. Nothing is written when fn fails.
func (m *Manager) Update(ctx context.Context, userID string, fn func(*domain.Session) (*domain.Session, error)) (*domain.Session, error) {
	var next *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, userID)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return m.store.Delete(ctx, userID)
		}
		return m.store.Save(ctx, userID, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, userID string, s *domain.Session) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Save(ctx, userID, s)
	})
}

// Delete removes the user's session. Deleting a missing session is not an error.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Delete(ctx, userID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Count returns the number of stored sessions. Stores drop expired
// sessions from List, so the count follows their TTL.
func (m *Manager) Count(ctx context.Context) (int, error) {
	users, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the user.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
		}()
	}

	return fn(ctx)
}
