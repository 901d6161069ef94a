package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/configurator/pkg/adapters/memory"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/aretw0/configurator/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, userID string, sess *domain.Session) error {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[userID] = sess.Snapshot()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[userID]; ok {
		return sess.Snapshot(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_UpdateSerialisesPerUser(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Start(ctx, id, domain.FlowConfigure)
	require.NoError(t, err)

	var wg sync.WaitGroup
	concurrentWrites := 20
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(s *domain.Session) (*domain.Session, error) {
				s.SearchPage++
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, concurrentWrites, s.SearchPage, "read-modify-write lost an update")
}

func TestManager_StartReplaces(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	_, err := manager.Update(ctx, "u1", func(s *domain.Session) (*domain.Session, error) { return s, nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = manager.Start(ctx, "u1", domain.FlowConfigure)
	require.NoError(t, err)
	_, err = manager.Update(ctx, "u1", func(s *domain.Session) (*domain.Session, error) {
		s.Stage = domain.StageReviewing
		return s, nil
	})
	require.NoError(t, err)

	fresh, err := manager.Start(ctx, "u1", domain.FlowListVariants)
	require.NoError(t, err)
	assert.Equal(t, domain.StageSearching, fresh.Stage)

	loaded, err := manager.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowListVariants, loaded.Flow)
	assert.Equal(t, domain.StageSearching, loaded.Stage)
}

func TestManager_UpdateErrorWritesNothing(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	_, err := manager.Start(ctx, "u1", domain.FlowConfigure)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = manager.Update(ctx, "u1", func(s *domain.Session) (*domain.Session, error) {
		s.Stage = domain.StageFinalized
		return s, boom
	})
	assert.ErrorIs(t, err, boom)

	s, err := manager.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageSearching, s.Stage)
}

func TestManager_UpdateNilDeletes(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	_, err := manager.Start(ctx, "u1", domain.FlowConfigure)
	require.NoError(t, err)

	_, err = manager.Update(ctx, "u1", func(*domain.Session) (*domain.Session, error) { return nil, nil })
	require.NoError(t, err)

	_, err = manager.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, manager.Delete(ctx, "u1"), "deleting a missing session is not an error")
}

func TestManager_CountFollowsStoreTTL(t *testing.T) {
	manager := session.NewManager(memory.NewStore(memory.WithTTL(50 * time.Millisecond)))
	ctx := context.Background()
	_, err := manager.Start(ctx, "u1", domain.FlowConfigure)
	require.NoError(t, err)
	_, err = manager.Start(ctx, "u1", domain.FlowListVariants)
	require.NoError(t, err)

	n, err := manager.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "restarting does not add a session")

	assert.Eventually(t, func() bool {
		n, err := manager.Count(ctx)
		return err == nil && n == 0
	}, time.Second, 10*time.Millisecond, "expired sessions are not counted")
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.locked = append(f.locked, key)
	f.mu.Unlock()
	return func(context.Context) error {
		f.mu.Lock()
		f.unlocked++
		f.mu.Unlock()
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	_, err := manager.Start(ctx, "u1", domain.FlowConfigure)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)

	locker.err = errors.New("redis down")
	_, err = manager.Load(ctx, "u1")
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
