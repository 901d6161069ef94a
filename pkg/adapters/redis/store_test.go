package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/configurator/pkg/adapters/redis"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_RoundTripsReview(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	canonical := int64(1001)
	s := domain.NewSession("u1", domain.FlowConfigure)
	s.Stage = domain.StageReviewing
	s.DefaultCode = "TSH"
	s.Barcode = "400"
	s.Review = &domain.PrepareResult{
		Template:        domain.TemplateSummary{ID: 1, Name: "T-Shirt"},
		Selections:      []domain.EnrichedSelection{{AttributeID: 1, ValueID: 11, CanonicalID: &canonical}},
		CanonicalIDs:    []int64{1001},
		ExistingVariant: &domain.VariantInfo{ID: 5001, Active: true},
		Message:         "Exact variant already exists.",
	}
	require.NoError(t, store.Save(ctx, "u1", s))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	userID := "user-ttl"

	require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID, domain.FlowConfigure)))

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, userID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against the wall clock, not miniredis time.
	time.Sleep(1200 * time.Millisecond)

	users, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1", domain.FlowConfigure)))

	assert.True(t, mr.Exists("custom:app:u1"), "expected key with custom prefix")
	assert.True(t, mr.Exists("custom:app:index"), "expected index with custom prefix")

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, "u1")
}

func TestRedisStore_Ping(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	assert.NoError(t, store.Ping(context.Background()))
	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
