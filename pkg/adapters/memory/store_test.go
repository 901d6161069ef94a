package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/configurator/pkg/adapters/memory"
	"github.com/aretw0/configurator/pkg/domain"
	"github.com/aretw0/configurator/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_TTL(t *testing.T) {
	store := memory.NewStore(memory.WithTTL(50 * time.Millisecond))
	ctx := context.Background()

	assert.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1", domain.FlowConfigure)))
	_, err := store.Load(ctx, "u1")
	assert.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
