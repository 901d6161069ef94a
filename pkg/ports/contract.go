package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/configurator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		selected := int64(11)
		session := domain.NewSession(userID, domain.FlowConfigure)
		session.Stage = domain.StagePickingAttribute
		session.Template = &domain.TemplateSummary{ID: 3, Name: "Plate"}
		session.Attributes = []domain.AttributeState{
			{Attribute: domain.Attribute{ID: 1, Name: "Color", Values: []domain.Value{{ID: 11, Name: "Red"}}}, Selected: &selected},
			{Attribute: domain.Attribute{ID: 2, Name: "Size"}, Page: 1},
		}
		session.CurrentIndex = 1

		require.NoError(t, store.Save(ctx, userID, session), "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StagePickingAttribute, loaded.Stage)
		assert.Equal(t, int64(3), loaded.Template.ID)
		assert.Equal(t, 1, loaded.CurrentIndex)
		require.Len(t, loaded.Attributes, 2)
		require.NotNil(t, loaded.Attributes[0].Selected)
		assert.Equal(t, int64(11), *loaded.Attributes[0].Selected)
		assert.Equal(t, 1, loaded.Attributes[1].Page)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID, domain.FlowConfigure)))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		loaded.Stage = domain.StageReviewing

		again, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageSearching, again.Stage, "mutating a loaded session must not change the store")
	})

	t.Run("Save Replaces", func(t *testing.T) {
		first := domain.NewSession(userID, domain.FlowConfigure)
		first.Query = "first"
		require.NoError(t, store.Save(ctx, userID, first))

		second := domain.NewSession(userID, domain.FlowListVariants)
		require.NoError(t, store.Save(ctx, userID, second))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.FlowListVariants, loaded.Flow)
		assert.Empty(t, loaded.Query)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID, domain.FlowConfigure)))

		require.NoError(t, store.Delete(ctx, userID), "Delete should not return error")

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, userID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, domain.FlowConfigure))
		_ = store.Save(ctx, id2, domain.NewSession(id2, domain.FlowConfigure))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}
