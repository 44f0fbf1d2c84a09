package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/backend/internal/domain/ingest"
)

func TestSyncStateRepository_FindAndSave(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("returns nil nil before any sync", func(t *testing.T) {
		state, err := repo.Find(ctx, tenantID, ingest.SyncResourceOrders)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("saves and reloads a watermark", func(t *testing.T) {
		state := ingest.NewSyncState(tenantID, ingest.SyncResourceOrders)
		state.LastSyncedAt = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
		state.LastStats = `{"total":10}`
		require.NoError(t, repo.Save(ctx, state))

		found, err := repo.Find(ctx, tenantID, ingest.SyncResourceOrders)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.LastSyncedAt.Equal(state.LastSyncedAt))
		assert.Equal(t, `{"total":10}`, found.LastStats)
	})

	t.Run("saving again advances the same row", func(t *testing.T) {
		state := ingest.NewSyncState(tenantID, ingest.SyncResourceOrders)
		state.LastSyncedAt = time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Save(ctx, state))

		found, err := repo.Find(ctx, tenantID, ingest.SyncResourceOrders)
		require.NoError(t, err)
		assert.True(t, found.LastSyncedAt.Equal(state.LastSyncedAt))

		var count int64
		require.NoError(t, db.DB.Table("sync_states").Where("tenant_id = ?", tenantID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("resources are tracked independently", func(t *testing.T) {
		state, err := repo.Find(ctx, tenantID, ingest.SyncResourceProducts)
		require.NoError(t, err)
		assert.Nil(t, state)
	})
}
