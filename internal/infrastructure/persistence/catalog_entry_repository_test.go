package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/backend/internal/domain/catalog"
)

func TestCatalogEntryRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogEntryRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	entry := catalog.NewCatalogEntry(tenantID, "MKT-SKU-1", "ABC", "SPU-1", decimal.RequireFromString("10.00"), "CNY")
	require.NoError(t, repo.Save(ctx, entry))

	sibling := catalog.NewCatalogEntry(tenantID, "MKT-SKU-2", "ABD", "SPU-1", decimal.RequireFromString("12.00"), "CNY")
	require.NoError(t, repo.Save(ctx, sibling))

	retired := catalog.NewCatalogEntry(tenantID, "MKT-SKU-3", "OLD", "SPU-2", decimal.RequireFromString("5.00"), "CNY")
	retired.IsActive = false
	require.NoError(t, repo.Save(ctx, retired))

	t.Run("finds by external product id", func(t *testing.T) {
		found, err := repo.FindByExternalProductID(ctx, tenantID, "MKT-SKU-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, entry.ID, found.ID)
	})

	t.Run("blank external product id short-circuits to nil", func(t *testing.T) {
		found, err := repo.FindByExternalProductID(ctx, tenantID, "")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("finds by sku code", func(t *testing.T) {
		found, err := repo.FindBySkuCode(ctx, tenantID, "ABC")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, entry.ID, found.ID)
	})

	t.Run("lists active entries under a product family", func(t *testing.T) {
		entries, err := repo.FindActiveBySpuID(ctx, tenantID, "SPU-1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("excludes inactive entries from family lookup", func(t *testing.T) {
		entries, err := repo.FindActiveBySpuID(ctx, tenantID, "SPU-2")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("find by id reports not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, catalog.ErrCatalogEntryNotFound)
	})

	t.Run("save updates in place", func(t *testing.T) {
		entry.DeclaredUnitPrice = decimal.RequireFromString("11.00")
		require.NoError(t, repo.Save(ctx, entry))

		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, found.DeclaredUnitPrice.Equal(decimal.RequireFromString("11.00")))
	})
}
