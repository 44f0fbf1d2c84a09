package costing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/catalog"
)

// fakeCostRepo keeps ledger rows in memory and mimics the single-open
// invariant of the real repository.
type fakeCostRepo struct {
	entries []*catalog.CostEntry
}

func (f *fakeCostRepo) DeclareCost(_ context.Context, entry *catalog.CostEntry) error {
	for _, e := range f.entries {
		if e.CatalogEntryID == entry.CatalogEntryID && e.EffectiveTo == nil {
			to := entry.EffectiveFrom
			e.EffectiveTo = &to
		}
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeCostRepo) FindEffectiveAt(_ context.Context, catalogEntryID uuid.UUID, asOf time.Time) (*catalog.CostEntry, error) {
	var best *catalog.CostEntry
	for _, e := range f.entries {
		if e.CatalogEntryID != catalogEntryID || !e.Covers(asOf) {
			continue
		}
		if best == nil || e.EffectiveFrom.After(best.EffectiveFrom) {
			best = e
		}
	}
	return best, nil
}

func (f *fakeCostRepo) FindOpen(_ context.Context, catalogEntryID uuid.UUID) (*catalog.CostEntry, error) {
	for _, e := range f.entries {
		if e.CatalogEntryID == catalogEntryID && e.EffectiveTo == nil {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeCostRepo) FindAllForEntry(_ context.Context, catalogEntryID uuid.UUID) ([]catalog.CostEntry, error) {
	var out []catalog.CostEntry
	for _, e := range f.entries {
		if e.CatalogEntryID == catalogEntryID {
			out = append(out, *e)
		}
	}
	return out, nil
}

var _ catalog.CostEntryRepository = (*fakeCostRepo)(nil)

func TestCostLedger_Resolve(t *testing.T) {
	ctx := context.Background()
	entryID := uuid.New()
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	repo := &fakeCostRepo{}
	ledger := NewCostLedger(repo, zap.NewNop())

	_, err := ledger.Declare(ctx, entryID, decimal.RequireFromString("6.00"), "CNY", jan)
	require.NoError(t, err)
	_, err = ledger.Declare(ctx, entryID, decimal.RequireFromString("7.50"), "CNY", mar)
	require.NoError(t, err)

	t.Run("temporal rule for covered instant", func(t *testing.T) {
		res, err := ledger.Resolve(ctx, entryID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, catalog.CostRuleTemporal, res.Rule)
		assert.True(t, res.Entry.CostPrice.Equal(decimal.RequireFromString("6.00")))
	})

	t.Run("latest entry wins for current instant", func(t *testing.T) {
		res, err := ledger.Resolve(ctx, entryID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, catalog.CostRuleTemporal, res.Rule)
		assert.True(t, res.Entry.CostPrice.Equal(decimal.RequireFromString("7.50")))
	})

	t.Run("fallback to open entry before first declaration", func(t *testing.T) {
		res, err := ledger.Resolve(ctx, entryID, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, catalog.CostRuleFallbackCurrent, res.Rule)
		assert.True(t, res.Entry.CostPrice.Equal(decimal.RequireFromString("7.50")))
	})

	t.Run("nil resolution when entry has no costs", func(t *testing.T) {
		res, err := ledger.Resolve(ctx, uuid.New(), mar)
		require.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestCostLedger_Declare(t *testing.T) {
	ctx := context.Background()
	entryID := uuid.New()
	repo := &fakeCostRepo{}
	ledger := NewCostLedger(repo, zap.NewNop())

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := ledger.Declare(ctx, entryID, decimal.RequireFromString("-1.00"), "CNY", time.Now())
		assert.ErrorIs(t, err, catalog.ErrInvalidCostPrice)
	})

	t.Run("declaration closes the previous open entry", func(t *testing.T) {
		jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		first, err := ledger.Declare(ctx, entryID, decimal.RequireFromString("6.00"), "CNY", jan)
		require.NoError(t, err)
		second, err := ledger.Declare(ctx, entryID, decimal.RequireFromString("6.50"), "CNY", feb)
		require.NoError(t, err)

		require.NotNil(t, first.EffectiveTo)
		assert.True(t, first.EffectiveTo.Equal(feb))
		assert.True(t, second.IsOpen())
	})
}
