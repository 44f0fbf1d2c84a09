package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/catalog"
)

// CostLedger resolves "cost in effect at time T" against the time-versioned
// ledger and declares new cost versions.
type CostLedger struct {
	costs  catalog.CostEntryRepository
	logger *zap.Logger
}

// NewCostLedger creates a CostLedger.
func NewCostLedger(costs catalog.CostEntryRepository, logger *zap.Logger) *CostLedger {
	return &CostLedger{costs: costs, logger: logger}
}

// Resolve returns the cost entry in effect at asOf. When no entry covers
// asOf (the order predates any recorded cost), the currently-open entry is
// used instead; the resolution records which rule applied because profit
// reporting treats the fallback differently for historical accuracy.
// Returns (nil, nil) only when the catalog entry has no cost at all.
func (l *CostLedger) Resolve(ctx context.Context, catalogEntryID uuid.UUID, asOf time.Time) (*catalog.CostResolution, error) {
	entry, err := l.costs.FindEffectiveAt(ctx, catalogEntryID, asOf)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return &catalog.CostResolution{Entry: entry, Rule: catalog.CostRuleTemporal}, nil
	}

	open, err := l.costs.FindOpen(ctx, catalogEntryID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, nil
	}

	l.logger.Debug("Cost resolved via current-cost fallback",
		zap.String("catalog_entry_id", catalogEntryID.String()),
		zap.Time("as_of", asOf),
	)
	return &catalog.CostResolution{Entry: open, Rule: catalog.CostRuleFallbackCurrent}, nil
}

// Declare records a new cost version effective from effectiveFrom. The
// repository closes the open entry and inserts the new one atomically, so
// concurrent declarations cannot leave two open entries.
func (l *CostLedger) Declare(ctx context.Context, catalogEntryID uuid.UUID, price decimal.Decimal, currency string, effectiveFrom time.Time) (*catalog.CostEntry, error) {
	if price.IsNegative() {
		return nil, catalog.ErrInvalidCostPrice
	}
	entry := catalog.NewCostEntry(catalogEntryID, price, currency, effectiveFrom)
	if err := l.costs.DeclareCost(ctx, entry); err != nil {
		return nil, err
	}

	l.logger.Info("Cost declared",
		zap.String("catalog_entry_id", catalogEntryID.String()),
		zap.String("cost_price", price.String()),
		zap.Time("effective_from", effectiveFrom),
	)
	return entry, nil
}
