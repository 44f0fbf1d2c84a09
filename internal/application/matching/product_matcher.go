package matching

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/catalog"
)

// Candidates carries the identifiers an order line offers for matching.
// Empty strings mean the upstream did not report that identifier.
type Candidates struct {
	MarketplaceSkuID string
	SkuCode          string
	SpuID            string
}

// ProductMatcher resolves an order line to a catalog entry through a strict
// priority cascade, short-circuiting at the first hit:
//
//  1. marketplace SKU id (most specific, least ambiguous)
//  2. human-assigned SKU code
//  3. SPU product-family id, accepted only when exactly one active entry
//     carries it
//
// A miss returns (nil, nil): absence of a match is a common, countable
// outcome the caller handles by leaving cost and profit null.
type ProductMatcher struct {
	entries catalog.CatalogEntryRepository
	logger  *zap.Logger
}

// NewProductMatcher creates a ProductMatcher.
func NewProductMatcher(entries catalog.CatalogEntryRepository, logger *zap.Logger) *ProductMatcher {
	return &ProductMatcher{entries: entries, logger: logger}
}

// Match runs the cascade for the given owner.
func (m *ProductMatcher) Match(ctx context.Context, tenantID uuid.UUID, c Candidates) (*catalog.CatalogEntry, error) {
	if c.MarketplaceSkuID != "" {
		entry, err := m.entries.FindByExternalProductID(ctx, tenantID, c.MarketplaceSkuID)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}

	if c.SkuCode != "" {
		entry, err := m.entries.FindBySkuCode(ctx, tenantID, c.SkuCode)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}
	}

	if c.SpuID != "" {
		entries, err := m.entries.FindActiveBySpuID(ctx, tenantID, c.SpuID)
		if err != nil {
			return nil, err
		}
		switch len(entries) {
		case 0:
		case 1:
			return &entries[0], nil
		default:
			// Multiple SKUs under one SPU: the family id cannot identify a
			// single entry, so the match is rejected rather than guessed.
			m.logger.Warn("Ambiguous SPU match rejected",
				zap.String("tenant_id", tenantID.String()),
				zap.String("spu_id", c.SpuID),
				zap.Int("candidates", len(entries)),
			)
		}
	}

	return nil, nil
}
