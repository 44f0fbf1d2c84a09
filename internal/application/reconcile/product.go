package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/application/mapping"
	"github.com/ordersync/backend/internal/domain/catalog"
	"github.com/ordersync/backend/internal/domain/ingest"
)

// ProductResult reports what one product reconciliation did.
type ProductResult struct {
	Entry   *catalog.CatalogEntry
	Created bool
}

// ReconcileProduct runs one raw product item through the pipeline: persist
// the raw payload, map it, and upsert the catalog entry by its natural
// keys. When the payload carries a supply price and the entry has no open
// cost yet, an initial cost entry is declared so order reconciliation can
// cost lines immediately.
func (e *Engine) ReconcileProduct(ctx context.Context, tenantID uuid.UUID, item json.RawMessage) (*ProductResult, error) {
	normalized, err := e.mapper.MapProduct(item)
	if err != nil {
		return nil, err
	}

	externalID := normalized.ExternalProductID
	if externalID == "" {
		externalID = normalized.SkuCode
	}
	if _, err := e.rawProducts.Upsert(ctx, ingest.NewRawProductRecord(tenantID, externalID, string(item))); err != nil {
		return nil, err
	}

	entry, err := e.findCatalogEntry(ctx, tenantID, normalized)
	if err != nil {
		return nil, err
	}

	created := entry == nil
	if created {
		price := decimalOrZero(normalized.DeclaredUnitPrice)
		entry = catalog.NewCatalogEntry(tenantID, normalized.ExternalProductID, normalized.SkuCode, normalized.SpuID, price, NormalizedCurrency)
		entry.SkcID = normalized.SkcID
		entry.IsActive = normalized.IsActive
	} else {
		applyProductFields(entry, normalized)
	}
	if err := e.entries.Save(ctx, entry); err != nil {
		return nil, err
	}

	if normalized.SupplyPrice != nil {
		if err := e.declareInitialCost(ctx, entry, normalized); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("Catalog entry reconciled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("external_product_id", entry.ExternalProductID),
		zap.Bool("created", created),
	)
	return &ProductResult{Entry: entry, Created: created}, nil
}

func (e *Engine) findCatalogEntry(ctx context.Context, tenantID uuid.UUID, n *mapping.NormalizedProduct) (*catalog.CatalogEntry, error) {
	if n.ExternalProductID != "" {
		entry, err := e.entries.FindByExternalProductID(ctx, tenantID, n.ExternalProductID)
		if err != nil || entry != nil {
			return entry, err
		}
	}
	if n.SkuCode != "" {
		return e.entries.FindBySkuCode(ctx, tenantID, n.SkuCode)
	}
	return nil, nil
}

// declareInitialCost opens the cost ledger for an entry that has none yet.
// Existing ledgers are left alone: cost changes are declared explicitly,
// not inferred from product re-syncs.
func (e *Engine) declareInitialCost(ctx context.Context, entry *catalog.CatalogEntry, n *mapping.NormalizedProduct) error {
	resolution, err := e.ledger.Resolve(ctx, entry.ID, time.Now().In(mapping.ReferenceZone))
	if err != nil {
		return err
	}
	if resolution != nil {
		return nil
	}
	_, err = e.ledger.Declare(ctx, entry.ID, *n.SupplyPrice, NormalizedCurrency, time.Now().In(mapping.ReferenceZone))
	return err
}

func applyProductFields(entry *catalog.CatalogEntry, n *mapping.NormalizedProduct) {
	if n.ExternalProductID != "" {
		entry.ExternalProductID = n.ExternalProductID
	}
	if n.SkuCode != "" {
		entry.SkuCode = n.SkuCode
	}
	if n.SpuID != "" {
		entry.SpuID = n.SpuID
	}
	if n.SkcID != "" {
		entry.SkcID = n.SkcID
	}
	if n.DeclaredUnitPrice != nil {
		entry.DeclaredUnitPrice = *n.DeclaredUnitPrice
	}
	entry.IsActive = n.IsActive
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Decimal{}
	}
	return *d
}
