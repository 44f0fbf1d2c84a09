package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/shared"
)

// Errors for the catalog domain.
var (
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	ErrAmbiguousMatch       = errors.New("ambiguous catalog match")
	ErrCostEntryNotFound    = errors.New("cost entry not found")
	ErrInvalidCostPrice     = errors.New("invalid cost price")
)

// CatalogEntry is an internally-owned product record. ExternalProductID is
// the marketplace's internal SKU identifier; SkuCode is the human-assigned
// code. Both are strong natural keys used by matching.
type CatalogEntry struct {
	shared.TenantEntity
	ExternalProductID string
	SkuCode           string
	SpuID             string
	SkcID             string
	DeclaredUnitPrice decimal.Decimal
	Currency          string
	IsActive          bool
}

// NewCatalogEntry creates an active catalog entry for the given owner.
func NewCatalogEntry(tenantID uuid.UUID, externalProductID, skuCode, spuID string, declaredUnitPrice decimal.Decimal, currency string) *CatalogEntry {
	return &CatalogEntry{
		TenantEntity:      shared.NewTenantEntity(tenantID),
		ExternalProductID: externalProductID,
		SkuCode:           skuCode,
		SpuID:             spuID,
		DeclaredUnitPrice: declaredUnitPrice,
		Currency:          currency,
		IsActive:          true,
	}
}

// CatalogEntryRepository persists catalog entries and serves the matcher's
// lookup cascade. Lookups that find nothing return (nil, nil): absence of a
// match is an expected outcome, not an error.
type CatalogEntryRepository interface {
	Save(ctx context.Context, entry *CatalogEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*CatalogEntry, error)
	FindByExternalProductID(ctx context.Context, tenantID uuid.UUID, externalProductID string) (*CatalogEntry, error)
	FindBySkuCode(ctx context.Context, tenantID uuid.UUID, skuCode string) (*CatalogEntry, error)
	// FindActiveBySpuID returns every active entry for a product family.
	// Callers must reject multi-matches rather than pick one.
	FindActiveBySpuID(ctx context.Context, tenantID uuid.UUID, spuID string) ([]CatalogEntry, error)
}
