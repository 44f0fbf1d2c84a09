package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/shared"
)

// CostEntry is one row of the append-only, time-versioned cost ledger.
// EffectiveTo == nil marks the currently-open entry; at most one open entry
// may exist per catalog entry at any time.
type CostEntry struct {
	shared.BaseEntity
	CatalogEntryID uuid.UUID
	CostPrice      decimal.Decimal
	Currency       string
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
}

// NewCostEntry creates an open-ended cost entry.
func NewCostEntry(catalogEntryID uuid.UUID, costPrice decimal.Decimal, currency string, effectiveFrom time.Time) *CostEntry {
	return &CostEntry{
		BaseEntity:     shared.NewBaseEntity(),
		CatalogEntryID: catalogEntryID,
		CostPrice:      costPrice,
		Currency:       currency,
		EffectiveFrom:  effectiveFrom,
	}
}

// IsOpen reports whether the entry is the currently-active one.
func (e *CostEntry) IsOpen() bool {
	return e.EffectiveTo == nil
}

// Covers reports whether the entry was in effect at the given instant.
func (e *CostEntry) Covers(asOf time.Time) bool {
	if e.EffectiveFrom.After(asOf) {
		return false
	}
	return e.EffectiveTo == nil || e.EffectiveTo.After(asOf)
}

// CostRule records which selection rule produced a cost resolution.
// Downstream profit reporting treats the two differently for historical
// accuracy.
type CostRule string

const (
	// CostRuleTemporal means an entry valid as of the requested time was found.
	CostRuleTemporal CostRule = "TEMPORAL"
	// CostRuleFallbackCurrent means no entry covered the requested time and
	// the currently-open entry was used instead.
	CostRuleFallbackCurrent CostRule = "FALLBACK_CURRENT"
)

// CostResolution is the outcome of resolving "cost in effect at time T".
type CostResolution struct {
	Entry *CostEntry
	Rule  CostRule
}

// CostEntryRepository persists ledger rows. DeclareCost is the only write
// path and must be atomic: closing the open entry and inserting its
// replacement happen in one transaction so two open entries can never
// coexist under concurrent declarations.
type CostEntryRepository interface {
	// DeclareCost closes the currently-open entry for the catalog entry (if
	// any) at entry.EffectiveFrom and inserts entry as the new open one.
	DeclareCost(ctx context.Context, entry *CostEntry) error
	// FindEffectiveAt returns the entry with the latest effective_from among
	// those covering asOf, or (nil, nil) when none covers it.
	FindEffectiveAt(ctx context.Context, catalogEntryID uuid.UUID, asOf time.Time) (*CostEntry, error)
	// FindOpen returns the currently-open entry, or (nil, nil) when none exists.
	FindOpen(ctx context.Context, catalogEntryID uuid.UUID) (*CostEntry, error)
	FindAllForEntry(ctx context.Context, catalogEntryID uuid.UUID) ([]CostEntry, error)
}
