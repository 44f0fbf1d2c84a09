package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/shared"
)

// Errors for the order domain.
var (
	ErrOrderLineNotFound = errors.New("order line not found")
	// ErrDuplicateOrderLine means an insert lost a race against a concurrent
	// writer holding the same idempotency key.
	ErrDuplicateOrderLine = errors.New("order line already exists")
)

// OrderLine is a financially-reconciled order line. Every monetary field is
// stored in the normalized currency (CNY). Cost and profit stay nil until a
// catalog match with an active cost entry exists; they are never defaulted
// to zero.
type OrderLine struct {
	shared.TenantEntity
	ExternalLineID   string
	OrderNumber      string
	ParentGroupID    string
	MarketplaceSkuID string
	SkuCode          string
	SpuID            string
	Quantity         int64
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal
	Currency         string
	UnitCost         *decimal.Decimal
	TotalCost        *decimal.Decimal
	Profit           *decimal.Decimal
	CostRule         string
	MatchedCatalogID *uuid.UUID
	Status           Status
	OrderTime        *time.Time
	ShippingTime     *time.Time
	DeliveryTime     *time.Time
	PackageID        *string
	RawRecordID      uuid.UUID
}

// NewOrderLine creates an order line for the given owner with the pending
// default status.
func NewOrderLine(tenantID uuid.UUID, externalLineID string) *OrderLine {
	return &OrderLine{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		ExternalLineID: externalLineID,
		Status:         StatusPending,
		Currency:       "CNY",
	}
}

// HasCost reports whether the line carries resolved cost figures.
func (l *OrderLine) HasCost() bool {
	return l.UnitCost != nil
}

// OrderLineRepository persists order lines. The primary idempotency key is
// (tenant_id, external_line_id); the composite (order_number, sku_code,
// spu_id) is a secondary lookup tolerating upstream re-numbering.
type OrderLineRepository interface {
	Create(ctx context.Context, line *OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*OrderLine, error)
	FindByExternalLineID(ctx context.Context, tenantID uuid.UUID, externalLineID string) (*OrderLine, error)
	// FindByComposite looks a line up by the secondary composite key.
	// Returns (nil, nil) on no match and ErrAmbiguous semantics are not
	// needed: the composite is unique-indexed.
	FindByComposite(ctx context.Context, tenantID uuid.UUID, orderNumber, skuCode, spuID string) (*OrderLine, error)
	// UpdateFields applies a change-only field map to a line. Only fields
	// whose values actually differ should be present in the map.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// FindEnrichable returns shipped/delivered lines still missing a
	// package id, for enrichment queueing.
	FindEnrichable(ctx context.Context, tenantID uuid.UUID) ([]OrderLine, error)
	// UpdatePackageID writes the package id onto every member line of a
	// parent group.
	UpdatePackageID(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID, packageID string) error
}
