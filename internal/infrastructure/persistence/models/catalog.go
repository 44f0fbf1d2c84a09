package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/catalog"
	"github.com/ordersync/backend/internal/domain/shared"
)

// CatalogEntryModel is the persistence model for catalog entries. The
// marketplace product id is unique per tenant; sku_code is indexed but not
// unique because legacy catalogs carry entries without one.
type CatalogEntryModel struct {
	BaseModel
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_catalog_entries_tenant_external;index:idx_catalog_entries_tenant_sku"`
	ExternalProductID string          `gorm:"size:128;not null;uniqueIndex:ux_catalog_entries_tenant_external"`
	SkuCode           string          `gorm:"size:128;not null;index:idx_catalog_entries_tenant_sku"`
	SpuID             string          `gorm:"size:128;index"`
	SkcID             string          `gorm:"size:128"`
	DeclaredUnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency          string          `gorm:"size:8;not null"`
	IsActive          bool            `gorm:"not null;index"`
}

// TableName specifies the table name
func (CatalogEntryModel) TableName() string {
	return "catalog_entries"
}

// ToDomain converts the model to a domain catalog entry
func (m *CatalogEntryModel) ToDomain() *catalog.CatalogEntry {
	return &catalog.CatalogEntry{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		ExternalProductID: m.ExternalProductID,
		SkuCode:           m.SkuCode,
		SpuID:             m.SpuID,
		SkcID:             m.SkcID,
		DeclaredUnitPrice: m.DeclaredUnitPrice,
		Currency:          m.Currency,
		IsActive:          m.IsActive,
	}
}

// FromDomain populates the model from a domain catalog entry
func (m *CatalogEntryModel) FromDomain(e *catalog.CatalogEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.ExternalProductID = e.ExternalProductID
	m.SkuCode = e.SkuCode
	m.SpuID = e.SpuID
	m.SkcID = e.SkcID
	m.DeclaredUnitPrice = e.DeclaredUnitPrice
	m.Currency = e.Currency
	m.IsActive = e.IsActive
}

// CostEntryModel is the persistence model for the time-versioned cost
// ledger. effective_to IS NULL marks the open entry.
type CostEntryModel struct {
	BaseModel
	CatalogEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency       string          `gorm:"size:8;not null"`
	EffectiveFrom  time.Time       `gorm:"not null;index"`
	EffectiveTo    *time.Time      `gorm:"index"`
}

// TableName specifies the table name
func (CostEntryModel) TableName() string {
	return "cost_entries"
}

// ToDomain converts the model to a domain cost entry
func (m *CostEntryModel) ToDomain() *catalog.CostEntry {
	return &catalog.CostEntry{
		BaseEntity:     m.BaseModel.ToDomain(),
		CatalogEntryID: m.CatalogEntryID,
		CostPrice:      m.CostPrice,
		Currency:       m.Currency,
		EffectiveFrom:  m.EffectiveFrom,
		EffectiveTo:    m.EffectiveTo,
	}
}

// FromDomain populates the model from a domain cost entry
func (m *CostEntryModel) FromDomain(e *catalog.CostEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.CatalogEntryID = e.CatalogEntryID
	m.CostPrice = e.CostPrice
	m.Currency = e.Currency
	m.EffectiveFrom = e.EffectiveFrom
	m.EffectiveTo = e.EffectiveTo
}
