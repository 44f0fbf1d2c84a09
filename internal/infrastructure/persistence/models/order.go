package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordersync/backend/internal/domain/order"
	"github.com/ordersync/backend/internal/domain/shared"
)

// OrderLineModel is the persistence model for reconciled order lines.
// (tenant_id, external_line_id) is the idempotency key; the composite
// (order_number, sku_code, spu_id) is a secondary lookup index.
type OrderLineModel struct {
	BaseModel
	TenantID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:ux_order_lines_tenant_external;index:idx_order_lines_composite"`
	ExternalLineID   string           `gorm:"size:128;not null;uniqueIndex:ux_order_lines_tenant_external"`
	OrderNumber      string           `gorm:"size:128;not null;index:idx_order_lines_composite"`
	ParentGroupID    string           `gorm:"size:128;index"`
	MarketplaceSkuID string           `gorm:"size:128"`
	SkuCode          string           `gorm:"size:128;index:idx_order_lines_composite"`
	SpuID            string           `gorm:"size:128;index:idx_order_lines_composite"`
	Quantity         int64            `gorm:"not null"`
	UnitPrice        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TotalPrice       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Currency         string           `gorm:"size:8;not null"`
	UnitCost         *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TotalCost        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Profit           *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CostRule         string           `gorm:"size:32"`
	MatchedCatalogID *uuid.UUID       `gorm:"type:uuid;index"`
	Status           string           `gorm:"size:32;not null;index"`
	OrderTime        *time.Time       `gorm:"index"`
	ShippingTime     *time.Time
	DeliveryTime     *time.Time
	PackageID        *string   `gorm:"size:128"`
	RawRecordID      uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName specifies the table name
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the model to a domain order line
func (m *OrderLineModel) ToDomain() *order.OrderLine {
	return &order.OrderLine{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		ExternalLineID:   m.ExternalLineID,
		OrderNumber:      m.OrderNumber,
		ParentGroupID:    m.ParentGroupID,
		MarketplaceSkuID: m.MarketplaceSkuID,
		SkuCode:          m.SkuCode,
		SpuID:            m.SpuID,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		TotalPrice:       m.TotalPrice,
		Currency:         m.Currency,
		UnitCost:         m.UnitCost,
		TotalCost:        m.TotalCost,
		Profit:           m.Profit,
		CostRule:         m.CostRule,
		MatchedCatalogID: m.MatchedCatalogID,
		Status:           order.Status(m.Status),
		OrderTime:        m.OrderTime,
		ShippingTime:     m.ShippingTime,
		DeliveryTime:     m.DeliveryTime,
		PackageID:        m.PackageID,
		RawRecordID:      m.RawRecordID,
	}
}

// FromDomain populates the model from a domain order line
func (m *OrderLineModel) FromDomain(l *order.OrderLine) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.TenantID = l.TenantID
	m.ExternalLineID = l.ExternalLineID
	m.OrderNumber = l.OrderNumber
	m.ParentGroupID = l.ParentGroupID
	m.MarketplaceSkuID = l.MarketplaceSkuID
	m.SkuCode = l.SkuCode
	m.SpuID = l.SpuID
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.TotalPrice = l.TotalPrice
	m.Currency = l.Currency
	m.UnitCost = l.UnitCost
	m.TotalCost = l.TotalCost
	m.Profit = l.Profit
	m.CostRule = l.CostRule
	m.MatchedCatalogID = l.MatchedCatalogID
	m.Status = string(l.Status)
	m.OrderTime = l.OrderTime
	m.ShippingTime = l.ShippingTime
	m.DeliveryTime = l.DeliveryTime
	m.PackageID = l.PackageID
	m.RawRecordID = l.RawRecordID
}
