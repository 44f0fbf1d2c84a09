package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/ingest"
	"github.com/ordersync/backend/internal/domain/shared"
)

// RawOrderRecordModel is the persistence model for raw order payloads.
// (tenant_id, external_id) is the upsert key.
type RawOrderRecordModel struct {
	BaseModel
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_raw_order_records_tenant_external"`
	ExternalID string    `gorm:"size:128;not null;uniqueIndex:ux_raw_order_records_tenant_external"`
	Payload    string    `gorm:"type:text;not null"`
	FetchedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (RawOrderRecordModel) TableName() string {
	return "raw_order_records"
}

// ToDomain converts the model to a domain record
func (m *RawOrderRecordModel) ToDomain() *ingest.RawOrderRecord {
	return &ingest.RawOrderRecord{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		ExternalID: m.ExternalID,
		Payload:    m.Payload,
		FetchedAt:  m.FetchedAt,
	}
}

// FromDomain populates the model from a domain record
func (m *RawOrderRecordModel) FromDomain(r *ingest.RawOrderRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	m.ExternalID = r.ExternalID
	m.Payload = r.Payload
	m.FetchedAt = r.FetchedAt
}

// RawProductRecordModel is the persistence model for raw product payloads.
type RawProductRecordModel struct {
	BaseModel
	TenantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_raw_product_records_tenant_external"`
	ExternalID string    `gorm:"size:128;not null;uniqueIndex:ux_raw_product_records_tenant_external"`
	Payload    string    `gorm:"type:text;not null"`
	FetchedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (RawProductRecordModel) TableName() string {
	return "raw_product_records"
}

// ToDomain converts the model to a domain record
func (m *RawProductRecordModel) ToDomain() *ingest.RawProductRecord {
	return &ingest.RawProductRecord{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		ExternalID: m.ExternalID,
		Payload:    m.Payload,
		FetchedAt:  m.FetchedAt,
	}
}

// FromDomain populates the model from a domain record
func (m *RawProductRecordModel) FromDomain(r *ingest.RawProductRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.TenantID = r.TenantID
	m.ExternalID = r.ExternalID
	m.Payload = r.Payload
	m.FetchedAt = r.FetchedAt
}

// SyncStateModel is the persistence model for sync watermarks, one row per
// (tenant, resource).
type SyncStateModel struct {
	BaseModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_sync_states_tenant_resource"`
	Resource     string    `gorm:"size:32;not null;uniqueIndex:ux_sync_states_tenant_resource"`
	LastSyncedAt time.Time `gorm:"not null"`
	LastStats    string    `gorm:"type:text"`
}

// TableName specifies the table name
func (SyncStateModel) TableName() string {
	return "sync_states"
}

// ToDomain converts the model to a domain sync state
func (m *SyncStateModel) ToDomain() *ingest.SyncState {
	return &ingest.SyncState{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.BaseModel.ToDomain(),
			TenantID:   m.TenantID,
		},
		Resource:     ingest.SyncResource(m.Resource),
		LastSyncedAt: m.LastSyncedAt,
		LastStats:    m.LastStats,
	}
}

// FromDomain populates the model from a domain sync state
func (m *SyncStateModel) FromDomain(s *ingest.SyncState) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.TenantID = s.TenantID
	m.Resource = string(s.Resource)
	m.LastSyncedAt = s.LastSyncedAt
	m.LastStats = s.LastStats
}
