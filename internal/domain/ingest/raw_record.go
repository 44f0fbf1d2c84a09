package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/shared"
)

// Errors for the ingest domain.
var (
	ErrRawRecordNotFound = errors.New("raw record not found")
)

// RawOrderRecord stores a verbatim upstream order payload keyed by its
// natural external id. Records are upserted on every re-fetch and never
// deleted; they are the replay source of truth for the whole pipeline.
type RawOrderRecord struct {
	shared.TenantEntity
	ExternalID string
	Payload    string
	FetchedAt  time.Time
}

// RawProductRecord stores a verbatim upstream product payload.
type RawProductRecord struct {
	shared.TenantEntity
	ExternalID string
	Payload    string
	FetchedAt  time.Time
}

// NewRawOrderRecord creates a raw order record for the given owner.
func NewRawOrderRecord(tenantID uuid.UUID, externalID, payload string) *RawOrderRecord {
	return &RawOrderRecord{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ExternalID:   externalID,
		Payload:      payload,
		FetchedAt:    time.Now(),
	}
}

// NewRawProductRecord creates a raw product record for the given owner.
func NewRawProductRecord(tenantID uuid.UUID, externalID, payload string) *RawProductRecord {
	return &RawProductRecord{
		TenantEntity: shared.NewTenantEntity(tenantID),
		ExternalID:   externalID,
		Payload:      payload,
		FetchedAt:    time.Now(),
	}
}

// RawOrderRecordRepository persists raw order payloads.
type RawOrderRecordRepository interface {
	// Upsert inserts the record or, when a record with the same
	// (tenant_id, external_id) exists, refreshes its payload and fetched_at.
	// The stored record is returned so callers can reference its id.
	Upsert(ctx context.Context, record *RawOrderRecord) (*RawOrderRecord, error)
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*RawOrderRecord, error)
	// FindAll streams every stored record for an owner, for replay.
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]RawOrderRecord, error)
}

// RawProductRecordRepository persists raw product payloads.
type RawProductRecordRepository interface {
	Upsert(ctx context.Context, record *RawProductRecord) (*RawProductRecord, error)
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*RawProductRecord, error)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]RawProductRecord, error)
}
