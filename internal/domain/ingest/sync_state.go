package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/shared"
)

// SyncResource names what a sync watermark covers.
type SyncResource string

const (
	SyncResourceOrders   SyncResource = "orders"
	SyncResourceProducts SyncResource = "products"
)

// SyncState is the per-owner watermark of the last successful sync. It is
// written only after a run completes, so an aborted run resumes from the
// previous watermark.
type SyncState struct {
	shared.TenantEntity
	Resource     SyncResource
	LastSyncedAt time.Time
	LastStats    string
}

// NewSyncState creates a watermark row for the given owner and resource.
func NewSyncState(tenantID uuid.UUID, resource SyncResource) *SyncState {
	return &SyncState{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Resource:     resource,
	}
}

// SyncStateRepository persists watermarks keyed by (tenant_id, resource).
type SyncStateRepository interface {
	// Find returns the watermark, or (nil, nil) when the owner has never
	// completed a sync for the resource.
	Find(ctx context.Context, tenantID uuid.UUID, resource SyncResource) (*SyncState, error)
	Save(ctx context.Context, state *SyncState) error
}
