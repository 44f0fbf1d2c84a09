package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/backend/internal/domain/ingest"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

// SyncStateRepository implements ingest.SyncStateRepository using GORM
type SyncStateRepository struct {
	db *Database
}

// NewSyncStateRepository creates a new sync state repository
func NewSyncStateRepository(db *Database) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// Find returns the watermark, or (nil, nil) when none exists
func (r *SyncStateRepository) Find(ctx context.Context, tenantID uuid.UUID, resource ingest.SyncResource) (*ingest.SyncState, error) {
	var model models.SyncStateModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND resource = ?", tenantID, string(resource)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync state: %w", err)
	}
	return model.ToDomain(), nil
}

// Save inserts the watermark or updates the existing row for the same
// (tenant_id, resource)
func (r *SyncStateRepository) Save(ctx context.Context, state *ingest.SyncState) error {
	conn := r.db.conn(ctx)

	var existing models.SyncStateModel
	err := conn.Where("tenant_id = ? AND resource = ?", state.TenantID, string(state.Resource)).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up sync state: %w", err)
		}
		var model models.SyncStateModel
		model.FromDomain(state)
		if err := conn.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create sync state: %w", err)
		}
		return nil
	}

	existing.LastSyncedAt = state.LastSyncedAt
	existing.LastStats = state.LastStats
	existing.UpdatedAt = time.Now()
	if err := conn.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

// Ensure interface is implemented
var _ ingest.SyncStateRepository = (*SyncStateRepository)(nil)
