package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ordersync/backend/internal/domain/ingest"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

// RawOrderRecordRepository implements ingest.RawOrderRecordRepository using GORM
type RawOrderRecordRepository struct {
	db *Database
}

// NewRawOrderRecordRepository creates a new raw order record repository
func NewRawOrderRecordRepository(db *Database) *RawOrderRecordRepository {
	return &RawOrderRecordRepository{db: db}
}

// Upsert inserts the record or refreshes the payload of the existing row
// with the same (tenant_id, external_id). The stored row is returned.
// ON CONFLICT keeps concurrent syncs race-free: a losing insert degrades
// to refreshing the payload instead of surfacing a duplicate-key error.
func (r *RawOrderRecordRepository) Upsert(ctx context.Context, record *ingest.RawOrderRecord) (*ingest.RawOrderRecord, error) {
	conn := r.db.conn(ctx)

	var model models.RawOrderRecordModel
	model.FromDomain(record)
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert raw order record: %w", err)
	}

	// Reload so the caller sees the stored row's id, which survives
	// conflicts.
	var stored models.RawOrderRecordModel
	err = conn.Where("tenant_id = ? AND external_id = ?", record.TenantID, record.ExternalID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reload raw order record: %w", err)
	}
	return stored.ToDomain(), nil
}

// FindByExternalID returns the record, or ErrRawRecordNotFound
func (r *RawOrderRecordRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*ingest.RawOrderRecord, error) {
	var model models.RawOrderRecordModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ingest.ErrRawRecordNotFound
		}
		return nil, fmt.Errorf("failed to find raw order record: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every stored record for an owner, oldest first
func (r *RawOrderRecordRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]ingest.RawOrderRecord, error) {
	var rows []models.RawOrderRecordModel
	err := r.db.conn(ctx).
		Where("tenant_id = ?", tenantID).
		Order("fetched_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list raw order records: %w", err)
	}

	records := make([]ingest.RawOrderRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].ToDomain())
	}
	return records, nil
}

// RawProductRecordRepository implements ingest.RawProductRecordRepository using GORM
type RawProductRecordRepository struct {
	db *Database
}

// NewRawProductRecordRepository creates a new raw product record repository
func NewRawProductRecordRepository(db *Database) *RawProductRecordRepository {
	return &RawProductRecordRepository{db: db}
}

// Upsert inserts the record or refreshes the payload of the existing row,
// with the same conflict handling as the order variant.
func (r *RawProductRecordRepository) Upsert(ctx context.Context, record *ingest.RawProductRecord) (*ingest.RawProductRecord, error) {
	conn := r.db.conn(ctx)

	var model models.RawProductRecordModel
	model.FromDomain(record)
	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert raw product record: %w", err)
	}

	var stored models.RawProductRecordModel
	err = conn.Where("tenant_id = ? AND external_id = ?", record.TenantID, record.ExternalID).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("failed to reload raw product record: %w", err)
	}
	return stored.ToDomain(), nil
}

// FindByExternalID returns the record, or ErrRawRecordNotFound
func (r *RawProductRecordRepository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*ingest.RawProductRecord, error) {
	var model models.RawProductRecordModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND external_id = ?", tenantID, externalID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ingest.ErrRawRecordNotFound
		}
		return nil, fmt.Errorf("failed to find raw product record: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every stored record for an owner, oldest first
func (r *RawProductRecordRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]ingest.RawProductRecord, error) {
	var rows []models.RawProductRecordModel
	err := r.db.conn(ctx).
		Where("tenant_id = ?", tenantID).
		Order("fetched_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list raw product records: %w", err)
	}

	records := make([]ingest.RawProductRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].ToDomain())
	}
	return records, nil
}

// Ensure interfaces are implemented
var (
	_ ingest.RawOrderRecordRepository   = (*RawOrderRecordRepository)(nil)
	_ ingest.RawProductRecordRepository = (*RawProductRecordRepository)(nil)
)
