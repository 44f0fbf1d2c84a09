package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/backend/internal/domain/catalog"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

// CostEntryRepository implements catalog.CostEntryRepository using GORM
type CostEntryRepository struct {
	db *Database
}

// NewCostEntryRepository creates a new cost entry repository
func NewCostEntryRepository(db *Database) *CostEntryRepository {
	return &CostEntryRepository{db: db}
}

// DeclareCost closes the open entry for the catalog entry (if any) at the
// new entry's effective_from and inserts the new entry as the open one.
// Both writes share one transaction, so at most one open entry can exist
// per catalog entry even under concurrent declarations.
func (r *CostEntryRepository) DeclareCost(ctx context.Context, entry *catalog.CostEntry) error {
	return r.db.conn(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.CostEntryModel{}).
			Where("catalog_entry_id = ? AND effective_to IS NULL", entry.CatalogEntryID).
			Updates(map[string]any{
				"effective_to": entry.EffectiveFrom,
				"updated_at":   time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to close open cost entry: %w", err)
		}

		var model models.CostEntryModel
		model.FromDomain(entry)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create cost entry: %w", err)
		}
		return nil
	})
}

// FindEffectiveAt returns the entry with the latest effective_from among
// those covering asOf, or (nil, nil) when none covers it
func (r *CostEntryRepository) FindEffectiveAt(ctx context.Context, catalogEntryID uuid.UUID, asOf time.Time) (*catalog.CostEntry, error) {
	var model models.CostEntryModel
	err := r.db.conn(ctx).
		Where("catalog_entry_id = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)",
			catalogEntryID, asOf, asOf).
		Order("effective_from DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find effective cost entry: %w", err)
	}
	return model.ToDomain(), nil
}

// FindOpen returns the currently-open entry, or (nil, nil)
func (r *CostEntryRepository) FindOpen(ctx context.Context, catalogEntryID uuid.UUID) (*catalog.CostEntry, error) {
	var model models.CostEntryModel
	err := r.db.conn(ctx).
		Where("catalog_entry_id = ? AND effective_to IS NULL", catalogEntryID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open cost entry: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAllForEntry returns the full ledger for a catalog entry, oldest first
func (r *CostEntryRepository) FindAllForEntry(ctx context.Context, catalogEntryID uuid.UUID) ([]catalog.CostEntry, error) {
	var rows []models.CostEntryModel
	err := r.db.conn(ctx).
		Where("catalog_entry_id = ?", catalogEntryID).
		Order("effective_from ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cost entries: %w", err)
	}

	entries := make([]catalog.CostEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, *rows[i].ToDomain())
	}
	return entries, nil
}

// Ensure interface is implemented
var _ catalog.CostEntryRepository = (*CostEntryRepository)(nil)
