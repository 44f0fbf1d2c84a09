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

// CatalogEntryRepository implements catalog.CatalogEntryRepository using GORM
type CatalogEntryRepository struct {
	db *Database
}

// NewCatalogEntryRepository creates a new catalog entry repository
func NewCatalogEntryRepository(db *Database) *CatalogEntryRepository {
	return &CatalogEntryRepository{db: db}
}

// Save inserts or updates a catalog entry by primary key
func (r *CatalogEntryRepository) Save(ctx context.Context, entry *catalog.CatalogEntry) error {
	var model models.CatalogEntryModel
	model.FromDomain(entry)
	model.UpdatedAt = time.Now()
	if err := r.db.conn(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to save catalog entry: %w", err)
	}
	return nil
}

// FindByID returns the entry, or ErrCatalogEntryNotFound
func (r *CatalogEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.CatalogEntry, error) {
	var model models.CatalogEntryModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCatalogEntryNotFound
		}
		return nil, fmt.Errorf("failed to find catalog entry: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByExternalProductID returns the entry with the given marketplace
// product id, or (nil, nil) when none exists
func (r *CatalogEntryRepository) FindByExternalProductID(ctx context.Context, tenantID uuid.UUID, externalProductID string) (*catalog.CatalogEntry, error) {
	if externalProductID == "" {
		return nil, nil
	}
	var model models.CatalogEntryModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND external_product_id = ?", tenantID, externalProductID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find catalog entry by external product id: %w", err)
	}
	return model.ToDomain(), nil
}

// FindBySkuCode returns the entry with the given sku code, or (nil, nil)
func (r *CatalogEntryRepository) FindBySkuCode(ctx context.Context, tenantID uuid.UUID, skuCode string) (*catalog.CatalogEntry, error) {
	if skuCode == "" {
		return nil, nil
	}
	var model models.CatalogEntryModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND sku_code = ?", tenantID, skuCode).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find catalog entry by sku code: %w", err)
	}
	return model.ToDomain(), nil
}

// FindActiveBySpuID returns every active entry under a product family
func (r *CatalogEntryRepository) FindActiveBySpuID(ctx context.Context, tenantID uuid.UUID, spuID string) ([]catalog.CatalogEntry, error) {
	if spuID == "" {
		return nil, nil
	}
	var rows []models.CatalogEntryModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND spu_id = ? AND is_active = ?", tenantID, spuID, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find catalog entries by spu id: %w", err)
	}

	entries := make([]catalog.CatalogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, *rows[i].ToDomain())
	}
	return entries, nil
}

// Ensure interface is implemented
var _ catalog.CatalogEntryRepository = (*CatalogEntryRepository)(nil)
