package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ordersync/backend/internal/domain/order"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

// OrderLineRepository implements order.OrderLineRepository using GORM
type OrderLineRepository struct {
	db *Database
}

// NewOrderLineRepository creates a new order line repository
func NewOrderLineRepository(db *Database) *OrderLineRepository {
	return &OrderLineRepository{db: db}
}

// Create inserts a new order line. A conflict on the idempotency key is
// reported as ErrDuplicateOrderLine so callers can fall back to the update
// path instead of failing the item.
func (r *OrderLineRepository) Create(ctx context.Context, line *order.OrderLine) error {
	var model models.OrderLineModel
	model.FromDomain(line)
	res := r.db.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return fmt.Errorf("failed to create order line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return order.ErrDuplicateOrderLine
	}
	return nil
}

// FindByID returns the line, or ErrOrderLineNotFound
func (r *OrderLineRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.OrderLine, error) {
	var model models.OrderLineModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderLineNotFound
		}
		return nil, fmt.Errorf("failed to find order line: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByExternalLineID returns the line with the given external id, or
// (nil, nil) when none exists
func (r *OrderLineRepository) FindByExternalLineID(ctx context.Context, tenantID uuid.UUID, externalLineID string) (*order.OrderLine, error) {
	if externalLineID == "" {
		return nil, nil
	}
	var model models.OrderLineModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND external_line_id = ?", tenantID, externalLineID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order line by external id: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByComposite returns the line matching the secondary composite key,
// or (nil, nil)
func (r *OrderLineRepository) FindByComposite(ctx context.Context, tenantID uuid.UUID, orderNumber, skuCode, spuID string) (*order.OrderLine, error) {
	if orderNumber == "" {
		return nil, nil
	}
	var model models.OrderLineModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND order_number = ? AND sku_code = ? AND spu_id = ?",
			tenantID, orderNumber, skuCode, spuID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order line by composite key: %w", err)
	}
	return model.ToDomain(), nil
}

// UpdateFields applies a change-only field map to a line
func (r *OrderLineRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now()
	result := r.db.conn(ctx).
		Model(&models.OrderLineModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update order line fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderLineNotFound
	}
	return nil
}

// FindEnrichable returns shipped or delivered lines still missing a
// package id
func (r *OrderLineRepository) FindEnrichable(ctx context.Context, tenantID uuid.UUID) ([]order.OrderLine, error) {
	var rows []models.OrderLineModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND status IN ? AND package_id IS NULL AND parent_group_id <> ''",
			tenantID, []string{string(order.StatusShipped), string(order.StatusDelivered)}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find enrichable order lines: %w", err)
	}

	lines := make([]order.OrderLine, 0, len(rows))
	for i := range rows {
		lines = append(lines, *rows[i].ToDomain())
	}
	return lines, nil
}

// UpdatePackageID writes the package id onto every member line of a
// parent group
func (r *OrderLineRepository) UpdatePackageID(ctx context.Context, tenantID uuid.UUID, lineIDs []uuid.UUID, packageID string) error {
	if len(lineIDs) == 0 {
		return nil
	}
	err := r.db.conn(ctx).
		Model(&models.OrderLineModel{}).
		Where("tenant_id = ? AND id IN ?", tenantID, lineIDs).
		Updates(map[string]any{
			"package_id": packageID,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update package id: %w", err)
	}
	return nil
}

// Ensure interface is implemented
var _ order.OrderLineRepository = (*OrderLineRepository)(nil)
