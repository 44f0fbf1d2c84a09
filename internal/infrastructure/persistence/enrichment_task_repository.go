package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/backend/internal/domain/enrich"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

// EnrichmentTaskRepository implements enrich.TaskRepository using GORM
type EnrichmentTaskRepository struct {
	db *Database
}

// NewEnrichmentTaskRepository creates a new enrichment task repository
func NewEnrichmentTaskRepository(db *Database) *EnrichmentTaskRepository {
	return &EnrichmentTaskRepository{db: db}
}

// Create inserts a new task
func (r *EnrichmentTaskRepository) Create(ctx context.Context, task *enrich.Task) error {
	var model models.EnrichmentTaskModel
	if err := model.FromDomain(task); err != nil {
		return fmt.Errorf("failed to encode enrichment task: %w", err)
	}
	if err := r.db.conn(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create enrichment task: %w", err)
	}
	return nil
}

// Update saves the full task state
func (r *EnrichmentTaskRepository) Update(ctx context.Context, task *enrich.Task) error {
	var model models.EnrichmentTaskModel
	if err := model.FromDomain(task); err != nil {
		return fmt.Errorf("failed to encode enrichment task: %w", err)
	}
	model.UpdatedAt = time.Now()
	if err := r.db.conn(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("failed to update enrichment task: %w", err)
	}
	return nil
}

// FindByID returns the task, or ErrTaskNotFound
func (r *EnrichmentTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*enrich.Task, error) {
	var model models.EnrichmentTaskModel
	err := r.db.conn(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enrich.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find enrichment task: %w", err)
	}
	return model.ToDomain()
}

// FindBlocking returns a task for the group that should suppress a new
// enqueue: pending, processing, or completed with a non-nil result.
// Returns (nil, nil) when the group may be queued.
func (r *EnrichmentTaskRepository) FindBlocking(ctx context.Context, tenantID uuid.UUID, parentGroupID string) (*enrich.Task, error) {
	var model models.EnrichmentTaskModel
	err := r.db.conn(ctx).
		Where("tenant_id = ? AND parent_group_id = ?", tenantID, parentGroupID).
		Where("(state IN ? OR (state = ? AND result_package_id IS NOT NULL))",
			[]string{string(enrich.TaskStatePending), string(enrich.TaskStateProcessing)},
			string(enrich.TaskStateCompleted)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blocking enrichment task: %w", err)
	}
	return model.ToDomain()
}

// FindByState returns up to limit tasks in the given state, oldest first
func (r *EnrichmentTaskRepository) FindByState(ctx context.Context, tenantID uuid.UUID, state enrich.TaskState, limit int) ([]enrich.Task, error) {
	query := r.db.conn(ctx).
		Where("tenant_id = ? AND state = ?", tenantID, string(state)).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.EnrichmentTaskModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrichment tasks: %w", err)
	}

	tasks := make([]enrich.Task, 0, len(rows))
	for i := range rows {
		task, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode enrichment task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// Ensure interface is implemented
var _ enrich.TaskRepository = (*EnrichmentTaskRepository)(nil)
