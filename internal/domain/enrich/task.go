package enrich

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ordersync/backend/internal/domain/shared"
)

// Errors for the enrichment domain.
var (
	ErrTaskNotFound = errors.New("enrichment task not found")
)

// TaskState is the lifecycle state of an enrichment task.
type TaskState string

const (
	TaskStatePending    TaskState = "PENDING"
	TaskStateProcessing TaskState = "PROCESSING"
	TaskStateCompleted  TaskState = "COMPLETED"
	TaskStateFailed     TaskState = "FAILED"
)

// IsValid returns true if the state is a known value.
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePending, TaskStateProcessing, TaskStateCompleted, TaskStateFailed:
		return true
	default:
		return false
	}
}

// Task fetches the secondary package-id detail for one parent order group.
// Exactly one task exists per parent group per enrichment cycle; a group
// with an in-flight or already-successful task is never re-queued unless
// forced.
type Task struct {
	shared.TenantEntity
	ParentGroupID   string
	MemberLineIDs   []uuid.UUID
	State           TaskState
	RetryCount      int
	MaxRetries      int
	ResultPackageID *string
	LastError       string
}

// NewTask creates a pending enrichment task.
func NewTask(tenantID uuid.UUID, parentGroupID string, memberLineIDs []uuid.UUID, maxRetries int) *Task {
	return &Task{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		ParentGroupID: parentGroupID,
		MemberLineIDs: memberLineIDs,
		State:         TaskStatePending,
		MaxRetries:    maxRetries,
	}
}

// MarkProcessing transitions the task to processing.
func (t *Task) MarkProcessing() {
	t.State = TaskStateProcessing
}

// Complete marks the task terminally successful. A nil package id is a
// valid terminal result: some orders never receive one.
func (t *Task) Complete(packageID *string) {
	t.State = TaskStateCompleted
	t.ResultPackageID = packageID
	t.LastError = ""
}

// Requeue returns the task to pending without consuming a retry, used when
// another worker holds the group lock.
func (t *Task) Requeue() {
	t.State = TaskStatePending
}

// RecordFailure consumes one retry. The task returns to pending until
// retries are exhausted, at which point it is terminally failed and never
// retried automatically again.
func (t *Task) RecordFailure(err error) {
	t.RetryCount++
	t.LastError = err.Error()
	if t.RetryCount >= t.MaxRetries {
		t.State = TaskStateFailed
		return
	}
	t.State = TaskStatePending
}

// Exhausted reports whether the task has used up its retry budget.
func (t *Task) Exhausted() bool {
	return t.RetryCount >= t.MaxRetries
}

// TaskRepository persists enrichment tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)
	// FindBlocking returns a task for the group that should suppress a new
	// enqueue: pending, processing, or completed with a non-nil result.
	// Returns (nil, nil) when the group may be queued.
	FindBlocking(ctx context.Context, tenantID uuid.UUID, parentGroupID string) (*Task, error)
	FindByState(ctx context.Context, tenantID uuid.UUID, state TaskState, limit int) ([]Task, error)
}
