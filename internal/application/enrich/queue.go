package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/enrich"
	"github.com/ordersync/backend/internal/domain/order"
	"github.com/ordersync/backend/internal/domain/shared"
)

const queueName = "enrichment:tasks"

// Config holds enrichment tunables.
type Config struct {
	// MaxRetries bounds transient-error retries per task.
	MaxRetries int
	// LockTTL is the distributed lock lifetime per parent group.
	LockTTL time.Duration
	// BatchSize bounds how many tasks one Drain call pops.
	BatchSize int
	// MaxConcurrency bounds in-flight external detail calls.
	MaxConcurrency int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		LockTTL:        5 * time.Minute,
		BatchSize:      50,
		MaxConcurrency: 5,
	}
}

// Queue is the distributed, lock-protected, retryable background task
// system that fetches the package-id detail per parent order group.
type Queue struct {
	tasks  enrich.TaskRepository
	lines  order.OrderLineRepository
	lock   shared.KeyedLock
	queue  shared.TaskQueue
	config Config
	logger *zap.Logger
}

// NewQueue creates an enrichment queue.
func NewQueue(
	tasks enrich.TaskRepository,
	lines order.OrderLineRepository,
	lock shared.KeyedLock,
	queue shared.TaskQueue,
	config Config,
	logger *zap.Logger,
) *Queue {
	def := DefaultConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.LockTTL <= 0 {
		config.LockTTL = def.LockTTL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = def.MaxConcurrency
	}
	return &Queue{
		tasks:  tasks,
		lines:  lines,
		lock:   lock,
		queue:  queue,
		config: config,
		logger: logger,
	}
}

// Enqueue creates a task for a parent group unless one is already pending,
// processing, or completed with a result. force overrides the dedup check.
func (q *Queue) Enqueue(ctx context.Context, tenantID uuid.UUID, parentGroupID string, memberLineIDs []uuid.UUID, force bool) (*enrich.Task, error) {
	if !force {
		blocking, err := q.tasks.FindBlocking(ctx, tenantID, parentGroupID)
		if err != nil {
			return nil, err
		}
		if blocking != nil {
			return nil, nil
		}
	}

	task := enrich.NewTask(tenantID, parentGroupID, memberLineIDs, q.config.MaxRetries)
	if err := q.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := q.queue.Push(ctx, queueName, task.ID.String()); err != nil {
		return nil, err
	}

	q.logger.Debug("Enrichment task queued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("parent_group_id", parentGroupID),
		zap.Int("member_lines", len(memberLineIDs)),
	)
	return task, nil
}

// EnqueueMissing queues every shipped or delivered parent group still
// lacking a package id. Returns how many tasks were created.
func (q *Queue) EnqueueMissing(ctx context.Context, tenantID uuid.UUID) (int, error) {
	lines, err := q.lines.FindEnrichable(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]uuid.UUID)
	for _, line := range lines {
		if line.ParentGroupID == "" {
			continue
		}
		groups[line.ParentGroupID] = append(groups[line.ParentGroupID], line.ID)
	}

	queued := 0
	for groupID, memberIDs := range groups {
		task, err := q.Enqueue(ctx, tenantID, groupID, memberIDs, false)
		if err != nil {
			return queued, err
		}
		if task != nil {
			queued++
		}
	}
	return queued, nil
}
