package enrich

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/domain/enrich"
	"github.com/ordersync/backend/internal/domain/ingest"
)

const lockPrefix = "enrichment:lock:"

// DrainStats reports what one Drain call did.
type DrainStats struct {
	Processed int
	Completed int
	Requeued  int
	Failed    int
}

// Drainer processes queued enrichment tasks against the upstream detail
// endpoint under a bounded-concurrency semaphore.
type Drainer struct {
	queue  *Queue
	client ingest.MarketplaceClient
	logger *zap.Logger
}

// NewDrainer creates a drainer for the given queue.
func NewDrainer(queue *Queue, client ingest.MarketplaceClient, logger *zap.Logger) *Drainer {
	return &Drainer{queue: queue, client: client, logger: logger}
}

// Drain pops up to the configured batch size of tasks and processes them
// concurrently, at most MaxConcurrency external calls in flight at once.
// Tasks whose group lock is held elsewhere are requeued, not failed.
func (d *Drainer) Drain(ctx context.Context) (DrainStats, error) {
	q := d.queue
	stats := DrainStats{}

	ids := make([]uuid.UUID, 0, q.config.BatchSize)
	for len(ids) < q.config.BatchSize {
		payload, err := q.queue.Pop(ctx, queueName)
		if err != nil {
			return stats, err
		}
		if payload == "" {
			break
		}
		id, err := uuid.Parse(payload)
		if err != nil {
			d.logger.Warn("Dropping malformed queue payload", zap.String("payload", payload))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return stats, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, q.config.MaxConcurrency)
	)
	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(taskID uuid.UUID) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := d.processTask(ctx, taskID)
			mu.Lock()
			stats.Processed++
			switch outcome {
			case outcomeCompleted:
				stats.Completed++
			case outcomeRequeued:
				stats.Requeued++
			case outcomeFailed:
				stats.Failed++
			}
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return stats, nil
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeRequeued
	outcomeFailed
)

// processTask handles one task end to end. Package-id writes for a parent
// group are serialized by the group lock, so two workers can never write
// conflicting ids for the same group.
func (d *Drainer) processTask(ctx context.Context, taskID uuid.UUID) outcome {
	q := d.queue

	task, err := q.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, enrich.ErrTaskNotFound) {
			d.logger.Warn("Dropping queue entry for missing task", zap.String("task_id", taskID.String()))
			return outcomeRequeued
		}
		// Transient load failure. The popped entry must go back: the row is
		// still pending, so a lost entry would also suppress re-enqueueing.
		d.logger.Warn("Enrichment task load failed, requeueing", zap.String("task_id", taskID.String()), zap.Error(err))
		d.requeue(ctx, taskID)
		return outcomeRequeued
	}
	if task.State != enrich.TaskStatePending {
		// Already handled by another worker or terminally settled.
		return outcomeRequeued
	}

	lockKey := lockPrefix + task.ParentGroupID
	acquired, err := q.lock.Acquire(ctx, lockKey, q.config.LockTTL)
	if err != nil || !acquired {
		// Another worker owns the group; put the task back untouched.
		d.requeue(ctx, task.ID)
		return outcomeRequeued
	}
	defer func() {
		if err := q.lock.Release(ctx, lockKey); err != nil {
			d.logger.Warn("Lock release failed", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	task.MarkProcessing()
	if err := q.tasks.Update(ctx, task); err != nil {
		// The stored row is still pending; retry on a later drain.
		d.logger.Warn("Task state update failed, requeueing", zap.String("task_id", task.ID.String()), zap.Error(err))
		d.requeue(ctx, task.ID)
		return outcomeRequeued
	}

	packageID, err := d.client.FetchPackageID(ctx, task.TenantID, task.ParentGroupID)
	if err != nil {
		return d.recordFailure(ctx, task, err)
	}

	if packageID != nil {
		if err := q.lines.UpdatePackageID(ctx, task.TenantID, task.MemberLineIDs, *packageID); err != nil {
			return d.recordFailure(ctx, task, err)
		}
	}

	// A detail call that succeeded without a package id is a valid terminal
	// state: some orders never receive one.
	task.Complete(packageID)
	if err := q.tasks.Update(ctx, task); err != nil {
		d.logger.Warn("Task completion update failed", zap.String("task_id", task.ID.String()), zap.Error(err))
	}

	d.logger.Info("Enrichment task completed",
		zap.String("task_id", task.ID.String()),
		zap.String("parent_group_id", task.ParentGroupID),
		zap.Bool("package_id_found", packageID != nil),
	)
	return outcomeCompleted
}

// requeue puts a popped task id back on the backlog for a later drain.
func (d *Drainer) requeue(ctx context.Context, taskID uuid.UUID) {
	if err := d.queue.queue.Push(ctx, queueName, taskID.String()); err != nil {
		d.logger.Warn("Requeue push failed", zap.String("task_id", taskID.String()), zap.Error(err))
	}
}

// recordFailure consumes a retry; the task re-enters the queue until the
// budget is exhausted, then stays terminally failed with the last error.
func (d *Drainer) recordFailure(ctx context.Context, task *enrich.Task, cause error) outcome {
	q := d.queue

	task.RecordFailure(cause)
	if err := q.tasks.Update(ctx, task); err != nil {
		d.logger.Warn("Task failure update failed", zap.String("task_id", task.ID.String()), zap.Error(err))
	}

	if task.State == enrich.TaskStateFailed {
		d.logger.Error("Enrichment task exhausted retries",
			zap.String("task_id", task.ID.String()),
			zap.String("parent_group_id", task.ParentGroupID),
			zap.Int("retry_count", task.RetryCount),
			zap.Error(cause),
		)
		return outcomeFailed
	}

	d.requeue(ctx, task.ID)
	d.logger.Warn("Enrichment task retrying",
		zap.String("task_id", task.ID.String()),
		zap.Int("retry_count", task.RetryCount),
		zap.Error(cause),
	)
	return outcomeRequeued
}
