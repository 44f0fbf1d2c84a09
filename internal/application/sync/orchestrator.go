package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordersync/backend/internal/application/reconcile"
	"github.com/ordersync/backend/internal/domain/ingest"
)

// Mode selects how the sync window is chosen.
type Mode string

const (
	// ModeIncremental resumes from the owner's last successful watermark,
	// or a bounded recent window when none exists.
	ModeIncremental Mode = "incremental"
	// ModeFull scans all upstream history.
	ModeFull Mode = "full"
)

// Config holds orchestrator tunables.
type Config struct {
	// PageSize is the upstream page size.
	PageSize int
	// BatchSize bounds how many items share one commit.
	BatchSize int
	// DefaultLookback bounds the first incremental window when no
	// watermark exists.
	DefaultLookback time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:        50,
		BatchSize:       100,
		DefaultLookback: 7 * 24 * time.Hour,
	}
}

// TxRunner runs a function inside one database transaction. The context it
// passes down carries the transaction; repositories resolve it.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Enqueuer populates the enrichment queue after a sync run.
type Enqueuer interface {
	EnqueueMissing(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Orchestrator paginates the upstream API, batches writes, reports
// progress, and classifies per-item failures without aborting the run.
type Orchestrator struct {
	client   ingest.MarketplaceClient
	engine   *reconcile.Engine
	states   ingest.SyncStateRepository
	tx       TxRunner
	enqueuer Enqueuer
	config   Config
	logger   *zap.Logger
}

// NewOrchestrator creates a sync orchestrator. enqueuer may be nil when
// enrichment is disabled.
func NewOrchestrator(
	client ingest.MarketplaceClient,
	engine *reconcile.Engine,
	states ingest.SyncStateRepository,
	tx TxRunner,
	enqueuer Enqueuer,
	config Config,
	logger *zap.Logger,
) *Orchestrator {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.DefaultLookback <= 0 {
		config.DefaultLookback = DefaultConfig().DefaultLookback
	}
	return &Orchestrator{
		client:   client,
		engine:   engine,
		states:   states,
		tx:       tx,
		enqueuer: enqueuer,
		config:   config,
		logger:   logger,
	}
}

// RunOrders is the single entry point any trigger calls to sync orders.
// It always returns stats; only a first-page fetch failure (where no
// partial progress is possible) or a window computation failure is fatal.
func (o *Orchestrator) RunOrders(ctx context.Context, tenantID uuid.UUID, mode Mode, progress ProgressFunc) (Stats, error) {
	stats := Stats{}
	window, err := o.window(ctx, tenantID, ingest.SyncResourceOrders, mode)
	if err != nil {
		return stats, err
	}

	o.logger.Info("Order sync started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("mode", string(mode)),
		zap.Time("window_start", window.start),
		zap.Time("window_end", window.end),
	)

	var (
		tracker   *progressTracker
		processed int64
		clean     = true
	)
	for pageNo := 1; ; pageNo++ {
		page, err := o.client.PullOrders(ctx, &ingest.OrderPullRequest{
			TenantID:  tenantID,
			StartTime: window.start,
			EndTime:   window.end,
			PageNo:    pageNo,
			PageSize:  o.config.PageSize,
		})
		if err != nil {
			if pageNo == 1 {
				return stats, fmt.Errorf("fetch first order page: %w", err)
			}
			// Later pages: the progress so far stands; stop and report.
			o.logger.Warn("Order page fetch failed, stopping run",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("page", pageNo),
				zap.Error(err),
			)
			clean = false
			break
		}
		if tracker == nil {
			tracker = newProgressTracker(progress, page.Total)
		}
		if len(page.Items) == 0 {
			break
		}

		o.processBatches(ctx, tenantID, page.Items, &stats, func(ctx context.Context, item json.RawMessage) (bool, error) {
			res, err := o.engine.ReconcileOrder(ctx, tenantID, item)
			if err != nil {
				return false, err
			}
			return res.Created, nil
		})

		processed += int64(len(page.Items))
		tracker.report(processed, fmt.Sprintf("synced %d/%d orders", processed, page.Total))
		if !page.HasMore(pageNo, o.config.PageSize) {
			break
		}
	}

	if clean {
		o.saveWatermark(ctx, tenantID, ingest.SyncResourceOrders, window.end, stats)
	}
	if o.enqueuer != nil {
		if queued, err := o.enqueuer.EnqueueMissing(ctx, tenantID); err != nil {
			o.logger.Warn("Enrichment enqueue failed", zap.Error(err))
		} else if queued > 0 {
			o.logger.Info("Enrichment tasks queued", zap.Int("count", queued))
		}
	}

	o.logger.Info("Order sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("total", stats.Total),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// RunProducts syncs the product catalog with the same pagination and
// partial-failure semantics as RunOrders.
func (o *Orchestrator) RunProducts(ctx context.Context, tenantID uuid.UUID, mode Mode, progress ProgressFunc) (Stats, error) {
	stats := Stats{}
	window, err := o.window(ctx, tenantID, ingest.SyncResourceProducts, mode)
	if err != nil {
		return stats, err
	}

	o.logger.Info("Product sync started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("mode", string(mode)),
	)

	var (
		tracker   *progressTracker
		processed int64
		clean     = true
	)
	for pageNo := 1; ; pageNo++ {
		page, err := o.client.PullProducts(ctx, &ingest.ProductPullRequest{
			TenantID: tenantID,
			PageNo:   pageNo,
			PageSize: o.config.PageSize,
		})
		if err != nil {
			if pageNo == 1 {
				return stats, fmt.Errorf("fetch first product page: %w", err)
			}
			o.logger.Warn("Product page fetch failed, stopping run",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("page", pageNo),
				zap.Error(err),
			)
			clean = false
			break
		}
		if tracker == nil {
			tracker = newProgressTracker(progress, page.Total)
		}
		if len(page.Items) == 0 {
			break
		}

		o.processBatches(ctx, tenantID, page.Items, &stats, func(ctx context.Context, item json.RawMessage) (bool, error) {
			res, err := o.engine.ReconcileProduct(ctx, tenantID, item)
			if err != nil {
				return false, err
			}
			return res.Created, nil
		})

		processed += int64(len(page.Items))
		tracker.report(processed, fmt.Sprintf("synced %d/%d products", processed, page.Total))
		if !page.HasMore(pageNo, o.config.PageSize) {
			break
		}
	}

	if clean {
		o.saveWatermark(ctx, tenantID, ingest.SyncResourceProducts, window.end, stats)
	}

	o.logger.Info("Product sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("total", stats.Total),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// processBatches commits items in bounded batches. A failed batch commit is
// rolled back and its items are retried one by one, each in its own
// transaction, so a single malformed item never takes the batch down.
func (o *Orchestrator) processBatches(ctx context.Context, tenantID uuid.UUID, items []json.RawMessage, stats *Stats, process func(context.Context, json.RawMessage) (bool, error)) {
	for start := 0; start < len(items); start += o.config.BatchSize {
		end := start + o.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		var created, updated int
		err := o.tx.Do(ctx, func(ctx context.Context) error {
			created, updated = 0, 0
			for _, item := range batch {
				isNew, err := process(ctx, item)
				if err != nil {
					return err
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			return nil
		})
		if err == nil {
			stats.Total += len(batch)
			stats.New += created
			stats.Updated += updated
			continue
		}

		// Batch rolled back; isolate the failure item by item.
		for _, item := range batch {
			stats.Total++
			itemErr := o.tx.Do(ctx, func(ctx context.Context) error {
				isNew, err := process(ctx, item)
				if err != nil {
					return err
				}
				if isNew {
					stats.New++
				} else {
					stats.Updated++
				}
				return nil
			})
			if itemErr != nil {
				stats.Failed++
				o.logger.Warn("Item reconciliation failed",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(itemErr),
				)
			}
		}
	}
}

type syncWindow struct {
	start time.Time
	end   time.Time
}

// window computes the sync window for the run. Incremental runs resume
// from the watermark; with no watermark they fall back to a bounded recent
// window rather than scanning all history.
func (o *Orchestrator) window(ctx context.Context, tenantID uuid.UUID, resource ingest.SyncResource, mode Mode) (syncWindow, error) {
	now := time.Now()
	if mode == ModeFull {
		return syncWindow{start: time.Unix(0, 0), end: now}, nil
	}

	state, err := o.states.Find(ctx, tenantID, resource)
	if err != nil {
		return syncWindow{}, fmt.Errorf("load sync watermark: %w", err)
	}
	if state == nil {
		return syncWindow{start: now.Add(-o.config.DefaultLookback), end: now}, nil
	}
	return syncWindow{start: state.LastSyncedAt, end: now}, nil
}

// saveWatermark records a successful run. Failures here are logged, not
// surfaced: the next incremental run simply re-covers the window, which
// the idempotent upserts absorb.
func (o *Orchestrator) saveWatermark(ctx context.Context, tenantID uuid.UUID, resource ingest.SyncResource, syncedAt time.Time, stats Stats) {
	state, err := o.states.Find(ctx, tenantID, resource)
	if err != nil {
		o.logger.Warn("Watermark load failed", zap.Error(err))
		return
	}
	if state == nil {
		state = ingest.NewSyncState(tenantID, resource)
	}
	state.LastSyncedAt = syncedAt
	if encoded, err := json.Marshal(stats); err == nil {
		state.LastStats = string(encoded)
	}
	if err := o.states.Save(ctx, state); err != nil {
		o.logger.Warn("Watermark save failed", zap.Error(err))
	}
}
