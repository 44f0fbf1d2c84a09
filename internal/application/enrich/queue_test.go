package enrich

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ordersync/backend/internal/domain/enrich"
	"github.com/ordersync/backend/internal/domain/order"
	"github.com/ordersync/backend/internal/infrastructure/coordination"
	"github.com/ordersync/backend/internal/infrastructure/persistence"
	"github.com/ordersync/backend/internal/infrastructure/persistence/models"
)

type queueEnv struct {
	queue    *Queue
	tasks    enrich.TaskRepository
	lines    order.OrderLineRepository
	backlog  *coordination.InMemoryTaskQueue
	lock     *coordination.InMemoryKeyedLock
	tenantID uuid.UUID
}

func setupQueue(t *testing.T, cfg Config) *queueEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))
	db := persistence.Wrap(gdb)

	tasks := persistence.NewEnrichmentTaskRepository(db)
	lines := persistence.NewOrderLineRepository(db)
	backlog := coordination.NewInMemoryTaskQueue()
	lock := coordination.NewInMemoryKeyedLock()

	return &queueEnv{
		queue:    NewQueue(tasks, lines, lock, backlog, cfg, zap.NewNop()),
		tasks:    tasks,
		lines:    lines,
		backlog:  backlog,
		lock:     lock,
		tenantID: uuid.New(),
	}
}

func shippedLine(t *testing.T, env *queueEnv, externalLineID, groupID string) *order.OrderLine {
	t.Helper()
	line := order.NewOrderLine(env.tenantID, externalLineID)
	line.OrderNumber = "ORD-" + externalLineID
	line.ParentGroupID = groupID
	line.SkuCode = "ABC"
	line.Quantity = 1
	line.UnitPrice = decimal.RequireFromString("10.00")
	line.TotalPrice = decimal.RequireFromString("10.00")
	line.Status = order.StatusShipped
	require.NoError(t, env.lines.Create(context.Background(), line))
	return line
}

func TestQueue_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and pushes a pending task", func(t *testing.T) {
		env := setupQueue(t, Config{})
		task, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-1", []uuid.UUID{uuid.New()}, false)
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, enrich.TaskStatePending, task.State)

		payload, err := env.backlog.Pop(ctx, "enrichment:tasks")
		require.NoError(t, err)
		assert.Equal(t, task.ID.String(), payload)
	})

	t.Run("pending task suppresses a duplicate", func(t *testing.T) {
		env := setupQueue(t, Config{})
		first, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-1", nil, false)
		require.NoError(t, err)
		require.NotNil(t, first)

		dup, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-1", nil, false)
		require.NoError(t, err)
		assert.Nil(t, dup)
	})

	t.Run("completed task without result does not block", func(t *testing.T) {
		env := setupQueue(t, Config{})
		done := enrich.NewTask(env.tenantID, "PARENT-2", nil, 5)
		done.Complete(nil)
		require.NoError(t, env.tasks.Create(ctx, done))

		task, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-2", nil, false)
		require.NoError(t, err)
		assert.NotNil(t, task)
	})

	t.Run("completed task with result blocks unless forced", func(t *testing.T) {
		env := setupQueue(t, Config{})
		pkg := "PKG-1"
		done := enrich.NewTask(env.tenantID, "PARENT-3", nil, 5)
		done.Complete(&pkg)
		require.NoError(t, env.tasks.Create(ctx, done))

		task, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-3", nil, false)
		require.NoError(t, err)
		assert.Nil(t, task)

		forced, err := env.queue.Enqueue(ctx, env.tenantID, "PARENT-3", nil, true)
		require.NoError(t, err)
		assert.NotNil(t, forced)
	})
}

func TestQueue_EnqueueMissing(t *testing.T) {
	ctx := context.Background()
	env := setupQueue(t, Config{})

	a1 := shippedLine(t, env, "L1", "PARENT-A")
	a2 := shippedLine(t, env, "L2", "PARENT-A")
	shippedLine(t, env, "L3", "PARENT-B")

	// Already enriched lines must not come back.
	enriched := shippedLine(t, env, "L4", "PARENT-C")
	require.NoError(t, env.lines.UpdatePackageID(ctx, env.tenantID, []uuid.UUID{enriched.ID}, "PKG-DONE"))

	queued, err := env.queue.EnqueueMissing(ctx, env.tenantID)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)

	taskA, err := env.tasks.FindBlocking(ctx, env.tenantID, "PARENT-A")
	require.NoError(t, err)
	require.NotNil(t, taskA)
	assert.ElementsMatch(t, []uuid.UUID{a1.ID, a2.ID}, taskA.MemberLineIDs)

	again, err := env.queue.EnqueueMissing(ctx, env.tenantID)
	require.NoError(t, err)
	assert.Zero(t, again)
}
