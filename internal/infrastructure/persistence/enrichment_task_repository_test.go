package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/backend/internal/domain/enrich"
)

func TestEnrichmentTaskRepository_FindBlocking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrichmentTaskRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("pending task blocks", func(t *testing.T) {
		task := enrich.NewTask(tenantID, "GROUP-PENDING", []uuid.UUID{uuid.New()}, 5)
		require.NoError(t, repo.Create(ctx, task))

		blocking, err := repo.FindBlocking(ctx, tenantID, "GROUP-PENDING")
		require.NoError(t, err)
		assert.NotNil(t, blocking)
	})

	t.Run("processing task blocks", func(t *testing.T) {
		task := enrich.NewTask(tenantID, "GROUP-PROCESSING", []uuid.UUID{uuid.New()}, 5)
		task.MarkProcessing()
		require.NoError(t, repo.Create(ctx, task))

		blocking, err := repo.FindBlocking(ctx, tenantID, "GROUP-PROCESSING")
		require.NoError(t, err)
		assert.NotNil(t, blocking)
	})

	t.Run("completed with package id blocks", func(t *testing.T) {
		task := enrich.NewTask(tenantID, "GROUP-DONE", []uuid.UUID{uuid.New()}, 5)
		pkg := "PKG-1"
		task.Complete(&pkg)
		require.NoError(t, repo.Create(ctx, task))

		blocking, err := repo.FindBlocking(ctx, tenantID, "GROUP-DONE")
		require.NoError(t, err)
		assert.NotNil(t, blocking)
	})

	t.Run("completed without package id does not block", func(t *testing.T) {
		task := enrich.NewTask(tenantID, "GROUP-EMPTY", []uuid.UUID{uuid.New()}, 5)
		task.Complete(nil)
		require.NoError(t, repo.Create(ctx, task))

		blocking, err := repo.FindBlocking(ctx, tenantID, "GROUP-EMPTY")
		require.NoError(t, err)
		assert.Nil(t, blocking)
	})

	t.Run("failed task does not block", func(t *testing.T) {
		task := enrich.NewTask(tenantID, "GROUP-FAILED", []uuid.UUID{uuid.New()}, 1)
		task.RecordFailure(errors.New("upstream down"))
		require.Equal(t, enrich.TaskStateFailed, task.State)
		require.NoError(t, repo.Create(ctx, task))

		blocking, err := repo.FindBlocking(ctx, tenantID, "GROUP-FAILED")
		require.NoError(t, err)
		assert.Nil(t, blocking)
	})
}

func TestEnrichmentTaskRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnrichmentTaskRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	members := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	task := enrich.NewTask(tenantID, "GROUP-RT", members, 5)
	require.NoError(t, repo.Create(ctx, task))

	found, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, members, found.MemberLineIDs)
	assert.Equal(t, enrich.TaskStatePending, found.State)

	found.RecordFailure(errors.New("timeout"))
	require.NoError(t, repo.Update(ctx, found))

	updated, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryCount)
	assert.Equal(t, "timeout", updated.LastError)

	t.Run("unknown id reports not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, enrich.ErrTaskNotFound)
	})

	t.Run("lists by state with limit", func(t *testing.T) {
		for _, group := range []string{"G1", "G2", "G3"} {
			require.NoError(t, repo.Create(ctx, enrich.NewTask(tenantID, group, nil, 5)))
		}
		tasks, err := repo.FindByState(ctx, tenantID, enrich.TaskStatePending, 2)
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})
}
