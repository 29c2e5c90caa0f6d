package taskqueue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redisc "github.com/clipdigest/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(redisc.Wrap(rdb))
}

func TestEnqueueAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "digest:generate", map[string]string{"video_id": "abc"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	assert.Equal(t, TaskPending, task.Status)

	got, err := svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "abc", payload["video_id"])
}

func TestGetMissingTask(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEnqueueDedup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, "digest:generate", nil, "video1:summary:en")
	require.NoError(t, err)
	second, err := svc.Enqueue(ctx, "digest:generate", nil, "video1:summary:en")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// a different dedup key creates a fresh task
	third, err := svc.Enqueue(ctx, "digest:generate", nil, "video1:topics:en")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestTerminalStatusReleasesDedup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, "digest:generate", nil, "video1:summary:en")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, first.ID, TaskCompleted, map[string]string{"text": "done"}, ""))

	second, err := svc.Enqueue(ctx, "digest:generate", nil, "video1:summary:en")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "digest:generate", nil, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, task.ID, TaskRunning, nil, ""))
	got, _ := svc.GetByID(ctx, task.ID)
	assert.Equal(t, TaskRunning, got.Status)
	assert.False(t, got.Finished())

	require.NoError(t, svc.UpdateStatus(ctx, task.ID, TaskFailed, nil, "provider error"))
	got, _ = svc.GetByID(ctx, task.ID)
	assert.Equal(t, TaskFailed, got.Status)
	assert.Equal(t, "provider error", got.Error)
	assert.True(t, got.Finished())
}

func TestCancelOnlyPending(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "digest:generate", nil, "")
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, task.ID))

	got, _ := svc.GetByID(ctx, task.ID)
	assert.Equal(t, TaskCancelled, got.Status)

	running, err := svc.Enqueue(ctx, "digest:generate", nil, "")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus(ctx, running.ID, TaskRunning, nil, ""))
	assert.Error(t, svc.Cancel(ctx, running.ID))
}

func TestListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Enqueue(ctx, "digest:generate", nil, "")
	svc.Enqueue(ctx, "digest:generate", nil, "")
	svc.Enqueue(ctx, "other:type", nil, "")
	require.NoError(t, svc.UpdateStatus(ctx, a.ID, TaskCompleted, nil, ""))

	all, total, err := svc.List(ctx, 1, 10, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	digestType := "digest:generate"
	byType, total, err := svc.List(ctx, 1, 10, &digestType, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byType, 2)

	completed := TaskCompleted
	byStatus, total, err := svc.List(ctx, 1, 10, nil, &completed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)
}

func TestFindByDedupKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "digest:generate", nil, "v:summary:en")
	require.NoError(t, err)

	found, err := svc.FindByDedupKey(ctx, "digest:generate", "v:summary:en")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, task.ID, found.ID)

	missing, err := svc.FindByDedupKey(ctx, "digest:generate", "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	task, err := svc.Enqueue(ctx, "digest:generate", nil, "v:summary:en")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteByID(ctx, task.ID))

	got, err := svc.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// deletion frees the dedup slot too
	fresh, err := svc.Enqueue(ctx, "digest:generate", nil, "v:summary:en")
	require.NoError(t, err)
	assert.NotEqual(t, task.ID, fresh.ID)
}

func TestDeleteFinished(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	done, _ := svc.Enqueue(ctx, "digest:generate", nil, "")
	pending, _ := svc.Enqueue(ctx, "digest:generate", nil, "")
	require.NoError(t, svc.UpdateStatus(ctx, done.ID, TaskCompleted, nil, ""))

	require.NoError(t, svc.DeleteFinished(ctx, 0))

	gone, _ := svc.GetByID(ctx, done.ID)
	assert.Nil(t, gone)
	kept, _ := svc.GetByID(ctx, pending.ID)
	assert.NotNil(t, kept)
}
