package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pracsphere/backend/internal/cache"
	"pracsphere/backend/internal/models"
	"pracsphere/backend/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedListServesFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := cache.DefaultCacheConfig()
	cfg.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { redisCache.Close() })

	db, inner, _ := setupTaskService(t)
	svc := services.NewCachedTaskService(inner, redisCache)
	ctx := context.Background()
	owner := mustOwner(t)

	_, err = svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "Cached task",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	first, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, first, 1)

	key := fmt.Sprintf("owner_tasks:%s", owner.String())
	assert.True(t, mr.Exists(key), "list must populate the cache")

	// Poison the database row; a cached read must not see the change.
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", first[0].ID).Update("title", "Changed behind the cache").Error)

	second, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Cached task", second[0].Title)
}

func TestCachedMutationsInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := cache.DefaultCacheConfig()
	cfg.Addr = mr.Addr()
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { redisCache.Close() })

	db, inner, _ := setupTaskService(t)
	svc := services.NewCachedTaskService(inner, redisCache)
	ctx := context.Background()
	owner := mustOwner(t)

	id, err := svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "Before",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	_, err = svc.List(ctx, db, owner)
	require.NoError(t, err)

	key := fmt.Sprintf("owner_tasks:%s", owner.String())
	require.True(t, mr.Exists(key))

	require.NoError(t, svc.PatchStatus(ctx, db, owner, id, models.StatusCompleted))
	assert.False(t, mr.Exists(key), "mutation must drop the cached list")

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)

	require.NoError(t, svc.Delete(ctx, db, owner, id))
	assert.False(t, mr.Exists(key))

	tasks, err = svc.List(ctx, db, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCachedListSurvivesRedisOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := cache.DefaultCacheConfig()
	cfg.Addr = mr.Addr()
	cfg.MaxRetries = 0
	cfg.DialTimeout = 100 * time.Millisecond
	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { redisCache.Close() })

	db, inner, _ := setupTaskService(t)
	svc := services.NewCachedTaskService(inner, redisCache)
	ctx := context.Background()
	owner := mustOwner(t)

	_, err = svc.Create(ctx, db, owner, services.CreateTaskInput{
		Title:       "Resilient",
		Description: "x",
		DueDate:     dueIn(1),
	})
	require.NoError(t, err)

	mr.Close()

	tasks, err := svc.List(ctx, db, owner)
	require.NoError(t, err, "cache failures fall through to the database")
	assert.Len(t, tasks, 1)
}
