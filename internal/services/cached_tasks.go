package services

import (
	"context"
	"fmt"
	"time"

	"pracsphere/backend/internal/cache"
	"pracsphere/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const listCacheTTL = 10 * time.Minute

// CachedTaskService is a read-through decorator over TaskService. Only the
// per-owner list is cached; every mutation drops that owner's entry so the
// next list hits the database.
type CachedTaskService struct {
	taskService TaskService
	cache       *cache.RedisCache
}

func NewCachedTaskService(taskService TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
	}
}

func listCacheKey(owner uuid.UUID) string {
	return fmt.Sprintf("owner_tasks:%s", owner.String())
}

func (s *CachedTaskService) Create(ctx context.Context, db *gorm.DB, owner uuid.UUID, input CreateTaskInput) (uuid.UUID, error) {
	id, err := s.taskService.Create(ctx, db, owner, input)
	if err != nil {
		return id, err
	}

	s.cache.Delete(listCacheKey(owner))
	return id, nil
}

func (s *CachedTaskService) List(ctx context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Task, error) {
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	key := listCacheKey(owner)

	var cached []models.Task
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.taskService.List(ctx, db, owner)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, tasks, listCacheTTL)
	return tasks, nil
}

func (s *CachedTaskService) Update(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, input UpdateTaskInput) error {
	if err := s.taskService.Update(ctx, db, owner, id, input); err != nil {
		return err
	}

	s.cache.Delete(listCacheKey(owner))
	return nil
}

func (s *CachedTaskService) PatchStatus(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, status models.TaskStatus) error {
	if err := s.taskService.PatchStatus(ctx, db, owner, id, status); err != nil {
		return err
	}

	s.cache.Delete(listCacheKey(owner))
	return nil
}

func (s *CachedTaskService) Delete(ctx context.Context, db *gorm.DB, owner, id uuid.UUID) error {
	if err := s.taskService.Delete(ctx, db, owner, id); err != nil {
		return err
	}

	s.cache.Delete(listCacheKey(owner))
	return nil
}
