package services

import (
	"context"
	"fmt"
	"time"

	"pracsphere/backend/internal/models"
	"pracsphere/backend/internal/storage"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    models.TaskPriority
	Images      []storage.File
}

// UpdateTaskInput carries full-replace semantics: every field is required.
// Images and creation time are not touched by an update.
type UpdateTaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      models.TaskStatus
	Priority    models.TaskPriority
}

type TaskService interface {
	Create(ctx context.Context, db *gorm.DB, owner uuid.UUID, input CreateTaskInput) (uuid.UUID, error)
	List(ctx context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Task, error)
	Update(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, input UpdateTaskInput) error
	PatchStatus(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, status models.TaskStatus) error
	Delete(ctx context.Context, db *gorm.DB, owner, id uuid.UUID) error
}

type TaskServiceImpl struct {
	uploads *storage.ImagePipeline
}

func NewTaskService(uploads *storage.ImagePipeline) *TaskServiceImpl {
	return &TaskServiceImpl{uploads: uploads}
}

// Create validates input, pushes attachments through the image pipeline and
// persists the task. If any upload fails nothing is persisted.
func (s *TaskServiceImpl) Create(ctx context.Context, db *gorm.DB, owner uuid.UUID, input CreateTaskInput) (uuid.UUID, error) {
	if owner == uuid.Nil {
		return uuid.Nil, ErrUnauthenticated
	}
	if input.Title == "" {
		return uuid.Nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Description == "" {
		return uuid.Nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if input.DueDate.IsZero() {
		return uuid.Nil, fmt.Errorf("%w: dueDate is required", ErrValidation)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return uuid.Nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	imageURLs, err := s.uploads.UploadAll(ctx, input.Images)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerID:     owner,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Status:      models.StatusPending,
		Priority:    priority,
		Images:      imageURLs,
	}

	if err := db.WithContext(ctx).Create(&task).Error; err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return task.ID, nil
}

// List returns every task belonging to owner, closest due date first.
func (s *TaskServiceImpl) List(ctx context.Context, db *gorm.DB, owner uuid.UUID) ([]models.Task, error) {
	if owner == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	var tasks []models.Task
	result := db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("due_date ASC").
		Find(&tasks)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}

	return tasks, nil
}

// Update replaces the five mutable fields in one statement. The lookup
// filters on id AND owner in the same predicate, so a foreign id and a
// missing id are both ErrNotFound. Last write wins; there is no version
// check.
func (s *TaskServiceImpl) Update(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, input UpdateTaskInput) error {
	if owner == uuid.Nil {
		return ErrUnauthenticated
	}
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if input.DueDate.IsZero() {
		return fmt.Errorf("%w: dueDate is required", ErrValidation)
	}
	if !input.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	if !input.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	result := db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Updates(map[string]interface{}{
			"title":       input.Title,
			"description": input.Description,
			"due_date":    input.DueDate,
			"status":      input.Status,
			"priority":    input.Priority,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// PatchStatus updates only the status, with the same ownership-filtered
// lookup as Update.
func (s *TaskServiceImpl) PatchStatus(ctx context.Context, db *gorm.DB, owner, id uuid.UUID, status models.TaskStatus) error {
	if owner == uuid.Nil {
		return ErrUnauthenticated
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	result := db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the task if owner holds it. Deleting a missing or foreign
// id is a no-op, not an error.
func (s *TaskServiceImpl) Delete(ctx context.Context, db *gorm.DB, owner, id uuid.UUID) error {
	if owner == uuid.Nil {
		return ErrUnauthenticated
	}

	result := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&models.Task{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}

	return nil
}
