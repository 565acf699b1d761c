package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"pracsphere/backend/internal/analytics"
	"pracsphere/backend/internal/models"
	"pracsphere/backend/internal/query"
	"pracsphere/backend/internal/services"
	"pracsphere/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

// ownerFromContext reads the identity resolved by the auth middleware.
func ownerFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}

	owner, ok := v.(uuid.UUID)
	if !ok || owner == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}

	return owner, true
}

// CreateTask accepts a multipart form: title, description, dueDate
// (YYYY-MM-DD), optional priority and zero or more image files.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	description := c.PostForm("description")
	dueDateStr := c.PostForm("dueDate")
	priority := c.PostForm("priority")

	if title == "" || description == "" || dueDateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required fields (title, description, dueDate)",
		})
		return
	}

	dueDate, err := time.Parse(dateLayout, dueDateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be formatted as YYYY-MM-DD"})
		return
	}

	files, err := imageFiles(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded images"})
		return
	}

	input := services.CreateTaskInput{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		Priority:    models.TaskPriority(priority),
		Images:      files,
	}

	id, err := h.taskService.Create(c.Request.Context(), h.db, owner, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func imageFiles(c *gin.Context) ([]storage.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	headers := form.File["images"]
	files := make([]storage.File, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, err
		}

		files = append(files, storage.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return files, nil
}

// GetTasks lists the caller's tasks and applies the optional query
// parameters: status (all|pending|completed), q (search term) and sortBy
// (dueDate|priority|status).
func (h *TaskHandler) GetTasks(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), h.db, owner)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	statusFilter := query.StatusFilter(c.DefaultQuery("status", string(query.FilterAll)))
	term := c.Query("q")
	sortBy := query.SortKey(c.DefaultQuery("sortBy", string(query.SortByDueDate)))

	c.JSON(http.StatusOK, query.Apply(tasks, statusFilter, term, sortBy))
}

// UpdateTask is a full replace: every mutable field must be present.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))

	var taskInput struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		DueDate     string `json:"dueDate" binding:"required"`
		Status      string `json:"status" binding:"required"`
		Priority    string `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&taskInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields for update"})
		return
	}

	dueDate, err := time.Parse(dateLayout, taskInput.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be formatted as YYYY-MM-DD"})
		return
	}

	input := services.UpdateTaskInput{
		Title:       taskInput.Title,
		Description: taskInput.Description,
		DueDate:     dueDate,
		Status:      models.TaskStatus(taskInput.Status),
		Priority:    models.TaskPriority(taskInput.Priority),
	}

	if err := h.taskService.Update(c.Request.Context(), h.db, owner, id, input); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task updated successfully"})
}

// PatchTaskStatus flips only the status field.
func (h *TaskHandler) PatchTaskStatus(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))

	var patchInput struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&patchInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing task status"})
		return
	}

	err := h.taskService.PatchStatus(c.Request.Context(), h.db, owner, id, models.TaskStatus(patchInput.Status))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task updated"})
}

// DeleteTask is idempotent: deleting a missing or foreign id still reports
// success.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	id := uuid.FromStringOrNil(c.Param("id"))

	if err := h.taskService.Delete(c.Request.Context(), h.db, owner, id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// GetDashboardStats derives the analytics snapshot from the caller's tasks.
func (h *TaskHandler) GetDashboardStats(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), h.db, owner)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics.Compute(tasks, time.Now()))
}

func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	default:
		logrus.WithError(err).Error("task request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
	}
}
