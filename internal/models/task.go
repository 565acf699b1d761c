package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ImageList is stored as a JSON array column. Image URLs are only ever
// replaced wholesale, never edited in place.
type ImageList []string

type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID    `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description" gorm:"not null"`
	DueDate     time.Time    `json:"due_date" gorm:"not null"`
	Status      TaskStatus   `json:"status" gorm:"not null;default:'pending'"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:'medium'"`
	Images      ImageList    `json:"images" gorm:"serializer:json"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities for sorting: high(3) > medium(2) > low(1).
// Unset or unknown priorities rank as low.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}
