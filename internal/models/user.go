package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// User records are owned by the identity provider; the task core reads them
// only as the join key for profile data and never issues credentials.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Email        string    `json:"email" gorm:"unique;not null"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:OwnerID"`
}
