package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pracsphere/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type ProfileService interface {
	GetProfileImage(ctx context.Context, db *gorm.DB, email string) (string, error)
	SetProfileImage(ctx context.Context, db *gorm.DB, email, image string) error
	RemoveProfileImage(ctx context.Context, db *gorm.DB, email string) error
}

type ProfileServiceImpl struct{}

func NewProfileService() *ProfileServiceImpl {
	return &ProfileServiceImpl{}
}

// GetProfileImage returns the stored image payload, or "" when the user has
// none. An unknown email is not an error: the caller is authenticated, the
// record just has not been written yet.
func (s *ProfileServiceImpl) GetProfileImage(ctx context.Context, db *gorm.DB, email string) (string, error) {
	if email == "" {
		return "", ErrUnauthenticated
	}

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return user.ProfileImage, nil
}

// SetProfileImage stores a data-URI image payload, creating the user record
// on first write.
func (s *ProfileServiceImpl) SetProfileImage(ctx context.Context, db *gorm.DB, email, image string) error {
	if email == "" {
		return ErrUnauthenticated
	}
	if image == "" {
		return fmt.Errorf("%w: no image provided", ErrValidation)
	}
	if !strings.HasPrefix(image, "data:image/") {
		return fmt.Errorf("%w: invalid image format", ErrValidation)
	}

	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("profile_image", image)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}
	if result.RowsAffected == 0 {
		user := models.User{
			ID:           uuid.Must(uuid.NewV4()),
			Email:        email,
			ProfileImage: image,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpstream, err)
		}
	}

	return nil
}

// RemoveProfileImage clears the stored image. Removing an image that was
// never set succeeds.
func (s *ProfileServiceImpl) RemoveProfileImage(ctx context.Context, db *gorm.DB, email string) error {
	if email == "" {
		return ErrUnauthenticated
	}

	result := db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("profile_image", "")
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, result.Error)
	}

	return nil
}
