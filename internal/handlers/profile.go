package handlers

import (
	"net/http"

	"pracsphere/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProfileHandler struct {
	db             *gorm.DB
	profileService services.ProfileService
}

func NewProfileHandler(db *gorm.DB, profileService services.ProfileService) *ProfileHandler {
	return &ProfileHandler{db: db, profileService: profileService}
}

func emailFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get("email")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}

	email, ok := v.(string)
	if !ok || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}

	return email, true
}

// GetProfilePicture returns the stored image, or null when none is set.
func (h *ProfileHandler) GetProfilePicture(c *gin.Context) {
	email, ok := emailFromContext(c)
	if !ok {
		return
	}

	image, err := h.profileService.GetProfileImage(c.Request.Context(), h.db, email)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if image == "" {
		c.JSON(http.StatusOK, gin.H{"profileImage": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profileImage": image})
}

// SetProfilePicture stores a data-URI image payload for the caller.
func (h *ProfileHandler) SetProfilePicture(c *gin.Context) {
	email, ok := emailFromContext(c)
	if !ok {
		return
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	if err := h.profileService.SetProfileImage(c.Request.Context(), h.db, email, body.Image); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile picture updated successfully",
	})
}

func (h *ProfileHandler) RemoveProfilePicture(c *gin.Context) {
	email, ok := emailFromContext(c)
	if !ok {
		return
	}

	if err := h.profileService.RemoveProfileImage(c.Request.Context(), h.db, email); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile picture removed successfully",
	})
}
