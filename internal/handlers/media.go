package handlers

import (
	"net/http"
	"strings"

	"pracsphere/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// MediaHandler serves attachment bytes from the object store under the
// stable URLs the image pipeline hands out.
type MediaHandler struct {
	store storage.ObjectStore
}

func NewMediaHandler(store storage.ObjectStore) *MediaHandler {
	return &MediaHandler{store: store}
}

func (h *MediaHandler) GetObject(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	if name == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	data, contentType, err := h.store.Get(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
		return
	}

	c.Data(http.StatusOK, contentType, data)
}
