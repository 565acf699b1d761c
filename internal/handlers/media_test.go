package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubStore struct {
	objects map[string][]byte
}

func (s *stubStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	s.objects[name] = data
	return nil
}

func (s *stubStore) Get(ctx context.Context, name string) ([]byte, string, error) {
	data, ok := s.objects[name]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return data, "image/png", nil
}

func (s *stubStore) Delete(ctx context.Context, name string) error {
	delete(s.objects, name)
	return nil
}

func setupMediaRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewMediaHandler(store)
	router := gin.New()
	router.GET("/media/*name", h.GetObject)
	return router
}

func TestGetObjectServesBytes(t *testing.T) {
	store := &stubStore{objects: map[string][]byte{
		"pracsphere-tasks/abc123.png": []byte("png bytes"),
	}}
	router := setupMediaRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/media/pracsphere-tasks/abc123.png", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", w.Body.String())
}

func TestGetObjectMissing(t *testing.T) {
	router := setupMediaRouter(&stubStore{objects: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/media/pracsphere-tasks/missing.png", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
