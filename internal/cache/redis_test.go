package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := DefaultCacheConfig()
	cfg.Addr = mr.Addr()
	c := NewRedisCache(cfg)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupCache(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.Set("k", payload{Name: "tasks", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, c.Get("k", &got))
	assert.Equal(t, "tasks", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestGetMissingKeyIsCacheMiss(t *testing.T) {
	c, _ := setupCache(t)

	var got string
	err := c.Get("absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetAfterExpiry(t *testing.T) {
	c, mr := setupCache(t)

	require.NoError(t, c.Set("k", "v", 50*time.Millisecond))
	mr.FastForward(time.Second)

	var got string
	err := c.Get("k", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c, _ := setupCache(t)

	require.NoError(t, c.Set("k", "v", time.Minute))
	require.NoError(t, c.Delete("k"))

	var got string
	assert.ErrorIs(t, c.Get("k", &got), ErrCacheMiss)

	// Deleting a missing key is not an error.
	assert.NoError(t, c.Delete("k"))
}

func TestHealth(t *testing.T) {
	c, mr := setupCache(t)

	assert.NoError(t, c.Health())

	mr.Close()
	assert.Error(t, c.Health())
}

func TestSetRejectsUnmarshalableValue(t *testing.T) {
	c, _ := setupCache(t)

	err := c.Set("k", make(chan int), time.Minute)
	assert.Error(t, err)
}

func TestNilConfigUsesDefaults(t *testing.T) {
	c := NewRedisCache(nil)
	defer c.Close()

	assert.NotNil(t, c.Client())
}
