package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	c := NewMemory(0)
	defer c.Close()
	c.now = func() time.Time { return now }

	t.Run("miss", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "feed:newest")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hit until ttl", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "feed:newest", []byte(`{"items":[]}`), 30*time.Second))

		value, ok, err := c.Get(ctx, "feed:newest")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"items":[]}`, string(value))

		now = now.Add(30 * time.Second)
		_, ok, _ = c.Get(ctx, "feed:newest")
		assert.False(t, ok, "Запись должна истечь ровно по TTL")
	})

	t.Run("zero ttl is not stored", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "feed:top", []byte("x"), 0))
		_, ok, _ := c.Get(ctx, "feed:top")
		assert.False(t, ok)
	})

	t.Run("evict expired", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Second))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
		now = now.Add(time.Minute)

		c.evictExpired()
		c.mu.RLock()
		defer c.mu.RUnlock()
		assert.NotContains(t, c.entries, "a")
		assert.Contains(t, c.entries, "b")
	})
}

func TestMemoryCloseTwice(t *testing.T) {
	c := NewMemory(time.Millisecond)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}
