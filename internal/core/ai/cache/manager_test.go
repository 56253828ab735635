package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustynaSek/Fridge-To-Feast/internal/infrastructure/config"
)

func newTestManager(maxSize int, ttl time.Duration) *CacheManager {
	return NewManager(config.CacheConfig{Enabled: true, MaxSize: maxSize, TTL: ttl})
}

func TestManagerGetSet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(10, time.Minute)
	defer m.Close()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", "v"))
	val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
}

func TestManagerExpiry(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(10, 10*time.Millisecond)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", "v"))
	time.Sleep(20 * time.Millisecond)

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestManagerEvictsLeastUsed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(2, time.Minute)
	defer m.Close()

	require.NoError(t, m.Set(ctx, "a", "1"))
	require.NoError(t, m.Set(ctx, "b", "2"))
	_, _ = m.Get(ctx, "a")

	require.NoError(t, m.Set(ctx, "c", "3"))

	_, err := m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	val, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("ns", "a", "b"), Key("ns", "a", "b"))
	assert.NotEqual(t, Key("ns", "ab"), Key("ns", "a", "b"))
	assert.Contains(t, Key("filter", "x"), "filter:")
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)

	c := NewRedisCache(client, time.Minute)
	defer c.Close()

	key := Key("test", t.Name(), time.Now().String())
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, key, "value"))
	val, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "value", val)
}
