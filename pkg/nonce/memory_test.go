package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SeenNonce(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	ctx := context.Background()

	seen, err := store.SeenNonce(ctx, "activity-stream", "abc", 1)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.SeenNonce(ctx, "activity-stream", "abc", 1)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.SeenNonce(ctx, "data-hub", "abc", 1)
	require.NoError(t, err)
	assert.False(t, seen)

	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10, 50*time.Millisecond)
	ctx := context.Background()

	_, err := store.SeenNonce(ctx, "id", "n", 1)
	require.NoError(t, err)

	time.Sleep(MaxLifetime(50*time.Millisecond) + 100*time.Millisecond)

	seen, err := store.SeenNonce(ctx, "id", "n", 1)
	require.NoError(t, err)
	assert.False(t, seen, "nonce should be forgotten after its lifetime")
	assert.Zero(t, store.EarlyEvictions(), "expiry is not an early eviction")
}

func TestMemoryStore_EarlyEviction(t *testing.T) {
	store := NewMemoryStore(1, time.Minute)
	var hooked int
	store.OnEarlyEviction(func() { hooked++ })
	ctx := context.Background()
	ts := time.Now().Unix()

	seen, err := store.SeenNonce(ctx, "activity-stream", "first", ts)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.SeenNonce(ctx, "activity-stream", "second", ts)
	require.NoError(t, err)
	assert.False(t, seen)

	assert.Equal(t, uint64(1), store.EarlyEvictions())
	assert.Equal(t, 1, hooked)

	// the evicted nonce is no longer detected
	seen, err = store.SeenNonce(ctx, "activity-stream", "first", ts)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStore_StaleEvictionNotCounted(t *testing.T) {
	store := NewMemoryStore(1, time.Minute)
	ctx := context.Background()

	_, err := store.SeenNonce(ctx, "id", "old", 1)
	require.NoError(t, err)
	_, err = store.SeenNonce(ctx, "id", "new", 2)
	require.NoError(t, err)

	assert.Zero(t, store.EarlyEvictions())
}

func TestLifetime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	skew := time.Minute

	assert.Equal(t, skew+time.Second, Lifetime(now.Unix(), skew, now))
	assert.Equal(t, MaxLifetime(skew), Lifetime(now.Add(skew).Unix(), skew, now))
	assert.Equal(t, time.Second, Lifetime(now.Add(-skew).Unix(), skew, now))
	assert.Equal(t, time.Second, Lifetime(1, skew, now))
}

func TestMemoryStore_Defaults(t *testing.T) {
	store := NewMemoryStore(0, 0)
	assert.NoError(t, store.HealthCheck(context.Background()))
	assert.NoError(t, store.Close())
}
