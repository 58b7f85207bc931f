package nonce

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	store, err := NewRedisStore(RedisConfig{
		URL:        "redis://" + mr.Addr(),
		Skew:       time.Minute,
		MaxRetries: 1,
		PoolSize:   5,
	})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create Redis nonce store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
		mr.Close()
	})
	return store, mr
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{URL: "invalid://url"})
	assert.Error(t, err)
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{URL: "redis://localhost:9999"})
	assert.Error(t, err)
}

func TestRedisStore_SeenNonce(t *testing.T) {
	store, mr := setupRedisStoreTest(t)
	ctx := context.Background()

	seen, err := store.SeenNonce(ctx, "activity-stream", "j4h3g2", 1700000000)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.SeenNonce(ctx, "activity-stream", "j4h3g2", 1700000000)
	require.NoError(t, err)
	assert.True(t, seen)

	t.Run("nonces are scoped per credential", func(t *testing.T) {
		seen, err := store.SeenNonce(ctx, "data-hub", "j4h3g2", 1700000000)
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("key layout", func(t *testing.T) {
		assert.True(t, mr.Exists("hawk:activity-stream:j4h3g2"))
	})

	t.Run("stale timestamps keep the minimum ttl", func(t *testing.T) {
		assert.Equal(t, time.Second, mr.TTL("hawk:activity-stream:j4h3g2"))
		mr.FastForward(2 * time.Second)
		seen, err := store.SeenNonce(ctx, "activity-stream", "j4h3g2", 1700000000)
		require.NoError(t, err)
		assert.False(t, seen)
	})
}

func TestRedisStore_FutureTimestampOutlivesSkew(t *testing.T) {
	store, mr := setupRedisStoreTest(t)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	// stamped a full skew ahead of the server clock
	ts := now.Add(time.Minute).Unix()

	seen, err := store.SeenNonce(ctx, "data-flow", "ahead", ts)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 2*time.Minute+time.Second, mr.TTL("hawk:data-flow:ahead"))

	mr.FastForward(119 * time.Second)
	seen, err = store.SeenNonce(ctx, "data-flow", "ahead", ts)
	require.NoError(t, err)
	assert.True(t, seen, "nonce must be kept while its timestamp is inside the window")

	mr.FastForward(3 * time.Second)
	seen, err = store.SeenNonce(ctx, "data-flow", "ahead", ts)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStore_ConcurrentNonce(t *testing.T) {
	store, _ := setupRedisStoreTest(t)

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := store.SeenNonce(context.Background(), "data-flow", "race", 1)
			if err == nil && !seen {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load(), "exactly one request may claim a nonce")
}

func TestRedisStore_Errors(t *testing.T) {
	store, mr := setupRedisStoreTest(t)
	require.NoError(t, store.HealthCheck(context.Background()))

	mr.SetError("LOADING")
	_, err := store.SeenNonce(context.Background(), "id", "n", 1)
	assert.Error(t, err)
	assert.Error(t, store.HealthCheck(context.Background()))
}

func TestNewRedisStoreFromClient_Defaults(t *testing.T) {
	store, _ := setupRedisStoreTest(t)
	wrapped := NewRedisStoreFromClient(store.Client(), 0, "")
	assert.Equal(t, DefaultSkew, wrapped.skew)
	assert.Equal(t, DefaultPrefix, wrapped.prefix)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "hawk:id:nonce", Key("hawk", "id", "nonce"))
	assert.Equal(t, fmt.Sprintf("%s:a:b", DefaultPrefix), Key(DefaultPrefix, "a", "b"))
}
