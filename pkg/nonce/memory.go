package nonce

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultSkew matches the default Hawk skew window
	DefaultSkew = 60 * time.Second

	// DefaultMemorySize bounds the number of remembered nonces
	DefaultMemorySize = 100000
)

// Key builds the cache key for a nonce
func Key(prefix, id, nonce string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, id, nonce)
}

// Lifetime is how long a nonce sent with timestamp ts must be kept at now.
// The receiver accepts ts until now passes ts+skew; the extra second
// covers whole-second timestamps. It is never below one second.
func Lifetime(ts int64, skew time.Duration, now time.Time) time.Duration {
	d := time.Unix(ts, 0).Add(skew + time.Second).Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}

// MaxLifetime bounds Lifetime for any timestamp the receiver accepts
func MaxLifetime(skew time.Duration) time.Duration {
	return 2*skew + time.Second
}

// MemoryStore remembers nonces in a process-local expiring LRU.
// Entries are kept for MaxLifetime. Size must exceed the number of requests
// expected inside that time, otherwise nonces are evicted early and replays
// inside the window pass; EarlyEvictions counts those.
type MemoryStore struct {
	mu      sync.Mutex
	cache   *expirable.LRU[string, int64]
	skew    time.Duration
	early   atomic.Uint64
	onEarly func()
}

// NewMemoryStore creates an in-memory nonce store
func NewMemoryStore(size int, skew time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if skew <= 0 {
		skew = DefaultSkew
	}
	s := &MemoryStore{skew: skew}
	s.cache = expirable.NewLRU[string, int64](size, s.evicted, MaxLifetime(skew))
	return s
}

// OnEarlyEviction registers fn to run whenever a nonce is evicted while its
// timestamp could still be accepted. Call it before the store is used.
func (s *MemoryStore) OnEarlyEviction(fn func()) {
	s.onEarly = fn
}

// EarlyEvictions returns how many nonces were dropped for lack of space
func (s *MemoryStore) EarlyEvictions() uint64 {
	return s.early.Load()
}

func (s *MemoryStore) evicted(_ string, ts int64) {
	if time.Now().After(time.Unix(ts, 0).Add(s.skew + time.Second)) {
		return
	}
	s.early.Add(1)
	if s.onEarly != nil {
		s.onEarly()
	}
}

// SeenNonce implements hawk.NonceChecker
func (s *MemoryStore) SeenNonce(_ context.Context, id, nonce string, ts int64) (bool, error) {
	key := Key(DefaultPrefix, id, nonce)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(key); ok {
		return true, nil
	}
	s.cache.Add(key, ts)
	return false, nil
}

// Len returns the number of live nonces
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
