package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix namespaces nonce keys
const DefaultPrefix = "hawk"

// RedisConfig configures the Redis connection
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	Skew       time.Duration // Hawk timestamp window; nonce lifetimes derive from it
	Prefix     string
}

// RedisStore records nonces in Redis with SETNX so concurrent instances agree
type RedisStore struct {
	client *redis.Client
	skew   time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.Password != "" {
		opts.Password = config.Password
	}
	if config.DB > 0 {
		opts.DB = config.DB
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, config.Skew, config.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, skew time.Duration, prefix string) *RedisStore {
	if skew <= 0 {
		skew = DefaultSkew
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{
		client: client,
		skew:   skew,
		prefix: prefix,
		now:    time.Now,
	}
}

// SeenNonce implements hawk.NonceChecker. The key lives until ts can no
// longer pass the skew check.
func (s *RedisStore) SeenNonce(ctx context.Context, id, nonce string, ts int64) (bool, error) {
	ttl := Lifetime(ts, s.skew, s.now())
	stored, err := s.client.SetNX(ctx, Key(s.prefix, id, nonce), ts, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return !stored, nil
}

// HealthCheck verifies Redis connectivity
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for health checks
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
