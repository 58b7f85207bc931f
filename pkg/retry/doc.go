// Package retry retries dependency connections with exponential backoff.
//
//	policy := retry.NewPolicy(retry.DefaultConfig())
//	err := policy.Do(ctx, "redis", func(ctx context.Context) error {
//		store, err = nonce.NewRedisStore(cfg)
//		return err
//	})
package retry
