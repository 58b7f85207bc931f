package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/exportwins/winsmi/pkg/observability"
)

// Config configures retry behavior
type Config struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultConfig suits dependency connections at startup
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Policy implements exponential backoff
type Policy struct {
	config Config
}

// NewPolicy creates a policy, filling unset fields from DefaultConfig
func NewPolicy(config Config) *Policy {
	def := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = def.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = def.MaxDelay
	}
	if config.BackoffMultiplier <= 1.0 {
		config.BackoffMultiplier = def.BackoffMultiplier
	}

	return &Policy{config: config}
}

// ShouldRetry reports whether another attempt is allowed after attempts failures
func (p *Policy) ShouldRetry(attempts int, err error) bool {
	return err != nil && attempts < p.config.MaxAttempts
}

// NextDelay returns the wait after the given number of failed attempts
func (p *Policy) NextDelay(attempts int) time.Duration {
	if attempts <= 0 {
		return p.config.InitialDelay
	}

	// delay = initialDelay * (multiplier ^ (attempts - 1))
	delay := float64(p.config.InitialDelay) * math.Pow(p.config.BackoffMultiplier, float64(attempts-1))
	if delay > float64(p.config.MaxDelay) {
		return p.config.MaxDelay
	}
	return time.Duration(delay)
}

// Do calls fn until it succeeds, the policy gives up or ctx is done.
// The last error is returned.
func (p *Policy) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	logger := observability.FromContext(ctx).WithField("dependency", name)

	for attempts := 1; ; attempts++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !p.ShouldRetry(attempts, err) {
			return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempts, err)
		}

		delay := p.NextDelay(attempts)
		logger.WithError(err).Warnf("Attempt %d failed, retrying in %s", attempts, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
}
