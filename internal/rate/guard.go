// Package rate guards the login endpoint against brute-force bursts with
// per-client-IP failure counters in Redis.
//
// Counting is per-IP only; a distributed attacker rotating source addresses
// is not mitigated by this layer. That is an accepted limitation of the
// design, not an oversight.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultMaxAttempts is the failed-login budget per IP.
	DefaultMaxAttempts = 3
	// DefaultBlockDuration is the rolling block window.
	DefaultBlockDuration = 60 * time.Second
)

var (
	// ErrBlocked means the IP has exhausted its attempt budget.
	ErrBlocked = errors.New("too many failed attempts")
	// ErrUnavailable means the counter backend could not be asked.
	ErrUnavailable = errors.New("rate guard unavailable")
)

// BlockedError reports a blocked IP along with the time remaining until the
// block lapses, for the caller-facing message and Retry-After header.
type BlockedError struct {
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %ds", int(e.RetryAfter.Seconds()))
}

func (e *BlockedError) Is(target error) bool { return target == ErrBlocked }

// Config holds the guard's tuning parameters.
type Config struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// Guard is a per-IP failure counter with a rolling block window.
// Two states per IP: open (attempts < max) and blocked (attempts >= max
// while the TTL is live).
type Guard struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Guard] backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Guard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = DefaultBlockDuration
	}
	return &Guard{redis: client, config: cfg}
}

func key(ip string) string { return "rate:" + ip }

// Check reports whether a login attempt from the IP may proceed. It runs
// before any credential verification so a blocked burst costs no user
// lookups. Returns a [*BlockedError] when the budget is exhausted.
func (g *Guard) Check(ctx context.Context, ip string) error {
	count, err := g.redis.Get(ctx, key(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count < int64(g.config.MaxAttempts) {
		return nil
	}

	ttl, err := g.redis.TTL(ctx, key(ip)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl <= 0 {
		ttl = g.config.BlockDuration
	}
	return &BlockedError{RetryAfter: ttl}
}

// RecordFailure counts a failed attempt and re-arms the block window.
// The TTL is reset on every failure (sliding reset), so a probing client
// keeps itself blocked by continuing to fail.
func (g *Guard) RecordFailure(ctx context.Context, ip string) error {
	if err := g.redis.Incr(ctx, key(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := g.redis.Expire(ctx, key(ip), g.config.BlockDuration).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Reset clears the counter after a successful authentication, forcing the
// IP back to the open state.
func (g *Guard) Reset(ctx context.Context, ip string) error {
	if err := g.redis.Del(ctx, key(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
