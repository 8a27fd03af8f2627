// Package session is the revocable half of the hybrid auth model.
//
// A token is live if and only if its entry exists here; deleting the entry
// revokes the token even though its signature would still verify. Expiry is
// delegated entirely to Redis TTLs, with no in-process timers. The store owns
// the "session:" and "refresh:" keyspaces exclusively.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	accessPrefix  = "session:"
	refreshPrefix = "refresh:"
)

var (
	// ErrNotFound means the key holds no live entry: never issued,
	// explicitly revoked, or TTL-expired. Indistinguishable by design.
	ErrNotFound = errors.New("session not found")
	// ErrUnavailable means Redis could not be asked. Callers must not
	// treat this as "session invalid": an unreachable store must never
	// silently deauthenticate holders of valid tokens.
	ErrUnavailable = errors.New("session store unavailable")
)

// Record is the serialized copy of the token claims held per entry.
type Record struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Store is a Redis-backed session store keyed by token value.
type Store struct {
	redis redis.UniversalClient
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

// PutAccess upserts the access-session entry for a token. Overwriting an
// existing key resets its TTL.
func (s *Store) PutAccess(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	return s.put(ctx, accessPrefix+token, rec, ttl)
}

// PutRefresh upserts the refresh entry for a token.
func (s *Store) PutRefresh(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	return s.put(ctx, refreshPrefix+token, rec, ttl)
}

// GetAccess returns the live access-session entry for a token, or
// [ErrNotFound] if none exists.
func (s *Store) GetAccess(ctx context.Context, token string) (*Record, error) {
	return s.get(ctx, accessPrefix+token)
}

// GetRefresh returns the live refresh entry for a token without consuming it.
func (s *Store) GetRefresh(ctx context.Context, token string) (*Record, error) {
	return s.get(ctx, refreshPrefix+token)
}

// ConsumeRefresh atomically fetches and deletes the refresh entry (GETDEL).
// Under concurrent redemption of the same token exactly one caller observes
// the entry; the rest get [ErrNotFound]. This is what makes rotation
// single-use.
func (s *Store) ConsumeRefresh(ctx context.Context, token string) (*Record, error) {
	data, err := s.redis.GetDel(ctx, refreshPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decode(data)
}

// DeleteAccess removes the access-session entry. Deleting an absent key is
// not an error.
func (s *Store) DeleteAccess(ctx context.Context, token string) error {
	return s.delete(ctx, accessPrefix+token)
}

// DeleteRefresh removes the refresh entry. Idempotent.
func (s *Store) DeleteRefresh(ctx context.Context, token string) error {
	return s.delete(ctx, refreshPrefix+token)
}

// AccessTTL reports the remaining lifetime of the access-session entry, or
// [ErrNotFound] if no live entry exists.
func (s *Store) AccessTTL(ctx context.Context, token string) (time.Duration, error) {
	return s.ttl(ctx, accessPrefix+token)
}

// RefreshTTL reports the remaining lifetime of the refresh entry.
func (s *Store) RefreshTTL(ctx context.Context, token string) (time.Duration, error) {
	return s.ttl(ctx, refreshPrefix+token)
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (*Record, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decode(data)
}

func (s *Store) ttl(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// -2 means no such key, -1 means no expiry; entries always carry one.
	if d < 0 {
		return 0, ErrNotFound
	}
	return d, nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	return &rec, nil
}
