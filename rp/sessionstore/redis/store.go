// Package redis provides a Redis-backed rp.SessionStore.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authkeel/oidcrp/rp"
)

// DefaultTTL is the lifetime applied to session entries when no custom TTL
// is provided. Stale flow artifacts (a login that never completed) expire
// with the entry.
const DefaultTTL = 24 * time.Hour

// DefaultPrefix namespaces this package's keys within a shared Redis
// database.
const DefaultPrefix = "oidcsess"

// Store is a Redis-backed session store. Keys are namespaced by a browser
// session id, so one client serves any number of browser sessions. Every
// write refreshes the entry's TTL.
type Store struct {
	client    redis.UniversalClient
	sessionID string
	prefix    string
	ttl       time.Duration
}

var _ rp.SessionStore = (*Store)(nil)

// New creates a Store scoped to the browser session identified by
// sessionID.
func New(client redis.UniversalClient, sessionID string) (*Store, error) {
	return NewWithTTL(client, sessionID, DefaultTTL)
}

// NewWithTTL creates a Store with a custom entry TTL.
func NewWithTTL(client redis.UniversalClient, sessionID string, ttl time.Duration) (*Store, error) {
	const op = "redis.NewWithTTL"
	if client == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, rp.ErrNilParameter)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%s: session id is empty: %w", op, rp.ErrInvalidParameter)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl not greater than zero: %w", op, rp.ErrInvalidParameter)
	}
	return &Store{
		client:    client,
		sessionID: sessionID,
		prefix:    DefaultPrefix,
		ttl:       ttl,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const op = "redis.Store.Get"
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	const op = "redis.Store.Set"
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Pop uses GETDEL so concurrent callbacks racing to consume the same value
// cannot both observe it.
func (s *Store) Pop(ctx context.Context, key string) (string, error) {
	const op = "redis.Store.Pop"
	v, err := s.client.GetDel(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + s.sessionID + ":" + key
}
