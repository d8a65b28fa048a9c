package rp

import (
	"context"
	"sync"
)

// Session keys the flow reserves within a browser-scoped SessionStore. Hosts
// sharing a store with the flow must not write these keys themselves.
const (
	SessionKeyState        = "oidc_auth_state"
	SessionKeyNonce        = "oidc_auth_nonce"
	SessionKeyIdToken      = "oidc_auth_id_token"
	SessionKeySubject      = "oidc_auth_subject"
	SessionKeyNextURL      = "oidc_auth_next_url"
	SessionKeySessionState = "oidc_auth_session_state"
)

// SessionStore is the key/value store, scoped to one browser session, that
// the flow keeps its cross-request artifacts in. Its lifecycle (cookies,
// expiry) belongs to the host. Implementations must be concurrently safe,
// since stores are used within concurrent http handlers.
//
// A missing key is reported as an empty value with a nil error. Errors are
// reserved for infrastructure failures and propagate out of the flow
// operations rather than turning into failure redirects.
type SessionStore interface {
	// Get returns the value for key, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value string) error

	// Pop returns the value for key and removes it in the same step, or ""
	// when the key is absent.
	Pop(ctx context.Context, key string) (string, error)
}

// MemoryStore is an in-memory SessionStore. It is concurrently safe and
// suitable for tests and single-process deployments; see the
// sessionstore/redis package for a production store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Pop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[key]
	delete(s.values, key)
	return v, nil
}
