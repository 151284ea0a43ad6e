// Package session identifies API and websocket clients.
//
// Each client owns its own credit ledger. The server hands out a session on
// first contact (cookie or X-Session-ID header) and scopes the ledger keys
// with [Session.Scope], so any cache backend can hold many clients side by
// side.
//
//	store := session.NewStore(backend)
//	sess, err := store.Resolve(ctx, idFromRequest)
//	l := ledger.New(backend, cache.NewScopedKeyer(nil, sess.Scope()), opts)
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/mailframe/pkg/cache"
)

// DefaultTTL is how long an idle session lives. Every Resolve extends it.
const DefaultTTL = 30 * 24 * time.Hour

// ErrInvalidID is returned for ids that are not UUIDs.
var ErrInvalidID = errors.New("invalid session id")

// Session is one client.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has lapsed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Scope is the cache key prefix for this client's data.
func (s *Session) Scope() string {
	return "client:" + s.ID + ":"
}

// New returns a session with a random UUID.
func New(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{ID: uuid.NewString(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// Local is the fixed session the CLI uses for its own ledger.
func Local() *Session {
	return &Session{ID: uuid.Nil.String(), ExpiresAt: time.Now().Add(100 * 365 * 24 * time.Hour)}
}

// Store keeps sessions in a cache backend.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewStore returns a store over c with DefaultTTL.
func NewStore(c cache.Cache) *Store {
	return &Store{cache: c, ttl: DefaultTTL}
}

// Get loads a session. A missing or expired session is (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	data, ok, err := s.cache.Get(ctx, key(id))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return &sess, nil
}

// Resolve returns the session for id, extending its lifetime, or creates a
// new one when id is empty, malformed, unknown or expired.
func (s *Store) Resolve(ctx context.Context, id string) (*Session, error) {
	var sess *Session
	if id != "" {
		got, err := s.Get(ctx, id)
		if err != nil && !errors.Is(err, ErrInvalidID) {
			return nil, err
		}
		sess = got
	}
	if sess == nil {
		sess = New(s.ttl)
	} else {
		sess.ExpiresAt = time.Now().Add(s.ttl)
	}
	if err := s.Set(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Set stores a session until it expires.
func (s *Store) Set(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, key(sess.ID), data, ttl)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, key(id))
}

func key(id string) string { return "session:" + id }
