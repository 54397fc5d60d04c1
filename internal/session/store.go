// Package session provides server-side session storage keyed by session identifier.
//
// A Store holds small opaque values per (session, key). Session binds one
// identifier to a store so callers cannot reach another session's values.
package session

import (
	"context"

	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// ErrInvalidSessionID indicates an empty session identifier.
var ErrInvalidSessionID = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid session id")

// Store persists values per session identifier. Every access to a live session
// restarts its idle timeout, reads included.
type Store interface {
	// Get returns the value for key. ok is false when the key or session is absent or expired.
	Get(ctx context.Context, sessionID, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
	// Keys lists the keys currently set for the session.
	Keys(ctx context.Context, sessionID string) ([]string, error)
	// Destroy removes the whole session.
	Destroy(ctx context.Context, sessionID string) error
	// Exists reports whether the store holds a live session with this identifier.
	Exists(ctx context.Context, sessionID string) (bool, error)
	Close() error
}

// Session is one session identifier bound to a Store.
type Session struct {
	id    string
	store Store
}

// New binds id to store.
func New(id string, store Store) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	return &Session{id: id, store: store}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key.
func (s *Session) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.store.Get(ctx, s.id, key)
}

// Set stores value under key.
func (s *Session) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Set(ctx, s.id, key, value)
}

// Delete removes key.
func (s *Session) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.id, key)
}

// Keys lists the keys set in this session.
func (s *Session) Keys(ctx context.Context) ([]string, error) {
	return s.store.Keys(ctx, s.id)
}

// Destroy removes every value of this session.
func (s *Session) Destroy(ctx context.Context) error {
	return s.store.Destroy(ctx, s.id)
}

type sessionKey struct{}

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok && sess != nil
}
