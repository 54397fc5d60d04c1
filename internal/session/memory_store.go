package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory with a sliding idle timeout.
// A background janitor evicts idle sessions until Close is called.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type memorySession struct {
	values     map[string][]byte
	lastAccess time.Time
}

// NewMemoryStore creates a MemoryStore whose sessions expire after ttl of inactivity.
// The janitor runs every cleanupInterval.
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return newMemoryStore(ttl, cleanupInterval, time.Now)
}

func newMemoryStore(ttl, cleanupInterval time.Duration, now func() time.Time) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	go m.janitor(cleanupInterval)

	return m
}

func (m *MemoryStore) janitor(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryStore) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
		}
	}
}

func (m *MemoryStore) expired(s *memorySession, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.lastAccess) >= m.ttl
}

// live returns the session and refreshes its idle timer. Caller holds mu.
func (m *MemoryStore) live(sessionID string) *memorySession {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	now := m.now()
	if m.expired(s, now) {
		delete(m.sessions, sessionID)
		return nil
	}
	s.lastAccess = now
	return s
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live(sessionID)
	if s == nil {
		return nil, false, nil
	}
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set stores a copy of value under key, creating the session if needed.
func (m *MemoryStore) Set(ctx context.Context, sessionID, key string, value []byte) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live(sessionID)
	if s == nil {
		s = &memorySession{values: make(map[string][]byte), lastAccess: m.now()}
		m.sessions[sessionID] = s
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key from the session.
func (m *MemoryStore) Delete(ctx context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.live(sessionID); s != nil {
		delete(s.values, key)
	}
	return nil
}

// Keys lists the session's keys in sorted order.
func (m *MemoryStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.live(sessionID)
	if s == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Destroy removes the session.
func (m *MemoryStore) Destroy(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// Exists reports whether sessionID names a live session and refreshes its idle timer.
func (m *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live(sessionID) != nil, nil
}

// Len returns the number of sessions held, including idle ones not yet evicted.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the janitor and waits for it to exit. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
	return nil
}
