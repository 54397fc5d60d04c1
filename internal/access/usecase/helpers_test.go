package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	accessService "github.com/openspace-ehr/phiguard/internal/access/service"
	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	"github.com/openspace-ehr/phiguard/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedEvent struct {
	Action    auditDomain.Action
	Details   string
	PatientID *string
}

// recordingSink keeps every event in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) LogEvent(
	_ context.Context,
	action auditDomain.Action,
	_ string,
	details string,
	patientID *string,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Action: action, Details: details, PatientID: patientID})
}

func (r *recordingSink) actions() []auditDomain.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]auditDomain.Action, 0, len(r.events))
	for _, e := range r.events {
		actions = append(actions, e.Action)
	}
	return actions
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type guardFixture struct {
	guard   *patientAccessGuard
	limiter *sessionAttemptLimiter
	sink    *recordingSink
	clock   *fakeClock
	store   *session.MemoryStore
}

func newGuardFixture(t *testing.T, protectionEnabled bool) *guardFixture {
	t.Helper()

	store := session.NewMemoryStore(0, time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	clock := newFakeClock()
	limiter := NewAttemptLimiter(0, 0).(*sessionAttemptLimiter)
	limiter.now = clock.Now

	sink := &recordingSink{}
	guard := NewPatientAccessGuard(
		NewStaticProtectionSetting(protectionEnabled),
		accessService.NewGrantSigner([]byte("server-secret")),
		accessService.NewDOBMatcher(),
		limiter,
		sink,
		0,
		discardLogger(),
	).(*patientAccessGuard)
	guard.now = clock.Now

	return &guardFixture{guard: guard, limiter: limiter, sink: sink, clock: clock, store: store}
}

func (f *guardFixture) session(t *testing.T, id string) *session.Session {
	t.Helper()
	sess, err := session.New(id, f.store)
	require.NoError(t, err)
	return sess
}

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func newFailingStore() *failingStore {
	return &failingStore{err: errors.New("session backend unavailable")}
}

func (f *failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, f.err
}

func (f *failingStore) Set(context.Context, string, string, []byte) error { return f.err }

func (f *failingStore) Delete(context.Context, string, string) error { return f.err }

func (f *failingStore) Keys(context.Context, string) ([]string, error) { return nil, f.err }

func (f *failingStore) Destroy(context.Context, string) error { return f.err }

func (f *failingStore) Exists(context.Context, string) (bool, error) { return false, f.err }

func (f *failingStore) Close() error { return nil }

func newFailingSession() (*session.Session, error) {
	return session.New("session-failing", newFailingStore())
}
