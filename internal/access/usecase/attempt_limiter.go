package usecase

import (
	"context"
	"time"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	"github.com/openspace-ehr/phiguard/internal/session"
)

// sessionAttemptLimiter keeps a rolling list of failure times in the session.
type sessionAttemptLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewAttemptLimiter creates an AttemptLimiter that locks a (session, patient)
// pair after maxAttempts failures within window. Non-positive values fall back
// to 5 attempts per 15 minutes.
func NewAttemptLimiter(maxAttempts int, window time.Duration) AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = accessDomain.DefaultMaxAttempts
	}
	if window <= 0 {
		window = accessDomain.DefaultLockoutWindow
	}
	return &sessionAttemptLimiter{maxAttempts: maxAttempts, window: window, now: time.Now}
}

func (s *sessionAttemptLimiter) load(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (*accessDomain.Attempts, error) {
	data, ok, err := sess.Get(ctx, accessDomain.AttemptsKey(patientID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read verification attempts")
	}
	if !ok {
		return &accessDomain.Attempts{}, nil
	}

	attempts, err := accessDomain.UnmarshalAttempts(data)
	if err != nil {
		// A corrupted counter must not unlock the pair; start from a full window.
		failures := make([]time.Time, s.maxAttempts)
		for i := range failures {
			failures[i] = s.now()
		}
		return &accessDomain.Attempts{Failures: failures}, nil
	}
	attempts.Prune(s.now(), s.window)
	return attempts, nil
}

// Locked reports whether the failure count inside the window reached the limit.
func (s *sessionAttemptLimiter) Locked(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (bool, time.Duration, error) {
	attempts, err := s.load(ctx, sess, patientID)
	if err != nil {
		return true, 0, err
	}
	if len(attempts.Failures) < s.maxAttempts {
		return false, 0, nil
	}
	return true, attempts.RetryAfter(s.now(), s.window), nil
}

// RecordFailure appends a failure at the current time.
func (s *sessionAttemptLimiter) RecordFailure(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (bool, error) {
	attempts, err := s.load(ctx, sess, patientID)
	if err != nil {
		return false, err
	}
	attempts.Failures = append(attempts.Failures, s.now())

	data, err := accessDomain.MarshalAttempts(attempts)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to encode verification attempts")
	}
	if err := sess.Set(ctx, accessDomain.AttemptsKey(patientID), data); err != nil {
		return false, apperrors.Wrap(err, "failed to store verification attempts")
	}
	return len(attempts.Failures) >= s.maxAttempts, nil
}

// Reset clears the failures after a successful verification.
func (s *sessionAttemptLimiter) Reset(ctx context.Context, sess *session.Session, patientID string) error {
	if err := sess.Delete(ctx, accessDomain.AttemptsKey(patientID)); err != nil {
		return apperrors.Wrap(err, "failed to clear verification attempts")
	}
	return nil
}
