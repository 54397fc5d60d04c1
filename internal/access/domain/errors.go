package domain

import (
	"time"

	"github.com/openspace-ehr/phiguard/internal/errors"
)

// Patient access errors.
var (
	// ErrAccessDenied indicates the entered date of birth did not match. The
	// message is shown to users as is and must stay generic.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "date of birth does not match our records")

	// ErrTamperDetected indicates a stored grant whose signature does not match.
	ErrTamperDetected = errors.Wrap(errors.ErrForbidden, "patient access grant signature mismatch")

	// ErrTooManyAttempts indicates the session is locked out for this patient.
	ErrTooManyAttempts = errors.Wrap(errors.ErrLocked, "too many failed verification attempts")

	// ErrInvalidPatientID indicates an empty patient identifier.
	ErrInvalidPatientID = errors.Wrap(errors.ErrInvalidInput, "invalid patient id")

	// ErrMalformedGrant indicates a session value that does not decode to a grant.
	ErrMalformedGrant = errors.Wrap(errors.ErrInvalidInput, "malformed patient access grant")

	// ErrPatientNotFound indicates the record store has no such patient.
	ErrPatientNotFound = errors.Wrap(errors.ErrNotFound, "patient not found")

	// ErrSettingNotFound indicates an absent system setting.
	ErrSettingNotFound = errors.Wrap(errors.ErrNotFound, "system setting not found")
)

// LockoutError is returned while the attempt window is exhausted. It matches
// ErrTooManyAttempts and errors.ErrLocked.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return ErrTooManyAttempts.Error()
}

func (e *LockoutError) Unwrap() error {
	return ErrTooManyAttempts
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *LockoutError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}
