// Package usecase implements the patient record protection gate: DOB
// re-verification, session-bound grants and the failed attempt lockout.
package usecase

import (
	"context"
	"time"

	"github.com/openspace-ehr/phiguard/internal/session"
)

// PatientAccessGuard decides whether the current session may open a patient chart.
//
// While protection is disabled every query reports verified and Verify grants
// without comparing anything.
type PatientAccessGuard interface {
	IsProtectionEnabled(ctx context.Context) bool

	// HasAccess reports whether sess holds a valid, unexpired and correctly
	// signed grant for patientID. Expired and tampered grants are removed.
	HasAccess(ctx context.Context, sess *session.Session, patientID string) bool

	// Verify compares the entered DOB with the record value and stores a grant
	// on match. It returns domain.ErrAccessDenied on mismatch and a
	// *domain.LockoutError once the attempt window is exhausted. A failed
	// verification never removes an existing grant.
	Verify(ctx context.Context, sess *session.Session, patientID, enteredDOB, actualDOB string) error

	// Extend refreshes the expiry of a valid grant. It returns false, and
	// writes nothing, when the patient is not currently verified.
	Extend(ctx context.Context, sess *session.Session, patientID string) bool

	Revoke(ctx context.Context, sess *session.Session, patientID string) error
	RevokeAll(ctx context.Context, sess *session.Session) error

	// IsExpiringSoon reports whether a valid grant expires within threshold.
	// It never modifies the session.
	IsExpiringSoon(ctx context.Context, sess *session.Session, patientID string, threshold time.Duration) bool

	// Remaining returns the lifetime left on a valid grant. ok is false when
	// there is none. It never modifies the session.
	Remaining(ctx context.Context, sess *session.Session, patientID string) (remaining time.Duration, ok bool)
}

// AttemptLimiter tracks failed verifications per (session, patient).
type AttemptLimiter interface {
	// Locked reports whether further attempts are refused and for how long.
	Locked(ctx context.Context, sess *session.Session, patientID string) (locked bool, retryAfter time.Duration, err error)
	// RecordFailure adds a failure and reports whether the pair is now locked.
	RecordFailure(ctx context.Context, sess *session.Session, patientID string) (locked bool, err error)
	Reset(ctx context.Context, sess *session.Session, patientID string) error
}

// ProtectionSetting reads the deployment-wide protection toggle.
type ProtectionSetting interface {
	IsEnabled(ctx context.Context) bool
}

// SettingsRepository reads and writes system settings.
type SettingsRepository interface {
	// Get returns domain.ErrSettingNotFound when name is absent.
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
}

// PatientRepository reads patient fields from the record store.
type PatientRepository interface {
	// GetDateOfBirth returns the stored DOB column value, possibly encrypted.
	// It returns domain.ErrPatientNotFound when the patient does not exist.
	GetDateOfBirth(ctx context.Context, patientID string) (string, error)
}

// DOBProvider supplies the plaintext record DOB of a patient.
type DOBProvider interface {
	DateOfBirth(ctx context.Context, patientID string) (string, error)
}

// ProtectionUseCase manages the protection toggle from administrative tools.
type ProtectionUseCase interface {
	Status(ctx context.Context) (enabled bool, source string, err error)
	SetEnabled(ctx context.Context, enabled bool) error
}
