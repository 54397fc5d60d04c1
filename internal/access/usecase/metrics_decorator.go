package usecase

import (
	"context"
	"time"

	"github.com/openspace-ehr/phiguard/internal/metrics"
	"github.com/openspace-ehr/phiguard/internal/session"
)

// patientAccessGuardWithMetrics decorates PatientAccessGuard with metrics instrumentation.
type patientAccessGuardWithMetrics struct {
	next    PatientAccessGuard
	metrics metrics.BusinessMetrics
}

// NewPatientAccessGuardWithMetrics wraps a PatientAccessGuard with metrics recording.
// Boolean decisions are recorded as "granted" or "denied".
func NewPatientAccessGuardWithMetrics(guard PatientAccessGuard, m metrics.BusinessMetrics) PatientAccessGuard {
	return &patientAccessGuardWithMetrics{
		next:    guard,
		metrics: m,
	}
}

func (p *patientAccessGuardWithMetrics) record(ctx context.Context, operation string, start time.Time, status string) {
	p.metrics.RecordOperation(ctx, "access", operation, status)
	p.metrics.RecordDuration(ctx, "access", operation, time.Since(start), status)
}

func errorStatus(err error) string {
	if err != nil {
		return metrics.StatusError
	}
	return metrics.StatusSuccess
}

func decisionStatus(granted bool) string {
	if granted {
		return metrics.StatusGranted
	}
	return metrics.StatusDenied
}

// IsProtectionEnabled is not instrumented.
func (p *patientAccessGuardWithMetrics) IsProtectionEnabled(ctx context.Context) bool {
	return p.next.IsProtectionEnabled(ctx)
}

// HasAccess records metrics for grant checks.
func (p *patientAccessGuardWithMetrics) HasAccess(ctx context.Context, sess *session.Session, patientID string) bool {
	start := time.Now()
	granted := p.next.HasAccess(ctx, sess, patientID)
	p.record(ctx, "access_check", start, decisionStatus(granted))
	return granted
}

// Verify records metrics for DOB verification.
func (p *patientAccessGuardWithMetrics) Verify(
	ctx context.Context,
	sess *session.Session,
	patientID, enteredDOB, actualDOB string,
) error {
	start := time.Now()
	err := p.next.Verify(ctx, sess, patientID, enteredDOB, actualDOB)
	p.record(ctx, "access_verify", start, errorStatus(err))
	return err
}

// Extend records metrics for grant extension.
func (p *patientAccessGuardWithMetrics) Extend(ctx context.Context, sess *session.Session, patientID string) bool {
	start := time.Now()
	extended := p.next.Extend(ctx, sess, patientID)
	p.record(ctx, "access_extend", start, decisionStatus(extended))
	return extended
}

// Revoke records metrics for single grant revocation.
func (p *patientAccessGuardWithMetrics) Revoke(ctx context.Context, sess *session.Session, patientID string) error {
	start := time.Now()
	err := p.next.Revoke(ctx, sess, patientID)
	p.record(ctx, "access_revoke", start, errorStatus(err))
	return err
}

// RevokeAll records metrics for session-wide revocation.
func (p *patientAccessGuardWithMetrics) RevokeAll(ctx context.Context, sess *session.Session) error {
	start := time.Now()
	err := p.next.RevokeAll(ctx, sess)
	p.record(ctx, "access_revoke_all", start, errorStatus(err))
	return err
}

// IsExpiringSoon is not instrumented.
func (p *patientAccessGuardWithMetrics) IsExpiringSoon(
	ctx context.Context,
	sess *session.Session,
	patientID string,
	threshold time.Duration,
) bool {
	return p.next.IsExpiringSoon(ctx, sess, patientID, threshold)
}

// Remaining is not instrumented.
func (p *patientAccessGuardWithMetrics) Remaining(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (time.Duration, bool) {
	return p.next.Remaining(ctx, sess, patientID)
}
