package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	accessService "github.com/openspace-ehr/phiguard/internal/access/service"
	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	auditUseCase "github.com/openspace-ehr/phiguard/internal/audit/usecase"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	"github.com/openspace-ehr/phiguard/internal/session"
)

// Audit details. They never contain the entered or the record DOB.
const (
	detailsVerified     = "DOB verification successful"
	detailsDenied       = "DOB verification failed"
	detailsLocked       = "DOB verification locked after repeated failures"
	detailsLockedRetry  = "DOB verification refused while locked"
	detailsTampered     = "Patient access grant signature mismatch"
	detailsMalformed    = "Patient access grant could not be decoded"
	detailsRevoked      = "Patient record access revoked"
	detailsRevokedAll   = "All patient record access revoked for session"
	detailsGrantPatient = "Patient access grant stored under another patient"
)

type patientAccessGuard struct {
	protection ProtectionSetting
	signer     accessService.GrantSigner
	matcher    accessService.DOBMatcher
	limiter    AttemptLimiter
	sink       auditUseCase.Sink
	grantTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewPatientAccessGuard creates a PatientAccessGuard. A non-positive grantTTL
// falls back to 30 minutes.
func NewPatientAccessGuard(
	protection ProtectionSetting,
	signer accessService.GrantSigner,
	matcher accessService.DOBMatcher,
	limiter AttemptLimiter,
	sink auditUseCase.Sink,
	grantTTL time.Duration,
	logger *slog.Logger,
) PatientAccessGuard {
	if grantTTL <= 0 {
		grantTTL = accessDomain.DefaultGrantTTL
	}
	return &patientAccessGuard{
		protection: protection,
		signer:     signer,
		matcher:    matcher,
		limiter:    limiter,
		sink:       sink,
		grantTTL:   grantTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// IsProtectionEnabled reports the deployment-wide toggle.
func (g *patientAccessGuard) IsProtectionEnabled(ctx context.Context) bool {
	return g.protection.IsEnabled(ctx)
}

// readGrant loads the stored grant. It returns nil without error when absent.
func (g *patientAccessGuard) readGrant(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (*accessDomain.Grant, error) {
	data, ok, err := sess.Get(ctx, accessDomain.GrantKey(patientID))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read patient access grant")
	}
	if !ok {
		return nil, nil
	}
	return accessDomain.UnmarshalGrant(data)
}

// checkGrant validates the stored grant without modifying the session.
func (g *patientAccessGuard) checkGrant(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (*accessDomain.Grant, error) {
	grant, err := g.readGrant(ctx, sess, patientID)
	if err != nil || grant == nil {
		return nil, err
	}
	if grant.PatientID != patientID {
		return grant, accessDomain.ErrTamperDetected
	}
	if grant.IsExpired(g.now()) {
		return grant, nil
	}
	if !g.signer.Verify(sess.ID(), grant) {
		return grant, accessDomain.ErrTamperDetected
	}
	return grant, nil
}

// HasAccess validates the grant and removes it when expired or tampered.
func (g *patientAccessGuard) HasAccess(ctx context.Context, sess *session.Session, patientID string) bool {
	if !g.protection.IsEnabled(ctx) {
		return true
	}
	if patientID == "" {
		return false
	}

	grant, err := g.checkGrant(ctx, sess, patientID)
	switch {
	case errors.Is(err, accessDomain.ErrTamperDetected):
		details := detailsTampered
		if grant != nil && grant.PatientID != patientID {
			details = detailsGrantPatient
		}
		g.discardTampered(ctx, sess, patientID, details)
		return false
	case errors.Is(err, accessDomain.ErrMalformedGrant):
		g.discardTampered(ctx, sess, patientID, detailsMalformed)
		return false
	case err != nil:
		g.logger.Error("failed to check patient access", slog.String("patient_id", patientID), slog.Any("error", err))
		return false
	case grant == nil:
		return false
	case grant.IsExpired(g.now()):
		g.deleteGrant(ctx, sess, patientID)
		return false
	}
	return true
}

// discardTampered removes the grant and raises a security alert.
func (g *patientAccessGuard) discardTampered(ctx context.Context, sess *session.Session, patientID, details string) {
	g.deleteGrant(ctx, sess, patientID)
	g.logger.Warn("patient access grant rejected",
		slog.String("patient_id", patientID),
		slog.String("reason", details),
	)
	g.sink.LogEvent(ctx, auditDomain.ActionSecurityAlert, auditDomain.ResourceTypePatientRecord, details, &patientID)
}

func (g *patientAccessGuard) deleteGrant(ctx context.Context, sess *session.Session, patientID string) {
	if err := sess.Delete(ctx, accessDomain.GrantKey(patientID)); err != nil {
		g.logger.Error("failed to delete patient access grant",
			slog.String("patient_id", patientID),
			slog.Any("error", err),
		)
	}
}

// writeGrant stores a freshly signed grant valid for grantTTL.
func (g *patientAccessGuard) writeGrant(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (*accessDomain.Grant, error) {
	expiresAt := g.now().Add(g.grantTTL).UTC()

	signature, err := g.signer.Sign(sess.ID(), patientID, expiresAt)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to sign patient access grant")
	}

	grant := &accessDomain.Grant{PatientID: patientID, ExpiresAt: expiresAt, Signature: signature}
	data, err := accessDomain.MarshalGrant(grant)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode patient access grant")
	}
	if err := sess.Set(ctx, accessDomain.GrantKey(patientID), data); err != nil {
		return nil, apperrors.Wrap(err, "failed to store patient access grant")
	}
	return grant, nil
}

// Verify checks the lockout, compares the DOB and stores a grant on match.
func (g *patientAccessGuard) Verify(
	ctx context.Context,
	sess *session.Session,
	patientID, enteredDOB, actualDOB string,
) error {
	if !g.protection.IsEnabled(ctx) {
		return nil
	}
	if patientID == "" {
		return accessDomain.ErrInvalidPatientID
	}

	locked, retryAfter, err := g.limiter.Locked(ctx, sess, patientID)
	if err != nil {
		return err
	}
	if locked {
		g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessLocked, auditDomain.ResourceTypePatientRecord,
			detailsLockedRetry, &patientID)
		return &accessDomain.LockoutError{RetryAfter: retryAfter}
	}

	if !g.matcher.Match(enteredDOB, actualDOB) {
		g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessDenied, auditDomain.ResourceTypePatientRecord,
			detailsDenied, &patientID)

		nowLocked, err := g.limiter.RecordFailure(ctx, sess, patientID)
		if err != nil {
			g.logger.Error("failed to record verification attempt",
				slog.String("patient_id", patientID),
				slog.Any("error", err),
			)
		}
		if nowLocked {
			g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessLocked, auditDomain.ResourceTypePatientRecord,
				detailsLocked, &patientID)
		}
		return accessDomain.ErrAccessDenied
	}

	if _, err := g.writeGrant(ctx, sess, patientID); err != nil {
		return err
	}
	if err := g.limiter.Reset(ctx, sess, patientID); err != nil {
		g.logger.Error("failed to reset verification attempts",
			slog.String("patient_id", patientID),
			slog.Any("error", err),
		)
	}

	g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessVerified, auditDomain.ResourceTypePatientRecord,
		detailsVerified, &patientID)
	return nil
}

// Extend re-signs a valid grant with a new expiry.
func (g *patientAccessGuard) Extend(ctx context.Context, sess *session.Session, patientID string) bool {
	if !g.protection.IsEnabled(ctx) {
		return true
	}
	if !g.HasAccess(ctx, sess, patientID) {
		return false
	}

	if _, err := g.writeGrant(ctx, sess, patientID); err != nil {
		g.logger.Error("failed to extend patient access grant",
			slog.String("patient_id", patientID),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// Revoke removes the grant for patientID.
func (g *patientAccessGuard) Revoke(ctx context.Context, sess *session.Session, patientID string) error {
	if patientID == "" {
		return accessDomain.ErrInvalidPatientID
	}

	_, existed, err := sess.Get(ctx, accessDomain.GrantKey(patientID))
	if err != nil {
		return apperrors.Wrap(err, "failed to read patient access grant")
	}
	if err := sess.Delete(ctx, accessDomain.GrantKey(patientID)); err != nil {
		return apperrors.Wrap(err, "failed to revoke patient access grant")
	}

	if existed {
		g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessRevoked, auditDomain.ResourceTypePatientRecord,
			detailsRevoked, &patientID)
	}
	return nil
}

// RevokeAll removes every grant in the session. Attempt counters are kept.
func (g *patientAccessGuard) RevokeAll(ctx context.Context, sess *session.Session) error {
	keys, err := sess.Keys(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to list session keys")
	}

	revoked := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, accessDomain.GrantKeyPrefix) {
			continue
		}
		if err := sess.Delete(ctx, key); err != nil {
			return apperrors.Wrap(err, "failed to revoke patient access grant")
		}
		revoked++
	}

	if revoked > 0 {
		g.sink.LogEvent(ctx, auditDomain.ActionPatientAccessRevoked, auditDomain.ResourceTypePatientRecord,
			detailsRevokedAll, nil)
	}
	return nil
}

// validGrant returns an unexpired, correctly signed grant or nil.
func (g *patientAccessGuard) validGrant(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) *accessDomain.Grant {
	if patientID == "" {
		return nil
	}
	grant, err := g.checkGrant(ctx, sess, patientID)
	if err != nil || grant == nil || grant.IsExpired(g.now()) {
		return nil
	}
	return grant
}

// IsExpiringSoon compares the remaining lifetime with threshold. A non-positive
// threshold uses the 300 second default.
func (g *patientAccessGuard) IsExpiringSoon(
	ctx context.Context,
	sess *session.Session,
	patientID string,
	threshold time.Duration,
) bool {
	if !g.protection.IsEnabled(ctx) {
		return false
	}
	if threshold <= 0 {
		threshold = accessDomain.DefaultExpiryWarning
	}

	grant := g.validGrant(ctx, sess, patientID)
	if grant == nil {
		return false
	}
	return grant.Remaining(g.now()) <= threshold
}

// Remaining returns the lifetime left on a valid grant.
func (g *patientAccessGuard) Remaining(
	ctx context.Context,
	sess *session.Session,
	patientID string,
) (time.Duration, bool) {
	grant := g.validGrant(ctx, sess, patientID)
	if grant == nil {
		return 0, false
	}
	return grant.Remaining(g.now()), true
}
