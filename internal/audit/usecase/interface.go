// Package usecase records and verifies the patient access audit trail.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
)

// Sink receives audit events. LogEvent never fails the caller: delivery errors
// are logged and dropped.
type Sink interface {
	LogEvent(
		ctx context.Context,
		action auditDomain.Action,
		resourceType, details string,
		patientID *string,
	)
}

// AuditEventRepository persists audit events. There is no update or delete.
type AuditEventRepository interface {
	Create(ctx context.Context, event *auditDomain.AuditEvent) error
	// List returns events ordered by created_at descending. from and to are
	// optional inclusive bounds.
	List(ctx context.Context, offset, limit int, from, to *time.Time) ([]*auditDomain.AuditEvent, error)
}

// AuditEventUseCase reads and verifies the audit trail.
type AuditEventUseCase interface {
	List(ctx context.Context, offset, limit int, from, to *time.Time) ([]*auditDomain.AuditEvent, error)
	// VerifyBatch checks the signature of every event created in [start, end].
	VerifyBatch(ctx context.Context, start, end time.Time) (*VerificationReport, error)
}

// VerificationReport summarises an integrity check over a time range.
type VerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidEvents []uuid.UUID
}

// Passed reports whether no event failed verification.
func (r *VerificationReport) Passed() bool {
	return r.InvalidCount == 0
}
