package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	auditService "github.com/openspace-ehr/phiguard/internal/audit/service"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// verifyPageSize is the number of events loaded per page during verification.
const verifyPageSize = 1000

// auditEventUseCase implements AuditEventUseCase.
type auditEventUseCase struct {
	repo   AuditEventRepository
	signer auditService.EventSigner
}

// NewAuditEventUseCase creates a new AuditEventUseCase.
func NewAuditEventUseCase(repo AuditEventRepository, signer auditService.EventSigner) AuditEventUseCase {
	return &auditEventUseCase{repo: repo, signer: signer}
}

// List retrieves events newest first.
func (a *auditEventUseCase) List(
	ctx context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*auditDomain.AuditEvent, error) {
	events, err := a.repo.List(ctx, offset, limit, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	return events, nil
}

// VerifyBatch walks the range page by page and checks every signature.
func (a *auditEventUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*VerificationReport, error) {
	report := &VerificationReport{InvalidEvents: make([]uuid.UUID, 0)}

	for offset := 0; ; offset += verifyPageSize {
		events, err := a.repo.List(ctx, offset, verifyPageSize, &start, &end)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit events")
		}

		for _, event := range events {
			report.TotalChecked++

			if !event.IsSigned() {
				report.UnsignedCount++
				continue
			}
			report.SignedCount++

			if err := a.signer.Verify(event); err != nil {
				report.InvalidCount++
				report.InvalidEvents = append(report.InvalidEvents, event.ID)
				continue
			}
			report.ValidCount++
		}

		if len(events) < verifyPageSize {
			break
		}
	}

	return report, nil
}
