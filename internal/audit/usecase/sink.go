package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	auditService "github.com/openspace-ehr/phiguard/internal/audit/service"
)

// databaseSink signs events and stores them in the audit repository.
type databaseSink struct {
	repo   AuditEventRepository
	signer auditService.EventSigner
	logger *slog.Logger
	now    func() time.Time
}

// NewDatabaseSink creates a Sink that persists signed events.
func NewDatabaseSink(
	repo AuditEventRepository,
	signer auditService.EventSigner,
	logger *slog.Logger,
) Sink {
	return &databaseSink{repo: repo, signer: signer, logger: logger, now: time.Now}
}

// newEvent builds an unsigned event with the actor taken from ctx.
func newEvent(
	ctx context.Context,
	now time.Time,
	action auditDomain.Action,
	resourceType, details string,
	patientID *string,
) (*auditDomain.AuditEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	actor := auditDomain.ActorFromContext(ctx)
	if patientID != nil {
		p := *patientID
		patientID = &p
	}

	return &auditDomain.AuditEvent{
		ID:           id,
		Action:       action,
		ResourceType: resourceType,
		Details:      details,
		PatientID:    patientID,
		Actor:        actor.ID,
		IPAddress:    actor.IPAddress,
		UserAgent:    actor.UserAgent,
		KeyVersion:   auditDomain.CurrentKeyVersion,
		CreatedAt:    now.UTC(),
	}, nil
}

// LogEvent signs and stores the event. Failures are logged, never returned.
func (d *databaseSink) LogEvent(
	ctx context.Context,
	action auditDomain.Action,
	resourceType, details string,
	patientID *string,
) {
	event, err := newEvent(ctx, d.now(), action, resourceType, details, patientID)
	if err != nil {
		d.logDropped(action, err)
		return
	}

	signature, err := d.signer.Sign(event)
	if err != nil {
		d.logDropped(action, err)
		return
	}
	event.Signature = signature

	if err := d.repo.Create(ctx, event); err != nil {
		d.logDropped(action, err)
	}
}

func (d *databaseSink) logDropped(action auditDomain.Action, err error) {
	d.logger.Error("failed to record audit event",
		slog.String("action", string(action)),
		slog.Any("error", err),
	)
}

// logSink writes events as structured log records only.
type logSink struct {
	logger *slog.Logger
}

// NewLogSink creates a Sink that writes each event to logger.
func NewLogSink(logger *slog.Logger) Sink {
	return &logSink{logger: logger}
}

// LogEvent writes one "audit_event" record.
func (l *logSink) LogEvent(
	ctx context.Context,
	action auditDomain.Action,
	resourceType, details string,
	patientID *string,
) {
	actor := auditDomain.ActorFromContext(ctx)

	attrs := []slog.Attr{
		slog.String("action", string(action)),
		slog.String("resource_type", resourceType),
		slog.String("details", details),
		slog.String("actor", actor.ID),
		slog.String("ip_address", actor.IPAddress),
	}
	if patientID != nil {
		attrs = append(attrs, slog.String("patient_id", *patientID))
	}

	level := slog.LevelInfo
	if action == auditDomain.ActionSecurityAlert {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "audit_event", attrs...)
}
