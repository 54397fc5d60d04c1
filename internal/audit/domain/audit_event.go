// Package domain defines the audit trail of patient record protection: signed,
// append-only events describing who asked for which patient and what was decided.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// Action names an audited decision.
type Action string

const (
	ActionPatientAccessVerified Action = "PATIENT_ACCESS_VERIFIED"
	ActionPatientAccessDenied   Action = "PATIENT_ACCESS_DENIED"
	ActionPatientAccessLocked   Action = "PATIENT_ACCESS_LOCKED"
	ActionPatientAccessRevoked  Action = "PATIENT_ACCESS_REVOKED"
	ActionSecurityAlert         Action = "SECURITY_ALERT"
)

// ResourceTypePatientRecord is the resource type of every patient access event.
const ResourceTypePatientRecord = "Patient Record"

// CurrentKeyVersion identifies the signing key derivation used for new events.
const CurrentKeyVersion = 1

// AuditEvent is one append-only audit record.
type AuditEvent struct {
	ID           uuid.UUID
	Action       Action
	ResourceType string
	Details      string
	PatientID    *string
	Actor        string
	IPAddress    string
	UserAgent    string
	Signature    []byte
	KeyVersion   int
	CreatedAt    time.Time
}

// IsSigned reports whether the event carries a signature.
func (e *AuditEvent) IsSigned() bool {
	return len(e.Signature) > 0
}

// Actor identifies who triggered an event. The host request layer fills it in.
type Actor struct {
	ID        string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or the zero Actor.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}

var (
	// ErrSignatureInvalid indicates an audit event whose signature does not match its content.
	ErrSignatureInvalid = apperrors.Wrap(apperrors.ErrInvalidInput, "audit event signature invalid")

	// ErrSignatureMissing indicates an unsigned audit event.
	ErrSignatureMissing = apperrors.Wrap(apperrors.ErrInvalidInput, "audit event signature missing")
)
