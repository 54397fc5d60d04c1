// Package service signs and verifies audit events.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/awnumar/memguard"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
)

// EventSigner produces and checks HMAC-SHA256 signatures over audit events.
type EventSigner interface {
	Sign(event *auditDomain.AuditEvent) ([]byte, error)
	Verify(event *auditDomain.AuditEvent) error
}

type eventSigner struct {
	keyDeriver phiService.KeyDeriver
}

// NewEventSigner creates an EventSigner whose key is an HKDF sub-key of the PHI
// root key, separate from every encryption key.
func NewEventSigner(keyDeriver phiService.KeyDeriver) EventSigner {
	return &eventSigner{keyDeriver: keyDeriver}
}

// canonicalize converts an event to the byte string that is signed.
// Variable-length fields are length-prefixed so field boundaries cannot shift.
func canonicalize(event *auditDomain.AuditEvent) []byte {
	buf := make([]byte, 0, 512)

	buf = append(buf, event.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(event.Action))
	buf = appendLengthPrefixed(buf, []byte(event.ResourceType))
	buf = appendLengthPrefixed(buf, []byte(event.Details))

	if event.PatientID != nil {
		buf = append(buf, 1)
		buf = appendLengthPrefixed(buf, []byte(*event.PatientID))
	} else {
		buf = append(buf, 0)
	}

	buf = appendLengthPrefixed(buf, []byte(event.Actor))
	buf = appendLengthPrefixed(buf, []byte(event.IPAddress))
	buf = appendLengthPrefixed(buf, []byte(event.UserAgent))

	buf = binary.BigEndian.AppendUint32(buf, uint32(event.KeyVersion))
	buf = binary.BigEndian.AppendUint64(buf, uint64(event.CreatedAt.UnixNano()))

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Sign returns the 32-byte signature of event.
func (s *eventSigner) Sign(event *auditDomain.AuditEvent) ([]byte, error) {
	signingKey, err := s.keyDeriver.Derive(nil, phiDomain.AuditKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer memguard.WipeBytes(signingKey)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonicalize(event))
	return mac.Sum(nil), nil
}

// Verify returns nil when the stored signature matches the event content.
func (s *eventSigner) Verify(event *auditDomain.AuditEvent) error {
	if !event.IsSigned() {
		return auditDomain.ErrSignatureMissing
	}

	expected, err := s.Sign(event)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(event.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
