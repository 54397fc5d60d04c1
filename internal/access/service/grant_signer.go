// Package service provides the cryptographic checks behind the patient access
// gate: session-bound grant signatures and constant-time DOB comparison.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
)

// GrantSigner signs grants with a key bound to the session identifier, so a
// grant copied into another session no longer verifies.
type GrantSigner interface {
	Sign(sessionID, patientID string, expiresAt time.Time) ([]byte, error)
	Verify(sessionID string, grant *accessDomain.Grant) bool
}

type grantSigner struct {
	serverSecret []byte
}

// NewGrantSigner creates a GrantSigner. serverSecret is optional; when set it
// salts every per-session key so session identifiers alone cannot forge grants.
func NewGrantSigner(serverSecret []byte) GrantSigner {
	return &grantSigner{serverSecret: serverSecret}
}

func (g *grantSigner) sessionKey(sessionID string) ([]byte, error) {
	key := make([]byte, sha256.Size)
	reader := hkdf.New(sha256.New, []byte(sessionID), g.serverSecret, []byte(accessDomain.GrantKeyInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive grant key: %w", err)
	}
	return key, nil
}

// grantMessage is the length-prefixed patient identifier followed by the
// big-endian expiry in Unix nanoseconds.
func grantMessage(patientID string, expiresAt time.Time) []byte {
	buf := make([]byte, 0, 4+len(patientID)+8)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(patientID)))
	buf = append(buf, patientID...)
	return binary.BigEndian.AppendUint64(buf, uint64(expiresAt.UnixNano()))
}

// Sign returns the HMAC-SHA256 of the grant fields under the session key.
func (g *grantSigner) Sign(sessionID, patientID string, expiresAt time.Time) ([]byte, error) {
	key, err := g.sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(key)

	mac := hmac.New(sha256.New, key)
	mac.Write(grantMessage(patientID, expiresAt))
	return mac.Sum(nil), nil
}

// Verify recomputes the signature and compares it in constant time.
func (g *grantSigner) Verify(sessionID string, grant *accessDomain.Grant) bool {
	expected, err := g.Sign(sessionID, grant.PatientID, grant.ExpiresAt)
	if err != nil {
		return false
	}
	return hmac.Equal(grant.Signature, expected)
}
