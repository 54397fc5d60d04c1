package domain

import (
	"encoding/json"
	"time"
)

// Grant records a successful DOB verification for one patient in one session.
type Grant struct {
	PatientID string    `json:"patient_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Signature []byte    `json:"signature"`
}

// IsExpired reports whether the grant is no longer valid at now.
// A grant is valid strictly before ExpiresAt.
func (g *Grant) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Remaining returns the time left before expiry, never negative.
func (g *Grant) Remaining(now time.Time) time.Duration {
	remaining := g.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarshalGrant encodes g for the session store.
func MarshalGrant(g *Grant) ([]byte, error) {
	return json.Marshal(g)
}

// UnmarshalGrant decodes a session value written by MarshalGrant.
// Values missing a patient, expiry or signature are rejected.
func UnmarshalGrant(data []byte) (*Grant, error) {
	var g Grant
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, ErrMalformedGrant
	}
	if g.PatientID == "" || g.ExpiresAt.IsZero() || len(g.Signature) == 0 {
		return nil, ErrMalformedGrant
	}
	return &g, nil
}
