package domain

import (
	"encoding/json"
	"time"
)

// Attempts is the rolling list of failed verification times for one patient.
type Attempts struct {
	Failures []time.Time `json:"failures"`
}

// Prune drops failures older than window relative to now.
func (a *Attempts) Prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	kept := a.Failures[:0]
	for _, t := range a.Failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	a.Failures = kept
}

// RetryAfter returns how long until the oldest failure leaves the window.
func (a *Attempts) RetryAfter(now time.Time, window time.Duration) time.Duration {
	if len(a.Failures) == 0 {
		return 0
	}
	oldest := a.Failures[0]
	for _, t := range a.Failures[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	wait := oldest.Add(window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// MarshalAttempts encodes a for the session store.
func MarshalAttempts(a *Attempts) ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalAttempts decodes a session value written by MarshalAttempts.
func UnmarshalAttempts(data []byte) (*Attempts, error) {
	var a Attempts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
