// Package domain defines patient record protection: time-limited DOB
// verification grants, the attempt window that locks out guessing, and the
// errors the access guard reports.
package domain

import "time"

// Defaults for the verification gate.
const (
	DefaultGrantTTL       = 30 * time.Minute
	DefaultExpiryWarning  = 300 * time.Second
	DefaultMaxAttempts    = 5
	DefaultLockoutWindow  = 15 * time.Minute
	GrantKeyInfo          = "patient-access-grant-v1"
	ProtectionSettingName = "patient_record_protection"
)

// Session key prefixes. Each patient gets its own key so grants for different
// patients never overwrite each other.
const (
	GrantKeyPrefix    = "patient_access:"
	AttemptsKeyPrefix = "access_attempts:"
)

// GrantKey returns the session key holding the grant for patientID.
func GrantKey(patientID string) string {
	return GrantKeyPrefix + patientID
}

// AttemptsKey returns the session key holding failed attempts for patientID.
func AttemptsKey(patientID string) string {
	return AttemptsKeyPrefix + patientID
}
