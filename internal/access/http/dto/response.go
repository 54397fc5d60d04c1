package dto

import (
	"math"
	"time"
)

// AccessStatusResponse describes the session's grant for one patient.
type AccessStatusResponse struct {
	PatientID         string `json:"patient_id"`
	ProtectionEnabled bool   `json:"protection_enabled"`
	Verified          bool   `json:"verified"`
	ExpiringSoon      bool   `json:"expiring_soon"`
	RemainingSeconds  int64  `json:"remaining_seconds"`
}

// VerifyAccessResponse is returned after a successful verification or extension.
type VerifyAccessResponse struct {
	PatientID        string `json:"patient_id"`
	Verified         bool   `json:"verified"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// MapToAccessStatusResponse builds the status body. remaining is ignored unless verified.
func MapToAccessStatusResponse(
	patientID string,
	protectionEnabled, verified, expiringSoon bool,
	remaining time.Duration,
) AccessStatusResponse {
	resp := AccessStatusResponse{
		PatientID:         patientID,
		ProtectionEnabled: protectionEnabled,
		Verified:          verified,
		ExpiringSoon:      expiringSoon,
	}
	if verified && protectionEnabled {
		resp.RemainingSeconds = Seconds(remaining)
	}
	return resp
}

// Seconds rounds d up to whole seconds so a live grant never reports zero.
func Seconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
