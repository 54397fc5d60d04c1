// Package dto provides request and response bodies for the patient access API.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/openspace-ehr/phiguard/internal/validation"
)

// VerifyAccessRequest carries the date of birth entered by the user.
type VerifyAccessRequest struct {
	DOB string `json:"dob"`
}

// Validate checks that DOB looks like a date of birth. It does not compare
// it with the record.
func (r *VerifyAccessRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DOB,
			validation.Required,
			customValidation.NotBlank,
			customValidation.DateOfBirthInput,
		),
	)
}
