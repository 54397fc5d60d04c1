// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

var (
	// identifierRegex matches unquoted SQL identifiers accepted for table and column names.
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

	// dobInputRegex allows digits and the usual date separators only.
	dobInputRegex = regexp.MustCompile(`^[0-9/\-. ]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Identifier validates that a string is a plain SQL identifier safe to interpolate into queries.
var Identifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return identifierRegex.MatchString(s)
	},
	validation.NewError("validation_identifier", "must be a valid SQL identifier"),
)

// DateOfBirthInput validates a user-entered date of birth: digits with optional
// separators, exactly eight digits in total.
var DateOfBirthInput = validation.NewStringRuleWithError(
	func(s string) bool {
		if !dobInputRegex.MatchString(s) {
			return false
		}
		digits := 0
		for _, r := range s {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		return digits == 8
	},
	validation.NewError("validation_date_of_birth", "must be a date of birth in MM-DD-YYYY form"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
