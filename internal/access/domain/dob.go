package domain

import (
	"regexp"
	"strings"
)

var isoDatePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// CanonicalRecordDOB converts a stored date of birth to MMDDYYYY digits.
// ISO dates (optionally with a time part) are reordered; anything else has its
// non-digit characters removed.
func CanonicalRecordDOB(dob string) string {
	if m := isoDatePattern.FindStringSubmatch(dob); m != nil {
		return m[2] + m[3] + m[1]
	}
	return digitsOnly(dob)
}

// CanonicalEnteredDOB strips every non-digit from a user-entered date of birth.
func CanonicalEnteredDOB(dob string) string {
	return digitsOnly(dob)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
