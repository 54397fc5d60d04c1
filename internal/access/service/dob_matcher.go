package service

import (
	"crypto/subtle"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
)

// DOBMatcher compares an entered date of birth with the record value.
type DOBMatcher interface {
	Match(entered, actual string) bool
}

type dobMatcher struct{}

// NewDOBMatcher creates a DOBMatcher that canonicalises both sides to MMDDYYYY
// digits and compares them in constant time.
func NewDOBMatcher() DOBMatcher {
	return &dobMatcher{}
}

// Match reports whether entered and actual name the same date. An empty
// canonical record value never matches.
func (d *dobMatcher) Match(entered, actual string) bool {
	want := accessDomain.CanonicalRecordDOB(actual)
	got := accessDomain.CanonicalEnteredDOB(entered)
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
