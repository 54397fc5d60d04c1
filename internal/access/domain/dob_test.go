package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalRecordDOB(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ISO date", input: "1955-03-15", expected: "03151955"},
		{name: "ISO timestamp", input: "1958-11-03T00:00:00Z", expected: "11031958"},
		{name: "US slashes", input: "03/15/1955", expected: "03151955"},
		{name: "already canonical", input: "03151955", expected: "03151955"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalRecordDOB(tt.input))
		})
	}
}

func TestCanonicalEnteredDOB(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "dashes", input: "03-15-1955", expected: "03151955"},
		{name: "slashes and spaces", input: " 03 / 15 / 1955 ", expected: "03151955"},
		{name: "dots", input: "11.03.1958", expected: "11031958"},
		{name: "letters removed", input: "ab12", expected: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalEnteredDOB(tt.input))
		})
	}
}
