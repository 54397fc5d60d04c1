package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Valid reports whether t is a supported type marker.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeJSON, FieldTypeInt, FieldTypeUint, FieldTypeFloat, FieldTypeDate:
		return true
	default:
		return false
	}
}

// CheckText verifies that text tagged with t decodes back to the same value.
// Numbers must be in canonical form, so "007" is not an int.
func (t FieldType) CheckText(text string) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFieldType, string(t))
	}

	var ok bool
	switch t {
	case FieldTypeInt:
		n, err := strconv.ParseInt(text, 10, 64)
		ok = err == nil && strconv.FormatInt(n, 10) == text
	case FieldTypeUint:
		n, err := strconv.ParseUint(text, 10, 64)
		ok = err == nil && strconv.FormatUint(n, 10) == text
	case FieldTypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		ok = err == nil && strconv.FormatFloat(f, 'g', -1, 64) == text
	case FieldTypeJSON:
		ok = json.Valid([]byte(text))
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("%w: not a valid %s", ErrFieldTypeMismatch, t)
	}
	return nil
}
