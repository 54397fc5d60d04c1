package domain

import (
	"fmt"
	"strings"

	validation "github.com/jellydator/validation"

	customValidation "github.com/openspace-ehr/phiguard/internal/validation"
)

// DefaultKeyColumn is the row identifier used when a target does not name one.
const DefaultKeyColumn = "id"

// ColumnTarget names one text column holding PHI in the record store.
type ColumnTarget struct {
	Table     string
	Column    string
	KeyColumn string
}

// ParseColumnTarget parses "table.column" or "table.column:key_column".
func ParseColumnTarget(s string) (ColumnTarget, error) {
	ref, key, _ := strings.Cut(s, ":")
	table, column, ok := strings.Cut(ref, ".")
	if !ok {
		return ColumnTarget{}, customValidation.WrapValidationError(
			fmt.Errorf("column target %q must be in table.column form", s),
		)
	}
	if key == "" {
		key = DefaultKeyColumn
	}

	target := ColumnTarget{Table: table, Column: column, KeyColumn: key}
	if err := target.Validate(); err != nil {
		return ColumnTarget{}, err
	}
	return target, nil
}

// Validate ensures every identifier can be interpolated into SQL safely.
func (t ColumnTarget) Validate() error {
	err := validation.ValidateStruct(&t,
		validation.Field(&t.Table, validation.Required, customValidation.Identifier),
		validation.Field(&t.Column, validation.Required, customValidation.Identifier),
		validation.Field(&t.KeyColumn, validation.Required, customValidation.Identifier),
	)
	return customValidation.WrapValidationError(err)
}

func (t ColumnTarget) String() string {
	return t.Table + "." + t.Column
}

// ColumnValue is one non-empty cell read from a target column.
type ColumnValue struct {
	Key   string
	Value string
}

// ColumnStats counts the cells of a target column by encryption state.
type ColumnStats struct {
	Total     int64
	Empty     int64
	Encrypted int64
	Plaintext int64
}

// ColumnStatus summarises ColumnStats.
type ColumnStatus string

const (
	ColumnStatusEncrypted   ColumnStatus = "encrypted"
	ColumnStatusPartial     ColumnStatus = "partial"
	ColumnStatusUnencrypted ColumnStatus = "unencrypted"
	ColumnStatusEmpty       ColumnStatus = "empty"
)

// Status classifies the column from its counts.
func (s ColumnStats) Status() ColumnStatus {
	switch {
	case s.Encrypted == 0 && s.Plaintext == 0:
		return ColumnStatusEmpty
	case s.Plaintext == 0:
		return ColumnStatusEncrypted
	case s.Encrypted > 0:
		return ColumnStatusPartial
	default:
		return ColumnStatusUnencrypted
	}
}

// ColumnReport is the outcome of an analyze, encrypt or verify run on one target.
type ColumnReport struct {
	Target    ColumnTarget
	Stats     ColumnStats
	Processed int
	Failed    int
	DryRun    bool
	Errors    []string
}

// OK reports whether the run finished without per-row failures.
func (r ColumnReport) OK() bool {
	return r.Failed == 0 && len(r.Errors) == 0
}

// AddError records a per-row message, keeping at most limit of them.
func (r *ColumnReport) AddError(msg string, limit int) {
	if len(r.Errors) < limit {
		r.Errors = append(r.Errors, msg)
	}
}
