package usecase

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

var (
	_ sql.Scanner   = (*EncryptedString)(nil)
	_ driver.Valuer = (*EncryptedString)(nil)
	_ sql.Scanner   = (*EncryptedJSON)(nil)
	_ driver.Valuer = (*EncryptedJSON)(nil)
)

var errUnboundColumn = fmt.Errorf("%w: column value is not bound to an encryption use case", phiDomain.ErrConfiguration)

// ColumnCodec creates column values that encrypt on write and decrypt on scan,
// so PHI columns can be passed straight to database/sql.
type ColumnCodec struct {
	encryption EncryptionUseCase
}

// NewColumnCodec binds column values to encryption.
func NewColumnCodec(encryption EncryptionUseCase) *ColumnCodec {
	return &ColumnCodec{encryption: encryption}
}

// String wraps s for writing as an encrypted string field.
func (c *ColumnCodec) String(s string) *EncryptedString {
	return &EncryptedString{String: s, Valid: true, encryption: c.encryption}
}

// SearchableString wraps s for writing with a blind index under scope.
func (c *ColumnCodec) SearchableString(s, scope string) *EncryptedString {
	return &EncryptedString{String: s, Valid: true, Scope: scope, encryption: c.encryption}
}

// NullString returns an empty string destination for Scan.
func (c *ColumnCodec) NullString() *EncryptedString {
	return &EncryptedString{encryption: c.encryption}
}

// JSON wraps v. For writes v is any JSON-encodable value; for Scan it must be a pointer.
func (c *ColumnCodec) JSON(v any) *EncryptedJSON {
	return &EncryptedJSON{Data: v, Valid: v != nil, encryption: c.encryption}
}

// EncryptedString is a nullable text column holding PHI. Legacy plaintext
// cells scan unchanged.
type EncryptedString struct {
	String string
	Valid  bool
	// Scope, when set, stores the value as "<blind index>|ENC:v1:<blob>".
	Scope string

	encryption EncryptionUseCase
}

// Value implements driver.Valuer. A NULL value is written as NULL.
func (e *EncryptedString) Value() (driver.Value, error) {
	if e.encryption == nil {
		return nil, errUnboundColumn
	}
	if !e.Valid {
		return nil, nil
	}

	ctx := context.Background()
	if e.Scope != "" {
		return e.encryption.EncryptSearchable(ctx, e.String, e.Scope)
	}
	return e.encryption.EncryptField(ctx, e.String, phiDomain.FieldTypeString)
}

// Scan implements sql.Scanner.
func (e *EncryptedString) Scan(src any) error {
	if e.encryption == nil {
		return errUnboundColumn
	}

	stored, ok, err := storedText(src)
	if err != nil {
		return err
	}
	if !ok {
		e.String, e.Valid = "", false
		return nil
	}

	value, err := e.encryption.DecryptSearchable(context.Background(), stored)
	if err != nil {
		return err
	}
	e.String, e.Valid = value, true
	return nil
}

// EncryptedJSON is a nullable column holding a structured PHI value.
type EncryptedJSON struct {
	Data  any
	Valid bool

	encryption EncryptionUseCase
}

// Value implements driver.Valuer. Strings keep the string marker and numbers
// their numeric marker; everything else is stored as JSON.
func (e *EncryptedJSON) Value() (driver.Value, error) {
	if e.encryption == nil {
		return nil, errUnboundColumn
	}
	if !e.Valid || e.Data == nil {
		return nil, nil
	}
	return e.encryption.EncryptField(context.Background(), e.Data, "")
}

// Scan implements sql.Scanner, decoding into Data. NULL and empty cells leave
// Data untouched and clear Valid.
func (e *EncryptedJSON) Scan(src any) error {
	if e.encryption == nil {
		return errUnboundColumn
	}

	stored, ok, err := storedText(src)
	if err != nil {
		return err
	}
	if !ok || stored == "" {
		e.Valid = false
		return nil
	}

	if err := e.encryption.DecryptFieldInto(context.Background(), stored, e.Data); err != nil {
		return err
	}
	e.Valid = true
	return nil
}

func storedText(src any) (string, bool, error) {
	switch v := src.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case []byte:
		return string(v), true, nil
	default:
		return "", false, fmt.Errorf("%w: cannot scan %T into an encrypted column", phiDomain.ErrInvalidFormat, src)
	}
}
