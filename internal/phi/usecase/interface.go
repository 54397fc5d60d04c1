// Package usecase implements PHI field encryption on top of the phi services:
// value and field encryption, searchable blind indexes, master secret loading and
// the in-place encryption of plaintext columns in the record store.
package usecase

import (
	"context"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// EncryptionUseCase encrypts and decrypts individual PHI values.
//
// All methods are CPU-bound and safe for concurrent use. Decryption never
// returns partial or unauthenticated plaintext.
type EncryptionUseCase interface {
	// Encrypt returns base64(salt || nonce || ciphertext || tag). Empty input yields "".
	Encrypt(ctx context.Context, plaintext string) (string, error)

	// Decrypt reverses Encrypt. Empty input yields "".
	Decrypt(ctx context.Context, blob string) (string, error)

	// EncryptField encrypts a value for storage as "ENC:v1:<blob>" with a type marker.
	// nil and "" yield "". Values that are already encrypted fields are returned unchanged.
	// hint tags string values; an unknown hint or text that would not decode back
	// unchanged under it fails with ErrUnknownFieldType or ErrFieldTypeMismatch.
	EncryptField(ctx context.Context, value any, hint phiDomain.FieldType) (string, error)

	// DecryptField restores a value written by EncryptField. Values without the
	// encrypted marker are legacy plaintext and are returned as-is.
	DecryptField(ctx context.Context, stored string) (any, error)

	// DecryptFieldInto decrypts a field and decodes it into dst.
	DecryptFieldInto(ctx context.Context, stored string, dst any) error

	// IsEncrypted reports whether value carries the encrypted marker.
	IsEncrypted(value string) bool

	// BlindIndex returns a deterministic keyed hash of value for equality search.
	// scope separates indexes of different columns. Empty value yields "".
	BlindIndex(ctx context.Context, value, scope string) (string, error)

	// EncryptSearchable returns "<blind index>|ENC:v1:<blob>".
	EncryptSearchable(ctx context.Context, value, scope string) (string, error)

	// DecryptSearchable restores a value written by EncryptSearchable. Values
	// without a blind index are decrypted as plain fields.
	DecryptSearchable(ctx context.Context, stored string) (string, error)
}

// ColumnRepository reads and rewrites PHI columns in the record store.
type ColumnRepository interface {
	Stats(ctx context.Context, target phiDomain.ColumnTarget) (phiDomain.ColumnStats, error)
	// ListPlaintext returns up to limit non-empty unencrypted cells with a key
	// greater than afterKey, ordered by key. An empty afterKey starts at the beginning.
	ListPlaintext(
		ctx context.Context,
		target phiDomain.ColumnTarget,
		afterKey string,
		limit int,
	) ([]phiDomain.ColumnValue, error)
	// ListEncrypted returns up to limit encrypted cells ordered by key.
	ListEncrypted(ctx context.Context, target phiDomain.ColumnTarget, limit int) ([]phiDomain.ColumnValue, error)
	Update(ctx context.Context, target phiDomain.ColumnTarget, key, value string) error
}

// ColumnMigrationUseCase moves existing plaintext PHI columns to encrypted fields.
type ColumnMigrationUseCase interface {
	// Analyze counts cells by encryption state.
	Analyze(ctx context.Context, target phiDomain.ColumnTarget) (*phiDomain.ColumnReport, error)

	// Encrypt rewrites every plaintext cell as an encrypted field, one transaction
	// per batch. With dryRun set nothing is written.
	Encrypt(
		ctx context.Context,
		target phiDomain.ColumnTarget,
		opts EncryptColumnOptions,
	) (*phiDomain.ColumnReport, error)

	// Verify decrypts up to sampleSize encrypted cells (all when sampleSize <= 0).
	Verify(ctx context.Context, target phiDomain.ColumnTarget, sampleSize int) (*phiDomain.ColumnReport, error)
}

// EncryptColumnOptions controls a column encryption run.
type EncryptColumnOptions struct {
	BatchSize int
	DryRun    bool
	// Searchable stores "<blind index>|ENC:v1:<blob>" so the column stays searchable by equality.
	Searchable bool
	// Hint is the field type marker for the column values. Defaults to string.
	Hint phiDomain.FieldType
}
