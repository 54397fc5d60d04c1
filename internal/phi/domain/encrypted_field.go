package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncryptedField is the decoded storage representation of one encrypted value:
// salt || nonce || ciphertext || tag.
type EncryptedField struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte // includes the trailing GCM tag
}

// Bytes concatenates the parts in wire order.
func (f EncryptedField) Bytes() []byte {
	out := make([]byte, 0, len(f.Salt)+len(f.Nonce)+len(f.Ciphertext))
	out = append(out, f.Salt...)
	out = append(out, f.Nonce...)
	return append(out, f.Ciphertext...)
}

// String returns the base64 form stored in text columns.
func (f EncryptedField) String() string {
	return base64.StdEncoding.EncodeToString(f.Bytes())
}

// ParseEncryptedField decodes a base64 blob and slices it into its parts.
// The returned slices alias a fresh buffer, never the input.
func ParseEncryptedField(blob string) (EncryptedField, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return EncryptedField{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(raw) < MinBlobSize {
		return EncryptedField{}, fmt.Errorf(
			"%w: blob must be at least %d bytes, got %d",
			ErrInvalidFormat,
			MinBlobSize,
			len(raw),
		)
	}

	return EncryptedField{
		Salt:       raw[:SaltSize],
		Nonce:      raw[SaltSize : SaltSize+NonceSize],
		Ciphertext: raw[SaltSize+NonceSize:],
	}, nil
}

// IsEncrypted reports whether a stored value carries the encrypted marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedMarker)
}

// StripPrefix removes the current-version prefix from a stored value.
// Values with an unknown format version are rejected.
func StripPrefix(stored string) (string, error) {
	blob, ok := strings.CutPrefix(stored, EncryptedPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unsupported encrypted value version", ErrInvalidFormat)
	}
	return blob, nil
}

// SplitTyped separates a decrypted "type:value" payload. Payloads without a
// known marker are treated as plain strings and returned whole.
func SplitTyped(payload string) (FieldType, string) {
	marker, value, ok := strings.Cut(payload, ":")
	if !ok {
		return FieldTypeString, payload
	}
	if fieldType := FieldType(marker); fieldType.Valid() {
		return fieldType, value
	}
	return FieldTypeString, payload
}
