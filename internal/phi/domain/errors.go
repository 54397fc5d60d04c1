package domain

import (
	"github.com/openspace-ehr/phiguard/internal/errors"
)

// PHI encryption errors. Every failure is fail-closed: callers never receive
// partial or unauthenticated plaintext alongside one of these.
var (
	// ErrEncryptionFailed indicates the cipher could not produce a ciphertext.
	ErrEncryptionFailed = errors.Wrap(errors.ErrInternal, "encryption failed")

	// ErrDecryptionFailed indicates the authentication tag did not verify
	// (tampered data or wrong key). The cause is deliberately not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidFormat indicates the value is not a structurally valid encrypted blob.
	ErrInvalidFormat = errors.Wrap(errors.ErrInvalidInput, "invalid encrypted field format")

	// ErrConfiguration indicates the master secret is unavailable where no fallback is allowed.
	ErrConfiguration = errors.Wrap(errors.ErrInternal, "encryption key configuration error")

	// ErrUnknownFieldType indicates a type marker outside the supported set.
	ErrUnknownFieldType = errors.Wrap(errors.ErrInvalidInput, "unknown field type")

	// ErrFieldTypeMismatch indicates text that would not decode back unchanged under its type marker.
	ErrFieldTypeMismatch = errors.Wrap(errors.ErrInvalidInput, "value does not match field type")

	// ErrInvalidKeySize indicates key material of the wrong length.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrKeyMaterialClosed indicates the root key was already destroyed.
	ErrKeyMaterialClosed = errors.Wrap(errors.ErrInternal, "key material closed")
)
