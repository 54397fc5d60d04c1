package service

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// AESGCMCipher implements AEAD using AES-256-GCM with a 12-byte nonce and a
// 16-byte tag appended to the ciphertext.
//
// Nonces are supplied by the caller because the field format stores them
// explicitly next to the salt. Each field value is sealed under its own HKDF
// derived key, so a nonce is never reused under the same key.
//
// The instance is stateless after construction and safe for concurrent use.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher. The key must be exactly 32 bytes.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != phiDomain.KeySize {
		return nil, phiDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Seal encrypts plaintext. The returned ciphertext carries the authentication tag.
func (a *AESGCMCipher) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != a.aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", phiDomain.ErrEncryptionFailed, a.aead.NonceSize())
	}
	return a.aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open verifies the tag and decrypts. No plaintext is returned on failure.
func (a *AESGCMCipher) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != a.aead.NonceSize() {
		return nil, phiDomain.ErrDecryptionFailed
	}
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, phiDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// AESGCMFactory creates AESGCMCipher instances.
type AESGCMFactory struct{}

// NewAESGCMFactory creates a new AESGCMFactory.
func NewAESGCMFactory() *AESGCMFactory {
	return &AESGCMFactory{}
}

// NewCipher creates an AES-256-GCM cipher for key.
func (f *AESGCMFactory) NewCipher(key []byte) (AEAD, error) {
	return NewAESGCM(key)
}
