// Package service provides the cryptographic primitives behind PHI field
// encryption: AES-256-GCM, HKDF key derivation and KMS access for wrapped master secrets.
package service

import (
	"context"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Seal encrypts plaintext under nonce and returns ciphertext with the tag appended.
	Seal(nonce, plaintext, aad []byte) ([]byte, error)

	// Open authenticates and decrypts ciphertext produced by Seal.
	Open(nonce, ciphertext, aad []byte) ([]byte, error)
}

// CipherFactory creates AEAD instances for per-message keys.
type CipherFactory interface {
	NewCipher(key []byte) (AEAD, error)
}

// KeyDeriver derives sub-keys from the root key with HKDF-SHA256.
type KeyDeriver interface {
	// Derive returns a 32-byte key for the given salt (may be nil) and info string.
	Derive(salt []byte, info string) ([]byte, error)
}

// KMSKeeper decrypts a KMS-wrapped master secret. *secrets.Keeper implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens keepers for a KMS key URI.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}
