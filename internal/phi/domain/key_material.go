package domain

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"
)

// KeySource records where the master secret came from.
type KeySource string

const (
	KeySourceEnv       KeySource = "env"
	KeySourceKMS       KeySource = "kms"
	KeySourceFile      KeySource = "file"
	KeySourceGenerated KeySource = "generated"
)

// KeyMaterial holds the 256-bit root key derived from the per-install master secret.
//
// The master secret itself is never retained: it is run through HKDF-SHA256 with
// RootKeyInfo and wiped. The root key lives in a frozen memguard buffer, so it is
// read-only shared state and safe for concurrent readers.
type KeyMaterial struct {
	rootKey *memguard.LockedBuffer
	source  KeySource
}

// NewKeyMaterial derives the root key from masterSecret. masterSecret is wiped
// before returning, whether or not derivation succeeds.
func NewKeyMaterial(masterSecret []byte, source KeySource) (*KeyMaterial, error) {
	defer memguard.WipeBytes(masterSecret)

	if len(masterSecret) == 0 {
		return nil, fmt.Errorf("%w: empty master secret", ErrConfiguration)
	}

	root := make([]byte, KeySize)
	reader := hkdf.New(sha256.New, masterSecret, nil, []byte(RootKeyInfo))
	if _, err := io.ReadFull(reader, root); err != nil {
		memguard.WipeBytes(root)
		return nil, fmt.Errorf("failed to derive root key: %w", err)
	}

	// NewBufferFromBytes wipes root after copying it into locked memory.
	buf := memguard.NewBufferFromBytes(root)
	buf.Freeze()

	return &KeyMaterial{rootKey: buf, source: source}, nil
}

// RootKey returns a read-only view of the root key. The slice must not be
// modified or retained past Close.
func (k *KeyMaterial) RootKey() ([]byte, error) {
	if k == nil || k.rootKey == nil || !k.rootKey.IsAlive() {
		return nil, ErrKeyMaterialClosed
	}
	return k.rootKey.Bytes(), nil
}

// Source reports where the master secret was loaded from.
func (k *KeyMaterial) Source() KeySource {
	return k.source
}

// Close destroys the root key. Subsequent RootKey calls fail.
func (k *KeyMaterial) Close() {
	if k == nil || k.rootKey == nil {
		return
	}
	k.rootKey.Destroy()
}
