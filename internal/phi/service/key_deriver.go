package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

type hkdfDeriver struct {
	keyMaterial *phiDomain.KeyMaterial
}

// NewKeyDeriver creates an HKDF-SHA256 KeyDeriver over the root key.
func NewKeyDeriver(keyMaterial *phiDomain.KeyMaterial) KeyDeriver {
	return &hkdfDeriver{keyMaterial: keyMaterial}
}

// Derive expands the root key into a 32-byte sub-key bound to salt and info.
func (h *hkdfDeriver) Derive(salt []byte, info string) ([]byte, error) {
	root, err := h.keyMaterial.RootKey()
	if err != nil {
		return nil, err
	}

	key := make([]byte, phiDomain.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, root, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
