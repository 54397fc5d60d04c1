package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyMaterial(t *testing.T) {
	t.Run("derives a 32-byte root key", func(t *testing.T) {
		km, err := NewKeyMaterial([]byte("install-secret"), KeySourceEnv)
		require.NoError(t, err)
		defer km.Close()

		root, err := km.RootKey()
		require.NoError(t, err)
		assert.Len(t, root, KeySize)
		assert.Equal(t, KeySourceEnv, km.Source())
	})

	t.Run("derivation is deterministic for the same secret", func(t *testing.T) {
		km1, err := NewKeyMaterial([]byte("install-secret"), KeySourceEnv)
		require.NoError(t, err)
		defer km1.Close()

		km2, err := NewKeyMaterial([]byte("install-secret"), KeySourceFile)
		require.NoError(t, err)
		defer km2.Close()

		root1, err := km1.RootKey()
		require.NoError(t, err)
		root2, err := km2.RootKey()
		require.NoError(t, err)
		assert.Equal(t, root1, root2)
	})

	t.Run("different secrets produce different root keys", func(t *testing.T) {
		km1, err := NewKeyMaterial([]byte("secret-a"), KeySourceEnv)
		require.NoError(t, err)
		defer km1.Close()

		km2, err := NewKeyMaterial([]byte("secret-b"), KeySourceEnv)
		require.NoError(t, err)
		defer km2.Close()

		root1, _ := km1.RootKey()
		root2, _ := km2.RootKey()
		assert.NotEqual(t, root1, root2)
	})

	t.Run("root key is not the master secret", func(t *testing.T) {
		secret := []byte("0123456789abcdef0123456789abcdef")
		expected := append([]byte(nil), secret...)

		km, err := NewKeyMaterial(secret, KeySourceEnv)
		require.NoError(t, err)
		defer km.Close()

		root, _ := km.RootKey()
		assert.NotEqual(t, expected, root)
	})

	t.Run("master secret is wiped", func(t *testing.T) {
		secret := []byte("wipe-me")
		km, err := NewKeyMaterial(secret, KeySourceEnv)
		require.NoError(t, err)
		defer km.Close()

		assert.Equal(t, make([]byte, len(secret)), secret)
	})

	t.Run("empty secret is a configuration error", func(t *testing.T) {
		_, err := NewKeyMaterial(nil, KeySourceEnv)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestKeyMaterial_Close(t *testing.T) {
	km, err := NewKeyMaterial([]byte("install-secret"), KeySourceGenerated)
	require.NoError(t, err)

	km.Close()

	_, err = km.RootKey()
	assert.ErrorIs(t, err, ErrKeyMaterialClosed)
	assert.NotPanics(t, km.Close)
}
