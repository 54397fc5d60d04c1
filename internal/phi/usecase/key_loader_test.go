package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func localKeyURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

func rootKeyOf(t *testing.T, km *phiDomain.KeyMaterial) []byte {
	t.Helper()
	root, err := km.RootKey()
	require.NoError(t, err)
	return append([]byte(nil), root...)
}

func TestLoadKeyMaterial(t *testing.T) {
	ctx := context.Background()
	kms := phiService.NewKMSService()

	t.Run("environment secret", func(t *testing.T) {
		km, err := LoadKeyMaterial(ctx, KeyLoaderOptions{MasterSecret: "install-secret"}, kms, discardLogger())
		require.NoError(t, err)
		defer km.Close()
		assert.Equal(t, phiDomain.KeySourceEnv, km.Source())
	})

	t.Run("environment secret wins in production", func(t *testing.T) {
		km, err := LoadKeyMaterial(
			ctx,
			KeyLoaderOptions{MasterSecret: "install-secret", Production: true},
			kms,
			discardLogger(),
		)
		require.NoError(t, err)
		km.Close()
	})

	t.Run("kms wrapped secret", func(t *testing.T) {
		uri := localKeyURI(t)
		wrapped, err := WrapMasterSecret(ctx, kms, uri, "install-secret")
		require.NoError(t, err)

		km, err := LoadKeyMaterial(ctx, KeyLoaderOptions{MasterSecret: wrapped, KMSKeyURI: uri}, kms, discardLogger())
		require.NoError(t, err)
		defer km.Close()
		assert.Equal(t, phiDomain.KeySourceKMS, km.Source())

		plain, err := LoadKeyMaterial(ctx, KeyLoaderOptions{MasterSecret: "install-secret"}, kms, discardLogger())
		require.NoError(t, err)
		defer plain.Close()
		assert.Equal(t, rootKeyOf(t, plain), rootKeyOf(t, km))
	})

	t.Run("kms wrapped secret with the wrong key", func(t *testing.T) {
		wrapped, err := WrapMasterSecret(ctx, kms, localKeyURI(t), "install-secret")
		require.NoError(t, err)

		_, err = LoadKeyMaterial(
			ctx,
			KeyLoaderOptions{MasterSecret: wrapped, KMSKeyURI: localKeyURI(t)},
			kms,
			discardLogger(),
		)
		assert.ErrorIs(t, err, phiDomain.ErrConfiguration)
	})

	t.Run("kms wrapped secret that is not base64", func(t *testing.T) {
		_, err := LoadKeyMaterial(
			ctx,
			KeyLoaderOptions{MasterSecret: "%%%", KMSKeyURI: localKeyURI(t)},
			kms,
			discardLogger(),
		)
		assert.ErrorIs(t, err, phiDomain.ErrConfiguration)
	})

	t.Run("production without secret fails", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), ".encryption_key")
		require.NoError(t, os.WriteFile(keyFile, []byte("dev-secret"), 0o600))

		_, err := LoadKeyMaterial(ctx, KeyLoaderOptions{KeyFile: keyFile, Production: true}, kms, discardLogger())
		assert.ErrorIs(t, err, phiDomain.ErrConfiguration)
	})

	t.Run("development key file", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), ".encryption_key")
		require.NoError(t, os.WriteFile(keyFile, []byte("install-secret\n"), 0o600))

		km, err := LoadKeyMaterial(ctx, KeyLoaderOptions{KeyFile: keyFile}, kms, discardLogger())
		require.NoError(t, err)
		defer km.Close()
		assert.Equal(t, phiDomain.KeySourceFile, km.Source())

		env, err := LoadKeyMaterial(ctx, KeyLoaderOptions{MasterSecret: "install-secret"}, kms, discardLogger())
		require.NoError(t, err)
		defer env.Close()
		assert.Equal(t, rootKeyOf(t, env), rootKeyOf(t, km))
	})

	t.Run("empty key file", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), ".encryption_key")
		require.NoError(t, os.WriteFile(keyFile, []byte("  \n"), 0o600))

		_, err := LoadKeyMaterial(ctx, KeyLoaderOptions{KeyFile: keyFile}, kms, discardLogger())
		assert.ErrorIs(t, err, phiDomain.ErrConfiguration)
	})

	t.Run("generates and persists a development key", func(t *testing.T) {
		keyFile := filepath.Join(t.TempDir(), ".encryption_key")

		km, err := LoadKeyMaterial(ctx, KeyLoaderOptions{KeyFile: keyFile}, kms, discardLogger())
		require.NoError(t, err)
		defer km.Close()
		assert.Equal(t, phiDomain.KeySourceGenerated, km.Source())

		info, err := os.Stat(keyFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		content, err := os.ReadFile(keyFile)
		require.NoError(t, err)
		assert.Len(t, content, 64)

		reloaded, err := LoadKeyMaterial(ctx, KeyLoaderOptions{KeyFile: keyFile}, kms, discardLogger())
		require.NoError(t, err)
		defer reloaded.Close()
		assert.Equal(t, rootKeyOf(t, km), rootKeyOf(t, reloaded))
	})

	t.Run("no source at all", func(t *testing.T) {
		_, err := LoadKeyMaterial(ctx, KeyLoaderOptions{}, kms, discardLogger())
		assert.ErrorIs(t, err, phiDomain.ErrConfiguration)
	})
}

func TestGenerateMasterSecret(t *testing.T) {
	first, err := GenerateMasterSecret()
	require.NoError(t, err)
	second, err := GenerateMasterSecret()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
