package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
)

// devKeyFileMode restricts the development key file to its owner.
const devKeyFileMode fs.FileMode = 0o600

// KeyLoaderOptions describes where the master secret may come from.
type KeyLoaderOptions struct {
	// MasterSecret is the HIPAA_ENCRYPTION_KEY value. When KMSKeyURI is set it
	// holds the base64 KMS ciphertext of the secret instead.
	MasterSecret string
	KMSKeyURI    string
	// KeyFile is the development fallback file.
	KeyFile string
	// Production disables the key file and generation fallbacks.
	Production bool
}

// LoadKeyMaterial resolves the master secret and derives the root key.
//
// Order: environment secret (optionally KMS-wrapped), then the development key
// file, then a freshly generated secret persisted to the key file. Outside
// development the fallbacks are refused with ErrConfiguration.
func LoadKeyMaterial(
	ctx context.Context,
	opts KeyLoaderOptions,
	kmsService phiService.KMSService,
	logger *slog.Logger,
) (*phiDomain.KeyMaterial, error) {
	if opts.MasterSecret != "" {
		if opts.KMSKeyURI == "" {
			return phiDomain.NewKeyMaterial([]byte(opts.MasterSecret), phiDomain.KeySourceEnv)
		}

		secret, err := unwrapMasterSecret(ctx, kmsService, opts.KMSKeyURI, opts.MasterSecret)
		if err != nil {
			return nil, err
		}
		return phiDomain.NewKeyMaterial(secret, phiDomain.KeySourceKMS)
	}

	if opts.Production {
		return nil, fmt.Errorf(
			"%w: HIPAA_ENCRYPTION_KEY must be set in production",
			phiDomain.ErrConfiguration,
		)
	}

	if opts.KeyFile == "" {
		return nil, fmt.Errorf("%w: no master secret and no key file configured", phiDomain.ErrConfiguration)
	}

	secret, err := os.ReadFile(opts.KeyFile)
	switch {
	case err == nil:
		trimmed := []byte(strings.TrimSpace(string(secret)))
		memguard.WipeBytes(secret)
		if len(trimmed) == 0 {
			return nil, fmt.Errorf("%w: key file %s is empty", phiDomain.ErrConfiguration, opts.KeyFile)
		}
		logger.Warn("configuration_warning",
			slog.String("reason", "HIPAA_ENCRYPTION_KEY not set, using development key file"),
			slog.String("key_file", opts.KeyFile),
		)
		return phiDomain.NewKeyMaterial(trimmed, phiDomain.KeySourceFile)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("%w: failed to read key file: %v", phiDomain.ErrConfiguration, err)
	}

	generated, err := GenerateMasterSecret()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(opts.KeyFile, []byte(generated), devKeyFileMode); err != nil {
		return nil, fmt.Errorf("%w: failed to persist generated key: %v", phiDomain.ErrConfiguration, err)
	}

	logger.Error("configuration_warning",
		slog.String("reason", "HIPAA_ENCRYPTION_KEY not set, generated a new development key"),
		slog.String("key_file", opts.KeyFile),
		slog.String("action", "set HIPAA_ENCRYPTION_KEY before storing real patient data"),
	)
	return phiDomain.NewKeyMaterial([]byte(generated), phiDomain.KeySourceGenerated)
}

// GenerateMasterSecret returns 32 random bytes hex encoded.
func GenerateMasterSecret() (string, error) {
	raw := make([]byte, phiDomain.KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("failed to generate master secret: %w", err)
	}
	defer memguard.WipeBytes(raw)
	return hex.EncodeToString(raw), nil
}

// WrapMasterSecret encrypts secret with the KMS key and returns base64 ciphertext
// suitable for HIPAA_ENCRYPTION_KEY.
func WrapMasterSecret(
	ctx context.Context,
	kmsService phiService.KMSService,
	keyURI, secret string,
) (string, error) {
	keeper, err := kmsService.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to wrap master secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func unwrapMasterSecret(
	ctx context.Context,
	kmsService phiService.KMSService,
	keyURI, wrapped string,
) ([]byte, error) {
	if kmsService == nil {
		return nil, fmt.Errorf("%w: KMS key URI set but no KMS service available", phiDomain.ErrConfiguration)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped master secret is not valid base64", phiDomain.ErrConfiguration)
	}

	keeper, err := kmsService.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", phiDomain.ErrConfiguration, err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	secret, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unwrap master secret: %v", phiDomain.ErrConfiguration, err)
	}
	return secret, nil
}
