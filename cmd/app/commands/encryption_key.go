package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	phiService "github.com/openspace-ehr/phiguard/internal/phi/service"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

// RunCreateEncryptionKey generates a new per-install master secret and prints it
// as environment assignments. With kmsKeyURI set the secret is wrapped by the KMS
// key and only the ciphertext is printed.
//
// Losing the printed value makes every encrypted field unreadable.
func RunCreateEncryptionKey(
	ctx context.Context,
	kmsService phiService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsKeyURI string,
) error {
	secret, err := phiUseCase.GenerateMasterSecret()
	if err != nil {
		return err
	}

	if kmsKeyURI == "" {
		logger.Info("generated plaintext master secret")

		_, _ = fmt.Fprintln(writer, "# Store this value in your secret manager. It cannot be recovered.")
		_, _ = fmt.Fprintf(writer, "HIPAA_ENCRYPTION_KEY=\"%s\"\n", secret)
		return nil
	}

	wrapped, err := phiUseCase.WrapMasterSecret(ctx, kmsService, kmsKeyURI, secret)
	if err != nil {
		return fmt.Errorf("failed to wrap master secret with KMS: %w", err)
	}

	logger.Info("generated KMS-wrapped master secret")

	_, _ = fmt.Fprintln(writer, "# KMS Mode: the master secret is wrapped by the KMS key below.")
	_, _ = fmt.Fprintf(writer, "HIPAA_ENCRYPTION_KEY=\"%s\"\n", wrapped)
	_, _ = fmt.Fprintf(writer, "HIPAA_ENCRYPTION_KEY_KMS_URI=\"%s\"\n", kmsKeyURI)
	return nil
}
