package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	accessUseCase "github.com/openspace-ehr/phiguard/internal/access/usecase"
)

// RunProtectionStatus prints whether patient DOB re-verification is enforced and
// where the value comes from.
func RunProtectionStatus(
	ctx context.Context,
	protection accessUseCase.ProtectionUseCase,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	enabled, source, err := protection.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read patient protection setting: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{"enabled": enabled, "source": source})
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	_, _ = fmt.Fprintf(writer, "Patient protection: %s (source: %s)\n", state, source)
	return nil
}

// RunSetProtection stores the deployment-wide patient protection toggle.
func RunSetProtection(
	ctx context.Context,
	protection accessUseCase.ProtectionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	enabled bool,
) error {
	if err := protection.SetEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("failed to update patient protection setting: %w", err)
	}

	logger.Info("patient protection updated", slog.Bool("enabled", enabled))
	if enabled {
		_, _ = fmt.Fprintln(writer, "Patient protection enabled")
	} else {
		_, _ = fmt.Fprintln(writer, "Patient protection disabled")
	}
	return nil
}
