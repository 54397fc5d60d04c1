package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
)

// maxReportedErrors caps the per-row messages kept in each column report.
const maxReportedErrors = 20

// parseColumnTargets parses every "table.column[:key]" argument.
func parseColumnTargets(args []string) ([]phiDomain.ColumnTarget, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one column target (table.column[:key_column]) is required")
	}
	targets := make([]phiDomain.ColumnTarget, 0, len(args))
	for _, arg := range args {
		target, err := phiDomain.ParseColumnTarget(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid column target %q: %w", arg, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// RunAnalyzeColumns reports how many cells of each column are encrypted.
func RunAnalyzeColumns(
	ctx context.Context,
	useCase phiUseCase.ColumnMigrationUseCase,
	writer io.Writer,
	args []string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	targets, err := parseColumnTargets(args)
	if err != nil {
		return err
	}

	reports := make([]*phiDomain.ColumnReport, 0, len(targets))
	for _, target := range targets {
		report, err := useCase.Analyze(ctx, target)
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", target, err)
		}
		reports = append(reports, report)
	}

	return outputColumnReports(writer, "PHI Column Analysis", reports, format)
}

// RunEncryptColumns rewrites plaintext cells of each column as encrypted fields.
// A column that fails does not stop the others; the combined error is returned.
func RunEncryptColumns(
	ctx context.Context,
	useCase phiUseCase.ColumnMigrationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	args []string,
	opts phiUseCase.EncryptColumnOptions,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if opts.Hint != "" {
		if _, err := parseFieldType(string(opts.Hint)); err != nil {
			return err
		}
	}
	targets, err := parseColumnTargets(args)
	if err != nil {
		return err
	}

	var errs []error
	reports := make([]*phiDomain.ColumnReport, 0, len(targets))
	for _, target := range targets {
		logger.Info("encrypting column",
			slog.String("target", target.String()),
			slog.Bool("dry_run", opts.DryRun),
			slog.Bool("searchable", opts.Searchable),
		)

		report, err := useCase.Encrypt(ctx, target, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to encrypt %s: %w", target, err))
			continue
		}
		reports = append(reports, report)
		if !report.OK() {
			errs = append(errs, fmt.Errorf("%s: %d row(s) failed", target, report.Failed))
		}
	}

	title := "PHI Column Encryption"
	if opts.DryRun {
		title += " (dry run)"
	}
	if err := outputColumnReports(writer, title, reports, format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RunVerifyColumns decrypts a sample of encrypted cells of each column.
func RunVerifyColumns(
	ctx context.Context,
	useCase phiUseCase.ColumnMigrationUseCase,
	writer io.Writer,
	args []string,
	sampleSize int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	targets, err := parseColumnTargets(args)
	if err != nil {
		return err
	}

	var errs []error
	reports := make([]*phiDomain.ColumnReport, 0, len(targets))
	for _, target := range targets {
		report, err := useCase.Verify(ctx, target, sampleSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to verify %s: %w", target, err))
			continue
		}
		reports = append(reports, report)
		if !report.OK() {
			errs = append(errs, fmt.Errorf("%s: %d value(s) failed to decrypt", target, report.Failed))
		}
	}

	if err := outputColumnReports(writer, "PHI Column Verification", reports, format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func outputColumnReports(writer io.Writer, title string, reports []*phiDomain.ColumnReport, format string) error {
	if format == "json" {
		items := make([]map[string]any, 0, len(reports))
		for _, report := range reports {
			items = append(items, map[string]any{
				"target":    report.Target.String(),
				"status":    report.Stats.Status(),
				"total":     report.Stats.Total,
				"empty":     report.Stats.Empty,
				"encrypted": report.Stats.Encrypted,
				"plaintext": report.Stats.Plaintext,
				"processed": report.Processed,
				"failed":    report.Failed,
				"dry_run":   report.DryRun,
				"errors":    report.Errors,
			})
		}
		return writeJSON(writer, map[string]any{"columns": items})
	}

	_, _ = fmt.Fprintf(writer, "%s\n\n", title)
	for _, report := range reports {
		stats := report.Stats
		_, _ = fmt.Fprintf(writer, "%s [%s]\n", report.Target, stats.Status())
		_, _ = fmt.Fprintf(writer, "  Total:      %d\n", stats.Total)
		_, _ = fmt.Fprintf(writer, "  Empty:      %d\n", stats.Empty)
		_, _ = fmt.Fprintf(writer, "  Encrypted:  %d\n", stats.Encrypted)
		_, _ = fmt.Fprintf(writer, "  Plaintext:  %d\n", stats.Plaintext)
		if report.Processed > 0 || report.Failed > 0 {
			_, _ = fmt.Fprintf(writer, "  Processed:  %d\n", report.Processed)
			_, _ = fmt.Fprintf(writer, "  Failed:     %d\n", report.Failed)
		}
		for _, msg := range report.Errors {
			_, _ = fmt.Fprintf(writer, "  ! %s\n", msg)
		}
		_, _ = fmt.Fprintln(writer)
	}
	return nil
}
