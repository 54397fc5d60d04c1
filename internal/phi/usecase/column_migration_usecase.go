package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openspace-ehr/phiguard/internal/database"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// DefaultBatchSize is the number of rows rewritten per transaction.
const DefaultBatchSize = 500

// maxReportedErrors caps the per-row messages kept in a report.
const maxReportedErrors = 50

// columnMigrationUseCase implements ColumnMigrationUseCase.
type columnMigrationUseCase struct {
	txManager  database.TxManager
	columnRepo ColumnRepository
	encryption EncryptionUseCase
	logger     *slog.Logger
}

// NewColumnMigrationUseCase creates a ColumnMigrationUseCase.
func NewColumnMigrationUseCase(
	txManager database.TxManager,
	columnRepo ColumnRepository,
	encryption EncryptionUseCase,
	logger *slog.Logger,
) ColumnMigrationUseCase {
	return &columnMigrationUseCase{
		txManager:  txManager,
		columnRepo: columnRepo,
		encryption: encryption,
		logger:     logger,
	}
}

// Analyze counts cells by encryption state.
func (c *columnMigrationUseCase) Analyze(
	ctx context.Context,
	target phiDomain.ColumnTarget,
) (*phiDomain.ColumnReport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	stats, err := c.columnRepo.Stats(ctx, target)
	if err != nil {
		return nil, err
	}
	return &phiDomain.ColumnReport{Target: target, Stats: stats}, nil
}

// Encrypt rewrites plaintext cells batch by batch. A failing row is recorded
// and skipped; the rest of its batch is still committed.
func (c *columnMigrationUseCase) Encrypt(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	opts EncryptColumnOptions,
) (*phiDomain.ColumnReport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Hint == "" {
		opts.Hint = phiDomain.FieldTypeString
	}

	report := &phiDomain.ColumnReport{Target: target, DryRun: opts.DryRun}
	afterKey := ""

	for {
		var batch []phiDomain.ColumnValue

		err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
			var err error
			batch, err = c.columnRepo.ListPlaintext(ctx, target, afterKey, opts.BatchSize)
			if err != nil {
				return err
			}

			for _, cell := range batch {
				stored, err := c.encryptCell(ctx, target, cell.Value, opts)
				if err != nil {
					report.Failed++
					report.AddError(fmt.Sprintf("row %s: %v", cell.Key, err), maxReportedErrors)
					continue
				}

				if !opts.DryRun {
					if err := c.columnRepo.Update(ctx, target, cell.Key, stored); err != nil {
						return err
					}
				}
				report.Processed++
			}
			return nil
		})
		if err != nil {
			return report, err
		}

		if len(batch) == 0 {
			break
		}
		afterKey = batch[len(batch)-1].Key

		c.logger.Info("phi column batch processed",
			slog.String("target", target.String()),
			slog.Int("processed", report.Processed),
			slog.Int("failed", report.Failed),
			slog.Bool("dry_run", opts.DryRun),
		)

		if len(batch) < opts.BatchSize {
			break
		}
	}

	stats, err := c.columnRepo.Stats(ctx, target)
	if err != nil {
		return report, err
	}
	report.Stats = stats

	return report, nil
}

func (c *columnMigrationUseCase) encryptCell(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	value string,
	opts EncryptColumnOptions,
) (string, error) {
	if opts.Searchable {
		return c.encryption.EncryptSearchable(ctx, value, target.String())
	}
	return c.encryption.EncryptField(ctx, value, opts.Hint)
}

// Verify decrypts encrypted cells and reports the ones that fail authentication.
func (c *columnMigrationUseCase) Verify(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	sampleSize int,
) (*phiDomain.ColumnReport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	cells, err := c.columnRepo.ListEncrypted(ctx, target, sampleSize)
	if err != nil {
		return nil, err
	}

	report := &phiDomain.ColumnReport{Target: target}
	for _, cell := range cells {
		if _, err := c.encryption.DecryptSearchable(ctx, cell.Value); err != nil {
			report.Failed++
			report.AddError(fmt.Sprintf("row %s: %v", cell.Key, err), maxReportedErrors)
			continue
		}
		report.Processed++
	}

	if report.Failed > 0 {
		c.logger.Warn("phi column verification failed",
			slog.String("target", target.String()),
			slog.Int("checked", len(cells)),
			slog.Int("failed", report.Failed),
		)
	}

	return report, nil
}
