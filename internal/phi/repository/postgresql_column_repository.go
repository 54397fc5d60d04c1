// Package repository reads and rewrites PHI columns of the record store.
// Table and column names come from validated ColumnTargets and are interpolated
// into the SQL text; cell values are always bound as parameters.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openspace-ehr/phiguard/internal/database"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// encryptedPredicate matches plain encrypted fields and searchable "<index>|ENC:..." values.
func encryptedPredicate(column string) string {
	return "(" + column + " LIKE 'ENC:%' OR " + column + " LIKE '%|ENC:%')"
}

func plaintextPredicate(column string) string {
	return column + " IS NOT NULL AND " + column + " <> '' AND NOT " + encryptedPredicate(column)
}

// PostgreSQLColumnRepository implements column access for PostgreSQL databases.
type PostgreSQLColumnRepository struct {
	db *sql.DB
}

// Stats counts the cells of the target column by encryption state.
func (p *PostgreSQLColumnRepository) Stats(
	ctx context.Context,
	target phiDomain.ColumnTarget,
) (phiDomain.ColumnStats, error) {
	if err := target.Validate(); err != nil {
		return phiDomain.ColumnStats{}, err
	}
	querier := database.GetTx(ctx, p.db)

	col := target.Column
	query := fmt.Sprintf(`SELECT COUNT(*),
			  COUNT(*) FILTER (WHERE %s IS NULL OR %s = ''),
			  COUNT(*) FILTER (WHERE %s)
			  FROM %s`, col, col, encryptedPredicate(col), target.Table)

	var stats phiDomain.ColumnStats
	if err := querier.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Empty, &stats.Encrypted); err != nil {
		return phiDomain.ColumnStats{}, apperrors.Wrapf(err, "failed to analyze %s", target)
	}
	stats.Plaintext = stats.Total - stats.Empty - stats.Encrypted

	return stats, nil
}

// ListPlaintext returns unencrypted cells after afterKey in key order.
func (p *PostgreSQLColumnRepository) ListPlaintext(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	afterKey string,
	limit int,
) ([]phiDomain.ColumnValue, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, p.db)

	where := plaintextPredicate(target.Column)
	args := []any{}
	if afterKey != "" {
		args = append(args, afterKey)
		where += fmt.Sprintf(" AND %s > $%d", target.KeyColumn, len(args))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s ORDER BY %s LIMIT $%d`,
		target.KeyColumn, target.Column, target.Table, where, target.KeyColumn, len(args))

	return scanColumnValues(ctx, querier, target, query, args...)
}

// ListEncrypted returns up to limit encrypted cells in key order. limit <= 0 means all.
func (p *PostgreSQLColumnRepository) ListEncrypted(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	limit int,
) ([]phiDomain.ColumnValue, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s ORDER BY %s`,
		target.KeyColumn, target.Column, target.Table, encryptedPredicate(target.Column), target.KeyColumn)
	if limit > 0 {
		return scanColumnValues(ctx, querier, target, query+" LIMIT $1", limit)
	}
	return scanColumnValues(ctx, querier, target, query)
}

// Update replaces one cell.
func (p *PostgreSQLColumnRepository) Update(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	key, value string,
) error {
	if err := target.Validate(); err != nil {
		return err
	}
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`, target.Table, target.Column, target.KeyColumn)

	result, err := querier.ExecContext(ctx, query, value, key)
	if err != nil {
		return apperrors.Wrapf(err, "failed to update %s row %s", target, key)
	}
	return requireOneRow(result, target, key)
}

// NewPostgreSQLColumnRepository creates a new PostgreSQL column repository.
func NewPostgreSQLColumnRepository(db *sql.DB) *PostgreSQLColumnRepository {
	return &PostgreSQLColumnRepository{db: db}
}

func scanColumnValues(
	ctx context.Context,
	querier database.Querier,
	target phiDomain.ColumnTarget,
	query string,
	args ...any,
) ([]phiDomain.ColumnValue, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to list %s", target)
	}
	defer func() {
		_ = rows.Close()
	}()

	var values []phiDomain.ColumnValue
	for rows.Next() {
		var cell phiDomain.ColumnValue
		if err := rows.Scan(&cell.Key, &cell.Value); err != nil {
			return nil, apperrors.Wrapf(err, "failed to scan %s", target)
		}
		values = append(values, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(err, "failed to iterate %s", target)
	}

	return values, nil
}

func requireOneRow(result sql.Result, target phiDomain.ColumnTarget, key string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "%s row %s", target, key)
	}
	return nil
}
