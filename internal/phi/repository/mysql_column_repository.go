package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/openspace-ehr/phiguard/internal/database"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// MySQLColumnRepository implements column access for MySQL databases.
type MySQLColumnRepository struct {
	db *sql.DB
}

// Stats counts the cells of the target column by encryption state.
func (m *MySQLColumnRepository) Stats(
	ctx context.Context,
	target phiDomain.ColumnTarget,
) (phiDomain.ColumnStats, error) {
	if err := target.Validate(); err != nil {
		return phiDomain.ColumnStats{}, err
	}
	querier := database.GetTx(ctx, m.db)

	col := target.Column
	query := fmt.Sprintf(`SELECT COUNT(*),
			  COALESCE(SUM(CASE WHEN %s IS NULL OR %s = '' THEN 1 ELSE 0 END), 0),
			  COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)
			  FROM %s`, col, col, encryptedPredicate(col), target.Table)

	var stats phiDomain.ColumnStats
	if err := querier.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Empty, &stats.Encrypted); err != nil {
		return phiDomain.ColumnStats{}, apperrors.Wrapf(err, "failed to analyze %s", target)
	}
	stats.Plaintext = stats.Total - stats.Empty - stats.Encrypted

	return stats, nil
}

// ListPlaintext returns unencrypted cells after afterKey in key order.
func (m *MySQLColumnRepository) ListPlaintext(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	afterKey string,
	limit int,
) ([]phiDomain.ColumnValue, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, m.db)

	where := plaintextPredicate(target.Column)
	args := []any{}
	if afterKey != "" {
		where += fmt.Sprintf(" AND %s > ?", target.KeyColumn)
		args = append(args, afterKey)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s ORDER BY %s LIMIT ?`,
		target.KeyColumn, target.Column, target.Table, where, target.KeyColumn)

	return scanColumnValues(ctx, querier, target, query, args...)
}

// ListEncrypted returns up to limit encrypted cells in key order. limit <= 0 means all.
func (m *MySQLColumnRepository) ListEncrypted(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	limit int,
) ([]phiDomain.ColumnValue, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s ORDER BY %s`,
		target.KeyColumn, target.Column, target.Table, encryptedPredicate(target.Column), target.KeyColumn)
	if limit > 0 {
		return scanColumnValues(ctx, querier, target, query+" LIMIT ?", limit)
	}
	return scanColumnValues(ctx, querier, target, query)
}

// Update replaces one cell.
func (m *MySQLColumnRepository) Update(
	ctx context.Context,
	target phiDomain.ColumnTarget,
	key, value string,
) error {
	if err := target.Validate(); err != nil {
		return err
	}
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, target.Table, target.Column, target.KeyColumn)

	result, err := querier.ExecContext(ctx, query, value, key)
	if err != nil {
		return apperrors.Wrapf(err, "failed to update %s row %s", target, key)
	}
	return requireOneRow(result, target, key)
}

// NewMySQLColumnRepository creates a new MySQL column repository.
func NewMySQLColumnRepository(db *sql.DB) *MySQLColumnRepository {
	return &MySQLColumnRepository{db: db}
}
