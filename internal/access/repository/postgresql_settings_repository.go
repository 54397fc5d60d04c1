// Package repository persists system settings and reads patient fields from
// the record store for the access guard.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	"github.com/openspace-ehr/phiguard/internal/database"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// PostgreSQLSettingsRepository implements system settings persistence for PostgreSQL.
type PostgreSQLSettingsRepository struct {
	db *sql.DB
}

// Get returns the value of name or ErrSettingNotFound.
func (p *PostgreSQLSettingsRepository) Get(ctx context.Context, name string) (string, error) {
	querier := database.GetTx(ctx, p.db)

	var value string
	err := querier.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE name = $1`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", accessDomain.ErrSettingNotFound
		}
		return "", apperrors.Wrapf(err, "failed to get system setting %s", name)
	}
	return value, nil
}

// Set inserts or replaces the value of name.
func (p *PostgreSQLSettingsRepository) Set(ctx context.Context, name, value string) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO system_settings (name, value, updated_at) VALUES ($1, $2, $3)
			  ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := querier.ExecContext(ctx, query, name, value, time.Now().UTC()); err != nil {
		return apperrors.Wrapf(err, "failed to set system setting %s", name)
	}
	return nil
}

// NewPostgreSQLSettingsRepository creates a new PostgreSQL settings repository.
func NewPostgreSQLSettingsRepository(db *sql.DB) *PostgreSQLSettingsRepository {
	return &PostgreSQLSettingsRepository{db: db}
}
