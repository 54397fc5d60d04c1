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

// MySQLSettingsRepository implements system settings persistence for MySQL.
type MySQLSettingsRepository struct {
	db *sql.DB
}

// Get returns the value of name or ErrSettingNotFound.
func (m *MySQLSettingsRepository) Get(ctx context.Context, name string) (string, error) {
	querier := database.GetTx(ctx, m.db)

	var value string
	err := querier.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE name = ?`, name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", accessDomain.ErrSettingNotFound
		}
		return "", apperrors.Wrapf(err, "failed to get system setting %s", name)
	}
	return value, nil
}

// Set inserts or replaces the value of name.
func (m *MySQLSettingsRepository) Set(ctx context.Context, name, value string) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO system_settings (name, value, updated_at) VALUES (?, ?, ?)
			  ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`

	if _, err := querier.ExecContext(ctx, query, name, value, time.Now().UTC()); err != nil {
		return apperrors.Wrapf(err, "failed to set system setting %s", name)
	}
	return nil
}

// NewMySQLSettingsRepository creates a new MySQL settings repository.
func NewMySQLSettingsRepository(db *sql.DB) *MySQLSettingsRepository {
	return &MySQLSettingsRepository{db: db}
}
