package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	"github.com/openspace-ehr/phiguard/internal/database"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

// PostgreSQLPatientRepository reads the DOB column of the configured patient table.
type PostgreSQLPatientRepository struct {
	db     *sql.DB
	target phiDomain.ColumnTarget
}

// GetDateOfBirth returns the stored DOB or ErrPatientNotFound. NULL reads as "".
func (p *PostgreSQLPatientRepository) GetDateOfBirth(ctx context.Context, patientID string) (string, error) {
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, p.target.Column, p.target.Table, p.target.KeyColumn)

	var dob sql.NullString
	if err := querier.QueryRowContext(ctx, query, patientID).Scan(&dob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", accessDomain.ErrPatientNotFound
		}
		return "", apperrors.Wrap(err, "failed to get patient date of birth")
	}
	return dob.String, nil
}

// NewPostgreSQLPatientRepository creates a new PostgreSQL patient repository.
// target names the patient table, its DOB column and its key column.
func NewPostgreSQLPatientRepository(db *sql.DB, target phiDomain.ColumnTarget) (*PostgreSQLPatientRepository, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &PostgreSQLPatientRepository{db: db, target: target}, nil
}
