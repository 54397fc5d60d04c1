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

// MySQLPatientRepository reads the DOB column of the configured patient table.
type MySQLPatientRepository struct {
	db     *sql.DB
	target phiDomain.ColumnTarget
}

// GetDateOfBirth returns the stored DOB or ErrPatientNotFound. NULL reads as "".
func (m *MySQLPatientRepository) GetDateOfBirth(ctx context.Context, patientID string) (string, error) {
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, m.target.Column, m.target.Table, m.target.KeyColumn)

	var dob sql.NullString
	if err := querier.QueryRowContext(ctx, query, patientID).Scan(&dob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", accessDomain.ErrPatientNotFound
		}
		return "", apperrors.Wrap(err, "failed to get patient date of birth")
	}
	return dob.String, nil
}

// NewMySQLPatientRepository creates a new MySQL patient repository.
// target names the patient table, its DOB column and its key column.
func NewMySQLPatientRepository(db *sql.DB, target phiDomain.ColumnTarget) (*MySQLPatientRepository, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &MySQLPatientRepository{db: db, target: target}, nil
}
