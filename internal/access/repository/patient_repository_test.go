package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accessDomain "github.com/openspace-ehr/phiguard/internal/access/domain"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

var dobTarget = phiDomain.ColumnTarget{Table: "patients", Column: "date_of_birth", KeyColumn: "id"}

func TestPostgreSQLPatientRepository_GetDateOfBirth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewPostgreSQLPatientRepository(db, dobTarget)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT date_of_birth FROM patients WHERE id = $1")).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"date_of_birth"}).AddRow("1958-11-03"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT date_of_birth FROM patients WHERE id = $1")).
		WithArgs("43").
		WillReturnRows(sqlmock.NewRows([]string{"date_of_birth"}).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT date_of_birth FROM patients WHERE id = $1")).
		WithArgs("404").
		WillReturnError(sql.ErrNoRows)

	dob, err := repo.GetDateOfBirth(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "1958-11-03", dob)

	dob, err = repo.GetDateOfBirth(context.Background(), "43")
	require.NoError(t, err)
	assert.Empty(t, dob)

	_, err = repo.GetDateOfBirth(context.Background(), "404")
	assert.ErrorIs(t, err, accessDomain.ErrPatientNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLPatientRepository_GetDateOfBirth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo, err := NewMySQLPatientRepository(db, dobTarget)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT date_of_birth FROM patients WHERE id = ?")).
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"date_of_birth"}).AddRow("ENC:v1:abc"))

	dob, err := repo.GetDateOfBirth(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "ENC:v1:abc", dob)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPatientRepository_InvalidTarget(t *testing.T) {
	target := phiDomain.ColumnTarget{Table: "patients; DROP TABLE x", Column: "date_of_birth", KeyColumn: "id"}

	_, err := NewPostgreSQLPatientRepository(nil, target)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewMySQLPatientRepository(nil, target)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
