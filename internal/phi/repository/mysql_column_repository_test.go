package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
)

func TestMySQLColumnRepository_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(CASE WHEN last_name IS NULL OR last_name = '' THEN 1 ELSE 0 END), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "empty", "encrypted"}).AddRow(4, 0, 4))

	stats, err := NewMySQLColumnRepository(db).Stats(context.Background(), lastNameTarget)
	require.NoError(t, err)
	assert.Equal(t, phiDomain.ColumnStatusEncrypted, stats.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLColumnRepository_ListPlaintext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("AND id > ? ORDER BY id LIMIT ?")).
		WithArgs("7", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_name"}).AddRow("8", "Brown"))

	values, err := NewMySQLColumnRepository(db).ListPlaintext(context.Background(), lastNameTarget, "7", 100)
	require.NoError(t, err)
	assert.Equal(t, []phiDomain.ColumnValue{{Key: "8", Value: "Brown"}}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLColumnRepository_ListEncrypted_All(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_name"}).AddRow(1, "ENC:v1:a").AddRow(2, "h|ENC:v1:b"))

	values, err := NewMySQLColumnRepository(db).ListEncrypted(context.Background(), lastNameTarget, 0)
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLColumnRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients SET last_name = ? WHERE id = ?")).
		WithArgs("ENC:v1:abc", "1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewMySQLColumnRepository(db).Update(context.Background(), lastNameTarget, "1", "ENC:v1:abc")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
