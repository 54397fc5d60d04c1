package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTestDSN(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("TEST_POSTGRES_DSN", "")
		t.Setenv("TEST_MYSQL_DSN", "")

		assert.Equal(t, defaultPostgresTestDSN, GetTestDSN("postgres"))
		assert.Equal(t, defaultMySQLTestDSN, GetTestDSN("mysql"))
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("TEST_POSTGRES_DSN", "postgres://ci@db/test")
		t.Setenv("TEST_MYSQL_DSN", "ci@tcp(db)/test")

		assert.Equal(t, "postgres://ci@db/test", GetTestDSN("postgres"))
		assert.Equal(t, "ci@tcp(db)/test", GetTestDSN("mysql"))
	})
}

func TestGetMigrationsPath(t *testing.T) {
	for _, dbType := range []string{"postgresql", "mysql"} {
		path, err := getMigrationsPath(dbType)
		require.NoError(t, err)
		assert.DirExists(t, path)
	}

	_, err := getMigrationsPath("oracle")
	assert.ErrorContains(t, err, "migrations directory not found for oracle")
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "1955-03-15", nullIfEmpty("1955-03-15"))
}

func TestSetupDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	for _, driver := range []string{"postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			db := SetupDB(t, driver)
			defer TeardownDB(t, db)

			CreatePatientsTable(t, db, driver)
			InsertPatient(t, db, driver, "42", "1955-03-15", "")

			assert.Equal(t, "1955-03-15", ReadPatientColumn(t, db, driver, "42", "date_of_birth"))
			assert.Equal(t, "", ReadPatientColumn(t, db, driver, "42", "ssn"))

			CleanupDB(t, db, driver)
		})
	}
}
