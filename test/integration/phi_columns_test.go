package integration

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phiDomain "github.com/openspace-ehr/phiguard/internal/phi/domain"
	phiUseCase "github.com/openspace-ehr/phiguard/internal/phi/usecase"
	"github.com/openspace-ehr/phiguard/internal/testutil"
)

func TestIntegration_PHIColumnMigration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, dbDriver := range dbDrivers {
		t.Run(dbDriver, func(t *testing.T) {
			ctx := setupIntegrationTest(t, dbDriver, nil)
			defer teardownIntegrationTest(t, ctx)

			testutil.InsertPatient(t, ctx.db, dbDriver, "p-01", "1955-03-15", "123-45-6789")
			testutil.InsertPatient(t, ctx.db, dbDriver, "p-02", "1961-11-02", "987-65-4321")
			testutil.InsertPatient(t, ctx.db, dbDriver, "p-03", "1970-01-20", "")

			migration, err := ctx.container.ColumnMigrationUseCase()
			require.NoError(t, err)
			encryption, err := ctx.container.EncryptionUseCase()
			require.NoError(t, err)

			background := context.Background()
			ssn, err := phiDomain.ParseColumnTarget(testutil.PatientsTable + ".ssn")
			require.NoError(t, err)
			dob, err := phiDomain.ParseColumnTarget(testutil.PatientsTable + ".date_of_birth:id")
			require.NoError(t, err)

			t.Run("01_AnalyzePlaintext", func(t *testing.T) {
				report, err := migration.Analyze(background, ssn)
				require.NoError(t, err)

				assert.EqualValues(t, 3, report.Stats.Total)
				assert.EqualValues(t, 1, report.Stats.Empty)
				assert.EqualValues(t, 2, report.Stats.Plaintext)
				assert.Equal(t, phiDomain.ColumnStatusUnencrypted, report.Stats.Status())
			})

			t.Run("02_DryRunWritesNothing", func(t *testing.T) {
				report, err := migration.Encrypt(background, ssn, phiUseCase.EncryptColumnOptions{DryRun: true})
				require.NoError(t, err)

				assert.Equal(t, 2, report.Processed)
				assert.Equal(t, "123-45-6789", testutil.ReadPatientColumn(t, ctx.db, dbDriver, "p-01", "ssn"))
			})

			t.Run("03_EncryptInBatches", func(t *testing.T) {
				report, err := migration.Encrypt(background, ssn, phiUseCase.EncryptColumnOptions{BatchSize: 1})
				require.NoError(t, err)

				assert.Equal(t, 2, report.Processed)
				assert.True(t, report.OK())
				assert.Equal(t, phiDomain.ColumnStatusEncrypted, report.Stats.Status())

				stored := testutil.ReadPatientColumn(t, ctx.db, dbDriver, "p-01", "ssn")
				assert.True(t, encryption.IsEncrypted(stored))
				assert.NotContains(t, stored, "6789")

				plain, err := encryption.DecryptField(background, stored)
				require.NoError(t, err)
				assert.Equal(t, "123-45-6789", plain)
			})

			t.Run("04_EncryptIsIdempotent", func(t *testing.T) {
				report, err := migration.Encrypt(background, ssn, phiUseCase.EncryptColumnOptions{})
				require.NoError(t, err)
				assert.Zero(t, report.Processed)
			})

			t.Run("05_SearchableDOBStillVerifies", func(t *testing.T) {
				report, err := migration.Encrypt(background, dob, phiUseCase.EncryptColumnOptions{Searchable: true})
				require.NoError(t, err)
				assert.Equal(t, 3, report.Processed)

				stored := testutil.ReadPatientColumn(t, ctx.db, dbDriver, "p-02", "date_of_birth")
				index, _, ok := strings.Cut(stored, phiDomain.SearchableSeparator)
				require.True(t, ok)

				expected, err := encryption.BlindIndex(background, "1961-11-02", dob.String())
				require.NoError(t, err)
				assert.Equal(t, expected, index)

				dobProvider, err := ctx.container.DOBProvider()
				require.NoError(t, err)
				value, err := dobProvider.DateOfBirth(background, "p-02")
				require.NoError(t, err)
				assert.Equal(t, "1961-11-02", value)
			})

			t.Run("06_VerifyDetectsCorruption", func(t *testing.T) {
				report, err := migration.Verify(background, ssn, 0)
				require.NoError(t, err)
				assert.Equal(t, 2, report.Processed)
				assert.True(t, report.OK())

				stored := testutil.ReadPatientColumn(t, ctx.db, dbDriver, "p-02", "ssn")
				mid := len(stored) / 2
				corrupted := stored[:mid] + flipBase64(stored[mid:mid+1]) + stored[mid+1:]

				query := `UPDATE ` + testutil.PatientsTable + ` SET ssn = $1 WHERE id = $2`
				if dbDriver == "mysql" {
					query = `UPDATE ` + testutil.PatientsTable + ` SET ssn = ? WHERE id = ?`
				}
				_, err = ctx.db.Exec(query, corrupted, "p-02")
				require.NoError(t, err)

				report, err = migration.Verify(background, ssn, 0)
				require.NoError(t, err)
				assert.Equal(t, 1, report.Processed)
				assert.Equal(t, 1, report.Failed)
				assert.False(t, report.OK())
			})
		})
	}
}

// flipBase64 swaps one base64 character for a different one.
func flipBase64(c string) string {
	if c == "A" {
		return "B"
	}
	return "A"
}

func TestIntegration_EncryptedColumnValues(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, dbDriver := range dbDrivers {
		t.Run(dbDriver, func(t *testing.T) {
			ctx := setupIntegrationTest(t, dbDriver, nil)
			defer teardownIntegrationTest(t, ctx)

			testutil.InsertPatient(t, ctx.db, dbDriver, "p-01", "1955-03-15", "")

			encryption, err := ctx.container.EncryptionUseCase()
			require.NoError(t, err)
			codec := phiUseCase.NewColumnCodec(encryption)

			update := `UPDATE ` + testutil.PatientsTable + ` SET ssn = $1 WHERE id = $2`
			selectSSN := `SELECT ssn FROM ` + testutil.PatientsTable + ` WHERE id = $1`
			if dbDriver == "mysql" {
				update = `UPDATE ` + testutil.PatientsTable + ` SET ssn = ? WHERE id = ?`
				selectSSN = `SELECT ssn FROM ` + testutil.PatientsTable + ` WHERE id = ?`
			}

			_, err = ctx.db.Exec(update, codec.String("123-45-6789"), "p-01")
			require.NoError(t, err)

			stored := testutil.ReadPatientColumn(t, ctx.db, dbDriver, "p-01", "ssn")
			assert.True(t, encryption.IsEncrypted(stored))
			assert.NotContains(t, stored, "6789")

			ssn := codec.NullString()
			require.NoError(t, ctx.db.QueryRow(selectSSN, "p-01").Scan(ssn))
			assert.True(t, ssn.Valid)
			assert.Equal(t, "123-45-6789", ssn.String)
		})
	}
}
