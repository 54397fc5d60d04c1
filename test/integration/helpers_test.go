// Package integration runs the patient access API end to end against real
// PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openspace-ehr/phiguard/internal/app"
	"github.com/openspace-ehr/phiguard/internal/config"
	"github.com/openspace-ehr/phiguard/internal/testutil"
)

const actorHeader = "X-User-ID"

var dbDrivers = []string{"postgres", "mysql"}

// integrationTestContext holds the container, database and HTTP server of one test.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	dbDriver  string
}

// newClient returns an HTTP client with its own cookie jar, i.e. its own session.
func (ctx *integrationTestContext) newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// makeRequest performs an HTTP request as actor and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	client *http.Client,
	method, path string,
	body any,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(actorHeader, "dr-house")

	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

func newIntegrationConfig(dbDriver string) *config.Config {
	return &config.Config{
		AppEnv:                   "test",
		LogLevel:                 "error",
		DBDriver:                 dbDriver,
		DBConnectionString:       testutil.GetTestDSN(dbDriver),
		DBMaxOpenConnections:     10,
		DBMaxIdleConnections:     5,
		DBConnMaxLifetime:        time.Hour,
		ServerHost:               "localhost",
		ServerPort:               8080,
		EncryptionKey:            "integration-master-secret",
		PatientProtectionEnabled: true,
		AccessGrantTTL:           30 * time.Minute,
		AccessExpiryWarning:      5 * time.Minute,
		AccessLockoutMaxAttempts: 5,
		AccessLockoutWindow:      15 * time.Minute,
		SessionDriver:            "memory",
		SessionTTL:               time.Hour,
		SessionCookieName:        "phiguard_session",
		AuditSink:                "database",
		PatientTable:             testutil.PatientsTable,
		PatientIDColumn:          "id",
		PatientDOBColumn:         "date_of_birth",
		ActorHeader:              actorHeader,
		MetricsNamespace:         "phiguard",
	}
}

// setupIntegrationTest prepares a clean database with the patient fixture table
// and serves the container's router. prepare runs before the first request.
func setupIntegrationTest(
	t *testing.T,
	dbDriver string,
	prepare func(*app.Container),
) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.SetupDB(t, dbDriver)
	testutil.CreatePatientsTable(t, db, dbDriver)

	container := app.NewContainer(newIntegrationConfig(dbDriver))
	if prepare != nil {
		prepare(container)
	}

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get http server")

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    httptest.NewServer(httpSrv.GetHandler()),
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest stops the server and releases the container and database.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	ctx.server.Close()
	require.NoError(t, ctx.container.Shutdown(context.Background()))
	testutil.CleanupDB(t, ctx.db, ctx.dbDriver)
	testutil.TeardownDB(t, ctx.db)
}

// insertEncryptedPatient stores a patient whose DOB column holds a searchable encrypted value.
func (ctx *integrationTestContext) insertEncryptedPatient(t *testing.T, id, dob string) {
	t.Helper()

	encryption, err := ctx.container.EncryptionUseCase()
	require.NoError(t, err)

	stored, err := encryption.EncryptSearchable(context.Background(), dob, testutil.PatientsTable+".date_of_birth")
	require.NoError(t, err)

	testutil.InsertPatient(t, ctx.db, ctx.dbDriver, id, stored, "")
}

// countAuditEvents counts stored events with action for patientID.
func (ctx *integrationTestContext) countAuditEvents(t *testing.T, action, patientID string) int {
	t.Helper()

	query := `SELECT COUNT(*) FROM audit_events WHERE action = $1 AND patient_id = $2`
	if ctx.dbDriver == "mysql" {
		query = `SELECT COUNT(*) FROM audit_events WHERE action = ? AND patient_id = ?`
	}
	var count int
	require.NoError(t, ctx.db.QueryRow(query, action, patientID).Scan(&count))
	return count
}
