package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
)

func newTestEvent() *auditDomain.AuditEvent {
	patientID := "42"
	return &auditDomain.AuditEvent{
		ID:           uuid.Must(uuid.NewV7()),
		Action:       auditDomain.ActionPatientAccessVerified,
		ResourceType: auditDomain.ResourceTypePatientRecord,
		Details:      "Patient record access verified for patient ID: 42",
		PatientID:    &patientID,
		Actor:        "dr.jones",
		IPAddress:    "10.0.0.1",
		UserAgent:    "test",
		Signature:    []byte{1, 2, 3},
		KeyVersion:   auditDomain.CurrentKeyVersion,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

var auditColumns = []string{
	"id", "action", "resource_type", "details", "patient_id", "actor",
	"ip_address", "user_agent", "signature", "key_version", "created_at",
}

func TestPostgreSQLAuditEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	event := newTestEvent()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs(
			event.ID, "PATIENT_ACCESS_VERIFIED", event.ResourceType, event.Details, event.PatientID,
			event.Actor, event.IPAddress, event.UserAgent, event.Signature, event.KeyVersion, event.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewPostgreSQLAuditEventRepository(db).Create(context.Background(), event)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditEventRepository_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WillReturnError(errors.New("connection reset"))

	err = NewPostgreSQLAuditEventRepository(db).Create(context.Background(), newTestEvent())
	assert.ErrorContains(t, err, "failed to create audit event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLAuditEventRepository_List(t *testing.T) {
	t.Run("without time range", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := newTestEvent()
		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(auditColumns).AddRow(
				event.ID.String(), "PATIENT_ACCESS_VERIFIED", event.ResourceType, event.Details, "42",
				event.Actor, event.IPAddress, event.UserAgent, event.Signature, 1, event.CreatedAt,
			))

		events, err := NewPostgreSQLAuditEventRepository(db).List(context.Background(), 0, 10, nil, nil)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
		assert.Equal(t, auditDomain.ActionPatientAccessVerified, events[0].Action)
		require.NotNil(t, events[0].PatientID)
		assert.Equal(t, "42", *events[0].PatientID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("with time range", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.Add(24 * time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")).
			WithArgs(from, to, 50, 100).
			WillReturnRows(sqlmock.NewRows(auditColumns))

		events, err := NewPostgreSQLAuditEventRepository(db).List(context.Background(), 100, 50, &from, &to)
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null patient id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := newTestEvent()
		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events")).
			WillReturnRows(sqlmock.NewRows(auditColumns).AddRow(
				event.ID.String(), "SECURITY_ALERT", event.ResourceType, "alert", nil,
				"", "", "", nil, 1, event.CreatedAt,
			))

		events, err := NewPostgreSQLAuditEventRepository(db).List(context.Background(), 0, 10, nil, nil)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Nil(t, events[0].PatientID)
		assert.False(t, events[0].IsSigned())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
