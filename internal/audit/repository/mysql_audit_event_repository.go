package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	"github.com/openspace-ehr/phiguard/internal/database"
	apperrors "github.com/openspace-ehr/phiguard/internal/errors"
)

// MySQLAuditEventRepository implements AuditEvent persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLAuditEventRepository struct {
	db *sql.DB
}

// Create inserts a new audit event.
func (m *MySQLAuditEventRepository) Create(ctx context.Context, event *auditDomain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `INSERT INTO audit_events (id, action, resource_type, details, patient_id, actor, ip_address,
			  user_agent, signature, key_version, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(event.Action),
		event.ResourceType,
		event.Details,
		event.PatientID,
		event.Actor,
		event.IPAddress,
		event.UserAgent,
		event.Signature,
		event.KeyVersion,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// List retrieves audit events ordered by created_at descending with optional
// inclusive time bounds.
func (m *MySQLAuditEventRepository) List(
	ctx context.Context,
	offset, limit int,
	from, to *time.Time,
) ([]*auditDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any

	if from != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *to)
	}

	query := `SELECT id, action, resource_type, details, patient_id, actor, ip_address, user_agent,
			  signature, key_version, created_at FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.AuditEvent, 0)
	for rows.Next() {
		var event auditDomain.AuditEvent
		var idBinary []byte
		var action string

		err := rows.Scan(
			&idBinary,
			&action,
			&event.ResourceType,
			&event.Details,
			&event.PatientID,
			&event.Actor,
			&event.IPAddress,
			&event.UserAgent,
			&event.Signature,
			&event.KeyVersion,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}
		if err := event.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
		}
		event.Action = auditDomain.Action(action)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}

// NewMySQLAuditEventRepository creates a new MySQL AuditEvent repository.
func NewMySQLAuditEventRepository(db *sql.DB) *MySQLAuditEventRepository {
	return &MySQLAuditEventRepository{db: db}
}
