package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	auditUseCase "github.com/openspace-ehr/phiguard/internal/audit/usecase"
)

// RunVerifyAuditEvents checks the HMAC signature of every audit event created in
// the time range. It returns an error when any event fails verification.
func RunVerifyAuditEvents(
	ctx context.Context,
	auditEventUseCase auditUseCase.AuditEventUseCase,
	logger *slog.Logger,
	writer io.Writer,
	startDate, endDate string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	start, err := parseDate(startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseDate(endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("end date must be after start date")
	}

	logger.Info("verifying audit events",
		slog.Time("start_date", start),
		slog.Time("end_date", end),
	)

	report, err := auditEventUseCase.VerifyBatch(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to verify audit events: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{
			"total_checked":  report.TotalChecked,
			"signed_count":   report.SignedCount,
			"unsigned_count": report.UnsignedCount,
			"valid_count":    report.ValidCount,
			"invalid_count":  report.InvalidCount,
			"invalid_events": report.InvalidEvents,
			"passed":         report.Passed(),
		}); err != nil {
			return err
		}
	} else {
		outputVerifyText(writer, report, start, end)
	}

	logger.Info("verification completed",
		slog.Int64("total_checked", report.TotalChecked),
		slog.Int64("valid", report.ValidCount),
		slog.Int64("invalid", report.InvalidCount),
		slog.Int64("unsigned", report.UnsignedCount),
	)

	if !report.Passed() {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", report.InvalidCount)
	}
	return nil
}

// RunListAuditEvents prints audit events newest first. startDate and endDate are
// optional bounds.
func RunListAuditEvents(
	ctx context.Context,
	auditEventUseCase auditUseCase.AuditEventUseCase,
	writer io.Writer,
	offset, limit int,
	startDate, endDate string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("offset must be >= 0 and limit must be > 0")
	}

	from, err := parseOptionalDate(startDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	to, err := parseOptionalDate(endDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	events, err := auditEventUseCase.List(ctx, offset, limit, from, to)
	if err != nil {
		return fmt.Errorf("failed to list audit events: %w", err)
	}

	if format == "json" {
		items := make([]map[string]any, 0, len(events))
		for _, event := range events {
			items = append(items, auditEventJSON(event))
		}
		return writeJSON(writer, map[string]any{"data": items})
	}

	if len(events) == 0 {
		_, _ = fmt.Fprintln(writer, "No audit events found")
		return nil
	}
	for _, event := range events {
		patientID := "-"
		if event.PatientID != nil {
			patientID = *event.PatientID
		}
		_, _ = fmt.Fprintf(writer, "%s  %-24s  patient=%s  actor=%s  signed=%t  %s\n",
			event.CreatedAt.UTC().Format(time.RFC3339),
			event.Action,
			patientID,
			event.Actor,
			event.IsSigned(),
			event.Details,
		)
	}
	return nil
}

func auditEventJSON(event *auditDomain.AuditEvent) map[string]any {
	return map[string]any{
		"id":            event.ID,
		"action":        event.Action,
		"resource_type": event.ResourceType,
		"details":       event.Details,
		"patient_id":    event.PatientID,
		"actor":         event.Actor,
		"ip_address":    event.IPAddress,
		"user_agent":    event.UserAgent,
		"signed":        event.IsSigned(),
		"key_version":   event.KeyVersion,
		"created_at":    event.CreatedAt.UTC(),
	}
}

// parseDate parses "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS" in UTC.
func parseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", dateStr)
	if err == nil {
		return t, nil
	}

	t, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"invalid date format (expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS): %s",
			dateStr,
		)
	}
	return t, nil
}

func parseOptionalDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}
	t, err := parseDate(dateStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func outputVerifyText(writer io.Writer, report *auditUseCase.VerificationReport, start, end time.Time) {
	_, _ = fmt.Fprintf(writer, "Audit Event Integrity Verification\n")
	_, _ = fmt.Fprintf(writer, "==================================\n\n")
	_, _ = fmt.Fprintf(writer,
		"Time Range: %s to %s\n\n",
		start.Format("2006-01-02 15:04:05"),
		end.Format("2006-01-02 15:04:05"),
	)

	_, _ = fmt.Fprintf(writer, "Total Checked:  %d\n", report.TotalChecked)
	_, _ = fmt.Fprintf(writer, "Signed:         %d\n", report.SignedCount)
	_, _ = fmt.Fprintf(writer, "Unsigned:       %d\n", report.UnsignedCount)
	_, _ = fmt.Fprintf(writer, "Valid:          %d\n", report.ValidCount)
	_, _ = fmt.Fprintf(writer, "Invalid:        %d\n\n", report.InvalidCount)

	switch {
	case report.InvalidCount > 0:
		_, _ = fmt.Fprintf(writer, "WARNING: %d event(s) failed integrity check!\n\n", report.InvalidCount)
		_, _ = fmt.Fprintf(writer, "Invalid Event IDs:\n")
		for _, id := range report.InvalidEvents {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.TotalChecked == 0:
		_, _ = fmt.Fprintf(writer, "Status: No events found in specified time range\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}
