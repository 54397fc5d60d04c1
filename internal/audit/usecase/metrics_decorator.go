package usecase

import (
	"context"
	"strings"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	"github.com/openspace-ehr/phiguard/internal/metrics"
)

// sinkWithMetrics counts emitted audit events by action.
type sinkWithMetrics struct {
	next    Sink
	metrics metrics.BusinessMetrics
}

// NewSinkWithMetrics wraps sink so every event increments
// operations_total{domain="audit",operation="<action>"}.
func NewSinkWithMetrics(sink Sink, m metrics.BusinessMetrics) Sink {
	return &sinkWithMetrics{next: sink, metrics: m}
}

func (s *sinkWithMetrics) LogEvent(
	ctx context.Context,
	action auditDomain.Action,
	resourceType, details string,
	patientID *string,
) {
	s.next.LogEvent(ctx, action, resourceType, details, patientID)
	s.metrics.RecordOperation(ctx, "audit", strings.ToLower(string(action)), "emitted")
}
