package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"newsletteradmin/internal/metrics"
	"newsletteradmin/internal/models"
)

// FaultPublisher hands fault reports to the worker
type FaultPublisher interface {
	PublishFault(ctx context.Context, fault *models.SyncFault) error
}

// FaultReporter logs caught synchronization faults and forwards them for
// storage. Reporting never fails the caller.
type FaultReporter struct {
	publisher FaultPublisher
	metrics   *metrics.EditorMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewFaultReporter creates a reporter. A nil publisher only logs.
func NewFaultReporter(publisher FaultPublisher, m *metrics.EditorMetrics, logger *slog.Logger) *FaultReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FaultReporter{publisher: publisher, metrics: m, logger: logger, now: time.Now}
}

// Report records one fault and returns the report that was built
func (r *FaultReporter) Report(ctx context.Context, n *models.Newsletter, kind models.FaultKind, err error) *models.SyncFault {
	fault := &models.SyncFault{
		ID:         uuid.NewString(),
		Kind:       kind,
		Error:      err.Error(),
		OccurredAt: r.now().UTC(),
	}
	if n != nil && !n.IsNew() {
		id := n.ID
		fault.NewsletterID = &id
	}

	attrs := []any{"fault_id", fault.ID, "kind", kind, "error", err}
	if fault.NewsletterID != nil {
		attrs = append(attrs, "newsletter_id", *fault.NewsletterID)
	}
	if kind == models.FaultKindConnection {
		r.logger.Warn("esp connection fault", attrs...)
	} else {
		r.logger.Error("esp sync fault", attrs...)
	}

	published := true
	if r.publisher != nil {
		if pubErr := r.publisher.PublishFault(ctx, fault); pubErr != nil {
			r.logger.Error("failed to publish fault report", "fault_id", fault.ID, "error", pubErr)
			published = false
		}
	}
	r.metrics.ObserveFault(string(kind), published)

	return fault
}
