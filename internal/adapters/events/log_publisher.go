package events

import (
	"context"
	"log/slog"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/middleware"
)

// LogPublisher writes lifecycle events to the structured log. Used when no
// analytics backend is configured.
type LogPublisher struct{}

// NewLogPublisher creates a publisher that logs events.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

var _ portssvc.EventPublisher = (*LogPublisher)(nil)

// Publish logs the event at INFO level.
func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	middleware.GetLoggerFromCtx(ctx).Info("lifecycle event",
		slog.String("kind", string(event.Kind)),
		slog.String("loan_id", event.LoanID),
		slog.String("cycle_id", event.CycleID),
		slog.String("borrower_id", event.BorrowerID),
		slog.String("amount", event.Amount.String()),
		slog.String("status", event.Status),
	)
	return nil
}
