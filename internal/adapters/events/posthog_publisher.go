package events

import (
	"context"
	"fmt"

	"github.com/posthog/posthog-go"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
)

// PosthogPublisher delivers lifecycle events to PostHog as analytics
// captures. Each event is keyed by the borrower (or the cycle for cycle
// events) so activity can be segmented per entity.
type PosthogPublisher struct {
	client posthog.Client
}

// NewPosthogPublisher creates a publisher backed by a PostHog client.
// Returns an error when the API key is empty; callers that run without
// analytics should fall back to the log publisher instead.
func NewPosthogPublisher(apiKey, endpoint string) (*PosthogPublisher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("posthog api key is empty")
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize posthog client: %w", err)
	}
	return &PosthogPublisher{client: client}, nil
}

var _ portssvc.EventPublisher = (*PosthogPublisher)(nil)

// Publish enqueues the event for asynchronous delivery.
func (p *PosthogPublisher) Publish(_ context.Context, event domain.Event) error {
	distinctID := event.BorrowerID
	if distinctID == "" {
		distinctID = event.CycleID
	}
	return p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      string(event.Kind),
		Properties: map[string]any{
			"loan_id":     event.LoanID,
			"cycle_id":    event.CycleID,
			"amount":      event.Amount.String(),
			"status":      event.Status,
			"occurred_at": event.OccurredAt,
		},
	})
}

// Close flushes queued events.
func (p *PosthogPublisher) Close() {
	p.client.Close()
}
