package services

import (
	"context"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// EventPublisher delivers lifecycle notifications to the outside world.
// Delivery is fire-and-forget: services log publish failures and never
// propagate them as operation failures.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
