package services

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/harambee-apps/table_banking_app/internal/dto"
)

// ContributionSvcFacade exposes contribution-cycle management and the
// default-to-loan converter.
type ContributionSvcFacade interface {
	// CreateCycle opens a new contribution cycle and creates one PENDING
	// contribution per active member.
	CreateCycle(ctx context.Context, req dto.CreateCycleRequest, actorID string) (*domain.ContributionCycle, error)

	// GetCycleByID retrieves a cycle with its contributions.
	GetCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, []domain.Contribution, error)

	// ListCycles retrieves cycles ordered by due date descending.
	ListCycles(ctx context.Context, limit, offset int) ([]domain.ContributionCycle, error)

	// RecordPayment records a payment towards a contribution and moves it
	// PENDING -> PARTIAL -> PAID as the expected amount is met.
	RecordPayment(ctx context.Context, contributionID string, req dto.RecordContributionRequest, actorID string) (*domain.Contribution, error)

	// ProcessCycleDefaults converts each unpaid contribution of a past-due
	// OPEN cycle into a CONTRIBUTION_DEFAULT loan and closes the cycle.
	// Re-running on a PROCESSED cycle is a no-op.
	ProcessCycleDefaults(ctx context.Context, cycleID string, actorID string) (*dto.CycleProcessResult, error)

	// ProcessPastDueCycles runs default conversion for every past-due OPEN
	// cycle, isolating per-cycle failures.
	ProcessPastDueCycles(ctx context.Context, now time.Time, actorID string) ([]dto.CycleProcessResult, error)
}
