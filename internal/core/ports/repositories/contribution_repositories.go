package repositories

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CycleReader defines read operations for contribution cycles.
type CycleReader interface {
	// FindCycleByID retrieves a cycle by its unique identifier.
	FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error)

	// FindCycleByIDForUpdate retrieves a cycle and locks it for the
	// enclosing transaction, serializing cycle processing.
	FindCycleByIDForUpdate(ctx context.Context, cycleID string) (*domain.ContributionCycle, error)

	// ListPastDueOpenCycles returns OPEN cycles whose due date has passed.
	ListPastDueOpenCycles(ctx context.Context, now time.Time) ([]domain.ContributionCycle, error)

	// ListCycles retrieves cycles ordered by due date descending.
	ListCycles(ctx context.Context, limit, offset int) ([]domain.ContributionCycle, error)
}

// CycleWriter defines write operations for contribution cycles.
type CycleWriter interface {
	// SaveCycle persists a new cycle.
	SaveCycle(ctx context.Context, cycle domain.ContributionCycle) error

	// MarkCycleProcessed transitions a cycle to PROCESSED.
	MarkCycleProcessed(ctx context.Context, cycleID string, processedAt time.Time, updatedBy string) error
}

// ContributionReader defines read operations for contributions.
type ContributionReader interface {
	// FindContributionByIDForUpdate retrieves a contribution and locks it
	// for the enclosing transaction, serializing conversion and payment
	// against the same row.
	FindContributionByIDForUpdate(ctx context.Context, contributionID string) (*domain.Contribution, error)

	// ListContributionsByCycle retrieves all contributions for a cycle.
	ListContributionsByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error)

	// ListUnpaidByCycle retrieves PENDING and PARTIAL contributions for a
	// cycle, the working set for default conversion.
	ListUnpaidByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error)

	// SumPaidContributionsByMember totals the amounts a member has paid in,
	// the base figure for loan and exposure caps.
	SumPaidContributionsByMember(ctx context.Context, memberID string) (decimal.Decimal, error)
}

// ContributionWriter defines write operations for contributions.
type ContributionWriter interface {
	// SaveContribution persists a new contribution.
	SaveContribution(ctx context.Context, contribution domain.Contribution) error

	// UpdateContribution persists mutated contribution state (paid amount,
	// status, loan link).
	UpdateContribution(ctx context.Context, contribution domain.Contribution) error
}

// ContributionRepositoryFacade combines contribution and cycle interfaces.
type ContributionRepositoryFacade interface {
	CycleReader
	CycleWriter
	ContributionReader
	ContributionWriter
}

// ContributionRepositoryWithTx extends the facade with transaction support.
type ContributionRepositoryWithTx interface {
	ContributionRepositoryFacade
	TransactionManager
}
