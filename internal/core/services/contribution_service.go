package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"
	"github.com/harambee-apps/table_banking_app/internal/utils/interest"
	"github.com/harambee-apps/table_banking_app/pkg/config"
)

var (
	ErrCycleNotDue         = errors.New("contribution cycle is not past its due date")
	ErrContributionClosed  = errors.New("contribution is already settled or converted")
	ErrCycleAlreadyClosed  = errors.New("contribution cycle has already been processed")
	ErrNoActiveMembers     = errors.New("no active members to create contributions for")
	ErrOverContribution    = errors.New("payment exceeds the remaining expected amount")
)

// contributionService manages contribution cycles and converts unpaid
// contributions into loans when a cycle closes.
type contributionService struct {
	contributionRepo portsrepo.ContributionRepositoryWithTx
	loanRepo         portsrepo.LoanRepositoryFacade
	memberRepo       portsrepo.MemberRepositoryFacade
	publisher        portssvc.EventPublisher
	policy           config.Policy
}

// NewContributionService creates a new ContributionService.
func NewContributionService(
	contributionRepo portsrepo.ContributionRepositoryWithTx,
	loanRepo portsrepo.LoanRepositoryFacade,
	memberRepo portsrepo.MemberRepositoryFacade,
	publisher portssvc.EventPublisher,
	policy config.Policy,
) portssvc.ContributionSvcFacade {
	return &contributionService{
		contributionRepo: contributionRepo,
		loanRepo:         loanRepo,
		memberRepo:       memberRepo,
		publisher:        publisher,
		policy:           policy,
	}
}

// Ensure contributionService implements the facade interface
var _ portssvc.ContributionSvcFacade = (*contributionService)(nil)

func (s *contributionService) publishEvent(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish event",
			slog.String("kind", string(event.Kind)), slog.String("cycle_id", event.CycleID), slog.String("error", err.Error()))
	}
}

// CreateCycle opens a new contribution cycle and creates one PENDING
// contribution per active member.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) CreateCycle(ctx context.Context, req dto.CreateCycleRequest, actorID string) (*domain.ContributionCycle, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.ExpectedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: expected amount must be positive", apperrors.ErrValidation)
	}

	members, err := s.memberRepo.ListMembers(ctx, 1000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	active := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if m.IsActive() {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveMembers
	}

	now := time.Now().UTC()
	cycle := domain.ContributionCycle{
		CycleID:        uuid.NewString(),
		Name:           req.Name,
		ExpectedAmount: req.ExpectedAmount,
		DueDate:        req.DueDate.UTC(),
		Status:         domain.CycleOpen,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	err = s.contributionRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.contributionRepo.SaveCycle(txCtx, cycle); err != nil {
			return fmt.Errorf("failed to save cycle: %w", err)
		}
		for _, m := range active {
			contribution := domain.Contribution{
				ContributionID: uuid.NewString(),
				CycleID:        cycle.CycleID,
				MemberID:       m.MemberID,
				ExpectedAmount: req.ExpectedAmount,
				PaidAmount:     decimal.Zero,
				Status:         domain.ContributionPending,
				AuditFields: domain.AuditFields{
					CreatedAt:     now,
					CreatedBy:     actorID,
					LastUpdatedAt: now,
					LastUpdatedBy: actorID,
				},
			}
			if err := s.contributionRepo.SaveContribution(txCtx, contribution); err != nil {
				return fmt.Errorf("failed to save contribution for member %s: %w", m.MemberID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Contribution cycle created",
		slog.String("cycle_id", cycle.CycleID),
		slog.String("name", cycle.Name),
		slog.Int("members", len(active)))
	return &cycle, nil
}

// GetCycleByID retrieves a cycle with its contributions.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) GetCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, []domain.Contribution, error) {
	cycle, err := s.contributionRepo.FindCycleByID(ctx, cycleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find cycle %s: %w", cycleID, err)
	}
	contributions, err := s.contributionRepo.ListContributionsByCycle(ctx, cycleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list contributions for cycle %s: %w", cycleID, err)
	}
	return cycle, contributions, nil
}

// ListCycles retrieves cycles ordered by due date descending.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) ListCycles(ctx context.Context, limit, offset int) ([]domain.ContributionCycle, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.contributionRepo.ListCycles(ctx, limit, offset)
}

// RecordPayment records a payment towards a contribution, moving it
// PENDING -> PARTIAL -> PAID as the expected amount is met, and bumps the
// member's paid-in contribution total.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) RecordPayment(ctx context.Context, contributionID string, req dto.RecordContributionRequest, actorID string) (*domain.Contribution, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}

	var updated *domain.Contribution
	err := s.contributionRepo.WithTx(ctx, func(txCtx context.Context) error {
		contribution, err := s.contributionRepo.FindContributionByIDForUpdate(txCtx, contributionID)
		if err != nil {
			return fmt.Errorf("failed to find contribution %s: %w", contributionID, err)
		}
		if contribution.Status == domain.ContributionPaid || contribution.Status == domain.ContributionConverted {
			return fmt.Errorf("%w: contribution %s is %s", ErrContributionClosed, contributionID, contribution.Status)
		}
		if req.Amount.GreaterThan(contribution.Shortfall()) {
			return fmt.Errorf("%w: remaining %s, payment %s", ErrOverContribution, contribution.Shortfall(), req.Amount)
		}

		now := time.Now().UTC()
		contribution.PaidAmount = contribution.PaidAmount.Add(req.Amount)
		if contribution.PaidAmount.GreaterThanOrEqual(contribution.ExpectedAmount) {
			contribution.Status = domain.ContributionPaid
		} else {
			contribution.Status = domain.ContributionPartial
		}
		contribution.LastUpdatedAt = now
		contribution.LastUpdatedBy = actorID

		if err := s.contributionRepo.UpdateContribution(txCtx, *contribution); err != nil {
			return fmt.Errorf("failed to update contribution %s: %w", contributionID, err)
		}
		if err := s.memberRepo.AdjustMemberTotals(txCtx, contribution.MemberID,
			req.Amount, decimal.Zero, decimal.Zero, actorID, now); err != nil {
			return fmt.Errorf("failed to adjust member contribution total: %w", err)
		}

		updated = contribution
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Contribution payment recorded",
		slog.String("contribution_id", contributionID),
		slog.String("amount", req.Amount.String()),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// ProcessCycleDefaults converts every unpaid contribution of a past-due
// OPEN cycle into a CONTRIBUTION_DEFAULT loan and marks the cycle
// PROCESSED. The debt already exists, so the created loans skip approval
// and disbursement and start ACTIVE. Re-running on a PROCESSED cycle is a
// no-op. Each contribution converts in its own transaction, so a failed
// item commits nothing and the rest of the batch continues; the cycle
// stays OPEN after any failure so a re-run retries only the unconverted
// remainder.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) ProcessCycleDefaults(ctx context.Context, cycleID string, actorID string) (*dto.CycleProcessResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	result := &dto.CycleProcessResult{CycleID: cycleID}
	now := time.Now().UTC()

	var unpaid []domain.Contribution
	err := s.contributionRepo.WithTx(ctx, func(txCtx context.Context) error {
		cycle, err := s.contributionRepo.FindCycleByIDForUpdate(txCtx, cycleID)
		if err != nil {
			return fmt.Errorf("failed to find cycle %s: %w", cycleID, err)
		}
		if cycle.Status == domain.CycleProcessed {
			result.AlreadyClosed = true
			return nil
		}
		if !cycle.IsPastDue(now) {
			return fmt.Errorf("%w: cycle %s due %s", ErrCycleNotDue, cycleID, cycle.DueDate.Format("2006-01-02"))
		}

		unpaid, err = s.contributionRepo.ListUnpaidByCycle(txCtx, cycleID)
		if err != nil {
			return fmt.Errorf("failed to list unpaid contributions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyClosed {
		logger.Info("Cycle already processed, nothing to do", slog.String("cycle_id", cycleID))
		return result, nil
	}

	for _, contribution := range unpaid {
		converted, err := s.convertContribution(ctx, contribution.ContributionID, actorID, now)
		if err != nil {
			// Per-item isolation: the failed conversion rolled back on its
			// own; count it and continue with the rest.
			result.Failed++
			logger.Error("Failed to convert contribution",
				slog.String("contribution_id", contribution.ContributionID),
				slog.String("member_id", contribution.MemberID),
				slog.String("error", err.Error()))
			continue
		}
		if converted {
			result.Converted++
		}
	}

	if result.Failed > 0 {
		logger.Warn("Cycle left open after conversion failures",
			slog.String("cycle_id", cycleID),
			slog.Int("converted", result.Converted),
			slog.Int("failed", result.Failed))
		return result, nil
	}

	if err := s.contributionRepo.MarkCycleProcessed(ctx, cycleID, now, actorID); err != nil {
		return nil, fmt.Errorf("failed to mark cycle processed: %w", err)
	}

	logger.Info("Cycle default conversion completed",
		slog.String("cycle_id", cycleID),
		slog.Int("converted", result.Converted),
		slog.Int("failed", result.Failed))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventCycleProcessed,
		OccurredAt: time.Now().UTC(),
		CycleID:    cycleID,
		Status:     string(domain.CycleProcessed),
	})
	return result, nil
}

// convertContribution turns one unpaid contribution's shortfall into an
// ACTIVE contribution-default loan and terminally links the contribution.
// Runs in its own transaction; the contribution row lock plus the terminal
// CONVERTED status guard against double conversion across concurrent runs.
func (s *contributionService) convertContribution(ctx context.Context, contributionID string, actorID string, now time.Time) (bool, error) {
	var event *domain.Event
	err := s.contributionRepo.WithTx(ctx, func(txCtx context.Context) error {
		contribution, err := s.contributionRepo.FindContributionByIDForUpdate(txCtx, contributionID)
		if err != nil {
			return fmt.Errorf("failed to find contribution %s: %w", contributionID, err)
		}
		if !contribution.IsConvertible() {
			// Already converted or fully paid since the working set was read.
			return nil
		}

		shortfall := contribution.Shortfall()
		dailyRate, err := interest.DailyRateFor(decimal.Zero, now.Year(), int(now.Month()))
		if err != nil {
			return fmt.Errorf("failed to derive daily rate: %w", err)
		}

		expectedEnd := now.AddDate(0, s.policy.ContributionLoanTermMonths, 0)
		loan := domain.Loan{
			LoanID:               uuid.NewString(),
			Borrower:             domain.MemberBorrower(contribution.MemberID),
			LoanType:             domain.LoanTypeContributionDefault,
			Principal:            shortfall,
			MonthlyRate:          decimal.Zero,
			DailyRate:            dailyRate,
			TermMonths:           s.policy.ContributionLoanTermMonths,
			DisbursedAt:          &now,
			ExpectedEndDate:      &expectedEnd,
			TotalAmountDue:       shortfall,
			OutstandingBalance:   shortfall,
			Status:               domain.LoanActive,
			SourceContributionID: contribution.ContributionID,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}

		if err := s.loanRepo.SaveLoan(txCtx, loan); err != nil {
			return fmt.Errorf("failed to save default loan: %w", err)
		}

		contribution.Status = domain.ContributionConverted
		contribution.LoanID = loan.LoanID
		contribution.LastUpdatedAt = now
		contribution.LastUpdatedBy = actorID
		if err := s.contributionRepo.UpdateContribution(txCtx, *contribution); err != nil {
			return fmt.Errorf("failed to mark contribution converted: %w", err)
		}

		if err := s.memberRepo.AdjustMemberTotals(txCtx, contribution.MemberID,
			decimal.Zero, shortfall, shortfall, actorID, now); err != nil {
			return fmt.Errorf("failed to adjust member totals: %w", err)
		}

		event = &domain.Event{
			Kind:       domain.EventContributionConverted,
			OccurredAt: now,
			LoanID:     loan.LoanID,
			CycleID:    contribution.CycleID,
			BorrowerID: contribution.MemberID,
			Amount:     shortfall,
			Status:     string(domain.ContributionConverted),
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if event == nil {
		return false, nil
	}

	s.publishEvent(ctx, *event)
	return true, nil
}

// ProcessPastDueCycles runs default conversion for every past-due OPEN
// cycle. A failure in one cycle does not stop the others.
// Implements portssvc.ContributionSvcFacade
func (s *contributionService) ProcessPastDueCycles(ctx context.Context, now time.Time, actorID string) ([]dto.CycleProcessResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	cycles, err := s.contributionRepo.ListPastDueOpenCycles(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list past-due cycles: %w", err)
	}

	results := make([]dto.CycleProcessResult, 0, len(cycles))
	for _, cycle := range cycles {
		result, err := s.ProcessCycleDefaults(ctx, cycle.CycleID, actorID)
		if err != nil {
			logger.Error("Failed to process cycle", slog.String("cycle_id", cycle.CycleID), slog.String("error", err.Error()))
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}
