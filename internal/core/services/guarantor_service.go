package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
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
	ErrBorrowerNotActive   = errors.New("external borrower is not in active status")
	ErrExposureExceeded    = errors.New("guarantee would exceed the member's exposure ceiling")
	ErrGuarantorInactive   = errors.New("guarantor member is not active")
	ErrNoActiveGuarantors  = errors.New("loan has no active guarantors to transfer liability to")
	ErrLoanNotGuaranteed   = errors.New("loan is not a guaranteed loan")
	ErrDuplicateGuarantor  = errors.New("member already guarantees this loan")
)

var hundred = decimal.NewFromInt(100)

// guarantorService creates loans for external borrowers backed by member
// guarantors and transfers liability onto the guarantors when the borrower
// defaults.
type guarantorService struct {
	loanRepo         portsrepo.LoanRepositoryWithTx
	guarantorRepo    portsrepo.GuarantorRepositoryFacade
	memberRepo       portsrepo.MemberRepositoryFacade
	externalRepo     portsrepo.ExternalBorrowerRepositoryFacade
	contributionRepo portsrepo.ContributionReader
	publisher        portssvc.EventPublisher
	policy           config.Policy
}

// NewGuarantorService creates a new GuarantorService.
func NewGuarantorService(
	loanRepo portsrepo.LoanRepositoryWithTx,
	guarantorRepo portsrepo.GuarantorRepositoryFacade,
	memberRepo portsrepo.MemberRepositoryFacade,
	externalRepo portsrepo.ExternalBorrowerRepositoryFacade,
	contributionRepo portsrepo.ContributionReader,
	publisher portssvc.EventPublisher,
	policy config.Policy,
) portssvc.GuarantorSvcFacade {
	return &guarantorService{
		loanRepo:         loanRepo,
		guarantorRepo:    guarantorRepo,
		memberRepo:       memberRepo,
		externalRepo:     externalRepo,
		contributionRepo: contributionRepo,
		publisher:        publisher,
		policy:           policy,
	}
}

// Ensure guarantorService implements the facade interface
var _ portssvc.GuarantorSvcFacade = (*guarantorService)(nil)

func (s *guarantorService) publishEvent(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish event",
			slog.String("kind", string(event.Kind)), slog.String("loan_id", event.LoanID), slog.String("error", err.Error()))
	}
}

// CreateGuaranteedLoan creates a PENDING loan for an active external
// borrower, secured by at least one member guarantor. Each guarantor's
// exposure ceiling is validated under the member row lock.
// Implements portssvc.GuarantorSvcFacade
func (s *guarantorService) CreateGuaranteedLoan(ctx context.Context, req dto.CreateGuaranteedLoanRequest, actorID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: principal must be positive", apperrors.ErrValidation)
	}
	if req.MonthlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: monthly rate must not be negative", apperrors.ErrValidation)
	}
	if len(req.Guarantors) == 0 {
		return nil, fmt.Errorf("%w: at least one guarantor is required", apperrors.ErrValidation)
	}
	seen := make(map[string]bool, len(req.Guarantors))
	for _, g := range req.Guarantors {
		if seen[g.MemberID] {
			return nil, fmt.Errorf("%w: member %s", ErrDuplicateGuarantor, g.MemberID)
		}
		seen[g.MemberID] = true
	}

	borrower, err := s.externalRepo.FindExternalBorrowerByID(ctx, req.ExternalBorrowerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find external borrower %s: %w", req.ExternalBorrowerID, err)
	}
	if !borrower.IsActive() {
		return nil, fmt.Errorf("%w: borrower %s is %s", ErrBorrowerNotActive, borrower.ExternalBorrowerID, borrower.Status)
	}

	now := time.Now().UTC()
	dailyRate, err := interest.DailyRateFor(req.MonthlyRate, now.Year(), int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	termMonths := req.TermMonths
	if termMonths <= 0 {
		termMonths = s.policy.DefaultLoanTermMonths
	}

	loan := domain.Loan{
		LoanID:             uuid.NewString(),
		Borrower:           domain.ExternalBorrowerRef(borrower.ExternalBorrowerID),
		LoanType:           domain.LoanTypeGuaranteed,
		Principal:          req.Principal,
		MonthlyRate:        req.MonthlyRate,
		DailyRate:          dailyRate,
		TermMonths:         termMonths,
		TotalAmountDue:     req.Principal,
		OutstandingBalance: req.Principal,
		Status:             domain.LoanPending,
		Purpose:            req.Purpose,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	err = s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.loanRepo.SaveLoan(txCtx, loan); err != nil {
			return fmt.Errorf("failed to save loan: %w", err)
		}
		for _, input := range req.Guarantors {
			guarantor, err := s.buildGuarantor(txCtx, loan, input, actorID, now)
			if err != nil {
				return err
			}
			if err := s.guarantorRepo.SaveGuarantor(txCtx, *guarantor); err != nil {
				return fmt.Errorf("failed to save guarantor for member %s: %w", input.MemberID, err)
			}
			loan.Guarantors = append(loan.Guarantors, *guarantor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Guaranteed loan created",
		slog.String("loan_id", loan.LoanID),
		slog.String("borrower_id", borrower.ExternalBorrowerID),
		slog.String("principal", loan.Principal.String()),
		slog.Int("guarantors", len(loan.Guarantors)))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanApplied,
		OccurredAt: now,
		LoanID:     loan.LoanID,
		BorrowerID: borrower.ExternalBorrowerID,
		Amount:     loan.Principal,
		Status:     string(loan.Status),
	})
	return &loan, nil
}

// buildGuarantor validates one guarantor input against the member's
// exposure ceiling and returns the record to persist. Must run inside a
// transaction; the member row lock serializes concurrent exposure checks.
func (s *guarantorService) buildGuarantor(ctx context.Context, loan domain.Loan, input dto.GuarantorInput, actorID string, now time.Time) (*domain.LoanGuarantor, error) {
	member, err := s.memberRepo.FindMemberByIDForUpdate(ctx, input.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find guarantor member %s: %w", input.MemberID, err)
	}
	if !member.IsActive() {
		return nil, fmt.Errorf("%w: member %s is %s", ErrGuarantorInactive, member.MemberID, member.Status)
	}

	percentage := hundred
	if input.Percentage != nil {
		percentage = *input.Percentage
		if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: percentage must be in (0, 100]", apperrors.ErrValidation)
		}
	}
	if input.GuaranteedAmount != nil && input.GuaranteedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: guaranteed amount must be positive", apperrors.ErrValidation)
	}

	guarantor := domain.LoanGuarantor{
		GuarantorID:        uuid.NewString(),
		LoanID:             loan.LoanID,
		MemberID:           member.MemberID,
		GuaranteedAmount:   input.GuaranteedAmount,
		Percentage:         percentage,
		Status:             domain.GuarantorActive,
		AmountPaidOnBehalf: decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	newAmount := guarantor.EffectiveAmount(loan.OutstandingBalance)
	current, ceiling, err := s.exposureFor(ctx, member.MemberID)
	if err != nil {
		return nil, err
	}
	if current.Add(newAmount).GreaterThan(ceiling) {
		return nil, fmt.Errorf("%w: member %s current %s + new %s > ceiling %s",
			ErrExposureExceeded, member.MemberID, current, newAmount, ceiling)
	}
	return &guarantor, nil
}

// exposureFor totals a member's exposure across active guarantees and
// derives the policy ceiling from their paid-in contributions.
func (s *guarantorService) exposureFor(ctx context.Context, memberID string) (current, ceiling decimal.Decimal, err error) {
	guarantees, err := s.guarantorRepo.ListGuaranteesByMember(ctx, memberID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to list guarantees for member %s: %w", memberID, err)
	}
	current = decimal.Zero
	for _, g := range guarantees {
		current = current.Add(g.Exposure())
	}
	contributions, err := s.contributionRepo.SumPaidContributionsByMember(ctx, memberID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to total contributions for member %s: %w", memberID, err)
	}
	ceiling = contributions.Mul(s.policy.GuarantorMaxMultiplier)
	return current, ceiling, nil
}

// AddGuarantor attaches a further guarantor to a live guaranteed loan.
// Implements portssvc.GuarantorSvcFacade
func (s *guarantorService) AddGuarantor(ctx context.Context, loanID string, req dto.GuarantorInput, actorID string) (*domain.LoanGuarantor, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var created *domain.LoanGuarantor
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if loan.LoanType != domain.LoanTypeGuaranteed {
			return fmt.Errorf("%w: loan %s is %s", ErrLoanNotGuaranteed, loanID, loan.LoanType)
		}
		switch loan.Status {
		case domain.LoanPending, domain.LoanApproved, domain.LoanDisbursed, domain.LoanActive:
		default:
			return fmt.Errorf("%w: loan %s is %s", ErrInvalidLoanState, loanID, loan.Status)
		}

		existing, err := s.guarantorRepo.ListGuarantorsByLoan(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to list guarantors for loan %s: %w", loanID, err)
		}
		for _, g := range existing {
			if g.MemberID == req.MemberID && g.Status != domain.GuarantorReleased && g.Status != domain.GuarantorDeclined {
				return fmt.Errorf("%w: member %s", ErrDuplicateGuarantor, req.MemberID)
			}
		}

		guarantor, err := s.buildGuarantor(txCtx, *loan, req, actorID, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.guarantorRepo.SaveGuarantor(txCtx, *guarantor); err != nil {
			return fmt.Errorf("failed to save guarantor: %w", err)
		}
		created = guarantor
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Guarantor added",
		slog.String("loan_id", loanID),
		slog.String("member_id", created.MemberID),
		slog.String("percentage", created.Percentage.String()))
	return created, nil
}

// GuarantorExposure returns the member's current exposure and policy
// ceiling without locking.
// Implements portssvc.GuarantorSvcFacade
func (s *guarantorService) GuarantorExposure(ctx context.Context, memberID string) (decimal.Decimal, decimal.Decimal, error) {
	if _, err := s.memberRepo.FindMemberByID(ctx, memberID); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	return s.exposureFor(ctx, memberID)
}

// TransferLiability handles a guaranteed borrower's default: the loan's
// remaining outstanding balance is allocated across active guarantors in
// descending percentage order, each guarantor's share capped at what
// remains unallocated. Allocation stops once the outstanding balance is
// covered. The loan and the liable guarantors transition to DEFAULTED; no
// new debt instrument is created against the guarantors here.
// Implements portssvc.GuarantorSvcFacade
func (s *guarantorService) TransferLiability(ctx context.Context, loanID string, actorID string) ([]domain.LoanGuarantor, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var liable []domain.LoanGuarantor
	var borrowerID string
	var outstanding decimal.Decimal
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if loan.LoanType != domain.LoanTypeGuaranteed {
			return fmt.Errorf("%w: loan %s is %s", ErrLoanNotGuaranteed, loanID, loan.LoanType)
		}
		if !loan.IsServiceable() {
			return fmt.Errorf("%w: loan %s is %s", ErrLoanNotServiceable, loanID, loan.Status)
		}
		borrowerID = loan.Borrower.ID()
		outstanding = loan.OutstandingBalance

		guarantors, err := s.guarantorRepo.ListGuarantorsByLoan(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to list guarantors for loan %s: %w", loanID, err)
		}
		active := make([]domain.LoanGuarantor, 0, len(guarantors))
		for _, g := range guarantors {
			if g.IsLiable() {
				active = append(active, g)
			}
		}
		if len(active) == 0 {
			return fmt.Errorf("%w: loan %s", ErrNoActiveGuarantors, loanID)
		}
		// Primary guarantor first.
		sort.SliceStable(active, func(i, j int) bool {
			return active[i].Percentage.GreaterThan(active[j].Percentage)
		})

		now := time.Now().UTC()
		remaining := loan.OutstandingBalance
		for _, g := range active {
			share := g.EffectiveAmount(loan.OutstandingBalance)
			if share.GreaterThan(remaining) {
				share = remaining
			}
			g.AmountPaidOnBehalf = share
			g.Status = domain.GuarantorDefaulted
			g.LastUpdatedAt = now
			g.LastUpdatedBy = actorID
			if err := s.guarantorRepo.UpdateGuarantor(txCtx, g); err != nil {
				return fmt.Errorf("failed to update guarantor %s: %w", g.GuarantorID, err)
			}
			liable = append(liable, g)
			remaining = remaining.Sub(share)
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
		}

		loan.Status = domain.LoanDefaulted
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = actorID
		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Liability transferred to guarantors",
		slog.String("loan_id", loanID),
		slog.String("outstanding", outstanding.String()),
		slog.Int("guarantors", len(liable)))
	now := time.Now().UTC()
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanDefaulted,
		OccurredAt: now,
		LoanID:     loanID,
		BorrowerID: borrowerID,
		Amount:     outstanding,
		Status:     string(domain.LoanDefaulted),
	})
	for _, g := range liable {
		s.publishEvent(ctx, domain.Event{
			Kind:       domain.EventGuarantorDefaulted,
			OccurredAt: now,
			LoanID:     loanID,
			BorrowerID: g.MemberID,
			Amount:     g.AmountPaidOnBehalf,
			Status:     string(domain.GuarantorDefaulted),
		})
	}
	return liable, nil
}
