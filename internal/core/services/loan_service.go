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
	ErrBorrowerInactive   = errors.New("borrower is not active")
	ErrActiveLoanExists   = errors.New("borrower already has an active loan")
	ErrLoanLimitExceeded  = errors.New("requested principal exceeds the contribution-based loan limit")
	ErrInvalidLoanState   = errors.New("loan is not in a state that allows this operation")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrLoanNotServiceable = errors.New("loan is not active or disbursed")
)

// Reference-number kinds issued by the sequence repository.
const (
	refKindDisbursement = "DSB"
	refKindRepayment    = "RPT"
)

// loanService orchestrates the loan lifecycle: application, approval,
// disbursement, repayment allocation and daily interest accrual.
type loanService struct {
	loanRepo         portsrepo.LoanRepositoryWithTx
	memberRepo       portsrepo.MemberRepositoryFacade
	externalRepo     portsrepo.ExternalBorrowerRepositoryFacade
	contributionRepo portsrepo.ContributionReader
	guarantorRepo    portsrepo.GuarantorReader
	ledgerRepo       portsrepo.LedgerRepositoryFacade
	sequenceRepo     portsrepo.SequenceRepository
	publisher        portssvc.EventPublisher
	policy           config.Policy
}

// NewLoanService creates a new LoanService.
func NewLoanService(
	loanRepo portsrepo.LoanRepositoryWithTx,
	memberRepo portsrepo.MemberRepositoryFacade,
	externalRepo portsrepo.ExternalBorrowerRepositoryFacade,
	contributionRepo portsrepo.ContributionReader,
	guarantorRepo portsrepo.GuarantorReader,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	sequenceRepo portsrepo.SequenceRepository,
	publisher portssvc.EventPublisher,
	policy config.Policy,
) portssvc.LoanSvcFacade {
	return &loanService{
		loanRepo:         loanRepo,
		memberRepo:       memberRepo,
		externalRepo:     externalRepo,
		contributionRepo: contributionRepo,
		guarantorRepo:    guarantorRepo,
		ledgerRepo:       ledgerRepo,
		sequenceRepo:     sequenceRepo,
		publisher:        publisher,
		policy:           policy,
	}
}

// Ensure loanService implements the portssvc.LoanSvcFacade interface
var _ portssvc.LoanSvcFacade = (*loanService)(nil)

// publishEvent delivers a lifecycle notification. Publish failures are
// logged and never propagated: the committed financial state is the source
// of truth and notification is best-effort.
func (s *loanService) publishEvent(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish event",
			slog.String("kind", string(event.Kind)), slog.String("loan_id", event.LoanID), slog.String("error", err.Error()))
	}
}

// ApplyForLoan creates a PENDING loan for an active member.
// Implements portssvc.LoanSvcFacade
func (s *loanService) ApplyForLoan(ctx context.Context, req dto.ApplyLoanRequest, actorID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Principal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: principal %s", ErrInvalidAmount, req.Principal)
	}
	if req.MonthlyRate.IsNegative() {
		return nil, fmt.Errorf("%w: monthly rate must not be negative", apperrors.ErrValidation)
	}

	member, err := s.memberRepo.FindMemberByID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find member %s: %w", req.MemberID, err)
	}
	if !member.IsActive() {
		return nil, fmt.Errorf("%w: member %s is %s", ErrBorrowerInactive, member.MemberID, member.Status)
	}

	borrower := domain.MemberBorrower(member.MemberID)

	activeCount, err := s.loanRepo.CountActiveLoansForBorrower(ctx, borrower)
	if err != nil {
		return nil, fmt.Errorf("failed to count active loans: %w", err)
	}
	if activeCount > 0 {
		return nil, fmt.Errorf("%w: member %s has %d open loan(s)", ErrActiveLoanExists, member.MemberID, activeCount)
	}

	contributions, err := s.contributionRepo.SumPaidContributionsByMember(ctx, member.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to total contributions for member %s: %w", member.MemberID, err)
	}
	limit := contributions.Mul(s.policy.LoanMaxMultiplier)
	if req.Principal.GreaterThan(limit) {
		return nil, fmt.Errorf("%w: requested %s, limit %s (contributions %s x %s)",
			ErrLoanLimitExceeded, req.Principal, limit, contributions, s.policy.LoanMaxMultiplier)
	}

	now := time.Now().UTC()
	dailyRate, err := interest.DailyRateFor(req.MonthlyRate, now.Year(), int(now.Month()))
	if err != nil {
		return nil, fmt.Errorf("failed to derive daily rate: %w", err)
	}

	loanType := req.LoanType
	if loanType == "" {
		loanType = domain.LoanTypeRegular
	}
	termMonths := req.TermMonths
	if termMonths <= 0 {
		termMonths = s.policy.DefaultLoanTermMonths
	}
	expectedEnd := now.AddDate(0, termMonths, 0)

	loan := domain.Loan{
		LoanID:             uuid.NewString(),
		Borrower:           borrower,
		LoanType:           loanType,
		Principal:          req.Principal,
		MonthlyRate:        req.MonthlyRate,
		DailyRate:          dailyRate,
		TermMonths:         termMonths,
		ExpectedEndDate:    &expectedEnd,
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

	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		logger.Error("Failed to save loan application", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	logger.Info("Loan application created", slog.String("loan_id", loan.LoanID), slog.String("member_id", member.MemberID), slog.String("principal", loan.Principal.String()))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanApplied,
		OccurredAt: now,
		LoanID:     loan.LoanID,
		BorrowerID: member.MemberID,
		Amount:     loan.Principal,
		Status:     string(loan.Status),
	})
	return &loan, nil
}

// ApproveLoan transitions PENDING -> APPROVED.
// Implements portssvc.LoanSvcFacade
func (s *loanService) ApproveLoan(ctx context.Context, loanID string, approverID string) (*domain.Loan, error) {
	var approved *domain.Loan
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if loan.Status != domain.LoanPending {
			return fmt.Errorf("%w: cannot approve loan in status %s", ErrInvalidLoanState, loan.Status)
		}

		now := time.Now().UTC()
		loan.Status = domain.LoanApproved
		loan.ApprovedBy = approverID
		loan.ApprovedAt = &now
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = approverID

		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}
		approved = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLoggerFromCtx(ctx).Info("Loan approved", slog.String("loan_id", loanID), slog.String("approver_id", approverID))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanApproved,
		OccurredAt: time.Now().UTC(),
		LoanID:     approved.LoanID,
		BorrowerID: approved.Borrower.ID(),
		Amount:     approved.Principal,
		Status:     string(approved.Status),
	})
	return approved, nil
}

// RejectLoan transitions PENDING -> REJECTED.
// Implements portssvc.LoanSvcFacade
func (s *loanService) RejectLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error) {
	var rejected *domain.Loan
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if loan.Status != domain.LoanPending {
			return fmt.Errorf("%w: cannot reject loan in status %s", ErrInvalidLoanState, loan.Status)
		}

		now := time.Now().UTC()
		loan.Status = domain.LoanRejected
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = actorID

		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}
		rejected = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLoggerFromCtx(ctx).Info("Loan rejected", slog.String("loan_id", loanID))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanRejected,
		OccurredAt: time.Now().UTC(),
		LoanID:     rejected.LoanID,
		BorrowerID: rejected.Borrower.ID(),
		Amount:     rejected.Principal,
		Status:     string(rejected.Status),
	})
	return rejected, nil
}

// DisburseLoan transitions APPROVED -> DISBURSED, recomputing the daily
// rate for the actual disbursement month, bumping borrower totals and
// posting a debit ledger entry, all within one transaction.
// Implements portssvc.LoanSvcFacade
func (s *loanService) DisburseLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var disbursed *domain.Loan
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if loan.Status != domain.LoanApproved {
			return fmt.Errorf("%w: cannot disburse loan in status %s", ErrInvalidLoanState, loan.Status)
		}

		now := time.Now().UTC()

		// The daily rate depends on month length; the disbursement month is
		// what the loan actually accrues in, so derive it again here.
		dailyRate, err := interest.DailyRateFor(loan.MonthlyRate, now.Year(), int(now.Month()))
		if err != nil {
			return fmt.Errorf("failed to derive daily rate: %w", err)
		}

		expectedEnd := now.AddDate(0, loan.TermMonths, 0)
		loan.DailyRate = dailyRate
		loan.DisbursedAt = &now
		loan.ExpectedEndDate = &expectedEnd
		loan.Status = domain.LoanDisbursed
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = actorID

		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}

		if loan.Borrower.Kind == domain.BorrowerMember {
			if err := s.memberRepo.AdjustMemberTotals(txCtx, loan.Borrower.MemberID,
				decimal.Zero, loan.Principal, loan.Principal, actorID, now); err != nil {
				return fmt.Errorf("failed to adjust member totals: %w", err)
			}
		}

		reference, err := s.sequenceRepo.NextReference(txCtx, refKindDisbursement, now)
		if err != nil {
			return fmt.Errorf("failed to generate disbursement reference: %w", err)
		}

		entry := domain.LedgerEntry{
			EntryID:         uuid.NewString(),
			EntryType:       domain.Debit,
			Amount:          loan.Principal,
			LoanID:          loan.LoanID,
			MemberID:        loan.Borrower.MemberID,
			ReferenceNumber: reference,
			Description:     fmt.Sprintf("Loan disbursement %s", loan.LoanID),
			EntryDate:       now,
			CreatedAt:       now,
			CreatedBy:       actorID,
		}
		if err := s.ledgerRepo.SaveEntry(txCtx, entry); err != nil {
			return fmt.Errorf("failed to post disbursement ledger entry: %w", err)
		}

		disbursed = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan disbursed", slog.String("loan_id", loanID), slog.String("principal", disbursed.Principal.String()))
	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanDisbursed,
		OccurredAt: time.Now().UTC(),
		LoanID:     disbursed.LoanID,
		BorrowerID: disbursed.Borrower.ID(),
		Amount:     disbursed.Principal,
		Status:     string(disbursed.Status),
	})
	return disbursed, nil
}

// AccrueInterest posts one day's interest for the loan. The operation is
// idempotent per (loan, date): when a record already exists it returns
// (nil, nil) without touching the loan.
// Implements portssvc.LoanSvcFacade
func (s *loanService) AccrueInterest(ctx context.Context, loanID string, date time.Time) (*domain.InterestAccrual, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	date = date.UTC().Truncate(24 * time.Hour)

	var result *domain.InterestAccrual
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if !loan.IsServiceable() {
			return fmt.Errorf("%w: loan %s is %s", ErrLoanNotServiceable, loanID, loan.Status)
		}

		latest, err := s.loanRepo.LatestAccrualDate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to read latest accrual date: %w", err)
		}
		if latest != nil && !date.After(latest.UTC().Truncate(24*time.Hour)) {
			// Covers same-day repeats and backdated dates alike: the chain
			// only appends forward, each opening balance continuing the
			// previous closing balance.
			logger.Debug("Accrual already covered through date",
				slog.String("loan_id", loanID), slog.Time("date", date), slog.Time("latest", *latest))
			return nil
		}

		amount := interest.DailyInterest(loan.OutstandingBalance, loan.DailyRate)
		accrual, err := loan.ApplyAccrual(date, amount)
		if err != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		accrual.AccrualID = uuid.NewString()
		accrual.CreatedAt = time.Now().UTC()

		if err := s.loanRepo.SaveAccrual(txCtx, accrual); err != nil {
			if errors.Is(err, apperrors.ErrDuplicate) {
				// Concurrent run beat us to it; the unique index is the
				// final arbiter of idempotence.
				logger.Debug("Concurrent accrual detected", slog.String("loan_id", loanID), slog.Time("date", date))
				return nil
			}
			return fmt.Errorf("failed to save accrual: %w", err)
		}

		loan.LastUpdatedAt = accrual.CreatedAt
		loan.LastUpdatedBy = "SYSTEM_ACCRUAL"
		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}

		if loan.Borrower.Kind == domain.BorrowerMember && amount.IsPositive() {
			if err := s.memberRepo.AdjustMemberTotals(txCtx, loan.Borrower.MemberID,
				decimal.Zero, decimal.Zero, amount, "SYSTEM_ACCRUAL", accrual.CreatedAt); err != nil {
				return fmt.Errorf("failed to adjust member outstanding: %w", err)
			}
		}

		result = &accrual
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunDailyAccrual accrues interest for the date across every serviceable
// loan. A failure on one loan is logged and counted; the batch continues.
// Implements portssvc.LoanSvcFacade
func (s *loanService) RunDailyAccrual(ctx context.Context, date time.Time) (*dto.AccrualBatchResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	loanIDs, err := s.loanRepo.ListServiceableLoanIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans for accrual: %w", err)
	}

	result := &dto.AccrualBatchResult{
		Date:      date.UTC().Format("2006-01-02"),
		Processed: len(loanIDs),
	}
	for _, loanID := range loanIDs {
		accrual, err := s.AccrueInterest(ctx, loanID, date)
		switch {
		case err != nil:
			result.Failed++
			logger.Error("Accrual failed for loan", slog.String("loan_id", loanID), slog.String("error", err.Error()))
		case accrual == nil:
			result.Skipped++
		default:
			result.Succeeded++
		}
	}

	logger.Info("Daily accrual run completed",
		slog.String("date", result.Date),
		slog.Int("processed", result.Processed),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return result, nil
}

// RepayLoan posts a payment against a serviceable loan, allocating unpaid
// interest before principal. Amounts above the outstanding balance are
// clamped; the excess is ignored, not refunded.
// Implements portssvc.LoanSvcFacade
func (s *loanService) RepayLoan(ctx context.Context, loanID string, req dto.RepayLoanRequest, actorID string) (*domain.Repayment, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: repayment amount %s", ErrInvalidAmount, req.Amount)
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	var (
		repayment *domain.Repayment
		paidOff   bool
		borrower  domain.BorrowerRef
	)
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if !loan.IsServiceable() {
			return fmt.Errorf("%w: loan %s is %s", ErrLoanNotServiceable, loanID, loan.Status)
		}

		if req.Amount.GreaterThan(loan.OutstandingBalance) {
			logger.Info("Repayment exceeds outstanding balance, clamping",
				slog.String("loan_id", loanID),
				slog.String("amount", req.Amount.String()),
				slog.String("outstanding", loan.OutstandingBalance.String()))
		}

		sequence, err := s.loanRepo.NextRepaymentSequence(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to allocate repayment sequence: %w", err)
		}
		reference, err := s.sequenceRepo.NextReference(txCtx, refKindRepayment, paidAt)
		if err != nil {
			return fmt.Errorf("failed to generate repayment reference: %w", err)
		}

		rep, err := loan.ApplyRepayment(req.Amount, paidAt, req.PaymentMethod, reference)
		if err != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		rep.RepaymentID = uuid.NewString()
		rep.SequenceNumber = sequence
		rep.CreatedAt = paidAt
		rep.CreatedBy = actorID

		if err := s.loanRepo.SaveRepayment(txCtx, rep); err != nil {
			return fmt.Errorf("failed to save repayment: %w", err)
		}

		loan.LastUpdatedAt = paidAt
		loan.LastUpdatedBy = actorID
		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}

		if loan.Borrower.Kind == domain.BorrowerMember {
			if err := s.memberRepo.AdjustMemberTotals(txCtx, loan.Borrower.MemberID,
				decimal.Zero, decimal.Zero, rep.Amount.Neg(), actorID, paidAt); err != nil {
				return fmt.Errorf("failed to adjust member outstanding: %w", err)
			}
		}

		entry := domain.LedgerEntry{
			EntryID:         uuid.NewString(),
			EntryType:       domain.Credit,
			Amount:          rep.Amount,
			LoanID:          loan.LoanID,
			MemberID:        loan.Borrower.MemberID,
			ReferenceNumber: reference,
			Description:     fmt.Sprintf("Loan repayment %s #%d", loan.LoanID, rep.SequenceNumber),
			EntryDate:       paidAt,
			CreatedAt:       paidAt,
			CreatedBy:       actorID,
		}
		if err := s.ledgerRepo.SaveEntry(txCtx, entry); err != nil {
			return fmt.Errorf("failed to post repayment ledger entry: %w", err)
		}

		repayment = &rep
		paidOff = loan.Status == domain.LoanPaidOff
		borrower = loan.Borrower
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Repayment posted",
		slog.String("loan_id", loanID),
		slog.String("amount", repayment.Amount.String()),
		slog.String("interest_portion", repayment.InterestPortion.String()),
		slog.String("principal_portion", repayment.PrincipalPortion.String()),
		slog.Bool("paid_off", paidOff))

	s.publishEvent(ctx, domain.Event{
		Kind:       domain.EventLoanRepayment,
		OccurredAt: paidAt,
		LoanID:     loanID,
		BorrowerID: borrower.ID(),
		Amount:     repayment.Amount,
		Status:     string(domain.LoanActive),
	})
	if paidOff {
		s.publishEvent(ctx, domain.Event{
			Kind:       domain.EventLoanPaidOff,
			OccurredAt: paidAt,
			LoanID:     loanID,
			BorrowerID: borrower.ID(),
			Amount:     repayment.BalanceAfter,
			Status:     string(domain.LoanPaidOff),
		})
	}
	return repayment, nil
}

// MarkLoanDefaulted transitions a serviceable loan to DEFAULTED.
// Implements portssvc.LoanSvcFacade
func (s *loanService) MarkLoanDefaulted(ctx context.Context, loanID string, actorID string) (*domain.Loan, error) {
	return s.terminate(ctx, loanID, actorID, domain.LoanDefaulted, domain.EventLoanDefaulted)
}

// WriteOffLoan transitions a serviceable loan to WRITTEN_OFF.
// Implements portssvc.LoanSvcFacade
func (s *loanService) WriteOffLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error) {
	return s.terminate(ctx, loanID, actorID, domain.LoanWrittenOff, domain.EventLoanWrittenOff)
}

// terminate moves a serviceable loan into a terminal branch state.
func (s *loanService) terminate(ctx context.Context, loanID, actorID string, status domain.LoanStatus, kind domain.EventKind) (*domain.Loan, error) {
	var updated *domain.Loan
	err := s.loanRepo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.loanRepo.FindLoanByIDForUpdate(txCtx, loanID)
		if err != nil {
			return fmt.Errorf("failed to find loan %s: %w", loanID, err)
		}
		if !loan.IsServiceable() {
			return fmt.Errorf("%w: cannot mark loan %s as %s from %s", ErrInvalidLoanState, loanID, status, loan.Status)
		}

		now := time.Now().UTC()
		loan.Status = status
		loan.LastUpdatedAt = now
		loan.LastUpdatedBy = actorID

		if err := s.loanRepo.UpdateLoan(txCtx, *loan); err != nil {
			return fmt.Errorf("failed to update loan %s: %w", loanID, err)
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.GetLoggerFromCtx(ctx).Info("Loan state changed", slog.String("loan_id", loanID), slog.String("status", string(status)))
	s.publishEvent(ctx, domain.Event{
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
		LoanID:     updated.LoanID,
		BorrowerID: updated.Borrower.ID(),
		Amount:     updated.OutstandingBalance,
		Status:     string(updated.Status),
	})
	return updated, nil
}

// GetLoanByID retrieves a loan with its repayments, accruals and (for
// guaranteed loans) guarantors.
// Implements portssvc.LoanSvcFacade
func (s *loanService) GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}

	repayments, err := s.loanRepo.ListRepaymentsByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repayments for loan %s: %w", loanID, err)
	}
	loan.Repayments = repayments

	accruals, err := s.loanRepo.ListAccrualsByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruals for loan %s: %w", loanID, err)
	}
	loan.Accruals = accruals

	if loan.LoanType == domain.LoanTypeGuaranteed && s.guarantorRepo != nil {
		guarantors, err := s.guarantorRepo.ListGuarantorsByLoan(ctx, loanID)
		if err != nil {
			return nil, fmt.Errorf("failed to list guarantors for loan %s: %w", loanID, err)
		}
		loan.Guarantors = guarantors
	}

	return loan, nil
}

// ListLoans retrieves loans matching the given filters.
// Implements portssvc.LoanSvcFacade
func (s *loanService) ListLoans(ctx context.Context, params dto.ListLoansParams) ([]domain.Loan, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	return s.loanRepo.ListLoans(ctx, domain.LoanStatus(params.Status), params.MemberID, limit, params.Offset)
}
