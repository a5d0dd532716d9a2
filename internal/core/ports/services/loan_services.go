package services

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/harambee-apps/table_banking_app/internal/dto"
)

// LoanSvcFacade exposes the loan lifecycle: application, approval,
// disbursement, repayment and interest accrual.
type LoanSvcFacade interface {
	// ApplyForLoan creates a PENDING loan for an active member, subject to
	// the single-active-loan and contribution-multiple policies.
	ApplyForLoan(ctx context.Context, req dto.ApplyLoanRequest, actorID string) (*domain.Loan, error)

	// ApproveLoan transitions PENDING -> APPROVED, recording the approver.
	ApproveLoan(ctx context.Context, loanID string, approverID string) (*domain.Loan, error)

	// RejectLoan transitions PENDING -> REJECTED.
	RejectLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error)

	// DisburseLoan transitions APPROVED -> DISBURSED, recomputes the daily
	// rate for the disbursement month, bumps borrower totals and posts a
	// debit ledger entry.
	DisburseLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error)

	// RepayLoan posts a payment against a serviceable loan, allocating
	// interest first. Amounts above the outstanding balance are clamped.
	RepayLoan(ctx context.Context, loanID string, req dto.RepayLoanRequest, actorID string) (*domain.Repayment, error)

	// AccrueInterest posts one day's interest for the loan. Idempotent per
	// (loan, date): a repeat call returns nil without a second record, and
	// dates on or before the latest posted accrual are skipped so the
	// accrual chain only appends in date order.
	AccrueInterest(ctx context.Context, loanID string, date time.Time) (*domain.InterestAccrual, error)

	// RunDailyAccrual accrues interest for the date across all serviceable
	// loans. Per-loan failures are logged and counted, never fatal.
	RunDailyAccrual(ctx context.Context, date time.Time) (*dto.AccrualBatchResult, error)

	// MarkLoanDefaulted transitions a serviceable loan to DEFAULTED.
	MarkLoanDefaulted(ctx context.Context, loanID string, actorID string) (*domain.Loan, error)

	// WriteOffLoan transitions a serviceable loan to WRITTEN_OFF.
	WriteOffLoan(ctx context.Context, loanID string, actorID string) (*domain.Loan, error)

	// GetLoanByID retrieves a loan with its repayments and accruals.
	GetLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// ListLoans retrieves loans matching the given filters.
	ListLoans(ctx context.Context, params dto.ListLoansParams) ([]domain.Loan, error)
}
