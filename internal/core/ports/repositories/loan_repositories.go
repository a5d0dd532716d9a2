package repositories

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// LoanReader defines read operations for loan data.
type LoanReader interface {
	// FindLoanByID retrieves a loan by its unique identifier.
	FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error)

	// FindLoanByIDForUpdate retrieves a loan and locks it for the duration
	// of the enclosing transaction. Concurrent mutations of the same loan
	// serialize on this lock.
	FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error)

	// ListLoans retrieves loans filtered by optional status and member.
	ListLoans(ctx context.Context, status domain.LoanStatus, memberID string, limit, offset int) ([]domain.Loan, error)

	// ListServiceableLoanIDs returns the IDs of all loans eligible for
	// interest accrual (DISBURSED or ACTIVE).
	ListServiceableLoanIDs(ctx context.Context) ([]string, error)

	// CountActiveLoansForBorrower counts a borrower's non-terminal loans,
	// used to enforce the single-active-loan policy.
	CountActiveLoansForBorrower(ctx context.Context, borrower domain.BorrowerRef) (int, error)
}

// LoanWriter defines write operations for loan data.
type LoanWriter interface {
	// SaveLoan persists a newly created loan.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	// UpdateLoan persists mutated loan state (balances, status, dates).
	UpdateLoan(ctx context.Context, loan domain.Loan) error
}

// AccrualReader defines read operations for interest accrual records.
type AccrualReader interface {
	// LatestAccrualDate returns the date of the loan's most recent accrual
	// record, or nil when none exist. Backs both the per-date idempotence
	// check and the append-only date ordering of the accrual chain.
	LatestAccrualDate(ctx context.Context, loanID string) (*time.Time, error)

	// ListAccrualsByLoan retrieves a loan's accrual records ordered by date.
	ListAccrualsByLoan(ctx context.Context, loanID string) ([]domain.InterestAccrual, error)
}

// AccrualWriter defines write operations for interest accrual records.
type AccrualWriter interface {
	// SaveAccrual persists one immutable accrual record. Implementations
	// must reject a duplicate (loan, date) pair with apperrors.ErrDuplicate.
	SaveAccrual(ctx context.Context, accrual domain.InterestAccrual) error
}

// RepaymentReader defines read operations for repayment records.
type RepaymentReader interface {
	// ListRepaymentsByLoan retrieves a loan's repayments ordered by sequence.
	ListRepaymentsByLoan(ctx context.Context, loanID string) ([]domain.Repayment, error)

	// NextRepaymentSequence returns the next per-loan sequence number,
	// starting at 1. Must be called inside the loan's mutation transaction.
	NextRepaymentSequence(ctx context.Context, loanID string) (int, error)
}

// RepaymentWriter defines write operations for repayment records.
type RepaymentWriter interface {
	// SaveRepayment persists one immutable repayment record.
	SaveRepayment(ctx context.Context, repayment domain.Repayment) error
}

// LoanRepositoryFacade combines all loan-related repository interfaces.
type LoanRepositoryFacade interface {
	LoanReader
	LoanWriter
	AccrualReader
	AccrualWriter
	RepaymentReader
	RepaymentWriter
}

// LoanRepositoryWithTx extends LoanRepositoryFacade with transaction support.
type LoanRepositoryWithTx interface {
	LoanRepositoryFacade
	TransactionManager
}
