package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
)

const loanColumns = `
	loan_id, borrower_kind, member_id, external_borrower_id, loan_type,
	principal, monthly_rate, daily_rate, term_months,
	disbursed_at, expected_end_date, actual_end_date,
	total_interest_accrued, total_interest_paid, total_amount_due, total_amount_paid, outstanding_balance,
	status, approved_by, approved_at, source_contribution_id, purpose,
	created_at, created_by, last_updated_at, last_updated_by`

// PgxLoanRepository persists loans, accruals and repayments in Postgres.
type PgxLoanRepository struct {
	baseRepository
}

// NewLoanRepository creates a new repository for loan data.
func NewLoanRepository(pool *pgxpool.Pool) portsrepo.LoanRepositoryWithTx {
	return &PgxLoanRepository{baseRepository{pool: pool}}
}

var _ portsrepo.LoanRepositoryWithTx = (*PgxLoanRepository)(nil)

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var loan domain.Loan
	var memberID, externalID, sourceContributionID, approvedBy, purpose *string
	err := row.Scan(
		&loan.LoanID,
		&loan.Borrower.Kind,
		&memberID,
		&externalID,
		&loan.LoanType,
		&loan.Principal,
		&loan.MonthlyRate,
		&loan.DailyRate,
		&loan.TermMonths,
		&loan.DisbursedAt,
		&loan.ExpectedEndDate,
		&loan.ActualEndDate,
		&loan.TotalInterestAccrued,
		&loan.TotalInterestPaid,
		&loan.TotalAmountDue,
		&loan.TotalAmountPaid,
		&loan.OutstandingBalance,
		&loan.Status,
		&approvedBy,
		&loan.ApprovedAt,
		&sourceContributionID,
		&purpose,
		&loan.CreatedAt,
		&loan.CreatedBy,
		&loan.LastUpdatedAt,
		&loan.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if memberID != nil {
		loan.Borrower.MemberID = *memberID
	}
	if externalID != nil {
		loan.Borrower.ExternalBorrowerID = *externalID
	}
	if sourceContributionID != nil {
		loan.SourceContributionID = *sourceContributionID
	}
	if approvedBy != nil {
		loan.ApprovedBy = *approvedBy
	}
	if purpose != nil {
		loan.Purpose = *purpose
	}
	return &loan, nil
}

func loanArgs(loan domain.Loan) []any {
	var memberID, externalID, sourceContributionID, approvedBy, purpose *string
	if loan.Borrower.MemberID != "" {
		memberID = &loan.Borrower.MemberID
	}
	if loan.Borrower.ExternalBorrowerID != "" {
		externalID = &loan.Borrower.ExternalBorrowerID
	}
	if loan.SourceContributionID != "" {
		sourceContributionID = &loan.SourceContributionID
	}
	if loan.ApprovedBy != "" {
		approvedBy = &loan.ApprovedBy
	}
	if loan.Purpose != "" {
		purpose = &loan.Purpose
	}
	return []any{
		loan.LoanID,
		loan.Borrower.Kind,
		memberID,
		externalID,
		loan.LoanType,
		loan.Principal,
		loan.MonthlyRate,
		loan.DailyRate,
		loan.TermMonths,
		loan.DisbursedAt,
		loan.ExpectedEndDate,
		loan.ActualEndDate,
		loan.TotalInterestAccrued,
		loan.TotalInterestPaid,
		loan.TotalAmountDue,
		loan.TotalAmountPaid,
		loan.OutstandingBalance,
		loan.Status,
		approvedBy,
		loan.ApprovedAt,
		sourceContributionID,
		purpose,
		loan.CreatedAt,
		loan.CreatedBy,
		loan.LastUpdatedAt,
		loan.LastUpdatedBy,
	}
}

// SaveLoan inserts a new loan.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26);
	`
	_, err := r.db(ctx).Exec(ctx, query, loanArgs(loan)...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("loan %s already exists: %w", loan.LoanID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save loan %s: %w", loan.LoanID, err)
	}
	return nil
}

// UpdateLoan rewrites the loan's mutable state.
func (r *PgxLoanRepository) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	query := `
		UPDATE loans SET
			daily_rate = $2,
			disbursed_at = $3,
			expected_end_date = $4,
			actual_end_date = $5,
			total_interest_accrued = $6,
			total_interest_paid = $7,
			total_amount_due = $8,
			total_amount_paid = $9,
			outstanding_balance = $10,
			status = $11,
			approved_by = $12,
			approved_at = $13,
			last_updated_at = $14,
			last_updated_by = $15
		WHERE loan_id = $1;
	`
	var approvedBy *string
	if loan.ApprovedBy != "" {
		approvedBy = &loan.ApprovedBy
	}
	tag, err := r.db(ctx).Exec(ctx, query,
		loan.LoanID,
		loan.DailyRate,
		loan.DisbursedAt,
		loan.ExpectedEndDate,
		loan.ActualEndDate,
		loan.TotalInterestAccrued,
		loan.TotalInterestPaid,
		loan.TotalAmountDue,
		loan.TotalAmountPaid,
		loan.OutstandingBalance,
		loan.Status,
		approvedBy,
		loan.ApprovedAt,
		loan.LastUpdatedAt,
		loan.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan %s: %w", loan.LoanID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("loan %s: %w", loan.LoanID, apperrors.ErrNotFound)
	}
	return nil
}

// FindLoanByID retrieves a loan by its ID.
func (r *PgxLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1;`
	loan, err := scanLoan(r.db(ctx).QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("loan %s: %w", loanID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find loan %s: %w", loanID, err)
	}
	return loan, nil
}

// FindLoanByIDForUpdate retrieves a loan and locks its row for the
// enclosing transaction.
func (r *PgxLoanRepository) FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1 FOR UPDATE;`
	loan, err := scanLoan(r.db(ctx).QueryRow(ctx, query, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("loan %s: %w", loanID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find loan %s for update: %w", loanID, err)
	}
	return loan, nil
}

// ListLoans retrieves loans filtered by optional status and member.
func (r *PgxLoanRepository) ListLoans(ctx context.Context, status domain.LoanStatus, memberID string, limit, offset int) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if memberID != "" {
		args = append(args, memberID)
		query += fmt.Sprintf(" AND member_id = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d;", len(args)-1, len(args))

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, *loan)
	}
	return loans, rows.Err()
}

// ListServiceableLoanIDs returns the IDs of loans eligible for accrual.
func (r *PgxLoanRepository) ListServiceableLoanIDs(ctx context.Context) ([]string, error) {
	query := `SELECT loan_id FROM loans WHERE status IN ($1, $2) ORDER BY created_at;`
	rows, err := r.db(ctx).Query(ctx, query, domain.LoanDisbursed, domain.LoanActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list serviceable loans: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan loan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActiveLoansForBorrower counts the borrower's non-terminal loans.
func (r *PgxLoanRepository) CountActiveLoansForBorrower(ctx context.Context, borrower domain.BorrowerRef) (int, error) {
	query := `
		SELECT COUNT(*) FROM loans
		WHERE borrower_kind = $1
		  AND (member_id = $2 OR external_borrower_id = $2)
		  AND status IN ($3, $4, $5, $6);
	`
	var count int
	err := r.db(ctx).QueryRow(ctx, query,
		borrower.Kind, borrower.ID(),
		domain.LoanPending, domain.LoanApproved, domain.LoanDisbursed, domain.LoanActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active loans: %w", err)
	}
	return count, nil
}

// LatestAccrualDate returns the date of the loan's most recent accrual, or
// nil when the loan has none.
func (r *PgxLoanRepository) LatestAccrualDate(ctx context.Context, loanID string) (*time.Time, error) {
	query := `SELECT MAX(accrual_date) FROM interest_accruals WHERE loan_id = $1;`
	var latest *time.Time
	err := r.db(ctx).QueryRow(ctx, query, loanID).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest accrual date for loan %s: %w", loanID, err)
	}
	return latest, nil
}

// SaveAccrual inserts one accrual record. The unique index on
// (loan_id, accrual_date) surfaces a concurrent duplicate as ErrDuplicate.
func (r *PgxLoanRepository) SaveAccrual(ctx context.Context, accrual domain.InterestAccrual) error {
	query := `
		INSERT INTO interest_accruals (accrual_id, loan_id, accrual_date, opening_balance, interest_amount, closing_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		accrual.AccrualID,
		accrual.LoanID,
		accrual.AccrualDate,
		accrual.OpeningBalance,
		accrual.InterestAmount,
		accrual.ClosingBalance,
		accrual.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("accrual for loan %s on %s already exists: %w",
				accrual.LoanID, accrual.AccrualDate.Format("2006-01-02"), apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save accrual for loan %s: %w", accrual.LoanID, err)
	}
	return nil
}

// ListAccrualsByLoan retrieves a loan's accrual records ordered by date.
func (r *PgxLoanRepository) ListAccrualsByLoan(ctx context.Context, loanID string) ([]domain.InterestAccrual, error) {
	query := `
		SELECT accrual_id, loan_id, accrual_date, opening_balance, interest_amount, closing_balance, created_at
		FROM interest_accruals
		WHERE loan_id = $1
		ORDER BY accrual_date;
	`
	rows, err := r.db(ctx).Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accruals for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	accruals := make([]domain.InterestAccrual, 0)
	for rows.Next() {
		var a domain.InterestAccrual
		if err := rows.Scan(&a.AccrualID, &a.LoanID, &a.AccrualDate, &a.OpeningBalance, &a.InterestAmount, &a.ClosingBalance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan accrual row: %w", err)
		}
		accruals = append(accruals, a)
	}
	return accruals, rows.Err()
}

// SaveRepayment inserts one repayment record.
func (r *PgxLoanRepository) SaveRepayment(ctx context.Context, repayment domain.Repayment) error {
	query := `
		INSERT INTO repayments (repayment_id, loan_id, sequence_number, paid_at, amount, principal_portion, interest_portion, balance_after, payment_method, reference_number, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		repayment.RepaymentID,
		repayment.LoanID,
		repayment.SequenceNumber,
		repayment.PaidAt,
		repayment.Amount,
		repayment.PrincipalPortion,
		repayment.InterestPortion,
		repayment.BalanceAfter,
		repayment.PaymentMethod,
		repayment.ReferenceNumber,
		repayment.CreatedAt,
		repayment.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("repayment %d for loan %s already exists: %w",
				repayment.SequenceNumber, repayment.LoanID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save repayment for loan %s: %w", repayment.LoanID, err)
	}
	return nil
}

// ListRepaymentsByLoan retrieves a loan's repayments ordered by sequence.
func (r *PgxLoanRepository) ListRepaymentsByLoan(ctx context.Context, loanID string) ([]domain.Repayment, error) {
	query := `
		SELECT repayment_id, loan_id, sequence_number, paid_at, amount, principal_portion, interest_portion, balance_after, payment_method, reference_number, created_at, created_by
		FROM repayments
		WHERE loan_id = $1
		ORDER BY sequence_number;
	`
	rows, err := r.db(ctx).Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repayments for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	repayments := make([]domain.Repayment, 0)
	for rows.Next() {
		var rep domain.Repayment
		if err := rows.Scan(&rep.RepaymentID, &rep.LoanID, &rep.SequenceNumber, &rep.PaidAt, &rep.Amount, &rep.PrincipalPortion, &rep.InterestPortion, &rep.BalanceAfter, &rep.PaymentMethod, &rep.ReferenceNumber, &rep.CreatedAt, &rep.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan repayment row: %w", err)
		}
		repayments = append(repayments, rep)
	}
	return repayments, rows.Err()
}

// NextRepaymentSequence returns the next per-loan sequence number. Callers
// hold the loan row lock, which serializes concurrent allocation.
func (r *PgxLoanRepository) NextRepaymentSequence(ctx context.Context, loanID string) (int, error) {
	query := `SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM repayments WHERE loan_id = $1;`
	var next int
	if err := r.db(ctx).QueryRow(ctx, query, loanID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to allocate repayment sequence for loan %s: %w", loanID, err)
	}
	return next, nil
}
