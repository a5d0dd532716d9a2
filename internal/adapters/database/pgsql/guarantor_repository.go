package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
)

const guarantorColumns = `guarantor_id, loan_id, member_id, guaranteed_amount, percentage, status, amount_paid_on_behalf, created_at, created_by, last_updated_at, last_updated_by`

// PgxGuarantorRepository persists loan guarantor records in Postgres.
type PgxGuarantorRepository struct {
	baseRepository
}

// NewGuarantorRepository creates a new repository for guarantor data.
func NewGuarantorRepository(pool *pgxpool.Pool) portsrepo.GuarantorRepositoryFacade {
	return &PgxGuarantorRepository{baseRepository{pool: pool}}
}

var _ portsrepo.GuarantorRepositoryFacade = (*PgxGuarantorRepository)(nil)

func scanGuarantor(row pgx.Row) (*domain.LoanGuarantor, error) {
	var g domain.LoanGuarantor
	err := row.Scan(
		&g.GuarantorID, &g.LoanID, &g.MemberID, &g.GuaranteedAmount, &g.Percentage, &g.Status,
		&g.AmountPaidOnBehalf, &g.CreatedAt, &g.CreatedBy, &g.LastUpdatedAt, &g.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveGuarantor inserts a new guarantor record.
func (r *PgxGuarantorRepository) SaveGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error {
	query := `
		INSERT INTO loan_guarantors (` + guarantorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		guarantor.GuarantorID, guarantor.LoanID, guarantor.MemberID,
		guarantor.GuaranteedAmount, guarantor.Percentage, guarantor.Status, guarantor.AmountPaidOnBehalf,
		guarantor.CreatedAt, guarantor.CreatedBy, guarantor.LastUpdatedAt, guarantor.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("guarantor %s already attached to loan %s: %w",
				guarantor.MemberID, guarantor.LoanID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save guarantor %s: %w", guarantor.GuarantorID, err)
	}
	return nil
}

// UpdateGuarantor rewrites the guarantor's mutable state.
func (r *PgxGuarantorRepository) UpdateGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error {
	query := `
		UPDATE loan_guarantors
		SET status = $2, amount_paid_on_behalf = $3, last_updated_at = $4, last_updated_by = $5
		WHERE guarantor_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		guarantor.GuarantorID, guarantor.Status, guarantor.AmountPaidOnBehalf,
		guarantor.LastUpdatedAt, guarantor.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update guarantor %s: %w", guarantor.GuarantorID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("guarantor %s: %w", guarantor.GuarantorID, apperrors.ErrNotFound)
	}
	return nil
}

// FindGuarantorByID retrieves a guarantor record by its ID.
func (r *PgxGuarantorRepository) FindGuarantorByID(ctx context.Context, guarantorID string) (*domain.LoanGuarantor, error) {
	query := `SELECT ` + guarantorColumns + ` FROM loan_guarantors WHERE guarantor_id = $1;`
	guarantor, err := scanGuarantor(r.db(ctx).QueryRow(ctx, query, guarantorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("guarantor %s: %w", guarantorID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find guarantor %s: %w", guarantorID, err)
	}
	return guarantor, nil
}

// ListGuarantorsByLoan retrieves all guarantors attached to a loan.
func (r *PgxGuarantorRepository) ListGuarantorsByLoan(ctx context.Context, loanID string) ([]domain.LoanGuarantor, error) {
	query := `SELECT ` + guarantorColumns + ` FROM loan_guarantors WHERE loan_id = $1 ORDER BY created_at;`
	rows, err := r.db(ctx).Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guarantors for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	guarantors := make([]domain.LoanGuarantor, 0)
	for rows.Next() {
		guarantor, err := scanGuarantor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guarantor row: %w", err)
		}
		guarantors = append(guarantors, *guarantor)
	}
	return guarantors, rows.Err()
}

// ListGuaranteesByMember retrieves a member's guarantees joined with the
// status and outstanding balance of the loans they secure.
func (r *PgxGuarantorRepository) ListGuaranteesByMember(ctx context.Context, memberID string) ([]domain.MemberGuarantee, error) {
	query := `
		SELECT g.guarantor_id, g.loan_id, g.member_id, g.guaranteed_amount, g.percentage, g.status,
		       g.amount_paid_on_behalf, g.created_at, g.created_by, g.last_updated_at, g.last_updated_by,
		       l.status, l.outstanding_balance
		FROM loan_guarantors g
		JOIN loans l ON l.loan_id = g.loan_id
		WHERE g.member_id = $1
		ORDER BY g.created_at;
	`
	rows, err := r.db(ctx).Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guarantees for member %s: %w", memberID, err)
	}
	defer rows.Close()

	guarantees := make([]domain.MemberGuarantee, 0)
	for rows.Next() {
		var m domain.MemberGuarantee
		g := &m.Guarantor
		err := rows.Scan(
			&g.GuarantorID, &g.LoanID, &g.MemberID, &g.GuaranteedAmount, &g.Percentage, &g.Status,
			&g.AmountPaidOnBehalf, &g.CreatedAt, &g.CreatedBy, &g.LastUpdatedAt, &g.LastUpdatedBy,
			&m.LoanStatus, &m.LoanOutstanding,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guarantee row: %w", err)
		}
		guarantees = append(guarantees, m)
	}
	return guarantees, rows.Err()
}
