package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
)

const cycleColumns = `cycle_id, name, expected_amount, due_date, status, processed_at, created_at, created_by, last_updated_at, last_updated_by`

const contributionColumns = `contribution_id, cycle_id, member_id, expected_amount, paid_amount, status, loan_id, created_at, created_by, last_updated_at, last_updated_by`

// PgxContributionRepository persists contribution cycles and contributions
// in Postgres.
type PgxContributionRepository struct {
	baseRepository
}

// NewContributionRepository creates a new repository for contribution data.
func NewContributionRepository(pool *pgxpool.Pool) portsrepo.ContributionRepositoryWithTx {
	return &PgxContributionRepository{baseRepository{pool: pool}}
}

var _ portsrepo.ContributionRepositoryWithTx = (*PgxContributionRepository)(nil)

func scanCycle(row pgx.Row) (*domain.ContributionCycle, error) {
	var c domain.ContributionCycle
	err := row.Scan(
		&c.CycleID, &c.Name, &c.ExpectedAmount, &c.DueDate, &c.Status, &c.ProcessedAt,
		&c.CreatedAt, &c.CreatedBy, &c.LastUpdatedAt, &c.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanContribution(row pgx.Row) (*domain.Contribution, error) {
	var c domain.Contribution
	var loanID *string
	err := row.Scan(
		&c.ContributionID, &c.CycleID, &c.MemberID, &c.ExpectedAmount, &c.PaidAmount, &c.Status, &loanID,
		&c.CreatedAt, &c.CreatedBy, &c.LastUpdatedAt, &c.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if loanID != nil {
		c.LoanID = *loanID
	}
	return &c, nil
}

// SaveCycle inserts a new contribution cycle.
func (r *PgxContributionRepository) SaveCycle(ctx context.Context, cycle domain.ContributionCycle) error {
	query := `
		INSERT INTO contribution_cycles (` + cycleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		cycle.CycleID, cycle.Name, cycle.ExpectedAmount, cycle.DueDate, cycle.Status, cycle.ProcessedAt,
		cycle.CreatedAt, cycle.CreatedBy, cycle.LastUpdatedAt, cycle.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cycle %s already exists: %w", cycle.CycleID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save cycle %s: %w", cycle.CycleID, err)
	}
	return nil
}

// MarkCycleProcessed transitions a cycle to PROCESSED.
func (r *PgxContributionRepository) MarkCycleProcessed(ctx context.Context, cycleID string, processedAt time.Time, updatedBy string) error {
	query := `
		UPDATE contribution_cycles
		SET status = $2, processed_at = $3, last_updated_at = $3, last_updated_by = $4
		WHERE cycle_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query, cycleID, domain.CycleProcessed, processedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to mark cycle %s processed: %w", cycleID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cycle %s: %w", cycleID, apperrors.ErrNotFound)
	}
	return nil
}

// FindCycleByID retrieves a cycle by its ID.
func (r *PgxContributionRepository) FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM contribution_cycles WHERE cycle_id = $1;`
	cycle, err := scanCycle(r.db(ctx).QueryRow(ctx, query, cycleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cycle %s: %w", cycleID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find cycle %s: %w", cycleID, err)
	}
	return cycle, nil
}

// FindCycleByIDForUpdate retrieves a cycle and locks its row, serializing
// default conversion runs for the cycle.
func (r *PgxContributionRepository) FindCycleByIDForUpdate(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM contribution_cycles WHERE cycle_id = $1 FOR UPDATE;`
	cycle, err := scanCycle(r.db(ctx).QueryRow(ctx, query, cycleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cycle %s: %w", cycleID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find cycle %s for update: %w", cycleID, err)
	}
	return cycle, nil
}

// ListPastDueOpenCycles returns OPEN cycles whose due date has passed.
func (r *PgxContributionRepository) ListPastDueOpenCycles(ctx context.Context, now time.Time) ([]domain.ContributionCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM contribution_cycles WHERE status = $1 AND due_date < $2 ORDER BY due_date;`
	rows, err := r.db(ctx).Query(ctx, query, domain.CycleOpen, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list past-due cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]domain.ContributionCycle, 0)
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		cycles = append(cycles, *cycle)
	}
	return cycles, rows.Err()
}

// ListCycles retrieves cycles ordered by due date descending.
func (r *PgxContributionRepository) ListCycles(ctx context.Context, limit, offset int) ([]domain.ContributionCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM contribution_cycles ORDER BY due_date DESC LIMIT $1 OFFSET $2;`
	rows, err := r.db(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]domain.ContributionCycle, 0)
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}
		cycles = append(cycles, *cycle)
	}
	return cycles, rows.Err()
}

// SaveContribution inserts a new contribution.
func (r *PgxContributionRepository) SaveContribution(ctx context.Context, contribution domain.Contribution) error {
	query := `
		INSERT INTO contributions (` + contributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	var loanID *string
	if contribution.LoanID != "" {
		loanID = &contribution.LoanID
	}
	_, err := r.db(ctx).Exec(ctx, query,
		contribution.ContributionID, contribution.CycleID, contribution.MemberID,
		contribution.ExpectedAmount, contribution.PaidAmount, contribution.Status, loanID,
		contribution.CreatedAt, contribution.CreatedBy, contribution.LastUpdatedAt, contribution.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contribution for member %s in cycle %s already exists: %w",
				contribution.MemberID, contribution.CycleID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save contribution %s: %w", contribution.ContributionID, err)
	}
	return nil
}

// UpdateContribution rewrites the contribution's mutable state.
func (r *PgxContributionRepository) UpdateContribution(ctx context.Context, contribution domain.Contribution) error {
	query := `
		UPDATE contributions
		SET paid_amount = $2, status = $3, loan_id = $4, last_updated_at = $5, last_updated_by = $6
		WHERE contribution_id = $1;
	`
	var loanID *string
	if contribution.LoanID != "" {
		loanID = &contribution.LoanID
	}
	tag, err := r.db(ctx).Exec(ctx, query,
		contribution.ContributionID, contribution.PaidAmount, contribution.Status, loanID,
		contribution.LastUpdatedAt, contribution.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update contribution %s: %w", contribution.ContributionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contribution %s: %w", contribution.ContributionID, apperrors.ErrNotFound)
	}
	return nil
}

// FindContributionByIDForUpdate retrieves a contribution and locks its row,
// serializing default conversion against concurrent payments on the same
// contribution.
func (r *PgxContributionRepository) FindContributionByIDForUpdate(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE contribution_id = $1 FOR UPDATE;`
	contribution, err := scanContribution(r.db(ctx).QueryRow(ctx, query, contributionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("contribution %s: %w", contributionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find contribution %s: %w", contributionID, err)
	}
	return contribution, nil
}

// ListContributionsByCycle retrieves all contributions for a cycle.
func (r *PgxContributionRepository) ListContributionsByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE cycle_id = $1 ORDER BY created_at;`
	return r.listContributions(ctx, query, cycleID)
}

// ListUnpaidByCycle retrieves PENDING and PARTIAL contributions for a
// cycle, the working set for default conversion. Conversions lock each row
// individually via FindContributionByIDForUpdate, so this read takes no
// locks.
func (r *PgxContributionRepository) ListUnpaidByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + ` FROM contributions
		WHERE cycle_id = $1 AND status IN ('` + string(domain.ContributionPending) + `', '` + string(domain.ContributionPartial) + `')
		ORDER BY created_at;
	`
	return r.listContributions(ctx, query, cycleID)
}

func (r *PgxContributionRepository) listContributions(ctx context.Context, query string, args ...any) ([]domain.Contribution, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	contributions := make([]domain.Contribution, 0)
	for rows.Next() {
		contribution, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution row: %w", err)
		}
		contributions = append(contributions, *contribution)
	}
	return contributions, rows.Err()
}

// SumPaidContributionsByMember totals the amounts a member has paid in
// across all cycles, including amounts later converted to loans.
func (r *PgxContributionRepository) SumPaidContributionsByMember(ctx context.Context, memberID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(paid_amount), 0) FROM contributions WHERE member_id = $1;`
	var total decimal.Decimal
	if err := r.db(ctx).QueryRow(ctx, query, memberID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum contributions for member %s: %w", memberID, err)
	}
	return total, nil
}
