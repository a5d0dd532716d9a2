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

const memberColumns = `member_id, name, email, phone, password_hash, status, total_contributions, total_loans_taken, loan_outstanding, created_at, created_by, last_updated_at, last_updated_by`

const externalBorrowerColumns = `external_borrower_id, name, phone, id_number, status, created_at, created_by, last_updated_at, last_updated_by`

// PgxMemberRepository persists members in Postgres.
type PgxMemberRepository struct {
	baseRepository
}

// NewMemberRepository creates a new repository for member data.
func NewMemberRepository(pool *pgxpool.Pool) portsrepo.MemberRepositoryFacade {
	return &PgxMemberRepository{baseRepository{pool: pool}}
}

var _ portsrepo.MemberRepositoryFacade = (*PgxMemberRepository)(nil)

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.MemberID, &m.Name, &m.Email, &m.Phone, &m.PasswordHash, &m.Status,
		&m.TotalContributions, &m.TotalLoansTaken, &m.LoanOutstanding,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveMember inserts a new member.
func (r *PgxMemberRepository) SaveMember(ctx context.Context, member domain.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		member.MemberID, member.Name, member.Email, member.Phone, member.PasswordHash, member.Status,
		member.TotalContributions, member.TotalLoansTaken, member.LoanOutstanding,
		member.CreatedAt, member.CreatedBy, member.LastUpdatedAt, member.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member with email %s already exists: %w", member.Email, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save member %s: %w", member.MemberID, err)
	}
	return nil
}

// UpdateMember rewrites the member's mutable state. Running totals are
// adjusted through AdjustMemberTotals, not here.
func (r *PgxMemberRepository) UpdateMember(ctx context.Context, member domain.Member) error {
	query := `
		UPDATE members
		SET name = $2, email = $3, phone = $4, password_hash = $5, status = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE member_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		member.MemberID, member.Name, member.Email, member.Phone, member.PasswordHash, member.Status,
		member.LastUpdatedAt, member.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member with email %s already exists: %w", member.Email, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to update member %s: %w", member.MemberID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", member.MemberID, apperrors.ErrNotFound)
	}
	return nil
}

// AdjustMemberTotals applies deltas to the member's running totals in a
// single statement so concurrent adjustments cannot lose updates.
func (r *PgxMemberRepository) AdjustMemberTotals(ctx context.Context, memberID string, contributionsDelta, loansTakenDelta, outstandingDelta decimal.Decimal, updatedBy string, now time.Time) error {
	query := `
		UPDATE members
		SET total_contributions = total_contributions + $2,
		    total_loans_taken = total_loans_taken + $3,
		    loan_outstanding = loan_outstanding + $4,
		    last_updated_at = $5, last_updated_by = $6
		WHERE member_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query, memberID, contributionsDelta, loansTakenDelta, outstandingDelta, now, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to adjust totals for member %s: %w", memberID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s: %w", memberID, apperrors.ErrNotFound)
	}
	return nil
}

// FindMemberByID retrieves a member by their ID.
func (r *PgxMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = $1;`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", memberID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	return member, nil
}

// FindMemberByIDForUpdate retrieves a member and locks the row. Guarantee
// creation serializes per member on this lock.
func (r *PgxMemberRepository) FindMemberByIDForUpdate(ctx context.Context, memberID string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = $1 FOR UPDATE;`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", memberID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find member %s for update: %w", memberID, err)
	}
	return member, nil
}

// FindMemberByEmail retrieves a member by email.
func (r *PgxMemberRepository) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1;`
	member, err := scanMember(r.db(ctx).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("member with email %s: %w", email, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find member by email: %w", err)
	}
	return member, nil
}

// ListMembers retrieves members ordered by name.
func (r *PgxMemberRepository) ListMembers(ctx context.Context, limit, offset int) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY name LIMIT $1 OFFSET $2;`
	rows, err := r.db(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, *member)
	}
	return members, rows.Err()
}

// PgxExternalBorrowerRepository persists external borrowers in Postgres.
type PgxExternalBorrowerRepository struct {
	baseRepository
}

// NewExternalBorrowerRepository creates a new repository for external
// borrower data.
func NewExternalBorrowerRepository(pool *pgxpool.Pool) portsrepo.ExternalBorrowerRepositoryFacade {
	return &PgxExternalBorrowerRepository{baseRepository{pool: pool}}
}

var _ portsrepo.ExternalBorrowerRepositoryFacade = (*PgxExternalBorrowerRepository)(nil)

func scanExternalBorrower(row pgx.Row) (*domain.ExternalBorrower, error) {
	var b domain.ExternalBorrower
	err := row.Scan(
		&b.ExternalBorrowerID, &b.Name, &b.Phone, &b.IDNumber, &b.Status,
		&b.CreatedAt, &b.CreatedBy, &b.LastUpdatedAt, &b.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SaveExternalBorrower inserts a new external borrower.
func (r *PgxExternalBorrowerRepository) SaveExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error {
	query := `
		INSERT INTO external_borrowers (` + externalBorrowerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		borrower.ExternalBorrowerID, borrower.Name, borrower.Phone, borrower.IDNumber, borrower.Status,
		borrower.CreatedAt, borrower.CreatedBy, borrower.LastUpdatedAt, borrower.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("external borrower with ID number %s already exists: %w", borrower.IDNumber, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save external borrower %s: %w", borrower.ExternalBorrowerID, err)
	}
	return nil
}

// UpdateExternalBorrower rewrites the borrower's mutable state.
func (r *PgxExternalBorrowerRepository) UpdateExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error {
	query := `
		UPDATE external_borrowers
		SET name = $2, phone = $3, id_number = $4, status = $5, last_updated_at = $6, last_updated_by = $7
		WHERE external_borrower_id = $1;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		borrower.ExternalBorrowerID, borrower.Name, borrower.Phone, borrower.IDNumber, borrower.Status,
		borrower.LastUpdatedAt, borrower.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update external borrower %s: %w", borrower.ExternalBorrowerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("external borrower %s: %w", borrower.ExternalBorrowerID, apperrors.ErrNotFound)
	}
	return nil
}

// FindExternalBorrowerByID retrieves an external borrower by their ID.
func (r *PgxExternalBorrowerRepository) FindExternalBorrowerByID(ctx context.Context, externalID string) (*domain.ExternalBorrower, error) {
	query := `SELECT ` + externalBorrowerColumns + ` FROM external_borrowers WHERE external_borrower_id = $1;`
	borrower, err := scanExternalBorrower(r.db(ctx).QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("external borrower %s: %w", externalID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find external borrower %s: %w", externalID, err)
	}
	return borrower, nil
}

// ListExternalBorrowers retrieves external borrowers ordered by name.
func (r *PgxExternalBorrowerRepository) ListExternalBorrowers(ctx context.Context, limit, offset int) ([]domain.ExternalBorrower, error) {
	query := `SELECT ` + externalBorrowerColumns + ` FROM external_borrowers ORDER BY name LIMIT $1 OFFSET $2;`
	rows, err := r.db(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list external borrowers: %w", err)
	}
	defer rows.Close()

	borrowers := make([]domain.ExternalBorrower, 0)
	for rows.Next() {
		borrower, err := scanExternalBorrower(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan external borrower row: %w", err)
		}
		borrowers = append(borrowers, *borrower)
	}
	return borrowers, rows.Err()
}
