package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
)

const ledgerColumns = `entry_id, entry_type, amount, loan_id, member_id, reference_number, description, entry_date, created_at, created_by`

// PgxLedgerRepository persists immutable ledger entries in Postgres.
type PgxLedgerRepository struct {
	baseRepository
}

// NewLedgerRepository creates a new repository for ledger entries.
func NewLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{baseRepository{pool: pool}}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var loanID, memberID *string
	err := row.Scan(
		&e.EntryID, &e.EntryType, &e.Amount, &loanID, &memberID,
		&e.ReferenceNumber, &e.Description, &e.EntryDate, &e.CreatedAt, &e.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	if loanID != nil {
		e.LoanID = *loanID
	}
	if memberID != nil {
		e.MemberID = *memberID
	}
	return &e, nil
}

// SaveEntry inserts one ledger entry. Entries are never updated.
func (r *PgxLedgerRepository) SaveEntry(ctx context.Context, entry domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	var loanID, memberID *string
	if entry.LoanID != "" {
		loanID = &entry.LoanID
	}
	if entry.MemberID != "" {
		memberID = &entry.MemberID
	}
	_, err := r.db(ctx).Exec(ctx, query,
		entry.EntryID, entry.EntryType, entry.Amount, loanID, memberID,
		entry.ReferenceNumber, entry.Description, entry.EntryDate, entry.CreatedAt, entry.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry %s: %w", entry.EntryID, err)
	}
	return nil
}

// ListEntriesByLoan retrieves a loan's ledger entries ordered by date.
func (r *PgxLedgerRepository) ListEntriesByLoan(ctx context.Context, loanID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE loan_id = $1 ORDER BY entry_date, created_at;`
	rows, err := r.db(ctx).Query(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries for loan %s: %w", loanID, err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry row: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// PgxSequenceRepository issues reference numbers from a per-kind, per-day
// counter table.
type PgxSequenceRepository struct {
	baseRepository
}

// NewSequenceRepository creates a new database-backed sequence repository.
func NewSequenceRepository(pool *pgxpool.Pool) portsrepo.SequenceRepository {
	return &PgxSequenceRepository{baseRepository{pool: pool}}
}

var _ portsrepo.SequenceRepository = (*PgxSequenceRepository)(nil)

// NextReference increments the counter for the kind and day atomically and
// returns the formatted reference. The upsert makes the counter safe under
// concurrent callers across instances.
func (r *PgxSequenceRepository) NextReference(ctx context.Context, kind string, date time.Time) (string, error) {
	query := `
		INSERT INTO reference_sequences (kind, seq_date, counter)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, seq_date)
		DO UPDATE SET counter = reference_sequences.counter + 1
		RETURNING counter;
	`
	day := date.UTC().Truncate(24 * time.Hour)
	var counter int64
	if err := r.db(ctx).QueryRow(ctx, query, kind, day).Scan(&counter); err != nil {
		return "", fmt.Errorf("failed to advance %s sequence: %w", kind, err)
	}
	return fmt.Sprintf("%s-%s-%06d", kind, day.Format("20060102"), counter), nil
}
