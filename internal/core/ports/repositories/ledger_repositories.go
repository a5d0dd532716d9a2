package repositories

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// LedgerWriter defines write operations for the transaction journal. The
// engine produces entry content; storage and reporting mechanics live
// behind this port.
type LedgerWriter interface {
	// SaveEntry persists one immutable ledger entry.
	SaveEntry(ctx context.Context, entry domain.LedgerEntry) error
}

// LedgerReader defines read operations for the transaction journal.
type LedgerReader interface {
	// ListEntriesByLoan retrieves a loan's ledger entries ordered by date.
	ListEntriesByLoan(ctx context.Context, loanID string) ([]domain.LedgerEntry, error)
}

// LedgerRepositoryFacade combines ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}

// SequenceRepository issues human-readable reference numbers from a
// per-entity-type, database-backed sequence. Replaces a process-global
// counter so references stay unique across instances.
type SequenceRepository interface {
	// NextReference returns the next reference for the entity kind,
	// formatted as <PREFIX>-<YYYYMMDD>-<counter>.
	NextReference(ctx context.Context, kind string, date time.Time) (string, error)
}
