package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
)

// NewRepositoryProvider wires every Postgres repository onto one pool.
func NewRepositoryProvider(pool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		LoanRepo:         NewLoanRepository(pool),
		ContributionRepo: NewContributionRepository(pool),
		GuarantorRepo:    NewGuarantorRepository(pool),
		MemberRepo:       NewMemberRepository(pool),
		ExternalRepo:     NewExternalBorrowerRepository(pool),
		LedgerRepo:       NewLedgerRepository(pool),
		SequenceRepo:     NewSequenceRepository(pool),
	}
}
