package repositories

import (
	"context"
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MemberReader defines read operations for member data.
type MemberReader interface {
	// FindMemberByID retrieves a member by their unique identifier.
	FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// FindMemberByIDForUpdate retrieves a member and locks the row for the
	// enclosing transaction. Guarantee creation serializes per member on
	// this lock so exposure checks stay consistent.
	FindMemberByIDForUpdate(ctx context.Context, memberID string) (*domain.Member, error)

	// FindMemberByEmail retrieves a member by email, used for login.
	FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error)

	// ListMembers retrieves members ordered by name.
	ListMembers(ctx context.Context, limit, offset int) ([]domain.Member, error)
}

// MemberWriter defines write operations for member data.
type MemberWriter interface {
	// SaveMember persists a new member.
	SaveMember(ctx context.Context, member domain.Member) error

	// UpdateMember persists mutated member state.
	UpdateMember(ctx context.Context, member domain.Member) error

	// AdjustMemberTotals applies deltas to a member's running totals
	// (contributions paid, lifetime loans taken, loan outstanding).
	AdjustMemberTotals(ctx context.Context, memberID string, contributionsDelta, loansTakenDelta, outstandingDelta decimal.Decimal, updatedBy string, now time.Time) error
}

// MemberRepositoryFacade combines member repository interfaces.
type MemberRepositoryFacade interface {
	MemberReader
	MemberWriter
}

// ExternalBorrowerReader defines read operations for external borrowers.
type ExternalBorrowerReader interface {
	// FindExternalBorrowerByID retrieves an external borrower.
	FindExternalBorrowerByID(ctx context.Context, externalID string) (*domain.ExternalBorrower, error)

	// ListExternalBorrowers retrieves external borrowers ordered by name.
	ListExternalBorrowers(ctx context.Context, limit, offset int) ([]domain.ExternalBorrower, error)
}

// ExternalBorrowerWriter defines write operations for external borrowers.
type ExternalBorrowerWriter interface {
	// SaveExternalBorrower persists a new external borrower.
	SaveExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error

	// UpdateExternalBorrower persists mutated borrower state.
	UpdateExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error
}

// ExternalBorrowerRepositoryFacade combines external borrower interfaces.
type ExternalBorrowerRepositoryFacade interface {
	ExternalBorrowerReader
	ExternalBorrowerWriter
}
