package repositories

import (
	"context"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// GuarantorReader defines read operations for loan guarantors.
type GuarantorReader interface {
	// FindGuarantorByID retrieves a guarantor record by its identifier.
	FindGuarantorByID(ctx context.Context, guarantorID string) (*domain.LoanGuarantor, error)

	// ListGuarantorsByLoan retrieves all guarantors attached to a loan.
	ListGuarantorsByLoan(ctx context.Context, loanID string) ([]domain.LoanGuarantor, error)

	// ListGuaranteesByMember retrieves a member's guarantees joined with
	// the status and outstanding balance of the guaranteed loans, for
	// exposure computation. Callers needing consistency with concurrent
	// guarantee creation must hold the member lock first.
	ListGuaranteesByMember(ctx context.Context, memberID string) ([]domain.MemberGuarantee, error)
}

// GuarantorWriter defines write operations for loan guarantors.
type GuarantorWriter interface {
	// SaveGuarantor persists a new guarantor record.
	SaveGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error

	// UpdateGuarantor persists mutated guarantor state (status, liability).
	UpdateGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error
}

// GuarantorRepositoryFacade combines all guarantor repository interfaces.
type GuarantorRepositoryFacade interface {
	GuarantorReader
	GuarantorWriter
}
