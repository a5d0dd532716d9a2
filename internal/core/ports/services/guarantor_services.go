package services

import (
	"context"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/shopspring/decimal"
)

// GuarantorSvcFacade exposes guaranteed-loan creation, guarantor exposure
// management and liability transfer on borrower default.
type GuarantorSvcFacade interface {
	// CreateGuaranteedLoan creates a PENDING loan for an active external
	// borrower secured by at least one member guarantor, validating each
	// guarantor's exposure ceiling.
	CreateGuaranteedLoan(ctx context.Context, req dto.CreateGuaranteedLoanRequest, actorID string) (*domain.Loan, error)

	// AddGuarantor attaches a further guarantor to a live guaranteed loan,
	// subject to the same exposure validation.
	AddGuarantor(ctx context.Context, loanID string, req dto.GuarantorInput, actorID string) (*domain.LoanGuarantor, error)

	// GuarantorExposure returns the member's current exposure across
	// active guarantees and the policy ceiling.
	GuarantorExposure(ctx context.Context, memberID string) (current, ceiling decimal.Decimal, err error)

	// TransferLiability handles borrower default: allocates the loan's
	// outstanding balance across active guarantors (highest percentage
	// first), records the liability on each and marks loan and guarantors
	// DEFAULTED.
	TransferLiability(ctx context.Context, loanID string, actorID string) ([]domain.LoanGuarantor, error)
}
