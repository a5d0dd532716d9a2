package dto

import (
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GuarantorInput attaches one member guarantor to a guaranteed loan. When
// neither an absolute amount nor a percentage is given, the guarantee
// defaults to 100% of the outstanding balance.
type GuarantorInput struct {
	MemberID         string           `json:"memberID" binding:"required"`
	GuaranteedAmount *decimal.Decimal `json:"guaranteedAmount"`
	Percentage       *decimal.Decimal `json:"percentage"`
}

// CreateGuaranteedLoanRequest creates a loan for an external borrower
// secured by at least one member guarantor.
type CreateGuaranteedLoanRequest struct {
	ExternalBorrowerID string           `json:"externalBorrowerID" binding:"required"`
	Principal          decimal.Decimal  `json:"principal" binding:"required"`
	MonthlyRate        decimal.Decimal  `json:"monthlyRate" binding:"required"`
	TermMonths         int              `json:"termMonths" binding:"omitempty,gt=0"`
	Purpose            string           `json:"purpose"`
	Guarantors         []GuarantorInput `json:"guarantors" binding:"required,min=1,dive"`
}

// GuarantorResponse is the API representation of a loan guarantor.
type GuarantorResponse struct {
	GuarantorID        string                 `json:"guarantorID"`
	LoanID             string                 `json:"loanID"`
	MemberID           string                 `json:"memberID"`
	GuaranteedAmount   *decimal.Decimal       `json:"guaranteedAmount,omitempty"`
	Percentage         decimal.Decimal        `json:"percentage"`
	Status             domain.GuarantorStatus `json:"status"`
	AmountPaidOnBehalf decimal.Decimal        `json:"amountPaidOnBehalf"`
}

// ExposureResponse reports a member's current guarantee exposure and the
// remaining headroom under the policy ceiling.
type ExposureResponse struct {
	MemberID        string          `json:"memberID"`
	CurrentExposure decimal.Decimal `json:"currentExposure"`
	ExposureCeiling decimal.Decimal `json:"exposureCeiling"`
	Headroom        decimal.Decimal `json:"headroom"`
}
