package domain

import (
	"github.com/shopspring/decimal"
)

// GuarantorStatus tracks a guarantor's standing on a guaranteed loan.
// A guarantor is liable only while ACTIVE.
type GuarantorStatus string

const (
	GuarantorPending   GuarantorStatus = "PENDING"
	GuarantorActive    GuarantorStatus = "ACTIVE"
	GuarantorReleased  GuarantorStatus = "RELEASED"
	GuarantorDefaulted GuarantorStatus = "DEFAULTED"
	GuarantorDeclined  GuarantorStatus = "DECLINED"
)

// LoanGuarantor links a member to a guaranteed loan. The guarantee is
// expressed either as an absolute amount or as a percentage of the loan's
// outstanding balance (default 100%); the absolute amount wins when set.
type LoanGuarantor struct {
	GuarantorID        string           `json:"guarantorID"` // Primary Key (UUID)
	LoanID             string           `json:"loanID"`      // FK -> Loan.loanID
	MemberID           string           `json:"memberID"`    // FK -> Member.memberID
	GuaranteedAmount   *decimal.Decimal `json:"guaranteedAmount,omitempty"`
	Percentage         decimal.Decimal  `json:"percentage"` // Of outstanding balance, defaults to 100
	Status             GuarantorStatus  `json:"status"`
	AmountPaidOnBehalf decimal.Decimal  `json:"amountPaidOnBehalf"` // Liability recorded on borrower default
	AuditFields
}

// EffectiveAmount is the amount this guarantor currently stands behind:
// the absolute guaranteed amount when set, otherwise the given outstanding
// balance scaled by the guarantee percentage, rounded to 2 decimal places.
func (g LoanGuarantor) EffectiveAmount(outstanding decimal.Decimal) decimal.Decimal {
	if g.GuaranteedAmount != nil {
		return *g.GuaranteedAmount
	}
	return outstanding.Mul(g.Percentage).Div(decimal.NewFromInt(100)).Round(2)
}

// IsLiable reports whether the guarantor currently carries exposure.
func (g LoanGuarantor) IsLiable() bool {
	return g.Status == GuarantorActive
}

// MemberGuarantee pairs a guarantor record with the state of the loan it
// secures, as needed for exposure queries across a member's guarantees.
type MemberGuarantee struct {
	Guarantor       LoanGuarantor
	LoanStatus      LoanStatus
	LoanOutstanding decimal.Decimal
}

// Exposure is the liability this guarantee currently contributes: zero
// unless the guarantor is ACTIVE and the loan is still live.
func (m MemberGuarantee) Exposure() decimal.Decimal {
	if !m.Guarantor.IsLiable() {
		return decimal.Zero
	}
	switch m.LoanStatus {
	case LoanPending, LoanApproved, LoanDisbursed, LoanActive:
		return m.Guarantor.EffectiveAmount(m.LoanOutstanding)
	}
	return decimal.Zero
}
