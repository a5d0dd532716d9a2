package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repayment records one payment event against a loan. The amount always
// equals the sum of the principal and interest portions, and the balance
// after is the pre-payment outstanding balance less the amount, floored at
// zero. Repayments are immutable; the sequence number is monotonic per loan
// starting at 1.
type Repayment struct {
	RepaymentID      string          `json:"repaymentID"` // Primary Key (UUID)
	LoanID           string          `json:"loanID"`      // FK -> Loan.loanID
	SequenceNumber   int             `json:"sequenceNumber"`
	PaidAt           time.Time       `json:"paidAt"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalPortion decimal.Decimal `json:"principalPortion"`
	InterestPortion  decimal.Decimal `json:"interestPortion"`
	BalanceAfter     decimal.Decimal `json:"balanceAfter"`
	PaymentMethod    string          `json:"paymentMethod"` // e.g. MPESA, BANK, CASH
	ReferenceNumber  string          `json:"referenceNumber"`
	CreatedAt        time.Time       `json:"createdAt"`
	CreatedBy        string          `json:"createdBy"`
}
