package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestAccrual records one day's posted interest for a loan. At most one
// record exists per (loan, date); records are immutable once created, and
// the per-loan sequence ordered by date forms a continuous balance chain
// (each record's opening balance equals the prior record's closing balance).
type InterestAccrual struct {
	AccrualID      string          `json:"accrualID"` // Primary Key (UUID)
	LoanID         string          `json:"loanID"`    // FK -> Loan.loanID
	AccrualDate    time.Time       `json:"accrualDate"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	InterestAmount decimal.Decimal `json:"interestAmount"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
}
