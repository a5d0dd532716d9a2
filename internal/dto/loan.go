package dto

import (
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ApplyLoanRequest is the payload for a member loan application.
type ApplyLoanRequest struct {
	MemberID    string          `json:"memberID" binding:"required"`
	LoanType    domain.LoanType `json:"loanType" binding:"omitempty,oneof=REGULAR EMERGENCY"`
	Principal   decimal.Decimal `json:"principal" binding:"required"`
	MonthlyRate decimal.Decimal `json:"monthlyRate" binding:"required"`
	TermMonths  int             `json:"termMonths" binding:"omitempty,gt=0"`
	Purpose     string          `json:"purpose"`
}

// RepayLoanRequest is the payload for posting a repayment against a loan.
type RepayLoanRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"required,oneof=MPESA BANK CASH"`
	PaidAt        *time.Time      `json:"paidAt"` // Defaults to now
}

// AccrueInterestRequest triggers the daily accrual job for a given date.
type AccrueInterestRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
}

// LoanResponse is the API representation of a loan.
type LoanResponse struct {
	LoanID               string              `json:"loanID"`
	Borrower             domain.BorrowerRef  `json:"borrower"`
	LoanType             domain.LoanType     `json:"loanType"`
	Principal            decimal.Decimal     `json:"principal"`
	MonthlyRate          decimal.Decimal     `json:"monthlyRate"`
	DailyRate            decimal.Decimal     `json:"dailyRate"`
	DisbursedAt          *time.Time          `json:"disbursedAt,omitempty"`
	ExpectedEndDate      *time.Time          `json:"expectedEndDate,omitempty"`
	ActualEndDate        *time.Time          `json:"actualEndDate,omitempty"`
	TotalInterestAccrued decimal.Decimal     `json:"totalInterestAccrued"`
	TotalAmountDue       decimal.Decimal     `json:"totalAmountDue"`
	TotalAmountPaid      decimal.Decimal     `json:"totalAmountPaid"`
	OutstandingBalance   decimal.Decimal     `json:"outstandingBalance"`
	Status               domain.LoanStatus   `json:"status"`
	Purpose              string              `json:"purpose,omitempty"`
	Repayments           []RepaymentResponse `json:"repayments,omitempty"`
	Accruals             []AccrualResponse   `json:"accruals,omitempty"`
	Guarantors           []GuarantorResponse `json:"guarantors,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// RepaymentResponse is the API representation of a repayment record.
type RepaymentResponse struct {
	RepaymentID      string          `json:"repaymentID"`
	LoanID           string          `json:"loanID"`
	SequenceNumber   int             `json:"sequenceNumber"`
	PaidAt           time.Time       `json:"paidAt"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalPortion decimal.Decimal `json:"principalPortion"`
	InterestPortion  decimal.Decimal `json:"interestPortion"`
	BalanceAfter     decimal.Decimal `json:"balanceAfter"`
	PaymentMethod    string          `json:"paymentMethod"`
	ReferenceNumber  string          `json:"referenceNumber"`
}

// AccrualResponse is the API representation of an interest accrual record.
type AccrualResponse struct {
	AccrualID      string          `json:"accrualID"`
	LoanID         string          `json:"loanID"`
	AccrualDate    time.Time       `json:"accrualDate"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	InterestAmount decimal.Decimal `json:"interestAmount"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
}

// AccrualBatchResult reports the outcome of one daily accrual run. Failures
// are per-loan and do not abort the rest of the batch.
type AccrualBatchResult struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"` // Already accrued for the date
	Failed    int    `json:"failed"`
}

// ListLoansParams filters loan listings.
type ListLoansParams struct {
	Status   string `form:"status"`
	MemberID string `form:"memberID"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}
