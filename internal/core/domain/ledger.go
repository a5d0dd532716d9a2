package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType indicates whether a ledger entry is a Debit or a Credit from
// the group's point of view.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// LedgerEntry is one immutable journal line. The engine posts exactly one
// entry per loan disbursement (DEBIT) and one per repayment (CREDIT); the
// entries feed reporting and reconciliation downstream.
type LedgerEntry struct {
	EntryID         string          `json:"entryID"` // Primary Key (UUID)
	EntryType       EntryType       `json:"entryType"`
	Amount          decimal.Decimal `json:"amount"` // Positive value
	LoanID          string          `json:"loanID,omitempty"`
	MemberID        string          `json:"memberID,omitempty"`
	ReferenceNumber string          `json:"referenceNumber"`
	Description     string          `json:"description"`
	EntryDate       time.Time       `json:"entryDate"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
}
