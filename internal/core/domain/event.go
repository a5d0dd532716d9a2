package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names a loan- or contribution-lifecycle notification.
type EventKind string

const (
	EventLoanApplied           EventKind = "loan.applied"
	EventLoanApproved          EventKind = "loan.approved"
	EventLoanRejected          EventKind = "loan.rejected"
	EventLoanDisbursed         EventKind = "loan.disbursed"
	EventLoanRepayment         EventKind = "loan.repayment"
	EventLoanPaidOff           EventKind = "loan.paid_off"
	EventLoanDefaulted         EventKind = "loan.defaulted"
	EventLoanWrittenOff        EventKind = "loan.written_off"
	EventContributionConverted EventKind = "contribution.converted"
	EventCycleProcessed        EventKind = "cycle.processed"
	EventGuarantorDefaulted    EventKind = "guarantor.defaulted"
)

// Event is a fire-and-forget lifecycle notification. Delivery failures are
// logged by the publisher and never surfaced as operation failures.
type Event struct {
	Kind       EventKind       `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	LoanID     string          `json:"loanID,omitempty"`
	CycleID    string          `json:"cycleID,omitempty"`
	BorrowerID string          `json:"borrowerID,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status,omitempty"`
}
