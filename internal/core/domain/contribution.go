package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionStatus tracks how much of a member's per-cycle obligation has
// been met. CONVERTED_TO_LOAN is terminal: the shortfall became a loan.
type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "PENDING"
	ContributionPartial   ContributionStatus = "PARTIAL"
	ContributionPaid      ContributionStatus = "PAID"
	ContributionConverted ContributionStatus = "CONVERTED_TO_LOAN"
)

// Contribution is one member's obligation for one contribution cycle.
type Contribution struct {
	ContributionID string             `json:"contributionID"` // Primary Key (UUID)
	CycleID        string             `json:"cycleID"`        // FK -> ContributionCycle.cycleID
	MemberID       string             `json:"memberID"`       // FK -> Member.memberID
	ExpectedAmount decimal.Decimal    `json:"expectedAmount"`
	PaidAmount     decimal.Decimal    `json:"paidAmount"`
	Status         ContributionStatus `json:"status"`
	LoanID         string             `json:"loanID,omitempty"` // Set once converted to a loan
	AuditFields
}

// Shortfall is the unpaid remainder of the expected amount, floored at zero.
func (c Contribution) Shortfall() decimal.Decimal {
	s := c.ExpectedAmount.Sub(c.PaidAmount)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// IsConvertible reports whether the contribution is still eligible for
// default conversion. The terminal CONVERTED_TO_LOAN status is the guard
// that makes conversion a one-shot operation.
func (c Contribution) IsConvertible() bool {
	return (c.Status == ContributionPending || c.Status == ContributionPartial) &&
		c.Shortfall().IsPositive()
}

// CycleStatus tracks a contribution cycle's lifecycle.
type CycleStatus string

const (
	CycleOpen      CycleStatus = "OPEN"
	CycleProcessed CycleStatus = "PROCESSED"
)

// ContributionCycle is the recurring (typically monthly) window in which
// each active member owes a fixed contribution amount.
type ContributionCycle struct {
	CycleID        string          `json:"cycleID"` // Primary Key (UUID)
	Name           string          `json:"name"`    // e.g. "2026-08"
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	DueDate        time.Time       `json:"dueDate"`
	Status         CycleStatus     `json:"status"`
	ProcessedAt    *time.Time      `json:"processedAt,omitempty"`
	AuditFields
}

// IsPastDue reports whether the cycle's due date has passed as of now.
func (c ContributionCycle) IsPastDue(now time.Time) bool {
	return now.After(c.DueDate)
}
