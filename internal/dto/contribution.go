package dto

import (
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateCycleRequest opens a new contribution cycle. One contribution is
// created per active member at the expected amount.
type CreateCycleRequest struct {
	Name           string          `json:"name" binding:"required"` // e.g. "2026-08"
	ExpectedAmount decimal.Decimal `json:"expectedAmount" binding:"required"`
	DueDate        time.Time       `json:"dueDate" binding:"required"`
}

// RecordContributionRequest records a payment towards a contribution.
type RecordContributionRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"omitempty,oneof=MPESA BANK CASH"`
}

// CycleResponse is the API representation of a contribution cycle.
type CycleResponse struct {
	CycleID        string                 `json:"cycleID"`
	Name           string                 `json:"name"`
	ExpectedAmount decimal.Decimal        `json:"expectedAmount"`
	DueDate        time.Time              `json:"dueDate"`
	Status         domain.CycleStatus     `json:"status"`
	ProcessedAt    *time.Time             `json:"processedAt,omitempty"`
	Contributions  []ContributionResponse `json:"contributions,omitempty"`
}

// ContributionResponse is the API representation of a contribution.
type ContributionResponse struct {
	ContributionID string                    `json:"contributionID"`
	CycleID        string                    `json:"cycleID"`
	MemberID       string                    `json:"memberID"`
	ExpectedAmount decimal.Decimal           `json:"expectedAmount"`
	PaidAmount     decimal.Decimal           `json:"paidAmount"`
	Status         domain.ContributionStatus `json:"status"`
	LoanID         string                    `json:"loanID,omitempty"`
}

// CycleProcessResult reports the outcome of default conversion for a cycle.
type CycleProcessResult struct {
	CycleID       string `json:"cycleID"`
	Converted     int    `json:"converted"`
	AlreadyClosed bool   `json:"alreadyClosed"` // True when the cycle was processed earlier (no-op)
	Failed        int    `json:"failed"`
}
