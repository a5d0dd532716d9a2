package dto

import (
	"time"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateMemberRequest registers a new group member.
type CreateMemberRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest authenticates a member for the HTTP surface.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token for subsequent requests.
type LoginResponse struct {
	Token    string         `json:"token"`
	Expiry   time.Time      `json:"expiry"`
	MemberID string         `json:"memberID"`
	Member   MemberResponse `json:"member"`
}

// MemberResponse is the API representation of a member.
type MemberResponse struct {
	MemberID           string              `json:"memberID"`
	Name               string              `json:"name"`
	Email              string              `json:"email"`
	Phone              string              `json:"phone"`
	Status             domain.MemberStatus `json:"status"`
	TotalContributions decimal.Decimal     `json:"totalContributions"`
	TotalLoansTaken    decimal.Decimal     `json:"totalLoansTaken"`
	LoanOutstanding    decimal.Decimal     `json:"loanOutstanding"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// CreateExternalBorrowerRequest registers a non-member borrower.
type CreateExternalBorrowerRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	IDNumber string `json:"idNumber" binding:"required"`
}

// ExternalBorrowerResponse is the API representation of an external borrower.
type ExternalBorrowerResponse struct {
	ExternalBorrowerID string                        `json:"externalBorrowerID"`
	Name               string                        `json:"name"`
	Phone              string                        `json:"phone"`
	IDNumber           string                        `json:"idNumber"`
	Status             domain.ExternalBorrowerStatus `json:"status"`
	CreatedAt          time.Time                     `json:"createdAt"`
}
