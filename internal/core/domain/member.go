package domain

import (
	"github.com/shopspring/decimal"
)

// MemberStatus indicates whether a member is in good standing with the group.
type MemberStatus string

const (
	MemberActive   MemberStatus = "ACTIVE"
	MemberInactive MemberStatus = "INACTIVE"
	MemberExited   MemberStatus = "EXITED"
)

// Member represents a registered member of the table-banking group.
// Running totals are maintained by the loan and contribution services and
// are the figures the lending caps are computed against.
type Member struct {
	MemberID           string          `json:"memberID"` // Primary Key (UUID)
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	PasswordHash       string          `json:"-"`
	Status             MemberStatus    `json:"status"`
	TotalContributions decimal.Decimal `json:"totalContributions"` // Sum of paid contributions
	TotalLoansTaken    decimal.Decimal `json:"totalLoansTaken"`    // Lifetime principal disbursed
	LoanOutstanding    decimal.Decimal `json:"loanOutstanding"`    // Outstanding across this member's loans
	AuditFields
}

// IsActive reports whether the member may borrow, contribute or guarantee.
func (m Member) IsActive() bool {
	return m.Status == MemberActive
}

// ExternalBorrowerStatus indicates whether a non-member may be lent to.
type ExternalBorrowerStatus string

const (
	ExternalActive      ExternalBorrowerStatus = "ACTIVE"
	ExternalInactive    ExternalBorrowerStatus = "INACTIVE"
	ExternalBlacklisted ExternalBorrowerStatus = "BLACKLISTED"
)

// ExternalBorrower is a non-member borrower. Loans to external borrowers
// must be secured by member guarantors.
type ExternalBorrower struct {
	ExternalBorrowerID string                 `json:"externalBorrowerID"` // Primary Key (UUID)
	Name               string                 `json:"name"`
	Phone              string                 `json:"phone"`
	IDNumber           string                 `json:"idNumber"` // National ID or passport
	Status             ExternalBorrowerStatus `json:"status"`
	AuditFields
}

// IsActive reports whether the external borrower may receive a loan.
func (b ExternalBorrower) IsActive() bool {
	return b.Status == ExternalActive
}
