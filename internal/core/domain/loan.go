package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanPending    LoanStatus = "PENDING"
	LoanApproved   LoanStatus = "APPROVED"
	LoanDisbursed  LoanStatus = "DISBURSED"
	LoanActive     LoanStatus = "ACTIVE"
	LoanPaidOff    LoanStatus = "PAID_OFF"
	LoanRejected   LoanStatus = "REJECTED"
	LoanDefaulted  LoanStatus = "DEFAULTED"
	LoanWrittenOff LoanStatus = "WRITTEN_OFF"
)

// LoanType distinguishes how a loan came to exist and who it was issued to.
type LoanType string

const (
	LoanTypeRegular             LoanType = "REGULAR"
	LoanTypeContributionDefault LoanType = "CONTRIBUTION_DEFAULT"
	LoanTypeEmergency           LoanType = "EMERGENCY"
	LoanTypeGuaranteed          LoanType = "GUARANTEED"
)

// BorrowerKind tags the borrower union on a loan.
type BorrowerKind string

const (
	BorrowerMember   BorrowerKind = "MEMBER"
	BorrowerExternal BorrowerKind = "EXTERNAL"
)

// BorrowerRef is a tagged reference to exactly one borrower: a group member
// or an external borrower. Exactly one ID is populated, matching Kind.
type BorrowerRef struct {
	Kind               BorrowerKind `json:"kind"`
	MemberID           string       `json:"memberID,omitempty"`
	ExternalBorrowerID string       `json:"externalBorrowerID,omitempty"`
}

// MemberBorrower builds a BorrowerRef for a group member.
func MemberBorrower(memberID string) BorrowerRef {
	return BorrowerRef{Kind: BorrowerMember, MemberID: memberID}
}

// ExternalBorrowerRef builds a BorrowerRef for an external borrower.
func ExternalBorrowerRef(externalID string) BorrowerRef {
	return BorrowerRef{Kind: BorrowerExternal, ExternalBorrowerID: externalID}
}

// ID returns the identifier of whichever borrower the reference points at.
func (b BorrowerRef) ID() string {
	if b.Kind == BorrowerExternal {
		return b.ExternalBorrowerID
	}
	return b.MemberID
}

// Validate checks that exactly one side of the union is populated.
func (b BorrowerRef) Validate() error {
	switch b.Kind {
	case BorrowerMember:
		if b.MemberID == "" || b.ExternalBorrowerID != "" {
			return fmt.Errorf("member borrower reference must carry only a member ID")
		}
	case BorrowerExternal:
		if b.ExternalBorrowerID == "" || b.MemberID != "" {
			return fmt.Errorf("external borrower reference must carry only an external borrower ID")
		}
	default:
		return fmt.Errorf("unknown borrower kind %q", b.Kind)
	}
	return nil
}

// Loan is a borrowing agreement with the group. Monetary invariants held at
// all times:
//
//	TotalAmountDue  == Principal + TotalInterestAccrued
//	Outstanding     == TotalAmountDue − TotalAmountPaid
//	Outstanding     >= 0, and Outstanding == 0 implies status PAID_OFF
//
// Loans are never deleted; terminal states are retained for audit.
type Loan struct {
	LoanID               string          `json:"loanID"` // Primary Key (UUID)
	Borrower             BorrowerRef     `json:"borrower"`
	LoanType             LoanType        `json:"loanType"`
	Principal            decimal.Decimal `json:"principal"`
	MonthlyRate          decimal.Decimal `json:"monthlyRate"` // e.g. 0.10 for 10% per month
	DailyRate            decimal.Decimal `json:"dailyRate"`   // Derived, 8 decimal places
	TermMonths           int             `json:"termMonths"`
	DisbursedAt          *time.Time      `json:"disbursedAt,omitempty"`
	ExpectedEndDate      *time.Time      `json:"expectedEndDate,omitempty"`
	ActualEndDate        *time.Time      `json:"actualEndDate,omitempty"`
	TotalInterestAccrued decimal.Decimal `json:"totalInterestAccrued"`
	TotalInterestPaid    decimal.Decimal `json:"totalInterestPaid"` // Sum of repayment interest portions
	TotalAmountDue       decimal.Decimal `json:"totalAmountDue"`
	TotalAmountPaid      decimal.Decimal `json:"totalAmountPaid"`
	OutstandingBalance   decimal.Decimal `json:"outstandingBalance"`
	Status               LoanStatus      `json:"status"`
	ApprovedBy           string          `json:"approvedBy,omitempty"`
	ApprovedAt           *time.Time      `json:"approvedAt,omitempty"`
	SourceContributionID string          `json:"sourceContributionID,omitempty"` // Set for CONTRIBUTION_DEFAULT loans
	Purpose              string          `json:"purpose,omitempty"`

	// Loaded on demand, not always populated.
	Repayments []Repayment       `json:"repayments,omitempty"`
	Accruals   []InterestAccrual `json:"accruals,omitempty"`
	Guarantors []LoanGuarantor   `json:"guarantors,omitempty"`
	AuditFields
}

// IsServiceable reports whether the loan can still accrue interest and
// receive repayments.
func (l *Loan) IsServiceable() bool {
	return l.Status == LoanDisbursed || l.Status == LoanActive
}

// IsTerminal reports whether the loan is in a final state.
func (l *Loan) IsTerminal() bool {
	switch l.Status {
	case LoanPaidOff, LoanRejected, LoanDefaulted, LoanWrittenOff:
		return true
	}
	return false
}

// UnpaidInterest is the interest accrued but not yet covered by repayment
// interest portions. Repayments settle this before touching principal.
func (l *Loan) UnpaidInterest() decimal.Decimal {
	unpaid := l.TotalInterestAccrued.Sub(l.TotalInterestPaid)
	if unpaid.IsNegative() {
		return decimal.Zero
	}
	return unpaid
}

// ApplyAccrual posts one day's interest against the loan and returns the
// resulting accrual record. The interest amount must already be rounded to
// 2 decimal places by the caller. Idempotence per (loan, date) is enforced
// by the repository layer; this method only maintains the balance chain.
func (l *Loan) ApplyAccrual(date time.Time, interest decimal.Decimal) (InterestAccrual, error) {
	if !l.IsServiceable() {
		return InterestAccrual{}, fmt.Errorf("loan %s is %s and cannot accrue interest", l.LoanID, l.Status)
	}
	if interest.IsNegative() {
		return InterestAccrual{}, fmt.Errorf("accrual interest must not be negative, got %s", interest.String())
	}

	opening := l.OutstandingBalance
	closing := opening.Add(interest)

	l.TotalInterestAccrued = l.TotalInterestAccrued.Add(interest)
	l.TotalAmountDue = l.TotalAmountDue.Add(interest)
	l.OutstandingBalance = closing

	return InterestAccrual{
		LoanID:         l.LoanID,
		AccrualDate:    date,
		OpeningBalance: opening,
		InterestAmount: interest,
		ClosingBalance: closing,
	}, nil
}

// ApplyRepayment allocates a payment against the loan and returns the
// repayment record. The amount is clamped to the outstanding balance; any
// excess is ignored rather than refunded (documented policy). Allocation is
// interest-first: unpaid interest is settled before principal. When the
// balance reaches zero the loan transitions to PAID_OFF.
func (l *Loan) ApplyRepayment(amount decimal.Decimal, paidAt time.Time, method, reference string) (Repayment, error) {
	if !l.IsServiceable() {
		return Repayment{}, fmt.Errorf("loan %s is %s and cannot receive payments", l.LoanID, l.Status)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Repayment{}, fmt.Errorf("repayment amount must be positive, got %s", amount.String())
	}

	applied := amount
	if applied.GreaterThan(l.OutstandingBalance) {
		applied = l.OutstandingBalance
	}

	interestPortion := l.UnpaidInterest()
	if interestPortion.GreaterThan(applied) {
		interestPortion = applied
	}
	principalPortion := applied.Sub(interestPortion)

	balanceAfter := l.OutstandingBalance.Sub(applied)
	if balanceAfter.IsNegative() {
		balanceAfter = decimal.Zero
	}

	l.TotalAmountPaid = l.TotalAmountPaid.Add(applied)
	l.TotalInterestPaid = l.TotalInterestPaid.Add(interestPortion)
	l.OutstandingBalance = balanceAfter

	if l.OutstandingBalance.IsZero() {
		l.Status = LoanPaidOff
		endDate := paidAt
		l.ActualEndDate = &endDate
	} else if l.Status == LoanDisbursed {
		l.Status = LoanActive
	}

	return Repayment{
		LoanID:           l.LoanID,
		SequenceNumber:   len(l.Repayments) + 1, // Authoritative sequence comes from the repository
		PaidAt:           paidAt,
		Amount:           applied,
		PrincipalPortion: principalPortion,
		InterestPortion:  interestPortion,
		BalanceAfter:     balanceAfter,
		PaymentMethod:    method,
		ReferenceNumber:  reference,
	}, nil
}

// CheckInvariants verifies the monetary invariants on the aggregate.
func (l *Loan) CheckInvariants() error {
	if !l.TotalAmountDue.Equal(l.Principal.Add(l.TotalInterestAccrued)) {
		return fmt.Errorf("loan %s: total due %s != principal %s + interest %s",
			l.LoanID, l.TotalAmountDue, l.Principal, l.TotalInterestAccrued)
	}
	if !l.OutstandingBalance.Equal(l.TotalAmountDue.Sub(l.TotalAmountPaid)) {
		return fmt.Errorf("loan %s: outstanding %s != due %s - paid %s",
			l.LoanID, l.OutstandingBalance, l.TotalAmountDue, l.TotalAmountPaid)
	}
	if l.OutstandingBalance.IsNegative() {
		return fmt.Errorf("loan %s: outstanding balance %s is negative", l.LoanID, l.OutstandingBalance)
	}
	if l.OutstandingBalance.IsZero() && l.IsServiceable() {
		return fmt.Errorf("loan %s: zero balance but status %s", l.LoanID, l.Status)
	}
	return nil
}
