package dto

import (
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// ToLoanResponse converts a domain.Loan to LoanResponse DTO, including any
// loaded repayment, accrual and guarantor history.
func ToLoanResponse(loan *domain.Loan) LoanResponse {
	resp := LoanResponse{
		LoanID:               loan.LoanID,
		Borrower:             loan.Borrower,
		LoanType:             loan.LoanType,
		Principal:            loan.Principal,
		MonthlyRate:          loan.MonthlyRate,
		DailyRate:            loan.DailyRate,
		DisbursedAt:          loan.DisbursedAt,
		ExpectedEndDate:      loan.ExpectedEndDate,
		ActualEndDate:        loan.ActualEndDate,
		TotalInterestAccrued: loan.TotalInterestAccrued,
		TotalAmountDue:       loan.TotalAmountDue,
		TotalAmountPaid:      loan.TotalAmountPaid,
		OutstandingBalance:   loan.OutstandingBalance,
		Status:               loan.Status,
		Purpose:              loan.Purpose,
		CreatedAt:            loan.CreatedAt,
	}
	if len(loan.Repayments) > 0 {
		resp.Repayments = make([]RepaymentResponse, len(loan.Repayments))
		for i, r := range loan.Repayments {
			resp.Repayments[i] = ToRepaymentResponse(&r)
		}
	}
	if len(loan.Accruals) > 0 {
		resp.Accruals = make([]AccrualResponse, len(loan.Accruals))
		for i, a := range loan.Accruals {
			resp.Accruals[i] = ToAccrualResponse(&a)
		}
	}
	if len(loan.Guarantors) > 0 {
		resp.Guarantors = make([]GuarantorResponse, len(loan.Guarantors))
		for i, g := range loan.Guarantors {
			resp.Guarantors[i] = ToGuarantorResponse(&g)
		}
	}
	return resp
}

// ToListLoanResponse converts a slice of domain.Loan to LoanResponse DTOs.
func ToListLoanResponse(loans []domain.Loan) []LoanResponse {
	res := make([]LoanResponse, len(loans))
	for i := range loans {
		res[i] = ToLoanResponse(&loans[i])
	}
	return res
}

// ToRepaymentResponse converts a domain.Repayment to RepaymentResponse DTO.
func ToRepaymentResponse(r *domain.Repayment) RepaymentResponse {
	return RepaymentResponse{
		RepaymentID:      r.RepaymentID,
		LoanID:           r.LoanID,
		SequenceNumber:   r.SequenceNumber,
		PaidAt:           r.PaidAt,
		Amount:           r.Amount,
		PrincipalPortion: r.PrincipalPortion,
		InterestPortion:  r.InterestPortion,
		BalanceAfter:     r.BalanceAfter,
		PaymentMethod:    r.PaymentMethod,
		ReferenceNumber:  r.ReferenceNumber,
	}
}

// ToAccrualResponse converts a domain.InterestAccrual to AccrualResponse DTO.
func ToAccrualResponse(a *domain.InterestAccrual) AccrualResponse {
	return AccrualResponse{
		AccrualID:      a.AccrualID,
		LoanID:         a.LoanID,
		AccrualDate:    a.AccrualDate,
		OpeningBalance: a.OpeningBalance,
		InterestAmount: a.InterestAmount,
		ClosingBalance: a.ClosingBalance,
	}
}

// ToGuarantorResponse converts a domain.LoanGuarantor to GuarantorResponse DTO.
func ToGuarantorResponse(g *domain.LoanGuarantor) GuarantorResponse {
	return GuarantorResponse{
		GuarantorID:        g.GuarantorID,
		LoanID:             g.LoanID,
		MemberID:           g.MemberID,
		GuaranteedAmount:   g.GuaranteedAmount,
		Percentage:         g.Percentage,
		Status:             g.Status,
		AmountPaidOnBehalf: g.AmountPaidOnBehalf,
	}
}

// ToListGuarantorResponse converts a slice of domain.LoanGuarantor to DTOs.
func ToListGuarantorResponse(guarantors []domain.LoanGuarantor) []GuarantorResponse {
	res := make([]GuarantorResponse, len(guarantors))
	for i := range guarantors {
		res[i] = ToGuarantorResponse(&guarantors[i])
	}
	return res
}

// ToCycleResponse converts a domain.ContributionCycle to CycleResponse DTO.
// Contributions are included when provided.
func ToCycleResponse(cycle *domain.ContributionCycle, contributions []domain.Contribution) CycleResponse {
	resp := CycleResponse{
		CycleID:        cycle.CycleID,
		Name:           cycle.Name,
		ExpectedAmount: cycle.ExpectedAmount,
		DueDate:        cycle.DueDate,
		Status:         cycle.Status,
		ProcessedAt:    cycle.ProcessedAt,
	}
	if len(contributions) > 0 {
		resp.Contributions = make([]ContributionResponse, len(contributions))
		for i, c := range contributions {
			resp.Contributions[i] = ToContributionResponse(&c)
		}
	}
	return resp
}

// ToListCycleResponse converts a slice of cycles to CycleResponse DTOs.
func ToListCycleResponse(cycles []domain.ContributionCycle) []CycleResponse {
	res := make([]CycleResponse, len(cycles))
	for i := range cycles {
		res[i] = ToCycleResponse(&cycles[i], nil)
	}
	return res
}

// ToContributionResponse converts a domain.Contribution to DTO.
func ToContributionResponse(c *domain.Contribution) ContributionResponse {
	return ContributionResponse{
		ContributionID: c.ContributionID,
		CycleID:        c.CycleID,
		MemberID:       c.MemberID,
		ExpectedAmount: c.ExpectedAmount,
		PaidAmount:     c.PaidAmount,
		Status:         c.Status,
		LoanID:         c.LoanID,
	}
}

// ToMemberResponse converts a domain.Member to MemberResponse DTO. The
// password hash never leaves the domain.
func ToMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		MemberID:           m.MemberID,
		Name:               m.Name,
		Email:              m.Email,
		Phone:              m.Phone,
		Status:             m.Status,
		TotalContributions: m.TotalContributions,
		TotalLoansTaken:    m.TotalLoansTaken,
		LoanOutstanding:    m.LoanOutstanding,
		CreatedAt:          m.CreatedAt,
	}
}

// ToListMemberResponse converts a slice of domain.Member to DTOs.
func ToListMemberResponse(members []domain.Member) []MemberResponse {
	res := make([]MemberResponse, len(members))
	for i := range members {
		res[i] = ToMemberResponse(&members[i])
	}
	return res
}

// ToExternalBorrowerResponse converts a domain.ExternalBorrower to DTO.
func ToExternalBorrowerResponse(b *domain.ExternalBorrower) ExternalBorrowerResponse {
	return ExternalBorrowerResponse{
		ExternalBorrowerID: b.ExternalBorrowerID,
		Name:               b.Name,
		Phone:              b.Phone,
		IDNumber:           b.IDNumber,
		Status:             b.Status,
		CreatedAt:          b.CreatedAt,
	}
}

// ToListExternalBorrowerResponse converts a slice of external borrowers to DTOs.
func ToListExternalBorrowerResponse(borrowers []domain.ExternalBorrower) []ExternalBorrowerResponse {
	res := make([]ExternalBorrowerResponse, len(borrowers))
	for i := range borrowers {
		res[i] = ToExternalBorrowerResponse(&borrowers[i])
	}
	return res
}
