package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/pkg/config"
)

func testPolicy() config.Policy {
	return config.Policy{
		LoanMaxMultiplier:          decimal.NewFromInt(3),
		GuarantorMaxMultiplier:     decimal.NewFromInt(3),
		DefaultLoanTermMonths:      12,
		ContributionLoanTermMonths: 12,
	}
}

func activeMember(memberID string) *domain.Member {
	return &domain.Member{
		MemberID:           memberID,
		Name:               "Test Member",
		Email:              "member@example.com",
		Status:             domain.MemberActive,
		TotalContributions: decimal.NewFromInt(10000),
	}
}

// serviceableLoan builds a member loan in DISBURSED state with a clean
// balance chain: due = principal + accrued, outstanding = due - paid.
func serviceableLoan(memberID string, principal, accrued, paid, interestPaid decimal.Decimal) *domain.Loan {
	due := principal.Add(accrued)
	return &domain.Loan{
		LoanID:               uuid.NewString(),
		Borrower:             domain.MemberBorrower(memberID),
		LoanType:             domain.LoanTypeRegular,
		Principal:            principal,
		MonthlyRate:          decimal.NewFromFloat(0.10),
		DailyRate:            decimal.NewFromFloat(0.0031862),
		TermMonths:           12,
		TotalInterestAccrued: accrued,
		TotalInterestPaid:    interestPaid,
		TotalAmountDue:       due,
		TotalAmountPaid:      paid,
		OutstandingBalance:   due.Sub(paid),
		Status:               domain.LoanDisbursed,
	}
}

type LoanServiceTestSuite struct {
	suite.Suite
	mockLoanRepo         *MockLoanRepository
	mockMemberRepo       *MockMemberRepository
	mockExternalRepo     *MockExternalBorrowerRepository
	mockContributionRepo *MockContributionRepository
	mockGuarantorRepo    *MockGuarantorRepository
	mockLedgerRepo       *MockLedgerRepository
	mockSequenceRepo     *MockSequenceRepository
	publisher            *RecordingPublisher
	service              portssvc.LoanSvcFacade
}

func (suite *LoanServiceTestSuite) SetupTest() {
	suite.mockLoanRepo = new(MockLoanRepository)
	suite.mockMemberRepo = new(MockMemberRepository)
	suite.mockExternalRepo = new(MockExternalBorrowerRepository)
	suite.mockContributionRepo = new(MockContributionRepository)
	suite.mockGuarantorRepo = new(MockGuarantorRepository)
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockSequenceRepo = new(MockSequenceRepository)
	suite.publisher = new(RecordingPublisher)
	suite.service = services.NewLoanService(
		suite.mockLoanRepo,
		suite.mockMemberRepo,
		suite.mockExternalRepo,
		suite.mockContributionRepo,
		suite.mockGuarantorRepo,
		suite.mockLedgerRepo,
		suite.mockSequenceRepo,
		suite.publisher,
		testPolicy(),
	)
}

// --- ApplyForLoan ---

func (suite *LoanServiceTestSuite) TestApplyForLoan_Success() {
	ctx := context.Background()
	memberID := uuid.NewString()
	req := dto.ApplyLoanRequest{
		MemberID:    memberID,
		Principal:   decimal.NewFromInt(10000),
		MonthlyRate: decimal.NewFromFloat(0.10),
	}

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(activeMember(memberID), nil).Once()
	suite.mockLoanRepo.On("CountActiveLoansForBorrower", ctx, domain.MemberBorrower(memberID)).Return(0, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, memberID).Return(decimal.NewFromInt(5000), nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	loan, err := suite.service.ApplyForLoan(ctx, req, memberID)

	suite.Require().NoError(err)
	suite.Require().NotNil(loan)
	suite.Equal(domain.LoanPending, loan.Status)
	suite.Equal(domain.LoanTypeRegular, loan.LoanType)
	suite.Equal(12, loan.TermMonths)
	suite.True(loan.Principal.Equal(loan.TotalAmountDue))
	suite.True(loan.Principal.Equal(loan.OutstandingBalance))
	suite.True(loan.DailyRate.IsPositive())
	suite.NoError(loan.CheckInvariants())

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(domain.EventLoanApplied, suite.publisher.events[0].Kind)

	suite.mockLoanRepo.AssertExpectations(suite.T())
	suite.mockMemberRepo.AssertExpectations(suite.T())
	suite.mockContributionRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestApplyForLoan_InactiveMember() {
	ctx := context.Background()
	memberID := uuid.NewString()
	member := activeMember(memberID)
	member.Status = domain.MemberInactive

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(member, nil).Once()

	loan, err := suite.service.ApplyForLoan(ctx, dto.ApplyLoanRequest{
		MemberID:    memberID,
		Principal:   decimal.NewFromInt(1000),
		MonthlyRate: decimal.NewFromFloat(0.10),
	}, memberID)

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrBorrowerInactive)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "SaveLoan", mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestApplyForLoan_ExistingActiveLoan() {
	ctx := context.Background()
	memberID := uuid.NewString()

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(activeMember(memberID), nil).Once()
	suite.mockLoanRepo.On("CountActiveLoansForBorrower", ctx, domain.MemberBorrower(memberID)).Return(1, nil).Once()

	loan, err := suite.service.ApplyForLoan(ctx, dto.ApplyLoanRequest{
		MemberID:    memberID,
		Principal:   decimal.NewFromInt(1000),
		MonthlyRate: decimal.NewFromFloat(0.10),
	}, memberID)

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrActiveLoanExists)
}

func (suite *LoanServiceTestSuite) TestApplyForLoan_ExceedsContributionMultiple() {
	ctx := context.Background()
	memberID := uuid.NewString()

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(activeMember(memberID), nil).Once()
	suite.mockLoanRepo.On("CountActiveLoansForBorrower", ctx, domain.MemberBorrower(memberID)).Return(0, nil).Once()
	// Contributions 3000 cap the principal at 9000.
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, memberID).Return(decimal.NewFromInt(3000), nil).Once()

	loan, err := suite.service.ApplyForLoan(ctx, dto.ApplyLoanRequest{
		MemberID:    memberID,
		Principal:   decimal.NewFromInt(9001),
		MonthlyRate: decimal.NewFromFloat(0.10),
	}, memberID)

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrLoanLimitExceeded)
}

func (suite *LoanServiceTestSuite) TestApplyForLoan_ExactlyAtLimit() {
	ctx := context.Background()
	memberID := uuid.NewString()

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(activeMember(memberID), nil).Once()
	suite.mockLoanRepo.On("CountActiveLoansForBorrower", ctx, domain.MemberBorrower(memberID)).Return(0, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, memberID).Return(decimal.NewFromInt(3000), nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	loan, err := suite.service.ApplyForLoan(ctx, dto.ApplyLoanRequest{
		MemberID:    memberID,
		Principal:   decimal.NewFromInt(9000),
		MonthlyRate: decimal.NewFromFloat(0.10),
	}, memberID)

	suite.Require().NoError(err)
	suite.Require().NotNil(loan)
	suite.Equal(domain.LoanPending, loan.Status)
}

func (suite *LoanServiceTestSuite) TestApplyForLoan_NonPositivePrincipal() {
	loan, err := suite.service.ApplyForLoan(context.Background(), dto.ApplyLoanRequest{
		MemberID:    uuid.NewString(),
		Principal:   decimal.Zero,
		MonthlyRate: decimal.NewFromFloat(0.10),
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrInvalidAmount)
}

// --- Approve / Reject / Disburse ---

func (suite *LoanServiceTestSuite) TestApproveLoan_Success() {
	ctx := context.Background()
	memberID := uuid.NewString()
	approverID := uuid.NewString()
	loan := serviceableLoan(memberID, decimal.NewFromInt(5000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanPending

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	approved, err := suite.service.ApproveLoan(ctx, loan.LoanID, approverID)

	suite.Require().NoError(err)
	suite.Equal(domain.LoanApproved, approved.Status)
	suite.Equal(approverID, approved.ApprovedBy)
	suite.Require().NotNil(approved.ApprovedAt)
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestApproveLoan_NotPending() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(5000), decimal.Zero, decimal.Zero, decimal.Zero)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()

	approved, err := suite.service.ApproveLoan(ctx, loan.LoanID, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(approved)
	suite.ErrorIs(err, services.ErrInvalidLoanState)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "UpdateLoan", mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestDisburseLoan_Success() {
	ctx := context.Background()
	memberID := uuid.NewString()
	actorID := uuid.NewString()
	loan := serviceableLoan(memberID, decimal.NewFromInt(5000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanApproved
	loan.DailyRate = decimal.Zero // Recomputed at disbursement

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("AdjustMemberTotals", ctx, memberID,
		mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"),
		actorID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockSequenceRepo.On("NextReference", ctx, "DSB", mock.AnythingOfType("time.Time")).Return("DSB-20260831-1", nil).Once()
	suite.mockLedgerRepo.On("SaveEntry", ctx, mock.MatchedBy(func(entry domain.LedgerEntry) bool {
		return entry.EntryType == domain.Debit && entry.Amount.Equal(decimal.NewFromInt(5000))
	})).Return(nil).Once()

	disbursed, err := suite.service.DisburseLoan(ctx, loan.LoanID, actorID)

	suite.Require().NoError(err)
	suite.Equal(domain.LoanDisbursed, disbursed.Status)
	suite.Require().NotNil(disbursed.DisbursedAt)
	suite.Require().NotNil(disbursed.ExpectedEndDate)
	suite.True(disbursed.DailyRate.IsPositive(), "daily rate must be recomputed for the disbursement month")

	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(domain.EventLoanDisbursed, suite.publisher.events[0].Kind)

	suite.mockLoanRepo.AssertExpectations(suite.T())
	suite.mockMemberRepo.AssertExpectations(suite.T())
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

// --- Interest accrual ---

func (suite *LoanServiceTestSuite) TestAccrueInterest_Success() {
	ctx := context.Background()
	memberID := uuid.NewString()
	loan := serviceableLoan(memberID, decimal.NewFromInt(10000), decimal.Zero, decimal.Zero, decimal.Zero)
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("LatestAccrualDate", ctx, loan.LoanID).Return(nil, nil).Once()
	suite.mockLoanRepo.On("SaveAccrual", ctx, mock.AnythingOfType("domain.InterestAccrual")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("AdjustMemberTotals", ctx, memberID,
		mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"),
		"SYSTEM_ACCRUAL", mock.AnythingOfType("time.Time")).Return(nil).Once()

	accrual, err := suite.service.AccrueInterest(ctx, loan.LoanID, date)

	suite.Require().NoError(err)
	suite.Require().NotNil(accrual)
	// 10000 x 0.0031862 = 31.862, rounded half-up to 31.86
	suite.True(accrual.InterestAmount.Equal(decimal.NewFromFloat(31.86)), "got %s", accrual.InterestAmount)
	suite.True(accrual.OpeningBalance.Equal(decimal.NewFromInt(10000)))
	suite.True(accrual.ClosingBalance.Equal(decimal.NewFromFloat(10031.86)))
	suite.True(loan.OutstandingBalance.Equal(accrual.ClosingBalance))
	suite.NoError(loan.CheckInvariants())

	suite.mockLoanRepo.AssertExpectations(suite.T())
	suite.mockMemberRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestAccrueInterest_IdempotentPerDate() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(10000), decimal.Zero, decimal.Zero, decimal.Zero)
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("LatestAccrualDate", ctx, loan.LoanID).Return(&date, nil).Once()

	accrual, err := suite.service.AccrueInterest(ctx, loan.LoanID, date)

	suite.Require().NoError(err)
	suite.Nil(accrual, "a repeat accrual for the same date must be a no-op")
	suite.True(loan.OutstandingBalance.Equal(decimal.NewFromInt(10000)), "balance must be untouched")
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "SaveAccrual", mock.Anything, mock.Anything)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "UpdateLoan", mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestAccrueInterest_SkipsDateBeforeLatestAccrual() {
	ctx := context.Background()
	// Balance already reflects the day-2 accrual; a backdated day-1 run
	// must not post a record opening at the post-day-2 balance.
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(10000), decimal.NewFromFloat(32), decimal.Zero, decimal.Zero)
	dayTwo := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)
	dayOne := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("LatestAccrualDate", ctx, loan.LoanID).Return(&dayTwo, nil).Once()

	accrual, err := suite.service.AccrueInterest(ctx, loan.LoanID, dayOne)

	suite.Require().NoError(err)
	suite.Nil(accrual, "dates before the latest accrual must be skipped")
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "SaveAccrual", mock.Anything, mock.Anything)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "UpdateLoan", mock.Anything, mock.Anything)
}

func (suite *LoanServiceTestSuite) TestAccrueInterest_NotServiceable() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(10000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanPending

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()

	accrual, err := suite.service.AccrueInterest(ctx, loan.LoanID, time.Now().UTC())

	suite.Require().Error(err)
	suite.Nil(accrual)
	suite.ErrorIs(err, services.ErrLoanNotServiceable)
}

func (suite *LoanServiceTestSuite) TestRunDailyAccrual_CountsOutcomes() {
	ctx := context.Background()
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	fresh := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)
	fresh.Borrower = domain.ExternalBorrowerRef(uuid.NewString()) // No member totals to adjust
	done := serviceableLoan(uuid.NewString(), decimal.NewFromInt(2000), decimal.Zero, decimal.Zero, decimal.Zero)
	broken := uuid.NewString()

	suite.mockLoanRepo.On("ListServiceableLoanIDs", ctx).Return([]string{fresh.LoanID, done.LoanID, broken}, nil).Once()

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, fresh.LoanID).Return(fresh, nil).Once()
	suite.mockLoanRepo.On("LatestAccrualDate", ctx, fresh.LoanID).Return(nil, nil).Once()
	suite.mockLoanRepo.On("SaveAccrual", ctx, mock.AnythingOfType("domain.InterestAccrual")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, done.LoanID).Return(done, nil).Once()
	suite.mockLoanRepo.On("LatestAccrualDate", ctx, done.LoanID).Return(&date, nil).Once()

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, broken).Return(nil, assert.AnError).Once()

	result, err := suite.service.RunDailyAccrual(ctx, date)

	suite.Require().NoError(err)
	suite.Equal(3, result.Processed)
	suite.Equal(1, result.Succeeded)
	suite.Equal(1, result.Skipped)
	suite.Equal(1, result.Failed)
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

// --- Repayment waterfall ---

func (suite *LoanServiceTestSuite) TestRepayLoan_InterestBeforePrincipal() {
	ctx := context.Background()
	memberID := uuid.NewString()
	actorID := uuid.NewString()
	// 500 interest accrued, 200 already settled by an earlier payment:
	// the next 400 covers the remaining 300 interest, then 100 principal.
	loan := serviceableLoan(memberID,
		decimal.NewFromInt(10000), decimal.NewFromInt(500),
		decimal.NewFromInt(200), decimal.NewFromInt(200))
	loan.Status = domain.LoanActive

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("NextRepaymentSequence", ctx, loan.LoanID).Return(2, nil).Once()
	suite.mockSequenceRepo.On("NextReference", ctx, "RPT", mock.AnythingOfType("time.Time")).Return("RPT-20260831-2", nil).Once()
	suite.mockLoanRepo.On("SaveRepayment", ctx, mock.AnythingOfType("domain.Repayment")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("AdjustMemberTotals", ctx, memberID,
		mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"),
		actorID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(nil).Once()

	repayment, err := suite.service.RepayLoan(ctx, loan.LoanID, dto.RepayLoanRequest{
		Amount:        decimal.NewFromInt(400),
		PaymentMethod: "MPESA",
	}, actorID)

	suite.Require().NoError(err)
	suite.True(repayment.InterestPortion.Equal(decimal.NewFromInt(300)), "got interest %s", repayment.InterestPortion)
	suite.True(repayment.PrincipalPortion.Equal(decimal.NewFromInt(100)), "got principal %s", repayment.PrincipalPortion)
	suite.Equal(2, repayment.SequenceNumber)
	suite.Equal("RPT-20260831-2", repayment.ReferenceNumber)
	// Outstanding was 10300 (10500 due - 200 paid), minus 400.
	suite.True(repayment.BalanceAfter.Equal(decimal.NewFromInt(9900)))
	suite.NoError(loan.CheckInvariants())
	suite.mockLoanRepo.AssertExpectations(suite.T())
}

func (suite *LoanServiceTestSuite) TestRepayLoan_OverpaymentClampedAndPaidOff() {
	ctx := context.Background()
	memberID := uuid.NewString()
	actorID := uuid.NewString()
	// Outstanding 110 = 100 principal + 10 interest, nothing paid yet.
	loan := serviceableLoan(memberID,
		decimal.NewFromInt(100), decimal.NewFromInt(10),
		decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanActive

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("NextRepaymentSequence", ctx, loan.LoanID).Return(1, nil).Once()
	suite.mockSequenceRepo.On("NextReference", ctx, "RPT", mock.AnythingOfType("time.Time")).Return("RPT-20260831-1", nil).Once()
	suite.mockLoanRepo.On("SaveRepayment", ctx, mock.AnythingOfType("domain.Repayment")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("AdjustMemberTotals", ctx, memberID,
		mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"),
		actorID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(nil).Once()

	repayment, err := suite.service.RepayLoan(ctx, loan.LoanID, dto.RepayLoanRequest{
		Amount:        decimal.NewFromInt(500),
		PaymentMethod: "CASH",
	}, actorID)

	suite.Require().NoError(err)
	suite.True(repayment.Amount.Equal(decimal.NewFromInt(110)), "payment must be clamped to the outstanding balance")
	suite.True(repayment.InterestPortion.Equal(decimal.NewFromInt(10)))
	suite.True(repayment.PrincipalPortion.Equal(decimal.NewFromInt(100)))
	suite.True(repayment.BalanceAfter.IsZero())
	suite.Equal(domain.LoanPaidOff, loan.Status)
	suite.Require().NotNil(loan.ActualEndDate)
	suite.NoError(loan.CheckInvariants())

	suite.Require().Len(suite.publisher.events, 2)
	suite.Equal(domain.EventLoanRepayment, suite.publisher.events[0].Kind)
	suite.Equal(domain.EventLoanPaidOff, suite.publisher.events[1].Kind)
}

func (suite *LoanServiceTestSuite) TestRepayLoan_FirstPaymentActivatesLoan() {
	ctx := context.Background()
	memberID := uuid.NewString()
	loan := serviceableLoan(memberID, decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("NextRepaymentSequence", ctx, loan.LoanID).Return(1, nil).Once()
	suite.mockSequenceRepo.On("NextReference", ctx, "RPT", mock.AnythingOfType("time.Time")).Return("RPT-20260831-1", nil).Once()
	suite.mockLoanRepo.On("SaveRepayment", ctx, mock.AnythingOfType("domain.Repayment")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("AdjustMemberTotals", ctx, memberID,
		mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"), mock.AnythingOfType("decimal.Decimal"),
		mock.Anything, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerRepo.On("SaveEntry", ctx, mock.AnythingOfType("domain.LedgerEntry")).Return(nil).Once()

	_, err := suite.service.RepayLoan(ctx, loan.LoanID, dto.RepayLoanRequest{
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "BANK",
	}, uuid.NewString())

	suite.Require().NoError(err)
	suite.Equal(domain.LoanActive, loan.Status)
}

func (suite *LoanServiceTestSuite) TestRepayLoan_NotServiceable() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanPaidOff

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()

	repayment, err := suite.service.RepayLoan(ctx, loan.LoanID, dto.RepayLoanRequest{
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "CASH",
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(repayment)
	suite.ErrorIs(err, services.ErrLoanNotServiceable)
}

// --- Terminal transitions and reads ---

func (suite *LoanServiceTestSuite) TestMarkLoanDefaulted() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanActive

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	updated, err := suite.service.MarkLoanDefaulted(ctx, loan.LoanID, uuid.NewString())

	suite.Require().NoError(err)
	suite.Equal(domain.LoanDefaulted, updated.Status)
	suite.Require().Len(suite.publisher.events, 1)
	suite.Equal(domain.EventLoanDefaulted, suite.publisher.events[0].Kind)
}

func (suite *LoanServiceTestSuite) TestWriteOffLoan_RejectsTerminalLoan() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)
	loan.Status = domain.LoanDefaulted

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()

	updated, err := suite.service.WriteOffLoan(ctx, loan.LoanID, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(updated)
	suite.ErrorIs(err, services.ErrInvalidLoanState)
}

func (suite *LoanServiceTestSuite) TestGetLoanByID_LoadsHistory() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)

	repayments := []domain.Repayment{{RepaymentID: uuid.NewString(), LoanID: loan.LoanID, SequenceNumber: 1}}
	accruals := []domain.InterestAccrual{{AccrualID: uuid.NewString(), LoanID: loan.LoanID}}

	suite.mockLoanRepo.On("FindLoanByID", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockLoanRepo.On("ListRepaymentsByLoan", ctx, loan.LoanID).Return(repayments, nil).Once()
	suite.mockLoanRepo.On("ListAccrualsByLoan", ctx, loan.LoanID).Return(accruals, nil).Once()

	found, err := suite.service.GetLoanByID(ctx, loan.LoanID)

	suite.Require().NoError(err)
	suite.Len(found.Repayments, 1)
	suite.Len(found.Accruals, 1)
	suite.mockGuarantorRepo.AssertNotCalled(suite.T(), "ListGuarantorsByLoan", mock.Anything, mock.Anything)
}

func TestLoanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LoanServiceTestSuite))
}
