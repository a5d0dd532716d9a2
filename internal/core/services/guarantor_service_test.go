package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
)

type GuarantorServiceTestSuite struct {
	suite.Suite
	mockLoanRepo         *MockLoanRepository
	mockGuarantorRepo    *MockGuarantorRepository
	mockMemberRepo       *MockMemberRepository
	mockExternalRepo     *MockExternalBorrowerRepository
	mockContributionRepo *MockContributionRepository
	publisher            *RecordingPublisher
	service              portssvc.GuarantorSvcFacade
}

func (suite *GuarantorServiceTestSuite) SetupTest() {
	suite.mockLoanRepo = new(MockLoanRepository)
	suite.mockGuarantorRepo = new(MockGuarantorRepository)
	suite.mockMemberRepo = new(MockMemberRepository)
	suite.mockExternalRepo = new(MockExternalBorrowerRepository)
	suite.mockContributionRepo = new(MockContributionRepository)
	suite.publisher = new(RecordingPublisher)
	suite.service = services.NewGuarantorService(
		suite.mockLoanRepo,
		suite.mockGuarantorRepo,
		suite.mockMemberRepo,
		suite.mockExternalRepo,
		suite.mockContributionRepo,
		suite.publisher,
		testPolicy(),
	)
}

func activeExternalBorrower() *domain.ExternalBorrower {
	return &domain.ExternalBorrower{
		ExternalBorrowerID: uuid.NewString(),
		Name:               "Outside Borrower",
		Phone:              "+254700000000",
		IDNumber:           "12345678",
		Status:             domain.ExternalActive,
	}
}

func guaranteedLoan(externalID string, outstanding decimal.Decimal) *domain.Loan {
	return &domain.Loan{
		LoanID:             uuid.NewString(),
		Borrower:           domain.ExternalBorrowerRef(externalID),
		LoanType:           domain.LoanTypeGuaranteed,
		Principal:          outstanding,
		MonthlyRate:        decimal.NewFromFloat(0.10),
		TermMonths:         12,
		TotalAmountDue:     outstanding,
		OutstandingBalance: outstanding,
		Status:             domain.LoanActive,
	}
}

// --- CreateGuaranteedLoan ---

func (suite *GuarantorServiceTestSuite) TestCreateGuaranteedLoan_WithinExposureCeiling() {
	ctx := context.Background()
	actorID := uuid.NewString()
	borrower := activeExternalBorrower()
	guarantorID := uuid.NewString()

	suite.mockExternalRepo.On("FindExternalBorrowerByID", ctx, borrower.ExternalBorrowerID).Return(borrower, nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.MatchedBy(func(loan domain.Loan) bool {
		return loan.LoanType == domain.LoanTypeGuaranteed && loan.Status == domain.LoanPending
	})).Return(nil).Once()
	suite.mockMemberRepo.On("FindMemberByIDForUpdate", ctx, guarantorID).Return(activeMember(guarantorID), nil).Once()
	suite.mockGuarantorRepo.On("ListGuaranteesByMember", ctx, guarantorID).Return([]domain.MemberGuarantee{}, nil).Once()
	// Contributions 10000 x multiplier 3 = ceiling 30000; a 30000 guarantee fits exactly.
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, guarantorID).Return(decimal.NewFromInt(10000), nil).Once()
	suite.mockGuarantorRepo.On("SaveGuarantor", ctx, mock.MatchedBy(func(g domain.LoanGuarantor) bool {
		return g.MemberID == guarantorID && g.Status == domain.GuarantorActive && g.Percentage.Equal(decimal.NewFromInt(100))
	})).Return(nil).Once()

	loan, err := suite.service.CreateGuaranteedLoan(ctx, dto.CreateGuaranteedLoanRequest{
		ExternalBorrowerID: borrower.ExternalBorrowerID,
		Principal:          decimal.NewFromInt(30000),
		MonthlyRate:        decimal.NewFromFloat(0.10),
		Guarantors:         []dto.GuarantorInput{{MemberID: guarantorID}},
	}, actorID)

	suite.Require().NoError(err)
	suite.Require().NotNil(loan)
	suite.Equal(domain.LoanPending, loan.Status)
	suite.Len(loan.Guarantors, 1)
	suite.mockGuarantorRepo.AssertExpectations(suite.T())
}

func (suite *GuarantorServiceTestSuite) TestCreateGuaranteedLoan_ExposureCeilingExceeded() {
	ctx := context.Background()
	borrower := activeExternalBorrower()
	guarantorID := uuid.NewString()

	suite.mockExternalRepo.On("FindExternalBorrowerByID", ctx, borrower.ExternalBorrowerID).Return(borrower, nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("FindMemberByIDForUpdate", ctx, guarantorID).Return(activeMember(guarantorID), nil).Once()
	suite.mockGuarantorRepo.On("ListGuaranteesByMember", ctx, guarantorID).Return([]domain.MemberGuarantee{}, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, guarantorID).Return(decimal.NewFromInt(10000), nil).Once()

	loan, err := suite.service.CreateGuaranteedLoan(ctx, dto.CreateGuaranteedLoanRequest{
		ExternalBorrowerID: borrower.ExternalBorrowerID,
		Principal:          decimal.NewFromInt(30001),
		MonthlyRate:        decimal.NewFromFloat(0.10),
		Guarantors:         []dto.GuarantorInput{{MemberID: guarantorID}},
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrExposureExceeded)
	suite.mockGuarantorRepo.AssertNotCalled(suite.T(), "SaveGuarantor", mock.Anything, mock.Anything)
}

func (suite *GuarantorServiceTestSuite) TestCreateGuaranteedLoan_CountsExistingExposure() {
	ctx := context.Background()
	borrower := activeExternalBorrower()
	guarantorID := uuid.NewString()
	existing := []domain.MemberGuarantee{{
		Guarantor: domain.LoanGuarantor{
			MemberID:   guarantorID,
			Percentage: decimal.NewFromInt(100),
			Status:     domain.GuarantorActive,
		},
		LoanStatus:      domain.LoanActive,
		LoanOutstanding: decimal.NewFromInt(25000),
	}}

	suite.mockExternalRepo.On("FindExternalBorrowerByID", ctx, borrower.ExternalBorrowerID).Return(borrower, nil).Once()
	suite.mockLoanRepo.On("SaveLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()
	suite.mockMemberRepo.On("FindMemberByIDForUpdate", ctx, guarantorID).Return(activeMember(guarantorID), nil).Once()
	suite.mockGuarantorRepo.On("ListGuaranteesByMember", ctx, guarantorID).Return(existing, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, guarantorID).Return(decimal.NewFromInt(10000), nil).Once()

	// 25000 existing + 10000 new > 30000 ceiling.
	loan, err := suite.service.CreateGuaranteedLoan(ctx, dto.CreateGuaranteedLoanRequest{
		ExternalBorrowerID: borrower.ExternalBorrowerID,
		Principal:          decimal.NewFromInt(10000),
		MonthlyRate:        decimal.NewFromFloat(0.10),
		Guarantors:         []dto.GuarantorInput{{MemberID: guarantorID}},
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrExposureExceeded)
}

func (suite *GuarantorServiceTestSuite) TestCreateGuaranteedLoan_InactiveBorrower() {
	ctx := context.Background()
	borrower := activeExternalBorrower()
	borrower.Status = domain.ExternalBlacklisted

	suite.mockExternalRepo.On("FindExternalBorrowerByID", ctx, borrower.ExternalBorrowerID).Return(borrower, nil).Once()

	loan, err := suite.service.CreateGuaranteedLoan(ctx, dto.CreateGuaranteedLoanRequest{
		ExternalBorrowerID: borrower.ExternalBorrowerID,
		Principal:          decimal.NewFromInt(1000),
		MonthlyRate:        decimal.NewFromFloat(0.10),
		Guarantors:         []dto.GuarantorInput{{MemberID: uuid.NewString()}},
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(loan)
	suite.ErrorIs(err, services.ErrBorrowerNotActive)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "SaveLoan", mock.Anything, mock.Anything)
}

func (suite *GuarantorServiceTestSuite) TestCreateGuaranteedLoan_NoGuarantors() {
	loan, err := suite.service.CreateGuaranteedLoan(context.Background(), dto.CreateGuaranteedLoanRequest{
		ExternalBorrowerID: uuid.NewString(),
		Principal:          decimal.NewFromInt(1000),
		MonthlyRate:        decimal.NewFromFloat(0.10),
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(loan)
}

// --- Exposure ---

func (suite *GuarantorServiceTestSuite) TestGuarantorExposure_SumsOnlyLiveGuarantees() {
	ctx := context.Background()
	memberID := uuid.NewString()
	guarantees := []domain.MemberGuarantee{
		{
			Guarantor:       domain.LoanGuarantor{MemberID: memberID, Percentage: decimal.NewFromInt(100), Status: domain.GuarantorActive},
			LoanStatus:      domain.LoanActive,
			LoanOutstanding: decimal.NewFromInt(5000),
		},
		{
			// Released guarantor carries no exposure.
			Guarantor:       domain.LoanGuarantor{MemberID: memberID, Percentage: decimal.NewFromInt(100), Status: domain.GuarantorReleased},
			LoanStatus:      domain.LoanActive,
			LoanOutstanding: decimal.NewFromInt(9000),
		},
		{
			// Paid-off loan carries no exposure.
			Guarantor:       domain.LoanGuarantor{MemberID: memberID, Percentage: decimal.NewFromInt(100), Status: domain.GuarantorActive},
			LoanStatus:      domain.LoanPaidOff,
			LoanOutstanding: decimal.Zero,
		},
	}

	suite.mockMemberRepo.On("FindMemberByID", ctx, memberID).Return(activeMember(memberID), nil).Once()
	suite.mockGuarantorRepo.On("ListGuaranteesByMember", ctx, memberID).Return(guarantees, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, memberID).Return(decimal.NewFromInt(10000), nil).Once()

	current, ceiling, err := suite.service.GuarantorExposure(ctx, memberID)

	suite.Require().NoError(err)
	suite.True(current.Equal(decimal.NewFromInt(5000)), "got %s", current)
	suite.True(ceiling.Equal(decimal.NewFromInt(30000)))
}

// --- TransferLiability ---

func (suite *GuarantorServiceTestSuite) TestTransferLiability_SplitsByPercentage() {
	ctx := context.Background()
	actorID := uuid.NewString()
	borrower := activeExternalBorrower()
	loan := guaranteedLoan(borrower.ExternalBorrowerID, decimal.NewFromInt(20000))
	minor := domain.LoanGuarantor{
		GuarantorID: uuid.NewString(),
		LoanID:      loan.LoanID,
		MemberID:    uuid.NewString(),
		Percentage:  decimal.NewFromInt(40),
		Status:      domain.GuarantorActive,
	}
	primary := domain.LoanGuarantor{
		GuarantorID: uuid.NewString(),
		LoanID:      loan.LoanID,
		MemberID:    uuid.NewString(),
		Percentage:  decimal.NewFromInt(60),
		Status:      domain.GuarantorActive,
	}

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockGuarantorRepo.On("ListGuarantorsByLoan", ctx, loan.LoanID).Return([]domain.LoanGuarantor{minor, primary}, nil).Once()
	suite.mockGuarantorRepo.On("UpdateGuarantor", ctx, mock.AnythingOfType("domain.LoanGuarantor")).Return(nil).Twice()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.MatchedBy(func(l domain.Loan) bool {
		return l.Status == domain.LoanDefaulted
	})).Return(nil).Once()

	liable, err := suite.service.TransferLiability(ctx, loan.LoanID, actorID)

	suite.Require().NoError(err)
	suite.Require().Len(liable, 2)
	// Primary guarantor (60%) is allocated first.
	suite.Equal(primary.GuarantorID, liable[0].GuarantorID)
	suite.True(liable[0].AmountPaidOnBehalf.Equal(decimal.NewFromInt(12000)), "got %s", liable[0].AmountPaidOnBehalf)
	suite.True(liable[1].AmountPaidOnBehalf.Equal(decimal.NewFromInt(8000)), "got %s", liable[1].AmountPaidOnBehalf)
	suite.Equal(domain.GuarantorDefaulted, liable[0].Status)
	suite.Equal(domain.GuarantorDefaulted, liable[1].Status)

	// loan.defaulted plus one guarantor.defaulted per liable guarantor.
	suite.Require().Len(suite.publisher.events, 3)
	suite.Equal(domain.EventLoanDefaulted, suite.publisher.events[0].Kind)
	suite.Equal(domain.EventGuarantorDefaulted, suite.publisher.events[1].Kind)
}

func (suite *GuarantorServiceTestSuite) TestTransferLiability_CapsAtOutstanding() {
	ctx := context.Background()
	borrower := activeExternalBorrower()
	loan := guaranteedLoan(borrower.ExternalBorrowerID, decimal.NewFromInt(10000))
	// Both guarantee 100%; the second only covers what remains.
	full := decimal.NewFromInt(10000)
	first := domain.LoanGuarantor{
		GuarantorID:      uuid.NewString(),
		LoanID:           loan.LoanID,
		MemberID:         uuid.NewString(),
		GuaranteedAmount: &full,
		Percentage:       decimal.NewFromInt(100),
		Status:           domain.GuarantorActive,
	}
	second := domain.LoanGuarantor{
		GuarantorID: uuid.NewString(),
		LoanID:      loan.LoanID,
		MemberID:    uuid.NewString(),
		Percentage:  decimal.NewFromInt(100),
		Status:      domain.GuarantorActive,
	}

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockGuarantorRepo.On("ListGuarantorsByLoan", ctx, loan.LoanID).Return([]domain.LoanGuarantor{first, second}, nil).Once()
	suite.mockGuarantorRepo.On("UpdateGuarantor", ctx, mock.AnythingOfType("domain.LoanGuarantor")).Return(nil).Once()
	suite.mockLoanRepo.On("UpdateLoan", ctx, mock.AnythingOfType("domain.Loan")).Return(nil).Once()

	liable, err := suite.service.TransferLiability(ctx, loan.LoanID, uuid.NewString())

	suite.Require().NoError(err)
	suite.Require().Len(liable, 1, "allocation stops once the outstanding balance is covered")
	suite.True(liable[0].AmountPaidOnBehalf.Equal(decimal.NewFromInt(10000)))
}

func (suite *GuarantorServiceTestSuite) TestTransferLiability_NoActiveGuarantors() {
	ctx := context.Background()
	borrower := activeExternalBorrower()
	loan := guaranteedLoan(borrower.ExternalBorrowerID, decimal.NewFromInt(5000))
	released := domain.LoanGuarantor{
		GuarantorID: uuid.NewString(),
		LoanID:      loan.LoanID,
		MemberID:    uuid.NewString(),
		Percentage:  decimal.NewFromInt(100),
		Status:      domain.GuarantorReleased,
	}

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()
	suite.mockGuarantorRepo.On("ListGuarantorsByLoan", ctx, loan.LoanID).Return([]domain.LoanGuarantor{released}, nil).Once()

	liable, err := suite.service.TransferLiability(ctx, loan.LoanID, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(liable)
	suite.ErrorIs(err, services.ErrNoActiveGuarantors)
	suite.mockLoanRepo.AssertNotCalled(suite.T(), "UpdateLoan", mock.Anything, mock.Anything)
}

func (suite *GuarantorServiceTestSuite) TestTransferLiability_RejectsNonGuaranteedLoan() {
	ctx := context.Background()
	loan := serviceableLoan(uuid.NewString(), decimal.NewFromInt(1000), decimal.Zero, decimal.Zero, decimal.Zero)

	suite.mockLoanRepo.On("FindLoanByIDForUpdate", ctx, loan.LoanID).Return(loan, nil).Once()

	liable, err := suite.service.TransferLiability(ctx, loan.LoanID, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(liable)
	suite.ErrorIs(err, services.ErrLoanNotGuaranteed)
}

func TestGuarantorServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GuarantorServiceTestSuite))
}
