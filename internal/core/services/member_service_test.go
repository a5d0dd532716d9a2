package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/core/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
)

type MemberServiceTestSuite struct {
	suite.Suite
	mockMemberRepo       *MockMemberRepository
	mockExternalRepo     *MockExternalBorrowerRepository
	mockContributionRepo *MockContributionRepository
	service              portssvc.MemberSvcFacade
}

func (suite *MemberServiceTestSuite) SetupTest() {
	suite.mockMemberRepo = new(MockMemberRepository)
	suite.mockExternalRepo = new(MockExternalBorrowerRepository)
	suite.mockContributionRepo = new(MockContributionRepository)
	suite.service = services.NewMemberService(
		suite.mockMemberRepo,
		suite.mockExternalRepo,
		suite.mockContributionRepo,
	)
}

func (suite *MemberServiceTestSuite) TestCreateMember_Success() {
	ctx := context.Background()
	actorID := uuid.NewString()

	suite.mockMemberRepo.On("FindMemberByEmail", ctx, "jane@example.com").Return(nil, apperrors.ErrNotFound).Once()
	suite.mockMemberRepo.On("SaveMember", ctx, mock.AnythingOfType("domain.Member")).Return(nil).Once()

	member, err := suite.service.CreateMember(ctx, dto.CreateMemberRequest{
		Name:     "Jane",
		Email:    " Jane@Example.com ",
		Phone:    "+254700000001",
		Password: "s3cret-password",
	}, actorID)

	suite.Require().NoError(err)
	suite.Equal("jane@example.com", member.Email)
	suite.Equal(domain.MemberActive, member.Status)
	suite.True(member.TotalContributions.IsZero())
	suite.NotEqual("s3cret-password", member.PasswordHash)
	suite.NoError(bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte("s3cret-password")))
	suite.mockMemberRepo.AssertExpectations(suite.T())
}

func (suite *MemberServiceTestSuite) TestCreateMember_DuplicateEmail() {
	ctx := context.Background()
	existing := activeMember(uuid.NewString())
	existing.Email = "taken@example.com"

	suite.mockMemberRepo.On("FindMemberByEmail", ctx, "taken@example.com").Return(existing, nil).Once()

	member, err := suite.service.CreateMember(ctx, dto.CreateMemberRequest{
		Name:     "Copy",
		Email:    "taken@example.com",
		Phone:    "+254700000002",
		Password: "s3cret-password",
	}, uuid.NewString())

	suite.Require().Error(err)
	suite.Nil(member)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockMemberRepo.AssertNotCalled(suite.T(), "SaveMember", mock.Anything, mock.Anything)
}

func (suite *MemberServiceTestSuite) TestAuthenticate_Success() {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	suite.Require().NoError(err)
	member := activeMember(uuid.NewString())
	member.PasswordHash = string(hash)

	suite.mockMemberRepo.On("FindMemberByEmail", ctx, "member@example.com").Return(member, nil).Once()

	found, err := suite.service.Authenticate(ctx, "member@example.com", "correct-horse")

	suite.Require().NoError(err)
	suite.Equal(member.MemberID, found.MemberID)
}

func (suite *MemberServiceTestSuite) TestAuthenticate_WrongPassword() {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	suite.Require().NoError(err)
	member := activeMember(uuid.NewString())
	member.PasswordHash = string(hash)

	suite.mockMemberRepo.On("FindMemberByEmail", ctx, "member@example.com").Return(member, nil).Once()

	found, err := suite.service.Authenticate(ctx, "member@example.com", "wrong")

	suite.Require().Error(err)
	suite.Nil(found)
	suite.ErrorIs(err, services.ErrInvalidCredentials)
}

func (suite *MemberServiceTestSuite) TestAuthenticate_UnknownEmailMapsToInvalidCredentials() {
	ctx := context.Background()

	suite.mockMemberRepo.On("FindMemberByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound).Once()

	found, err := suite.service.Authenticate(ctx, "ghost@example.com", "anything")

	suite.Require().Error(err)
	suite.Nil(found)
	suite.ErrorIs(err, services.ErrInvalidCredentials)
}

func (suite *MemberServiceTestSuite) TestDeactivateMember() {
	ctx := context.Background()
	member := activeMember(uuid.NewString())

	suite.mockMemberRepo.On("FindMemberByID", ctx, member.MemberID).Return(member, nil).Once()
	suite.mockMemberRepo.On("UpdateMember", ctx, mock.MatchedBy(func(m domain.Member) bool {
		return m.Status == domain.MemberInactive
	})).Return(nil).Once()

	err := suite.service.DeactivateMember(ctx, member.MemberID, uuid.NewString())

	suite.Require().NoError(err)
	suite.mockMemberRepo.AssertExpectations(suite.T())
}

func (suite *MemberServiceTestSuite) TestContributionTotal() {
	ctx := context.Background()
	member := activeMember(uuid.NewString())

	suite.mockMemberRepo.On("FindMemberByID", ctx, member.MemberID).Return(member, nil).Once()
	suite.mockContributionRepo.On("SumPaidContributionsByMember", ctx, member.MemberID).Return(decimal.NewFromInt(7500), nil).Once()

	total, err := suite.service.ContributionTotal(ctx, member.MemberID)

	suite.Require().NoError(err)
	suite.True(total.Equal(decimal.NewFromInt(7500)))
}

func (suite *MemberServiceTestSuite) TestCreateExternalBorrower() {
	ctx := context.Background()

	suite.mockExternalRepo.On("SaveExternalBorrower", ctx, mock.MatchedBy(func(b domain.ExternalBorrower) bool {
		return b.Status == domain.ExternalActive && b.IDNumber == "87654321"
	})).Return(nil).Once()

	borrower, err := suite.service.CreateExternalBorrower(ctx, dto.CreateExternalBorrowerRequest{
		Name:     "Outside",
		Phone:    "+254711111111",
		IDNumber: "87654321",
	}, uuid.NewString())

	suite.Require().NoError(err)
	suite.NotEmpty(borrower.ExternalBorrowerID)
	suite.mockExternalRepo.AssertExpectations(suite.T())
}

func TestMemberServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MemberServiceTestSuite))
}
