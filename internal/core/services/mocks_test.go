package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
)

// --- MockLoanRepository implements repositories.LoanRepositoryWithTx ---

type MockLoanRepository struct {
	mock.Mock
}

// WithTx runs the function directly; transaction mechanics are covered by
// the pgsql adapter, not the service tests.
func (m *MockLoanRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (m *MockLoanRepository) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindLoanByIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListLoans(ctx context.Context, status domain.LoanStatus, memberID string, limit, offset int) ([]domain.Loan, error) {
	args := m.Called(ctx, status, memberID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListServiceableLoanIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLoanRepository) CountActiveLoansForBorrower(ctx context.Context, borrower domain.BorrowerRef) (int, error) {
	args := m.Called(ctx, borrower)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) UpdateLoan(ctx context.Context, loan domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) LatestAccrualDate(ctx context.Context, loanID string) (*time.Time, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockLoanRepository) ListAccrualsByLoan(ctx context.Context, loanID string) ([]domain.InterestAccrual, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InterestAccrual), args.Error(1)
}

func (m *MockLoanRepository) SaveAccrual(ctx context.Context, accrual domain.InterestAccrual) error {
	args := m.Called(ctx, accrual)
	return args.Error(0)
}

func (m *MockLoanRepository) ListRepaymentsByLoan(ctx context.Context, loanID string) ([]domain.Repayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repayment), args.Error(1)
}

func (m *MockLoanRepository) NextRepaymentSequence(ctx context.Context, loanID string) (int, error) {
	args := m.Called(ctx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) SaveRepayment(ctx context.Context, repayment domain.Repayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

// --- MockMemberRepository implements repositories.MemberRepositoryFacade ---

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) FindMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) FindMemberByIDForUpdate(ctx context.Context, memberID string) (*domain.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) ListMembers(ctx context.Context, limit, offset int) ([]domain.Member, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Member), args.Error(1)
}

func (m *MockMemberRepository) SaveMember(ctx context.Context, member domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) UpdateMember(ctx context.Context, member domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) AdjustMemberTotals(ctx context.Context, memberID string, contributionsDelta, loansTakenDelta, outstandingDelta decimal.Decimal, updatedBy string, now time.Time) error {
	args := m.Called(ctx, memberID, contributionsDelta, loansTakenDelta, outstandingDelta, updatedBy, now)
	return args.Error(0)
}

// --- MockExternalBorrowerRepository implements repositories.ExternalBorrowerRepositoryFacade ---

type MockExternalBorrowerRepository struct {
	mock.Mock
}

func (m *MockExternalBorrowerRepository) FindExternalBorrowerByID(ctx context.Context, externalID string) (*domain.ExternalBorrower, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExternalBorrower), args.Error(1)
}

func (m *MockExternalBorrowerRepository) ListExternalBorrowers(ctx context.Context, limit, offset int) ([]domain.ExternalBorrower, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExternalBorrower), args.Error(1)
}

func (m *MockExternalBorrowerRepository) SaveExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error {
	args := m.Called(ctx, borrower)
	return args.Error(0)
}

func (m *MockExternalBorrowerRepository) UpdateExternalBorrower(ctx context.Context, borrower domain.ExternalBorrower) error {
	args := m.Called(ctx, borrower)
	return args.Error(0)
}

// --- MockContributionRepository implements repositories.ContributionRepositoryWithTx ---

type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (m *MockContributionRepository) FindCycleByID(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockContributionRepository) FindCycleByIDForUpdate(ctx context.Context, cycleID string) (*domain.ContributionCycle, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContributionCycle), args.Error(1)
}

func (m *MockContributionRepository) ListPastDueOpenCycles(ctx context.Context, now time.Time) ([]domain.ContributionCycle, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContributionCycle), args.Error(1)
}

func (m *MockContributionRepository) ListCycles(ctx context.Context, limit, offset int) ([]domain.ContributionCycle, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContributionCycle), args.Error(1)
}

func (m *MockContributionRepository) SaveCycle(ctx context.Context, cycle domain.ContributionCycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

func (m *MockContributionRepository) MarkCycleProcessed(ctx context.Context, cycleID string, processedAt time.Time, updatedBy string) error {
	args := m.Called(ctx, cycleID, processedAt, updatedBy)
	return args.Error(0)
}

func (m *MockContributionRepository) FindContributionByIDForUpdate(ctx context.Context, contributionID string) (*domain.Contribution, error) {
	args := m.Called(ctx, contributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListContributionsByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) ListUnpaidByCycle(ctx context.Context, cycleID string) ([]domain.Contribution, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Contribution), args.Error(1)
}

func (m *MockContributionRepository) SumPaidContributionsByMember(ctx context.Context, memberID string) (decimal.Decimal, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockContributionRepository) SaveContribution(ctx context.Context, contribution domain.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) UpdateContribution(ctx context.Context, contribution domain.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

// --- MockGuarantorRepository implements repositories.GuarantorRepositoryFacade ---

type MockGuarantorRepository struct {
	mock.Mock
}

func (m *MockGuarantorRepository) FindGuarantorByID(ctx context.Context, guarantorID string) (*domain.LoanGuarantor, error) {
	args := m.Called(ctx, guarantorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanGuarantor), args.Error(1)
}

func (m *MockGuarantorRepository) ListGuarantorsByLoan(ctx context.Context, loanID string) ([]domain.LoanGuarantor, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanGuarantor), args.Error(1)
}

func (m *MockGuarantorRepository) ListGuaranteesByMember(ctx context.Context, memberID string) ([]domain.MemberGuarantee, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemberGuarantee), args.Error(1)
}

func (m *MockGuarantorRepository) SaveGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error {
	args := m.Called(ctx, guarantor)
	return args.Error(0)
}

func (m *MockGuarantorRepository) UpdateGuarantor(ctx context.Context, guarantor domain.LoanGuarantor) error {
	args := m.Called(ctx, guarantor)
	return args.Error(0)
}

// --- MockLedgerRepository implements repositories.LedgerRepositoryFacade ---

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) SaveEntry(ctx context.Context, entry domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) ListEntriesByLoan(ctx context.Context, loanID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

// --- MockSequenceRepository implements repositories.SequenceRepository ---

type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) NextReference(ctx context.Context, kind string, date time.Time) (string, error) {
	args := m.Called(ctx, kind, date)
	return args.String(0), args.Error(1)
}

// --- RecordingPublisher captures published events ---

type RecordingPublisher struct {
	events []domain.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}
