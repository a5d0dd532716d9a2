package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/harambee-apps/table_banking_app/internal/apperrors"
	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/harambee-apps/table_banking_app/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMemberNotActive    = errors.New("member is not active")
)

// memberService manages the member and external-borrower directory.
type memberService struct {
	memberRepo       portsrepo.MemberRepositoryFacade
	externalRepo     portsrepo.ExternalBorrowerRepositoryFacade
	contributionRepo portsrepo.ContributionReader
}

// NewMemberService creates a new MemberService.
func NewMemberService(
	memberRepo portsrepo.MemberRepositoryFacade,
	externalRepo portsrepo.ExternalBorrowerRepositoryFacade,
	contributionRepo portsrepo.ContributionReader,
) portssvc.MemberSvcFacade {
	return &memberService{
		memberRepo:       memberRepo,
		externalRepo:     externalRepo,
		contributionRepo: contributionRepo,
	}
}

// Ensure memberService implements the facade interface
var _ portssvc.MemberSvcFacade = (*memberService)(nil)

// CreateMember registers a new active member with a hashed password.
// Implements portssvc.MemberSvcFacade
func (s *memberService) CreateMember(ctx context.Context, req dto.CreateMemberRequest, actorID string) (*domain.Member, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.memberRepo.FindMemberByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email %s is already registered", apperrors.ErrDuplicate, email)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	member := domain.Member{
		MemberID:           uuid.NewString(),
		Name:               req.Name,
		Email:              email,
		Phone:              req.Phone,
		PasswordHash:       string(hash),
		Status:             domain.MemberActive,
		TotalContributions: decimal.Zero,
		TotalLoansTaken:    decimal.Zero,
		LoanOutstanding:    decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	if err := s.memberRepo.SaveMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}

	logger.Info("Member created", slog.String("member_id", member.MemberID), slog.String("email", member.Email))
	return &member, nil
}

// GetMemberByID retrieves a member.
// Implements portssvc.MemberSvcFacade
func (s *memberService) GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error) {
	member, err := s.memberRepo.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	return member, nil
}

// ListMembers retrieves members ordered by name.
// Implements portssvc.MemberSvcFacade
func (s *memberService) ListMembers(ctx context.Context, limit, offset int) ([]domain.Member, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.memberRepo.ListMembers(ctx, limit, offset)
}

// DeactivateMember transitions a member to INACTIVE. Their guarantees and
// loans are unaffected; an inactive member simply cannot borrow or
// guarantee anew.
// Implements portssvc.MemberSvcFacade
func (s *memberService) DeactivateMember(ctx context.Context, memberID string, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	member, err := s.memberRepo.FindMemberByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	if !member.IsActive() {
		return fmt.Errorf("%w: member %s is %s", ErrMemberNotActive, memberID, member.Status)
	}

	now := time.Now().UTC()
	member.Status = domain.MemberInactive
	member.LastUpdatedAt = now
	member.LastUpdatedBy = actorID
	if err := s.memberRepo.UpdateMember(ctx, *member); err != nil {
		return fmt.Errorf("failed to update member %s: %w", memberID, err)
	}

	logger.Info("Member deactivated", slog.String("member_id", memberID))
	return nil
}

// ContributionTotal returns the member's paid-in contribution total.
// Implements portssvc.MemberSvcFacade
func (s *memberService) ContributionTotal(ctx context.Context, memberID string) (decimal.Decimal, error) {
	if _, err := s.memberRepo.FindMemberByID(ctx, memberID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to find member %s: %w", memberID, err)
	}
	total, err := s.contributionRepo.SumPaidContributionsByMember(ctx, memberID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to total contributions for member %s: %w", memberID, err)
	}
	return total, nil
}

// Authenticate verifies credentials. Lookup and comparison failures both
// map to ErrInvalidCredentials so callers cannot enumerate registered
// emails.
// Implements portssvc.MemberSvcFacade
func (s *memberService) Authenticate(ctx context.Context, email, password string) (*domain.Member, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	member, err := s.memberRepo.FindMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up member: %w", err)
	}
	if !member.IsActive() {
		return nil, fmt.Errorf("%w: member %s is %s", ErrMemberNotActive, member.MemberID, member.Status)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		logger.Warn("Failed login attempt", slog.String("member_id", member.MemberID))
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

// CreateExternalBorrower registers a non-member borrower in ACTIVE status.
// Implements portssvc.MemberSvcFacade
func (s *memberService) CreateExternalBorrower(ctx context.Context, req dto.CreateExternalBorrowerRequest, actorID string) (*domain.ExternalBorrower, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	borrower := domain.ExternalBorrower{
		ExternalBorrowerID: uuid.NewString(),
		Name:               req.Name,
		Phone:              req.Phone,
		IDNumber:           req.IDNumber,
		Status:             domain.ExternalActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}
	if err := s.externalRepo.SaveExternalBorrower(ctx, borrower); err != nil {
		return nil, fmt.Errorf("failed to save external borrower: %w", err)
	}

	logger.Info("External borrower created", slog.String("external_borrower_id", borrower.ExternalBorrowerID))
	return &borrower, nil
}

// GetExternalBorrowerByID retrieves an external borrower.
// Implements portssvc.MemberSvcFacade
func (s *memberService) GetExternalBorrowerByID(ctx context.Context, externalID string) (*domain.ExternalBorrower, error) {
	borrower, err := s.externalRepo.FindExternalBorrowerByID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to find external borrower %s: %w", externalID, err)
	}
	return borrower, nil
}

// ListExternalBorrowers retrieves external borrowers ordered by name.
// Implements portssvc.MemberSvcFacade
func (s *memberService) ListExternalBorrowers(ctx context.Context, limit, offset int) ([]domain.ExternalBorrower, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.externalRepo.ListExternalBorrowers(ctx, limit, offset)
}
