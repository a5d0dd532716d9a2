package services

import (
	"context"

	"github.com/harambee-apps/table_banking_app/internal/core/domain"
	"github.com/harambee-apps/table_banking_app/internal/dto"
	"github.com/shopspring/decimal"
)

// MemberSvcFacade exposes the member and external-borrower directory.
type MemberSvcFacade interface {
	// CreateMember registers a new active member.
	CreateMember(ctx context.Context, req dto.CreateMemberRequest, actorID string) (*domain.Member, error)

	// GetMemberByID retrieves a member.
	GetMemberByID(ctx context.Context, memberID string) (*domain.Member, error)

	// ListMembers retrieves members ordered by name.
	ListMembers(ctx context.Context, limit, offset int) ([]domain.Member, error)

	// DeactivateMember transitions a member to INACTIVE.
	DeactivateMember(ctx context.Context, memberID string, actorID string) error

	// ContributionTotal returns the member's paid-in contribution total,
	// the base for lending and exposure caps.
	ContributionTotal(ctx context.Context, memberID string) (decimal.Decimal, error)

	// Authenticate verifies credentials and returns the member on success.
	Authenticate(ctx context.Context, email, password string) (*domain.Member, error)

	// CreateExternalBorrower registers a non-member borrower.
	CreateExternalBorrower(ctx context.Context, req dto.CreateExternalBorrowerRequest, actorID string) (*domain.ExternalBorrower, error)

	// GetExternalBorrowerByID retrieves an external borrower.
	GetExternalBorrowerByID(ctx context.Context, externalID string) (*domain.ExternalBorrower, error)

	// ListExternalBorrowers retrieves external borrowers ordered by name.
	ListExternalBorrowers(ctx context.Context, limit, offset int) ([]domain.ExternalBorrower, error)
}
