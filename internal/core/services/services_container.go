package services

import (
	portsrepo "github.com/harambee-apps/table_banking_app/internal/core/ports/repositories"
	portssvc "github.com/harambee-apps/table_banking_app/internal/core/ports/services"
	"github.com/harambee-apps/table_banking_app/pkg/config"
)

// NewServiceContainer wires all application services against the provided
// repositories, event publisher and policy configuration.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, publisher portssvc.EventPublisher, cfg *config.Config) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Loan: NewLoanService(
			repos.LoanRepo,
			repos.MemberRepo,
			repos.ExternalRepo,
			repos.ContributionRepo,
			repos.GuarantorRepo,
			repos.LedgerRepo,
			repos.SequenceRepo,
			publisher,
			cfg.Policy,
		),
		Contribution: NewContributionService(
			repos.ContributionRepo,
			repos.LoanRepo,
			repos.MemberRepo,
			publisher,
			cfg.Policy,
		),
		Guarantor: NewGuarantorService(
			repos.LoanRepo,
			repos.GuarantorRepo,
			repos.MemberRepo,
			repos.ExternalRepo,
			repos.ContributionRepo,
			publisher,
			cfg.Policy,
		),
		Member: NewMemberService(
			repos.MemberRepo,
			repos.ExternalRepo,
			repos.ContributionRepo,
		),
	}
}
