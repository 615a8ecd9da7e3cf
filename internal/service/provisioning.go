package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// KycClient answers whether a customer's KYC verification is complete.
type KycClient interface {
	IsVerified(ctx context.Context, customerID int64) (bool, error)
}

// ProvisioningService ensures a verified customer ends up with exactly one
// CURRENT and one SAVINGS account, no matter how often the verification
// signal is delivered or how many triggers race.
type ProvisioningService struct {
	accounts  *AccountService
	store     domain.Store
	customers CustomerClient
	kyc       KycClient
	seeds     map[domain.AccountType]decimal.Decimal
	logger    *slog.Logger
}

func NewProvisioningService(
	accounts *AccountService,
	store domain.Store,
	customers CustomerClient,
	kyc KycClient,
	seedCurrent, seedSavings decimal.Decimal,
	logger *slog.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		accounts:  accounts,
		store:     store,
		customers: customers,
		kyc:       kyc,
		seeds: map[domain.AccountType]decimal.Decimal{
			domain.TypeCurrent: seedCurrent,
			domain.TypeSavings: seedSavings,
		},
		logger: logger,
	}
}

// Provision creates whichever of the two account types the customer is
// missing, each at its configured seed balance. A DuplicateAccount outcome
// means a concurrent trigger won the race and is treated as success; any
// other failure is reported after both types have been attempted. The
// resulting account set is returned.
func (p *ProvisioningService) Provision(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	exists, err := p.customers.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAppErrorf(errors.CustomerNotFound, "customer %d not found", customerID)
	}

	verified, err := p.kyc.IsVerified(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, errors.NewAppErrorf(errors.InvalidAccountOperation,
			"customer %d has not completed KYC verification", customerID)
	}

	existing, err := p.store.Accounts().ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	have := make(map[domain.AccountType]bool, len(existing))
	for _, account := range existing {
		have[account.AccountType] = true
	}

	var firstErr error
	for _, accountType := range []domain.AccountType{domain.TypeCurrent, domain.TypeSavings} {
		if have[accountType] {
			p.logger.Info("account already provisioned",
				"customer_id", customerID, "account_type", accountType)
			continue
		}

		_, err := p.accounts.create(ctx, customerID, accountType, p.seeds[accountType])
		if err != nil {
			if errors.IsCode(err, errors.DuplicateAccount) {
				// A concurrent trigger created it first; that is success.
				p.logger.Info("lost provisioning race, account exists",
					"customer_id", customerID, "account_type", accountType)
				continue
			}
			p.logger.Error("provisioning failed for account type",
				"customer_id", customerID, "account_type", accountType, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.logger.Info("account provisioned",
			"customer_id", customerID, "account_type", accountType,
			"seed_balance", p.seeds[accountType].StringFixed(2))
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return p.store.Accounts().ListByCustomer(ctx, customerID)
}
