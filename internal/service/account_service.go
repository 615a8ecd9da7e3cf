package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// maxCreateRetries bounds re-inserts after losing an account-number race to
// a concurrent writer. Each retry generates a fresh number.
const maxCreateRetries = 3

// CustomerClient answers whether a customer id is known to the customer
// service.
type CustomerClient interface {
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
}

// AccountService orchestrates the account lifecycle: creation, reads,
// status changes and balance changes. Authorization is checked before
// existence, existence before invariants, so an unauthorized caller never
// learns whether a resource exists.
type AccountService struct {
	store     domain.Store
	customers CustomerClient
	numbers   *AccountNumberGenerator
	logger    *slog.Logger
}

func NewAccountService(store domain.Store, customers CustomerClient, numbers *AccountNumberGenerator, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:     store,
		customers: customers,
		numbers:   numbers,
		logger:    logger,
	}
}

// Create opens an account of the given type for a customer. Customers may
// only create for themselves and must fund at least the type minimum;
// admins may seed any non-negative balance.
func (s *AccountService) Create(ctx context.Context, p domain.Principal, customerID int64, accountType domain.AccountType, initialBalance decimal.Decimal) (*domain.Account, error) {
	if !p.IsAdmin() && !p.Owns(customerID) {
		return nil, errors.NewAppError(errors.Unauthorized, "customers can only create accounts for themselves")
	}
	if initialBalance.IsNegative() {
		return nil, errors.NewAppError(errors.InvalidBalance, "initial balance cannot be negative")
	}
	if !p.IsAdmin() {
		if minimum := accountType.MinimumBalance(); initialBalance.LessThan(minimum) {
			return nil, errors.NewAppErrorf(errors.InvalidBalance,
				"initial balance %s is below the %s minimum of %s",
				initialBalance.StringFixed(2), accountType, minimum.StringFixed(2))
		}
	}

	exists, err := s.customers.CustomerExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAppErrorf(errors.CustomerNotFound, "customer %d not found", customerID)
	}

	return s.create(ctx, customerID, accountType, initialBalance)
}

// create persists a new ACTIVE account. The duplicate check is an early
// exit; the unique constraints on (customer_id, account_type) and on the
// account number close the race at commit time.
func (s *AccountService) create(ctx context.Context, customerID int64, accountType domain.AccountType, balance decimal.Decimal) (*domain.Account, error) {
	exists, err := s.store.Accounts().ExistsByCustomerAndType(ctx, customerID, accountType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewAppErrorf(errors.DuplicateAccount,
			"customer %d already has a %s account", customerID, accountType)
	}

	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		number, err := s.numbers.Generate(ctx, accountType)
		if err != nil {
			return nil, err
		}

		account := &domain.Account{
			ID:            uuid.New(),
			CustomerID:    customerID,
			AccountNumber: number,
			AccountType:   accountType,
			Status:        domain.StatusActive,
			Balance:       balance,
		}

		err = s.store.WithTransaction(ctx, func(st domain.Store) error {
			return st.Accounts().Create(ctx, account)
		})
		if errors.IsCode(err, errors.DuplicateAccountNumber) {
			// Lost the number to a concurrent creation; pick a new one.
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("account created",
			"account_id", account.ID, "customer_id", customerID, "account_type", accountType)
		return account, nil
	}
	return nil, errors.ErrAccountNumberExhausted
}

// Get returns one account, admin or owner only.
func (s *AccountService) Get(ctx context.Context, p domain.Principal, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Owns(account.CustomerID) {
		return nil, errors.NewAppErrorf(errors.Unauthorized, "access denied to account %s", accountID)
	}
	return account, nil
}

// GetByType returns the caller's own account of one type.
func (s *AccountService) GetByType(ctx context.Context, p domain.Principal, accountType domain.AccountType) (*domain.Account, error) {
	return s.store.Accounts().GetByCustomerAndType(ctx, p.UserID, accountType)
}

// ListByCustomer returns all accounts of a customer, admin or self only.
func (s *AccountService) ListByCustomer(ctx context.Context, p domain.Principal, customerID int64) ([]*domain.Account, error) {
	if !p.IsAdmin() && !p.Owns(customerID) {
		return nil, errors.NewAppError(errors.Unauthorized, "customers can only view their own accounts")
	}
	return s.store.Accounts().ListByCustomer(ctx, customerID)
}

// ListAll is an admin-only read across all accounts, optionally filtered.
func (s *AccountService) ListAll(ctx context.Context, p domain.Principal, filter domain.AccountFilter) ([]*domain.Account, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Accounts().ListAll(ctx, filter)
}

// Stats is an admin-only aggregate over the account base.
func (s *AccountService) Stats(ctx context.Context, p domain.Principal) (*domain.AccountStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Accounts().Stats(ctx)
}

// UpdateStatus applies the status state machine for the caller's role.
// Closing requires a zero balance.
func (s *AccountService) UpdateStatus(ctx context.Context, p domain.Principal, accountID uuid.UUID, newStatus domain.AccountStatus, reason string) (*domain.Account, error) {
	var updated *domain.Account
	err := s.store.WithTransaction(ctx, func(st domain.Store) error {
		account, err := st.Accounts().GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !p.IsAdmin() && !p.Owns(account.CustomerID) {
			return errors.NewAppErrorf(errors.Unauthorized, "access denied to account %s", accountID)
		}
		if err := domain.CanTransition(account.Status, newStatus, p.Role); err != nil {
			return err
		}
		if newStatus == domain.StatusClosed && !account.Balance.IsZero() {
			return errors.NewAppErrorf(errors.InvalidAccountOperation,
				"cannot close account %s with balance %s", account.AccountNumber, account.Balance.StringFixed(2))
		}

		account.Status = newStatus
		if err := st.Accounts().Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status updated",
		"account_id", accountID, "status", newStatus, "reason", reason, "actor", p.Username)
	return updated, nil
}

// UpdateBalance is the administrative balance override. It may go below the
// type minimum (logged) but never below zero, never touches a closed
// account, and always requires a reason.
func (s *AccountService) UpdateBalance(ctx context.Context, p domain.Principal, accountID uuid.UUID, newBalance decimal.Decimal, reason string) (*domain.Account, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, errors.NewAppError(errors.ValidationFailed, "a reason is required for balance overrides")
	}
	if newBalance.IsNegative() {
		return nil, errors.NewAppError(errors.InvalidBalance, "balance cannot be negative")
	}

	var updated *domain.Account
	err := s.store.WithTransaction(ctx, func(st domain.Store) error {
		account, err := st.Accounts().GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Status == domain.StatusClosed {
			return errors.NewAppErrorf(errors.InvalidAccountOperation,
				"cannot update balance of closed account %s", account.AccountNumber)
		}
		if minimum := account.AccountType.MinimumBalance(); newBalance.LessThan(minimum) {
			s.logger.Warn("balance override below type minimum",
				"account_id", accountID, "balance", newBalance.StringFixed(2),
				"minimum", minimum.StringFixed(2), "reason", reason)
		}

		account.Balance = newBalance
		if err := st.Accounts().Update(ctx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account balance updated",
		"account_id", accountID, "balance", newBalance.StringFixed(2), "reason", reason, "actor", p.Username)
	return updated, nil
}

// Delete removes a closed, zero-balance account. Admin only.
func (s *AccountService) Delete(ctx context.Context, p domain.Principal, accountID uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	err := s.store.WithTransaction(ctx, func(st domain.Store) error {
		account, err := st.Accounts().GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.Balance.IsZero() {
			return errors.NewAppErrorf(errors.InvalidAccountOperation,
				"cannot delete account %s with balance %s", account.AccountNumber, account.Balance.StringFixed(2))
		}
		if account.Status != domain.StatusClosed {
			return errors.NewAppErrorf(errors.InvalidAccountOperation,
				"only closed accounts can be deleted, account %s is %s", account.AccountNumber, account.Status)
		}
		return st.Accounts().Delete(ctx, account.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("account deleted", "account_id", accountID, "actor", p.Username)
	return nil
}

// VerifyOwnership reports whether an account belongs to a customer. A
// missing account is simply not owned.
func (s *AccountService) VerifyOwnership(ctx context.Context, accountID uuid.UUID, customerID int64) (bool, error) {
	account, err := s.store.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.IsCode(err, errors.AccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.CustomerID == customerID, nil
}

func requireAdmin(p domain.Principal) error {
	if !p.IsAdmin() {
		return errors.NewAppError(errors.Unauthorized, "admin access required for this operation")
	}
	return nil
}
