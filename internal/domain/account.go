package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/errors"
)

type AccountType string

const (
	TypeCurrent AccountType = "CURRENT"
	TypeSavings AccountType = "SAVINGS"
)

var (
	currentMinBalance = decimal.RequireFromString("5000.00")
	savingsMinBalance = decimal.RequireFromString("1000.00")
)

func ParseAccountType(s string) (AccountType, bool) {
	switch AccountType(strings.ToUpper(s)) {
	case TypeCurrent:
		return TypeCurrent, true
	case TypeSavings:
		return TypeSavings, true
	}
	return "", false
}

// Code is the three-letter tag embedded in account numbers.
func (t AccountType) Code() string {
	if t == TypeSavings {
		return "SAV"
	}
	return "CUR"
}

// MinimumBalance is the per-type floor enforced on customer-initiated
// creation and on debits.
func (t AccountType) MinimumBalance() decimal.Decimal {
	if t == TypeSavings {
		return savingsMinBalance
	}
	return currentMinBalance
}

type Account struct {
	ID            uuid.UUID       `json:"account_id"`
	CustomerID    int64           `json:"customer_id"`
	AccountNumber string          `json:"account_number"`
	AccountType   AccountType     `json:"account_type"`
	Status        AccountStatus   `json:"account_status"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ValidateCredit checks that the account accepts incoming funds.
func (a *Account) ValidateCredit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errors.NewAppError(errors.InvalidBalance, "credit amount must be positive")
	}
	if !a.Status.AllowsTransactions() {
		return errors.NewAppErrorf(errors.InvalidAccountOperation,
			"account %s does not allow transactions in status %s", a.AccountNumber, a.Status)
	}
	return nil
}

// ValidateDebit checks transaction eligibility and the per-type minimum
// balance floor.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return errors.NewAppError(errors.InvalidBalance, "debit amount must be positive")
	}
	if !a.Status.AllowsTransactions() {
		return errors.NewAppErrorf(errors.InvalidAccountOperation,
			"account %s does not allow transactions in status %s", a.AccountNumber, a.Status)
	}
	minimum := a.AccountType.MinimumBalance()
	if a.Balance.Sub(amount).LessThan(minimum) {
		return errors.NewAppErrorf(errors.InsufficientBalance,
			"insufficient balance: available %s, requested %s, minimum %s",
			a.Balance.StringFixed(2), amount.StringFixed(2), minimum.StringFixed(2))
	}
	return nil
}

// AccountFilter narrows admin listing queries.
type AccountFilter struct {
	Status *AccountStatus
	Type   *AccountType
}

type AccountStats struct {
	TotalAccounts     int64           `json:"total_accounts"`
	ActiveAccounts    int64           `json:"active_accounts"`
	InactiveAccounts  int64           `json:"inactive_accounts"`
	SuspendedAccounts int64           `json:"suspended_accounts"`
	FrozenAccounts    int64           `json:"frozen_accounts"`
	ClosedAccounts    int64           `json:"closed_accounts"`
	CurrentAccounts   int64           `json:"current_accounts"`
	SavingsAccounts   int64           `json:"savings_accounts"`
	TotalCustomers    int64           `json:"total_customers"`
	TotalBalance      decimal.Decimal `json:"total_balance"`
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByCustomerAndType(ctx context.Context, customerID int64, accountType AccountType) (*Account, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*Account, error)
	ListAll(ctx context.Context, filter AccountFilter) ([]*Account, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
	ExistsByCustomerAndType(ctx context.Context, customerID int64, accountType AccountType) (bool, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*AccountStats, error)
}

// Store is the unit-of-work boundary: invariant checks and the write they
// guard run against the same executor.
type Store interface {
	Accounts() AccountRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
