// Package testutil provides in-memory fakes for service and handler tests
// that do not need a real database.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// MemStore is an in-memory domain.Store. It enforces the same uniqueness
// rules as the accounts table so services see the same error shapes as
// with Postgres.
type MemStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account

	// CreateErrs is consumed one entry per Create call; a nil entry lets
	// the call proceed. Lets tests induce transient insert failures.
	CreateErrs []error
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[uuid.UUID]*domain.Account),
	}
}

func (s *MemStore) Accounts() domain.AccountRepository {
	return (*memAccountRepo)(s)
}

func (s *MemStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	return fn(s)
}

// Seed inserts an account directly, bypassing uniqueness checks.
func (s *MemStore) Seed(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.ID] = &cp
}

// All returns a snapshot of every stored account.
func (s *MemStore) All() []*domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type memAccountRepo MemStore

func (r *memAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.CreateErrs) > 0 {
		next := r.CreateErrs[0]
		r.CreateErrs = r.CreateErrs[1:]
		if next != nil {
			return next
		}
	}
	for _, a := range r.accounts {
		if a.AccountNumber == account.AccountNumber {
			return errors.ErrDuplicateAccountNumber
		}
		if a.CustomerID == account.CustomerID && a.AccountType == account.AccountType {
			return errors.NewAppErrorf(errors.DuplicateAccount,
				"customer %d already has a %s account", account.CustomerID, account.AccountType)
		}
	}

	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *memAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memAccountRepo) GetByCustomerAndType(ctx context.Context, customerID int64, accountType domain.AccountType) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.CustomerID == customerID && a.AccountType == accountType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errors.ErrAccountNotFound
}

func (r *memAccountRepo) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Account{}
	for _, a := range r.accounts {
		if a.CustomerID == customerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountType < out[j].AccountType })
	return out, nil
}

func (r *memAccountRepo) ListAll(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Account{}
	for _, a := range r.accounts {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && a.AccountType != *filter.Type {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (r *memAccountRepo) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.AccountNumber == accountNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccountRepo) ExistsByCustomerAndType(ctx context.Context, customerID int64, accountType domain.AccountType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.CustomerID == customerID && a.AccountType == accountType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return errors.ErrAccountNotFound
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *memAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return errors.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memAccountRepo) Stats(ctx context.Context) (*domain.AccountStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &domain.AccountStats{TotalBalance: decimal.Zero}
	customers := map[int64]struct{}{}
	for _, a := range r.accounts {
		stats.TotalAccounts++
		switch a.Status {
		case domain.StatusActive:
			stats.ActiveAccounts++
		case domain.StatusInactive:
			stats.InactiveAccounts++
		case domain.StatusSuspended:
			stats.SuspendedAccounts++
		case domain.StatusFrozen:
			stats.FrozenAccounts++
		case domain.StatusClosed:
			stats.ClosedAccounts++
		}
		if a.AccountType == domain.TypeCurrent {
			stats.CurrentAccounts++
		} else {
			stats.SavingsAccounts++
		}
		customers[a.CustomerID] = struct{}{}
		stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
	}
	stats.TotalCustomers = int64(len(customers))
	return stats, nil
}

// StaticCustomerClient answers existence checks from a fixed set.
type StaticCustomerClient struct {
	Known map[int64]bool
	Err   error
}

func (c *StaticCustomerClient) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return c.Known[customerID], nil
}

// StaticKycClient answers verification checks from a fixed set.
type StaticKycClient struct {
	Verified map[int64]bool
	Err      error
}

func (c *StaticKycClient) IsVerified(ctx context.Context, customerID int64) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return c.Verified[customerID], nil
}
