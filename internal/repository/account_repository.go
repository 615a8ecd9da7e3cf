package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// Constraint names from the accounts migration. Unique violations are
// translated per constraint so the service can tell a duplicate account
// type from a lost account-number race.
const (
	constraintCustomerType  = "accounts_customer_type_key"
	constraintAccountNumber = "accounts_account_number_key"
)

const accountColumns = `id, customer_id, account_number, account_type, account_status, balance, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, customer_id, account_number, account_type, account_status, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(
		ctx,
		query,
		account.ID,
		account.CustomerID,
		account.AccountNumber,
		account.AccountType,
		account.Status,
		account.Balance.StringFixed(2),
		now,
		now,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			switch pqErr.Constraint {
			case constraintAccountNumber:
				r.logger.Warn("account number collision on insert", "account_number", account.AccountNumber)
				return errors.ErrDuplicateAccountNumber
			default:
				r.logger.Warn("duplicate account creation attempt",
					"customer_id", account.CustomerID, "account_type", account.AccountType)
				return errors.NewAppErrorf(errors.DuplicateAccount,
					"customer %d already has a %s account", account.CustomerID, account.AccountType)
			}
		}
		r.logger.Error("failed to create account", "customer_id", account.CustomerID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("account created", "account_id", account.ID, "account_number", account.AccountNumber)
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *accountRepository) GetByCustomerAndType(ctx context.Context, customerID int64, accountType domain.AccountType) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 AND account_type = $2`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, customerID, accountType))
}

func (r *accountRepository) scanAccount(row *sql.Row) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.CustomerID,
		&account.AccountNumber,
		&account.AccountType,
		&account.Status,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("failed to get account", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("failed to parse balance", "account_id", account.ID, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}
	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE customer_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		r.logger.Error("failed to list accounts", "customer_id", customerID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()
	return r.collectAccounts(rows)
}

func (r *accountRepository) ListAll(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, "account_status = $1")
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		if len(args) == 2 {
			conditions = append(conditions, "account_type = $2")
		} else {
			conditions = append(conditions, "account_type = $1")
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + conditions[0]
		if len(conditions) == 2 {
			query += " AND " + conditions[1]
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list all accounts", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()
	return r.collectAccounts(rows)
}

func (r *accountRepository) collectAccounts(rows *sql.Rows) ([]*domain.Account, error) {
	accounts := []*domain.Account{}
	for rows.Next() {
		var account domain.Account
		var balanceStr string
		err := rows.Scan(
			&account.ID,
			&account.CustomerID,
			&account.AccountNumber,
			&account.AccountType,
			&account.Status,
			&balanceStr,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
		}
		account.Balance = balance
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to read accounts").WithDetails(err.Error())
	}
	return accounts, nil
}

func (r *accountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, accountNumber).Scan(&exists)
	if err != nil {
		return false, errors.NewAppError(errors.InternalError, "failed to check account number").WithDetails(err.Error())
	}
	return exists, nil
}

func (r *accountRepository) ExistsByCustomerAndType(ctx context.Context, customerID int64, accountType domain.AccountType) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE customer_id = $1 AND account_type = $2)`,
		customerID, accountType).Scan(&exists)
	if err != nil {
		return false, errors.NewAppError(errors.InternalError, "failed to check account existence").WithDetails(err.Error())
	}
	return exists, nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET account_status = $1, balance = $2, updated_at = $3
		WHERE id = $4
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, account.Status, account.Balance.StringFixed(2), now, account.ID)
	if err != nil {
		r.logger.Error("failed to update account", "account_id", account.ID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update account").WithDetails(err.Error())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	account.UpdatedAt = now
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete account").WithDetails(err.Error())
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	r.logger.Info("account deleted", "account_id", id)
	return nil
}

func (r *accountRepository) Stats(ctx context.Context) (*domain.AccountStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE account_status = 'ACTIVE'),
			COUNT(*) FILTER (WHERE account_status = 'INACTIVE'),
			COUNT(*) FILTER (WHERE account_status = 'SUSPENDED'),
			COUNT(*) FILTER (WHERE account_status = 'FROZEN'),
			COUNT(*) FILTER (WHERE account_status = 'CLOSED'),
			COUNT(*) FILTER (WHERE account_type = 'CURRENT'),
			COUNT(*) FILTER (WHERE account_type = 'SAVINGS'),
			COUNT(DISTINCT customer_id),
			COALESCE(SUM(balance), 0)
		FROM accounts
	`

	var stats domain.AccountStats
	var totalBalanceStr string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalAccounts,
		&stats.ActiveAccounts,
		&stats.InactiveAccounts,
		&stats.SuspendedAccounts,
		&stats.FrozenAccounts,
		&stats.ClosedAccounts,
		&stats.CurrentAccounts,
		&stats.SavingsAccounts,
		&stats.TotalCustomers,
		&totalBalanceStr,
	)
	if err != nil {
		r.logger.Error("failed to compute account stats", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to compute account statistics").WithDetails(err.Error())
	}

	totalBalance, err := decimal.NewFromString(totalBalanceStr)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to parse total balance").WithDetails(err.Error())
	}
	stats.TotalBalance = totalBalance
	return &stats, nil
}
