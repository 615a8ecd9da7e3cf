package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

// Store is the unit of work over the accounts schema. A Store created by
// NewStore runs against the pool; WithTransaction derives one bound to a
// single transaction.
type Store struct {
	db       *sql.DB
	executor SQLExecutor
	logger   *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
}

// Accounts returns an AccountRepository bound to the current executor.
func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// WithTransaction runs fn inside a database transaction. The invariant
// checks fn performs and the writes they guard are atomic with respect to
// other writers.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.db == nil {
		return errors.ErrCannotBeginTransaction
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txStore := &Store{
		executor: tx,
		logger:   s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
