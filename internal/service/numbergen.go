package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

const (
	// sequenceMax bounds the zero-padded numeric tail (001-999).
	sequenceMax           = 999
	maxGenerationAttempts = 100
)

// AccountNumberGenerator produces candidate account numbers of the form
// <prefix><typeCode><sequence>, e.g. BANK1CUR042. The sequence is a random
// fixed-width numeral; the existence check is a best-effort early exit and
// the store's unique constraint remains the real guarantee.
type AccountNumberGenerator struct {
	accounts domain.AccountRepository
	prefix   string
	logger   *slog.Logger
}

func NewAccountNumberGenerator(accounts domain.AccountRepository, prefix string, logger *slog.Logger) *AccountNumberGenerator {
	return &AccountNumberGenerator{
		accounts: accounts,
		prefix:   prefix,
		logger:   logger,
	}
}

// Generate returns an account number not currently present in the store,
// or AccountNumberExhausted after the attempt budget is spent.
func (g *AccountNumberGenerator) Generate(ctx context.Context, accountType domain.AccountType) (string, error) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		candidate := g.build(accountType)

		exists, err := g.accounts.ExistsByAccountNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		g.logger.Warn("account number collision, regenerating",
			"account_number", candidate, "attempt", attempt+1)
	}
	return "", errors.ErrAccountNumberExhausted
}

func (g *AccountNumberGenerator) build(accountType domain.AccountType) string {
	sequence := rand.IntN(sequenceMax) + 1
	return fmt.Sprintf("%s%s%03d", g.prefix, accountType.Code(), sequence)
}
