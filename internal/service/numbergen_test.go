package service

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// existsFake overrides just the existence check; every other repository
// method panics if touched.
type existsFake struct {
	domain.AccountRepository
	exists func(accountNumber string) (bool, error)
	calls  int
}

func (f *existsFake) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	f.calls++
	return f.exists(accountNumber)
}

func TestGenerateFormat(t *testing.T) {
	repo := &existsFake{exists: func(string) (bool, error) { return false, nil }}
	gen := NewAccountNumberGenerator(repo, "BANK1", discardLogger())

	current, err := gen.Generate(context.Background(), domain.TypeCurrent)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BANK1CUR\d{3}$`), current)

	savings, err := gen.Generate(context.Background(), domain.TypeSavings)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BANK1SAV\d{3}$`), savings)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	collisions := 0
	repo := &existsFake{exists: func(string) (bool, error) {
		if collisions < 5 {
			collisions++
			return true, nil
		}
		return false, nil
	}}
	gen := NewAccountNumberGenerator(repo, "BANK1", discardLogger())

	number, err := gen.Generate(context.Background(), domain.TypeCurrent)
	require.NoError(t, err)
	assert.NotEmpty(t, number)
	assert.Equal(t, 6, repo.calls)
}

func TestGenerateExhaustsAttemptBudget(t *testing.T) {
	repo := &existsFake{exists: func(string) (bool, error) { return true, nil }}
	gen := NewAccountNumberGenerator(repo, "BANK1", discardLogger())

	_, err := gen.Generate(context.Background(), domain.TypeSavings)
	assert.True(t, errors.IsCode(err, errors.AccountNumberExhausted))
	assert.Equal(t, maxGenerationAttempts, repo.calls)
}

func TestGenerateSurfacesRepositoryError(t *testing.T) {
	repo := &existsFake{exists: func(string) (bool, error) {
		return false, errors.NewAppError(errors.InternalError, "connection lost")
	}}
	gen := NewAccountNumberGenerator(repo, "BANK1", discardLogger())

	_, err := gen.Generate(context.Background(), domain.TypeCurrent)
	assert.True(t, errors.IsCode(err, errors.InternalError))
}
