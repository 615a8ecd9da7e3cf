package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{Unauthenticated, http.StatusUnauthorized},
		{Unauthorized, http.StatusForbidden},
		{UnauthorizedStatusChange, http.StatusForbidden},
		{AccountNotFound, http.StatusNotFound},
		{CustomerNotFound, http.StatusNotFound},
		{DuplicateAccount, http.StatusConflict},
		{InvalidBalance, http.StatusBadRequest},
		{InsufficientBalance, http.StatusBadRequest},
		{InvalidStatusTransition, http.StatusBadRequest},
		{InvalidAccountOperation, http.StatusBadRequest},
		{ValidationFailed, http.StatusBadRequest},
		{DuplicateAccountNumber, http.StatusInternalServerError},
		{AccountNumberExhausted, http.StatusInternalServerError},
		{InternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		err := NewAppError(tt.code, "boom")
		assert.Equal(t, tt.want, err.HTTPStatus(), "code %s", tt.code)
	}
}

func TestWithDetailsReturnsCopy(t *testing.T) {
	detailed := ErrAccountNotFound.WithDetails("id=42")

	assert.Equal(t, "id=42", detailed.Details)
	assert.Empty(t, ErrAccountNotFound.Details)
	assert.Equal(t, ErrAccountNotFound.Code, detailed.Code)
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(ErrAccountNotFound, AccountNotFound))
	assert.False(t, IsCode(ErrAccountNotFound, DuplicateAccount))

	wrapped := fmt.Errorf("loading account: %w", ErrAccountNotFound)
	assert.True(t, IsCode(wrapped, AccountNotFound))

	assert.False(t, IsCode(fmt.Errorf("plain"), AccountNotFound))
	assert.False(t, IsCode(nil, AccountNotFound))
}

func TestErrorString(t *testing.T) {
	err := NewAppErrorf(InvalidBalance, "balance %s is negative", "-1.00")
	assert.Equal(t, "INVALID_BALANCE: balance -1.00 is negative", err.Error())
}
