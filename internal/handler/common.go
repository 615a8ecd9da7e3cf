package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"account-service/internal/domain"
	"account-service/internal/errors"
)

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AccountResponse is the wire shape of one account.
type AccountResponse struct {
	AccountID     string `json:"account_id"`
	CustomerID    int64  `json:"customer_id"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	AccountStatus string `json:"account_status"`
	Balance       string `json:"balance"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type AccountListResponse struct {
	Accounts      []AccountResponse `json:"accounts"`
	TotalAccounts int               `json:"total_accounts"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:     account.ID.String(),
		CustomerID:    account.CustomerID,
		AccountNumber: account.AccountNumber,
		AccountType:   string(account.AccountType),
		AccountStatus: string(account.Status),
		Balance:       account.Balance.StringFixed(2),
		CreatedAt:     account.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     account.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toAccountListResponse(accounts []*domain.Account) AccountListResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		responses = append(responses, toAccountResponse(account))
	}
	return AccountListResponse{
		Accounts:      responses,
		TotalAccounts: len(responses),
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// WriteError renders any error as the structured envelope. Errors that are
// not AppErrors become a generic internal error so nothing internal leaks.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewAppError(errors.InternalError, "an unexpected error occurred")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())
	json.NewEncoder(w).Encode(Response{Error: &Error{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Timestamp: time.Now().UTC(),
	}})
}
