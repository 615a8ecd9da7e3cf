package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-service/internal/auth"
	"account-service/internal/domain"
	"account-service/internal/errors"
	"account-service/internal/service"
)

// AccountHandler serves the customer-facing account endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
	}
}

type CreateAccountRequest struct {
	CustomerID     int64  `json:"customer_id"`
	AccountType    string `json:"account_type"`
	InitialBalance string `json:"initial_balance"`
}

type StatusUpdateRequest struct {
	AccountStatus string `json:"account_status"`
	Reason        string `json:"reason"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid request body"))
		return
	}

	accountType, ok := domain.ParseAccountType(req.AccountType)
	if !ok {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "account_type must be CURRENT or SAVINGS"))
		return
	}
	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid initial_balance format"))
		return
	}

	customerID := req.CustomerID
	if customerID == 0 && !p.IsAdmin() {
		// Customers creating for themselves may omit the id.
		customerID = p.UserID
	}

	account, err := h.accounts.Create(r.Context(), p, customerID, accountType, initialBalance)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) MyAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	accounts, err := h.accounts.ListByCustomer(r.Context(), p, p.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountListResponse(accounts))
}

func (h *AccountHandler) MyAccountByType(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	accountType, ok := domain.ParseAccountType(mux.Vars(r)["accountType"])
	if !ok {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "account type must be CURRENT or SAVINGS"))
		return
	}

	account, err := h.accounts.GetByType(r.Context(), p, accountType)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) Details(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	accountID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid account id"))
		return
	}

	account, err := h.accounts.Get(r.Context(), p, accountID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// UpdateStatus lets account owners toggle ACTIVE/INACTIVE; everything else
// is rejected by the service's transition rules.
func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	accountID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid account id"))
		return
	}

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid request body"))
		return
	}
	newStatus, ok := domain.ParseAccountStatus(req.AccountStatus)
	if !ok {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "unknown account status"))
		return
	}

	account, err := h.accounts.UpdateStatus(r.Context(), p, accountID, newStatus, req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}
