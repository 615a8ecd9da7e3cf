package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-service/internal/auth"
	"account-service/internal/domain"
	"account-service/internal/errors"
	"account-service/internal/service"
)

// AdminHandler serves the administrative endpoints. Role enforcement lives
// in the services; the handler only parses and translates.
type AdminHandler struct {
	accounts    *service.AccountService
	provisioner *service.ProvisioningService
}

func NewAdminHandler(accounts *service.AccountService, provisioner *service.ProvisioningService) *AdminHandler {
	return &AdminHandler{
		accounts:    accounts,
		provisioner: provisioner,
	}
}

type BalanceUpdateRequest struct {
	Balance string `json:"balance"`
	Reason  string `json:"reason"`
}

func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	var filter domain.AccountFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseAccountStatus(s)
		if !ok {
			WriteError(w, errors.NewAppError(errors.ValidationFailed, "unknown account status filter"))
			return
		}
		filter.Status = &status
	}
	if t := r.URL.Query().Get("type"); t != "" {
		accountType, ok := domain.ParseAccountType(t)
		if !ok {
			WriteError(w, errors.NewAppError(errors.ValidationFailed, "unknown account type filter"))
			return
		}
		filter.Type = &accountType
	}

	accounts, err := h.accounts.ListAll(r.Context(), p, filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountListResponse(accounts))
}

func (h *AdminHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	customerID, err := strconv.ParseInt(mux.Vars(r)["customerId"], 10, 64)
	if err != nil || customerID <= 0 {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid customer id"))
		return
	}

	accounts, err := h.accounts.ListByCustomer(r.Context(), p, customerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountListResponse(accounts))
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}

	stats, err := h.accounts.Stats(r.Context(), p)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

func (h *AdminHandler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
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

	var req BalanceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid request body"))
		return
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid balance format"))
		return
	}

	account, err := h.accounts.UpdateBalance(r.Context(), p, accountID, balance, req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// ProvisionForCustomer is the manual trigger for KYC provisioning, same
// semantics as the event-driven path.
func (h *AdminHandler) ProvisionForCustomer(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		WriteError(w, errors.ErrUnauthenticated)
		return
	}
	if !p.IsAdmin() {
		WriteError(w, errors.NewAppError(errors.Unauthorized, "admin access required for this operation"))
		return
	}

	customerID, err := strconv.ParseInt(mux.Vars(r)["customerId"], 10, 64)
	if err != nil || customerID <= 0 {
		WriteError(w, errors.NewAppError(errors.ValidationFailed, "invalid customer id"))
		return
	}

	accounts, err := h.provisioner.Provision(r.Context(), customerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toAccountListResponse(accounts))
}

func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.accounts.Delete(r.Context(), p, accountID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
