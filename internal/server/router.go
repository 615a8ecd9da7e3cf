package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"account-service/internal/auth"
	"account-service/internal/handler"
)

// NewRouter wires the REST surface. All /api/accounts routes sit behind the
// auth middleware; only /health is open.
func NewRouter(
	logger *slog.Logger,
	verifier *auth.Verifier,
	accountHandler *handler.AccountHandler,
	adminHandler *handler.AdminHandler,
	healthCheck func() error,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api/accounts").Subrouter()
	api.Use(authMiddleware(verifier))

	// Admin routes first so the /admin prefix never collides with the
	// parameterized customer routes.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/all", adminHandler.ListAll).Methods("GET")
	admin.HandleFunc("/customer/{customerId}", adminHandler.ListByCustomer).Methods("GET")
	admin.HandleFunc("/stats", adminHandler.Stats).Methods("GET")
	admin.HandleFunc("/create-for-customer/{customerId}", adminHandler.ProvisionForCustomer).Methods("POST")
	admin.HandleFunc("/{accountId}/status", adminHandler.UpdateStatus).Methods("PUT")
	admin.HandleFunc("/{accountId}/balance", adminHandler.UpdateBalance).Methods("PUT")
	admin.HandleFunc("/{accountId}", adminHandler.Delete).Methods("DELETE")

	api.HandleFunc("/create", accountHandler.Create).Methods("POST")
	api.HandleFunc("/my-accounts", accountHandler.MyAccounts).Methods("GET")
	api.HandleFunc("/my-accounts/{accountType}", accountHandler.MyAccountByType).Methods("GET")
	api.HandleFunc("/details/{accountId}", accountHandler.Details).Methods("GET")
	api.HandleFunc("/{accountId}/status", accountHandler.UpdateStatus).Methods("PUT")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if healthCheck != nil {
			if err := healthCheck(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return router
}
