package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"account-service/internal/auth"
	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/handler"
	"account-service/internal/repository"
	"account-service/internal/service"
)

// Server represents the HTTP server and its wired dependencies.
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string

	// Provisioning is exposed so the event consumer can invoke the
	// guard in-process.
	Provisioning *service.ProvisioningService
}

// NewServer connects to the database and wires repositories, services and
// handlers into a ready-to-start server.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")

	seedCurrent, err := decimal.NewFromString(cfg.SeedBalanceCurrent)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid SEED_BALANCE_CURRENT: %w", err)
	}
	seedSavings, err := decimal.NewFromString(cfg.SeedBalanceSavings)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid SEED_BALANCE_SAVINGS: %w", err)
	}

	store := repository.NewStore(db, logger)
	customers := client.NewCustomerClient(cfg.CustomerServiceURL, cfg.ClientTimeout())
	kyc := client.NewKycClient(cfg.KycServiceURL, cfg.ClientTimeout())

	numbers := service.NewAccountNumberGenerator(store.Accounts(), cfg.AccountNumberPrefix, logger)
	accountService := service.NewAccountService(store, customers, numbers, logger)
	provisioningService := service.NewProvisioningService(
		accountService, store, customers, kyc, seedCurrent, seedSavings, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	accountHandler := handler.NewAccountHandler(accountService)
	adminHandler := handler.NewAdminHandler(accountService, provisioningService)

	router := NewRouter(logger, verifier, accountHandler, adminHandler, db.Ping)

	return &Server{
		router:       router,
		db:           db,
		logger:       logger,
		Provisioning: provisioningService,
	}, nil
}

// Start begins serving on the given port ("0" picks a free one) and returns
// the port actually bound.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server and closes the database pool.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.db != nil {
		s.db.Close()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on.
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server.
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// StartServer builds and starts a server with the given configuration.
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - keep output quiet.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
