package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"account-service/internal/config"
	"account-service/internal/event"
	"account-service/internal/server"
	"account-service/pkg/rabbitmq"
)

const (
	kycExchange   = "customer_events"
	kycQueue      = "account_service_kyc_completed"
	kycRoutingKey = "customer.kyc.completed"

	provisionTimeout = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// A .env file is only a convenience for local runs.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	srv, port, err := server.StartServer(cfg)
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	logger.Info("server started", "port", port)

	var consumer *rabbitmq.Consumer
	if cfg.RabbitMQURL != "" {
		consumer, err = rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}

		kycHandler := event.NewKycCompletedHandler(srv.Provisioning, provisionTimeout, logger)
		go func() {
			if err := consumer.Consume(kycExchange, kycQueue, kycRoutingKey, kycHandler.Handle); err != nil {
				logger.Error("kyc event consumer stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set, kyc event consumer disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", "signal", sig.String())

	if consumer != nil {
		consumer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
