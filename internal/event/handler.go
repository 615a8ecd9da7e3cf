// Package event adapts the KYC-completed message stream to the
// provisioning service. Provisioning runs in-process; the handler never
// calls back into this service's own HTTP surface.
package event

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"account-service/internal/domain"
	"account-service/internal/errors"
	"account-service/internal/service"
)

type KycCompletedHandler struct {
	provisioner *service.ProvisioningService
	logger      *slog.Logger
	timeout     time.Duration
}

func NewKycCompletedHandler(provisioner *service.ProvisioningService, timeout time.Duration, logger *slog.Logger) *KycCompletedHandler {
	return &KycCompletedHandler{
		provisioner: provisioner,
		logger:      logger,
		timeout:     timeout,
	}
}

// Handle processes one KYC-completed message. Business failures are logged
// and acknowledged so one bad message never blocks the queue; only
// transient infrastructure failures requeue.
func (h *KycCompletedHandler) Handle(body []byte) bool {
	var event domain.KycCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("dropping malformed kyc event", "error", err)
		return true
	}
	if event.CustomerID <= 0 {
		h.logger.Error("dropping kyc event without customer id")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	accounts, err := h.provisioner.Provision(ctx, event.CustomerID)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Code != errors.InternalError {
			h.logger.Error("provisioning rejected, acknowledging",
				"customer_id", event.CustomerID, "code", appErr.Code, "error", err)
			return true
		}
		h.logger.Error("provisioning failed, requeueing",
			"customer_id", event.CustomerID, "error", err)
		return false
	}

	h.logger.Info("provisioning complete",
		"customer_id", event.CustomerID, "accounts", len(accounts))
	return true
}
