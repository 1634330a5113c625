package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse is identical for known and unknown emails.
type InitializePasswordResetResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

type InitializePasswordResetHandler struct {
	service *Service
	timeout time.Duration
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(service *Service) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{service: service, timeout: defaultCommandTimeout}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(h.timeout))
	defer cancel()

	ack, err := h.service.RequestPasswordReset(ctx, event.Email)
	if err != nil {
		return commandError(err, "failed to initialize password reset")
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Accepted: ack.Accepted,
			Message:  ack.Message,
		})
	}

	return nil
}
