package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Token    string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..." doc:"Password reset credential"`
	Password string `json:"password" example:"N3w!Secret" doc:"New password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset.finalize" }

type FinalizePasswordResetHandler struct {
	service *Service
	timeout time.Duration
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(service *Service) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{service: service, timeout: defaultCommandTimeout}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(h.timeout))
	defer cancel()

	if err := h.service.ResetPassword(ctx, event.Token, event.Password); err != nil {
		return commandError(err, "failed to finalize password reset")
	}

	return nil
}
