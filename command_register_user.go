package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type RegisterUserMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Username   string `json:"username" example:"pepe" doc:"Unique display name."`
	Password   string `json:"password" example:"Str0ng!Pass" doc:"Password."`
	OnResponse func(cred *Credential)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	service *Service
	timeout time.Duration
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(service *Service) *RegisterUserHandler {
	return &RegisterUserHandler{service: service, timeout: defaultCommandTimeout}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(h.timeout))
	defer cancel()

	cred, err := h.service.Register(ctx, RegisterInput{
		Email:    event.Email,
		Username: event.Username,
		Password: event.Password,
	})
	if err != nil {
		return commandError(err, "user registration failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(cred)
	}

	return nil
}
