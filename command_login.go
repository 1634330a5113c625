package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultCommandTimeout = time.Second * 10

type LoginMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" example:"Str0ng!Pass" doc:"Password."`
	OnResponse func(cred *Credential)
}

func (e LoginMessage) Type() string { return "user.login" }

type LoginHandler struct {
	service *Service
	timeout time.Duration
}

// NewLoginHandler creates a handler with sane defaults.
func NewLoginHandler(service *Service) *LoginHandler {
	return &LoginHandler{service: service, timeout: defaultCommandTimeout}
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(h.timeout))
	defer cancel()

	cred, err := h.service.Login(ctx, event.Email, event.Password)
	if err != nil {
		return commandError(err, "login failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(cred)
	}

	return nil
}

func commandTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultCommandTimeout
	}
	return d
}

// commandError passes typed errors through and wraps anything else.
func commandError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
