package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type UpdateRoleMessage struct {
	Actor      *Principal
	TargetID   string `json:"target_id" doc:"User whose role changes"`
	Role       string `json:"role" example:"OPERATOR" doc:"New role"`
	OnResponse func(role Role)
}

func (m UpdateRoleMessage) Type() string { return "user.role.update" }

type UpdateRoleHandler struct {
	roles   *RoleService
	timeout time.Duration
}

// NewUpdateRoleHandler creates a handler with sane defaults.
func NewUpdateRoleHandler(roles *RoleService) *UpdateRoleHandler {
	return &UpdateRoleHandler{roles: roles, timeout: defaultCommandTimeout}
}

func (h *UpdateRoleHandler) Execute(ctx context.Context, event UpdateRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateRoleHandler) execute(ctx context.Context, event UpdateRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout(h.timeout))
	defer cancel()

	actor := event.Actor
	if actor == nil {
		actor, _ = PrincipalFromContext(ctx)
	}

	role, err := h.roles.UpdateRoleFromString(ctx, actor, event.TargetID, event.Role)
	if err != nil {
		return commandError(err, "failed to update role")
	}

	if event.OnResponse != nil {
		event.OnResponse(role)
	}

	return nil
}
