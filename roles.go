package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Role is the closed set of membership roles.
type Role string

const (
	// RoleAdmin manages users and assigns roles
	RoleAdmin Role = "ADMIN"
	// RoleOperator runs day to day operations, can view non admin roles
	RoleOperator Role = "OPERATOR"
	// RoleMember is a regular account, can only view its own role
	RoleMember Role = "MEMBER"
)

// DefaultRole is assigned at registration.
const DefaultRole = RoleMember

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleMember:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleOperator,
		RoleMember,
	}
}

// ParseRole parses a role name. Matching ignores case and surrounding
// whitespace, anything outside the enum is a validation error.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if role.IsValid() {
		return role, nil
	}

	return "", validationError("unknown role").
		WithMetadata(map[string]any{
			"role": raw,
		})
}

func validationError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidationFailed)
}
