package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Gate turns an inbound bearer credential into an active Principal.
type Gate struct {
	validator TokenValidator
	users     UserLookup
	logger    Logger
}

// NewGate returns a Gate that decodes with validator and resolves subjects
// through users.
func NewGate(validator TokenValidator, users UserLookup) *Gate {
	return &Gate{
		validator: validator,
		users:     users,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger
func (g *Gate) WithLogger(logger Logger) *Gate {
	g.logger = normalizeLogger(logger)
	return g
}

// Authenticate decodes raw and resolves its subject. It fails with an
// authentication error when the credential does not decode, ErrUserNotFound
// when the subject is gone and ErrAccountInactive when it is deactivated.
func (g *Gate) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	raw = StripBearerScheme(raw)

	claims, err := g.validator.Decode(raw)
	if err != nil {
		g.logger.Debug("gate rejected credential", "error", err)
		if IsAuthenticationError(err) {
			return nil, err
		}
		return nil, ErrInvalidCredential
	}

	user, err := g.users.FindByID(ctx, claims.Subject())
	if err != nil {
		if IsNotFoundError(err) {
			g.logger.Info("gate subject not found", "sub", claims.Subject())
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve credential subject")
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	if !user.IsActive {
		g.logger.Info("gate subject inactive", "sub", claims.Subject())
		return nil, ErrAccountInactive
	}

	if user.Role != claims.Role() {
		g.logger.Warn("gate role claim is stale", "sub", claims.Subject(), "claim", claims.Role(), "current", user.Role)
	}

	return PrincipalFromUser(user), nil
}

// StripBearerScheme removes a leading "Bearer " from an Authorization value.
func StripBearerScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
