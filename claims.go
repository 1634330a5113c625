package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PasswordResetPurpose is the reserved value of the type claim on reset
// credentials.
const PasswordResetPurpose = "password_reset"

// BearerClaims is the claim set of a bearer credential: sub, role, iat and
// exp are all required.
type BearerClaims struct {
	jwt.RegisteredClaims
	UserRole Role `json:"role"`
}

// Subject returns the subject claim
func (c *BearerClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role claim
func (c *BearerClaims) Role() Role {
	return c.UserRole
}

// Expires returns the expiration time
func (c *BearerClaims) Expires() time.Time {
	return numericTime(c.RegisteredClaims.ExpiresAt)
}

// IssuedAt returns the issued at time
func (c *BearerClaims) IssuedAt() time.Time {
	return numericTime(c.RegisteredClaims.IssuedAt)
}

// ResetClaims is the claim set of a reset credential. Subject carries the
// email and Purpose must equal PasswordResetPurpose.
type ResetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"type"`
}

// Email returns the email carried in the sub claim
func (c *ResetClaims) Email() string {
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti claim
func (c *ResetClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *ResetClaims) Expires() time.Time {
	return numericTime(c.RegisteredClaims.ExpiresAt)
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil || claims.ID != "" {
		return
	}
	claims.ID = uuid.NewString()
}

// validityWindow returns the iat and exp values for a credential issued at
// now. Both are whole seconds apart by exactly lifetime, so the expiry
// reported to the caller is the one the token carries.
func validityWindow(now time.Time, lifetime time.Duration) (*jwt.NumericDate, *jwt.NumericDate, error) {
	if lifetime%time.Second != 0 {
		return nil, nil, validationError("token TTL must be a whole number of seconds").
			WithMetadata(map[string]any{"ttl": lifetime.String()})
	}
	issued := now.Truncate(time.Second)
	return jwt.NewNumericDate(issued), jwt.NewNumericDate(issued.Add(lifetime)), nil
}
