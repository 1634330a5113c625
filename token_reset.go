package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenService issues and decodes password reset credentials
type ResetTokenService interface {
	Issue(email string, ttl ...time.Duration) (*Credential, error)
	Decode(raw string) (*ResetClaims, error)
}

// ResetTokenServiceImpl implements ResetTokenService with HS256 and a
// purpose tag so bearer and reset claim sets cannot be swapped.
type ResetTokenServiceImpl struct {
	cfg    *Config
	logger Logger
}

var _ ResetTokenService = (*ResetTokenServiceImpl)(nil)

// NewResetTokenService creates a new ResetTokenService instance
func NewResetTokenService(cfg *Config, logger Logger) *ResetTokenServiceImpl {
	return &ResetTokenServiceImpl{
		cfg:    cfg,
		logger: normalizeLogger(logger),
	}
}

// WithLogger overrides the logger
func (rs *ResetTokenServiceImpl) WithLogger(logger Logger) *ResetTokenServiceImpl {
	rs.logger = normalizeLogger(logger)
	return rs
}

// Issue signs a reset credential for email. A zero or missing ttl uses the
// configured default; a negative ttl yields an already expired credential.
func (rs *ResetTokenServiceImpl) Issue(email string, ttl ...time.Duration) (*Credential, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, validationError("email is required")
	}

	lifetime := rs.cfg.ResetTokenTTL()
	if len(ttl) > 0 && ttl[0] != 0 {
		lifetime = ttl[0]
	}

	issuedAt, expiresAt, err := validityWindow(rs.cfg.Clock().Now(), lifetime)
	if err != nil {
		return nil, err
	}

	claims := &ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    rs.cfg.Issuer(),
			Subject:   email,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
		Purpose: PasswordResetPurpose,
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := signClaims(claims, rs.cfg.SigningKey())
	if err != nil {
		return nil, err
	}

	return &Credential{
		Token:     signed,
		TokenType: TokenTypeReset,
		ExpiresAt: claims.Expires(),
	}, nil
}

// Decode verifies signature, expiry and purpose tag. Every failure is
// reported as ErrInvalidCredential.
func (rs *ResetTokenServiceImpl) Decode(raw string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := parseClaims(raw, claims, rs.cfg); err != nil {
		rs.logger.Debug("reset credential rejected", "reason", rejectionReason(err))
		return nil, ErrInvalidCredential
	}

	if err := claims.validateRequired(); err != nil {
		rs.logger.Debug("reset credential rejected", "reason", err.Error())
		return nil, ErrInvalidCredential
	}

	return claims, nil
}

func (c *ResetClaims) validateRequired() error {
	if c.Purpose != PasswordResetPurpose {
		return fmt.Errorf("missing or wrong claim: type")
	}

	if c.RegisteredClaims.Subject == "" {
		return fmt.Errorf("missing claim: sub")
	}

	return nil
}
