package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TokenTypeBearer is the token_type reported for bearer credentials
	TokenTypeBearer = "bearer"
	// TokenTypeReset is the token_type reported for reset credentials
	TokenTypeReset = "reset"
)

// Credential is a signed token handed to a client.
type Credential struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues and decodes bearer credentials
type TokenService interface {
	Issue(subjectID string, role Role, ttl ...time.Duration) (*Credential, error)
	Decode(raw string) (*BearerClaims, error)
}

// TokenServiceImpl implements the TokenService interface with HS256
type TokenServiceImpl struct {
	cfg    *Config
	logger Logger
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg *Config, logger Logger) *TokenServiceImpl {
	return &TokenServiceImpl{
		cfg:    cfg,
		logger: normalizeLogger(logger),
	}
}

// WithLogger overrides the logger
func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	ts.logger = normalizeLogger(logger)
	return ts
}

// Issue signs a bearer credential for subjectID. The optional ttl overrides
// the configured default and must be a positive whole number of seconds.
func (ts *TokenServiceImpl) Issue(subjectID string, role Role, ttl ...time.Duration) (*Credential, error) {
	if subjectID == "" {
		return nil, validationError("subject is required")
	}

	if !role.IsValid() {
		return nil, validationError("unknown role").
			WithMetadata(map[string]any{"role": string(role)})
	}

	lifetime := ts.cfg.TokenTTL()
	if len(ttl) > 0 {
		lifetime = ttl[0]
	}

	if lifetime <= 0 {
		return nil, validationError("token TTL must be positive")
	}

	issuedAt, expiresAt, err := validityWindow(ts.cfg.Clock().Now(), lifetime)
	if err != nil {
		return nil, err
	}

	claims := &BearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.cfg.Issuer(),
			Subject:   subjectID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
		UserRole: role,
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := signClaims(claims, ts.cfg.SigningKey())
	if err != nil {
		return nil, err
	}

	return &Credential{
		Token:     signed,
		TokenType: TokenTypeBearer,
		ExpiresAt: claims.Expires(),
	}, nil
}

// Decode verifies signature and expiry of a bearer credential. Every
// failure is reported as ErrInvalidCredential.
func (ts *TokenServiceImpl) Decode(raw string) (*BearerClaims, error) {
	claims := &BearerClaims{}
	if err := parseClaims(raw, claims, ts.cfg); err != nil {
		ts.logger.Debug("bearer credential rejected", "reason", rejectionReason(err))
		return nil, ErrInvalidCredential
	}

	if err := claims.validateRequired(); err != nil {
		ts.logger.Debug("bearer credential rejected", "reason", err.Error())
		return nil, ErrInvalidCredential
	}

	return claims, nil
}

func (c *BearerClaims) validateRequired() error {
	if c.RegisteredClaims.Subject == "" {
		return fmt.Errorf("missing claim: sub")
	}

	if !c.UserRole.IsValid() {
		return fmt.Errorf("missing or unknown claim: role")
	}

	if c.RegisteredClaims.IssuedAt == nil {
		return fmt.Errorf("missing claim: iat")
	}

	if c.RegisteredClaims.ExpiresAt == nil {
		return fmt.Errorf("missing claim: exp")
	}

	if !c.Expires().After(c.IssuedAt()) {
		return fmt.Errorf("exp must be after iat")
	}

	return nil
}

func signClaims(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// parseClaims checks the signature before any time based claim. There is no
// leeway for clock skew.
func parseClaims(raw string, claims jwt.Claims, cfg *Config) error {
	if raw == "" {
		return jwt.ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cfg.Clock().Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}

	if cfg.Issuer() != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer()))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return cfg.SigningKey(), nil
	}, opts...)
	if err != nil {
		return err
	}

	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}

	return nil
}

func rejectionReason(err error) string {
	switch {
	case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case goerrors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case goerrors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "issued_in_future"
	case goerrors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing_claim"
	case goerrors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer"
	case goerrors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return err.Error()
	}
}
