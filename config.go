package auth

import (
	"time"
)

const (
	// DefaultTokenTTL is the bearer credential lifetime
	DefaultTokenTTL = 24 * time.Hour
	// DefaultResetTokenTTL is the reset credential lifetime
	DefaultResetTokenTTL = 30 * time.Minute
	// MinSigningKeyLength is the shortest accepted HMAC key
	MinSigningKeyLength = 32
)

// Config is the immutable process configuration shared by the codecs and
// services. Build it once with NewConfig and pass it to constructors.
type Config struct {
	secret        SecretProvider
	clock         Clock
	tokenTTL      time.Duration
	resetTokenTTL time.Duration
	issuer        string
	hashCost      int
}

// ConfigOption customizes NewConfig.
type ConfigOption func(*Config)

// WithTokenTTL overrides DefaultTokenTTL.
func WithTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) {
		if ttl > 0 {
			c.tokenTTL = ttl
		}
	}
}

// WithResetTokenTTL overrides DefaultResetTokenTTL.
func WithResetTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) {
		if ttl > 0 {
			c.resetTokenTTL = ttl
		}
	}
}

// WithIssuer sets the iss claim on issued credentials.
func WithIssuer(issuer string) ConfigOption {
	return func(c *Config) {
		c.issuer = issuer
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock Clock) ConfigOption {
	return func(c *Config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithHashCost overrides the bcrypt work factor.
func WithHashCost(cost int) ConfigOption {
	return func(c *Config) {
		if cost > 0 {
			c.hashCost = cost
		}
	}
}

// NewConfig validates the secret and returns the configuration value.
func NewConfig(secret SecretProvider, opts ...ConfigOption) (*Config, error) {
	if secret == nil {
		return nil, validationError("signing secret is required")
	}

	if len(secret.SigningKey()) < MinSigningKeyLength {
		return nil, validationError("signing secret is too short").
			WithMetadata(map[string]any{
				"min_length": MinSigningKeyLength,
			})
	}

	cfg := &Config{
		secret:        secret,
		clock:         SystemClock,
		tokenTTL:      DefaultTokenTTL,
		resetTokenTTL: DefaultResetTokenTTL,
		hashCost:      passwordHashCost(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return cfg, nil
}

func (c *Config) SigningKey() []byte           { return c.secret.SigningKey() }
func (c *Config) Clock() Clock                 { return c.clock }
func (c *Config) TokenTTL() time.Duration      { return c.tokenTTL }
func (c *Config) ResetTokenTTL() time.Duration { return c.resetTokenTTL }
func (c *Config) Issuer() string               { return c.issuer }
func (c *Config) HashCost() int                { return c.hashCost }
