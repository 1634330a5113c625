// Package config loads process settings for the membership core.
//
// Settings come from an optional YAML file, then environment variables
// prefixed with MEMBERSHIP_ (a .env file is read first when present), and
// are validated once before use. The result is turned into an immutable
// auth.Config with AuthConfig.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-membership"
)

const envPrefix = "MEMBERSHIP_"

const (
	LedgerNone   = "none"
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

// Settings is the complete process configuration.
type Settings struct {
	Auth     AuthSettings     `yaml:"auth"`
	Database DatabaseSettings `yaml:"database"`
	Ledger   LedgerSettings   `yaml:"ledger"`
	Logging  LoggingSettings  `yaml:"logging"`
}

// AuthSettings feeds auth.NewConfig.
type AuthSettings struct {
	Secret        string        `yaml:"secret"`
	Issuer        string        `yaml:"issuer"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	ResetTokenTTL time.Duration `yaml:"reset_token_ttl"`
	HashCost      int           `yaml:"hash_cost"`
}

type DatabaseSettings struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

// LedgerSettings selects where redeemed reset credentials are recorded.
type LedgerSettings struct {
	Driver string        `yaml:"driver"`
	Redis  RedisSettings `yaml:"redis"`
}

type RedisSettings struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type LoggingSettings struct {
	Level string `yaml:"level"`
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Settings, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "reading config file").
				WithMetadata(map[string]any{"path": path})
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "parsing config file").
				WithMetadata(map[string]any{"path": path})
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Existing variables win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "loading env file").
			WithMetadata(map[string]any{"path": path})
	}
	return nil
}

// Defaults returns Settings with every optional value filled in.
func Defaults() *Settings {
	return &Settings{
		Auth: AuthSettings{
			Issuer:        "membership",
			TokenTTL:      auth.DefaultTokenTTL,
			ResetTokenTTL: auth.DefaultResetTokenTTL,
		},
		Database: DatabaseSettings{
			DSN: "file:membership.db?cache=shared&_fk=1",
		},
		Ledger: LedgerSettings{
			Driver: LedgerNone,
			Redis: RedisSettings{
				Addr:      "localhost:6379",
				KeyPrefix: "membership:reset:",
			},
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

func applyEnvOverrides(cfg *Settings) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	setString("SECRET", &cfg.Auth.Secret)
	setString("ISSUER", &cfg.Auth.Issuer)
	setString("DATABASE_DSN", &cfg.Database.DSN)
	setString("LEDGER_DRIVER", &cfg.Ledger.Driver)
	setString("REDIS_ADDR", &cfg.Ledger.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Ledger.Redis.Password)
	setString("REDIS_KEY_PREFIX", &cfg.Ledger.Redis.KeyPrefix)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	durations := map[string]*time.Duration{
		"TOKEN_TTL":       &cfg.Auth.TokenTTL,
		"RESET_TOKEN_TTL": &cfg.Auth.ResetTokenTTL,
	}
	for key, dst := range durations {
		v := os.Getenv(envPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError(key, v, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"HASH_COST": &cfg.Auth.HashCost,
		"REDIS_DB":  &cfg.Ledger.Redis.DB,
	}
	for key, dst := range ints {
		v := os.Getenv(envPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError(key, v, err)
		}
		*dst = n
	}

	if v := os.Getenv(envPrefix + "DATABASE_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return envError("DATABASE_DEBUG", v, err)
		}
		cfg.Database.Debug = debug
	}

	return nil
}

func envError(key, value string, err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid environment override").
		WithMetadata(map[string]any{"variable": envPrefix + key, "value": value})
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []string

	if s.Auth.Secret == "" {
		errs = append(errs, "auth.secret is required (set "+envPrefix+"SECRET)")
	} else if len(s.Auth.Secret) < auth.MinSigningKeyLength {
		errs = append(errs, "auth.secret must be at least "+strconv.Itoa(auth.MinSigningKeyLength)+" characters")
	}

	if s.Auth.TokenTTL <= 0 || s.Auth.TokenTTL%time.Second != 0 {
		errs = append(errs, "auth.token_ttl must be a positive whole number of seconds")
	}

	if s.Auth.ResetTokenTTL <= 0 || s.Auth.ResetTokenTTL%time.Second != 0 {
		errs = append(errs, "auth.reset_token_ttl must be a positive whole number of seconds")
	}

	if s.Auth.HashCost != 0 && (s.Auth.HashCost < 4 || s.Auth.HashCost > 31) {
		errs = append(errs, "auth.hash_cost must be between 4 and 31 (0 uses the default)")
	}

	if s.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}

	switch s.Ledger.Driver {
	case LedgerNone, LedgerMemory:
	case LedgerRedis:
		if s.Ledger.Redis.Addr == "" {
			errs = append(errs, "ledger.redis.addr is required for the redis driver")
		}
	default:
		errs = append(errs, "ledger.driver must be one of none, memory, redis")
	}

	if len(errs) > 0 {
		return goerrors.New("invalid configuration", goerrors.CategoryValidation).
			WithTextCode("CONFIG_INVALID").
			WithMetadata(map[string]any{"errors": errs, "summary": strings.Join(errs, "; ")})
	}

	return nil
}

// AuthConfig builds the immutable auth.Config for these settings.
func (s *Settings) AuthConfig(opts ...auth.ConfigOption) (*auth.Config, error) {
	base := []auth.ConfigOption{
		auth.WithIssuer(s.Auth.Issuer),
		auth.WithTokenTTL(s.Auth.TokenTTL),
		auth.WithResetTokenTTL(s.Auth.ResetTokenTTL),
		auth.WithHashCost(s.Auth.HashCost),
	}
	return auth.NewConfig(auth.StaticSecret(s.Auth.Secret), append(base, opts...)...)
}
