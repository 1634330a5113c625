package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-membership"
	"github.com/goliatone/go-membership/config"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
auth:
  secret: "`+testSecret+`"
  issuer: "members"
  token_ttl: 2h
  reset_token_ttl: 15m
  hash_cost: 10
database:
  dsn: "file::memory:"
ledger:
  driver: memory
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "members", cfg.Auth.Issuer)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 10, cfg.Auth.HashCost)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, config.LedgerMemory, cfg.Ledger.Driver)
	assert.Equal(t, "info", cfg.Logging.Level, "defaults survive partial files")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEMBERSHIP_SECRET", testSecret)
	t.Setenv("MEMBERSHIP_TOKEN_TTL", "90m")
	t.Setenv("MEMBERSHIP_LEDGER_DRIVER", "redis")
	t.Setenv("MEMBERSHIP_REDIS_ADDR", "cache:6379")
	t.Setenv("MEMBERSHIP_REDIS_DB", "3")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.Auth.Secret)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, config.LedgerRedis, cfg.Ledger.Driver)
	assert.Equal(t, "cache:6379", cfg.Ledger.Redis.Addr)
	assert.Equal(t, 3, cfg.Ledger.Redis.DB)
}

func TestLoad_BadEnvDuration(t *testing.T) {
	t.Setenv("MEMBERSHIP_SECRET", testSecret)
	t.Setenv("MEMBERSHIP_TOKEN_TTL", "soon")

	_, err := config.Load("")
	require.Error(t, err)
	assert.True(t, auth.IsValidationError(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *config.Settings) {}},
		{name: "missing secret", mutate: func(s *config.Settings) { s.Auth.Secret = "" }, wantErr: true},
		{name: "short secret", mutate: func(s *config.Settings) { s.Auth.Secret = "short" }, wantErr: true},
		{name: "zero ttl", mutate: func(s *config.Settings) { s.Auth.TokenTTL = 0 }, wantErr: true},
		{name: "fractional ttl", mutate: func(s *config.Settings) { s.Auth.TokenTTL = 1500 * time.Millisecond }, wantErr: true},
		{name: "fractional reset ttl", mutate: func(s *config.Settings) { s.Auth.ResetTokenTTL = 90*time.Second + time.Millisecond }, wantErr: true},
		{name: "unknown ledger", mutate: func(s *config.Settings) { s.Ledger.Driver = "etcd" }, wantErr: true},
		{name: "redis without addr", mutate: func(s *config.Settings) {
			s.Ledger.Driver = config.LedgerRedis
			s.Ledger.Redis.Addr = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Defaults()
			s.Auth.Secret = testSecret
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, auth.IsValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "MEMBERSHIP_ISSUER_FROM_FILE=dotenv\n")
	t.Cleanup(func() { os.Unsetenv("MEMBERSHIP_ISSUER_FROM_FILE") })

	require.NoError(t, config.LoadEnvFile(path))
	assert.Equal(t, "dotenv", os.Getenv("MEMBERSHIP_ISSUER_FROM_FILE"))

	assert.NoError(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestAuthConfig(t *testing.T) {
	s := config.Defaults()
	s.Auth.Secret = testSecret
	s.Auth.TokenTTL = time.Hour

	cfg, err := s.AuthConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, auth.DefaultResetTokenTTL, cfg.ResetTokenTTL())
	assert.Equal(t, "membership", cfg.Issuer())
	assert.Equal(t, []byte(testSecret), cfg.SigningKey())
}
