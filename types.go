package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the logging contract used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserRepository is the persistence collaborator the core consumes.
// Lookups that miss return ErrUserNotFound.
//
// UpdateRole and UpdatePassword write only the columns they own and never
// touch the rest of the row.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	Exists(ctx context.Context, email string) (bool, error)
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)
	UpdatePassword(ctx context.Context, id, digest string, markVerified bool) error
}

// UserLookup resolves a subject identifier into a user. Gate only needs this
// half of UserRepository.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

// PasswordVerifier hashes new passwords and checks presented ones.
type PasswordVerifier interface {
	HashPassword(password string) (string, error)
	Verify(password, digest string) bool
}

// ResetLedger remembers redeemed reset credentials. Consume returns false
// when tokenID was already redeemed.
type ResetLedger interface {
	Consume(ctx context.Context, tokenID string, until time.Time) (bool, error)
}

// ResetDelivery sends a reset credential to the owner of email.
type ResetDelivery interface {
	DeliverReset(ctx context.Context, email string, credential *Credential) error
}

// ResetDeliveryFunc adapts a function into a ResetDelivery.
type ResetDeliveryFunc func(ctx context.Context, email string, credential *Credential) error

// DeliverReset satisfies ResetDelivery.
func (f ResetDeliveryFunc) DeliverReset(ctx context.Context, email string, credential *Credential) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, credential)
}

// Clock returns the current time
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now satisfies the Clock interface.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// SecretProvider exposes the process wide signing key.
type SecretProvider interface {
	SigningKey() []byte
}

// StaticSecret is a SecretProvider backed by a fixed key.
type StaticSecret []byte

// SigningKey returns a copy of the key.
func (s StaticSecret) SigningKey() []byte {
	out := make([]byte, len(s))
	copy(out, s)
	return out
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println("[ERR] AUTH " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println("[WRN] AUTH " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println("[INF] AUTH " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println("[DBG] AUTH " + format(msg, args...))
}

func format(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteString(" ")
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return b.String()
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards every message.
func NoopLogger() Logger {
	return noopLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func normalizeClock(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}
