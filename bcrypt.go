package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatchedHashAndPassword is returned when a password does not match
// its digest.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeAuthenticationFailed)

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
// The "$2a$<cost>$" prefix of every digest identifies algorithm and cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using the configured cost.
func NewPasswordHasher(cfg *Config) *PasswordHasher {
	cost := passwordHashCost()
	if cfg != nil && cfg.HashCost() > 0 {
		cost = cfg.HashCost()
	}

	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}

	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	return &PasswordHasher{cost: cost}
}

// Cost returns the bcrypt work factor
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *PasswordHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", validationError("password is too long")
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(digest), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *PasswordHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// Verify reports whether password matches digest. Malformed digests are a
// mismatch.
func (h *PasswordHasher) Verify(password, digest string) bool {
	return ComparePasswordAndHash(password, digest) == nil
}

// NeedsRehash reports whether digest was produced with a different cost.
func (h *PasswordHasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryAuth, "invalid password digest").
			WithCode(goerrors.CodeUnauthorized)
	}
	return nil
}
