package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	TextCodeInvalidCredential    = "INVALID_CREDENTIAL"
	TextCodePermissionDenied     = "PERMISSION_DENIED"
	TextCodeAccountInactive      = "ACCOUNT_INACTIVE"
	TextCodeNotFound             = "NOT_FOUND"
	TextCodeDuplicate            = "DUPLICATE"
	TextCodeValidationFailed     = "VALIDATION_FAILED"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
)

// ErrInvalidCredential is returned for any bearer or reset credential that
// fails to decode. Signature, expiry and claim failures are not told apart.
var ErrInvalidCredential = goerrors.New("invalid or expired credential", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredential)

// ErrAuthenticationFailed is returned by Login for unknown accounts,
// inactive accounts and wrong passwords alike.
var ErrAuthenticationFailed = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeAuthenticationFailed)

// ErrAccountInactive is returned when a resolved subject is deactivated.
var ErrAccountInactive = goerrors.New("account is inactive", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeAccountInactive)

// ErrUserNotFound is returned when a referenced subject does not exist.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeNotFound)

// ErrDuplicateAccount is returned when registration collides with an
// existing account.
var ErrDuplicateAccount = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicate)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

func permissionError(reason string) *goerrors.Error {
	return goerrors.New(reason, goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithTextCode(TextCodePermissionDenied)
}

// IsAuthenticationError reports bad, missing or expired credentials and
// wrong passwords.
func IsAuthenticationError(err error) bool {
	return hasCategory(err, goerrors.CategoryAuth)
}

// IsPermissionError reports role policy denials and inactive accounts.
func IsPermissionError(err error) bool {
	return hasCategory(err, goerrors.CategoryAuthz)
}

// IsNotFoundError reports a referenced subject that does not exist.
func IsNotFoundError(err error) bool {
	return hasCategory(err, goerrors.CategoryNotFound)
}

// IsDuplicateError reports registration conflicts.
func IsDuplicateError(err error) bool {
	return hasCategory(err, goerrors.CategoryConflict)
}

// IsValidationError reports malformed input.
func IsValidationError(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

func hasCategory(err error, category goerrors.Category) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == category
	}
	return false
}
