package auth

import (
	"errors"
	"regexp"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

var passwordSpecialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

// RegisterInput is the registration request.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(MinUsernameLength, MaxUsernameLength)),
		validation.Field(&r.Password, validation.Required, validation.By(PasswordStrength)),
	)
}

// LoginInput is the login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ResetPasswordInput is the second step of password recovery.
type ResetPasswordInput struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.By(PasswordStrength)),
	)
}

// PasswordStrength requires at least MinPasswordLength characters with an
// upper case letter, a lower case letter, a digit and a special character.
func PasswordStrength(value any) error {
	pw, _ := value.(string)
	if pw == "" {
		return nil
	}

	if len(pw) < MinPasswordLength {
		return errors.New("must be at least 8 characters long")
	}

	if len(pw) > MaxPasswordLength {
		return errors.New("must be at most 72 bytes long")
	}

	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return errors.New("must contain at least one uppercase letter")
	case !lower:
		return errors.New("must contain at least one lowercase letter")
	case !digit:
		return errors.New("must contain at least one digit")
	case !passwordSpecialChars.MatchString(pw):
		return errors.New("must contain at least one special character")
	}

	return nil
}

// inputError converts ozzo validation errors into a ValidationError whose
// metadata holds one message per field.
func inputError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid input").
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidationFailed).
		WithMetadata(fields)
}
