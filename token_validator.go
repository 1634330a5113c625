package auth

// TokenValidator decodes bearer credentials without tying callers to a
// specific signing implementation.
type TokenValidator interface {
	Decode(raw string) (*BearerClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(raw string) (*BearerClaims, error)

// Decode satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Decode(raw string) (*BearerClaims, error) {
	if f == nil {
		return nil, ErrInvalidCredential
	}
	return f(raw)
}
