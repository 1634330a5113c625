// Package ledger records which password reset credentials were already
// redeemed so a credential can only be used once before it expires.
//
// Entries only need to live until the credential they track expires; both
// stores drop them after that point.
package ledger

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const defaultKeyPrefix = "membership:reset:"

func validateTokenID(tokenID string) error {
	if strings.TrimSpace(tokenID) == "" {
		return goerrors.New("reset token id is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("VALIDATION_FAILED")
	}
	return nil
}
