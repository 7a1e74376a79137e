package services

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate applies the same tag rules gin uses for request payloads.
var validate = validator.New()

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: customerEmail is not a valid address", ErrValidation)
	}
	return email, nil
}
