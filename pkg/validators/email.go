// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmailEmpty   = errors.New("no email address provided")
	ErrEmailInvalid = errors.New("invalid email address provided")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeEmail trims and lower-cases e so lookups are case insensitive.
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func EmailValidator(e string) error {
	if e == "" {
		return ErrEmailEmpty
	}

	if err := validate.Var(e, "email,max=254"); err != nil {
		return ErrEmailInvalid
	}

	return nil
}
