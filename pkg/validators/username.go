package validators

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrUsernameEmpty    = errors.New("no username provided")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters long")
	ErrUsernameTooLong  = errors.New("username can't be longer than 30 characters")
	ErrUsernameInvalid  = errors.New("username contains invalid characters")
)

// UsernameValidator expects an already trimmed username.
func UsernameValidator(u string) error {
	if u == "" {
		return ErrUsernameEmpty
	}

	if validate.Var(u, "min=3") != nil {
		return ErrUsernameTooShort
	}

	if validate.Var(u, "max=30") != nil {
		return ErrUsernameTooLong
	}

	if strings.IndexFunc(u, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }) >= 0 {
		return ErrUsernameInvalid
	}

	return nil
}
