package validators

import "errors"

const (
	PasswordMinLength = 6
	PasswordMaxLength = 100
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong  = errors.New("password can't be longer than 100 characters")
	ErrPasswordEmpty    = errors.New("no password provided")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if validate.Var(p, "min=6") != nil {
		return ErrPasswordTooShort
	}

	if validate.Var(p, "max=100") != nil {
		return ErrPasswordTooLong
	}

	return nil
}
