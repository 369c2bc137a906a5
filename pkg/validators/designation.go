package validators

import (
	"errors"
	"strings"
)

const DefaultDesignation = "User"

var ErrDesignationTooLong = errors.New("designation can't be longer than 100 characters")

// Designation returns the trimmed designation, or DefaultDesignation when d
// is blank.
func Designation(d string) (string, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return DefaultDesignation, nil
	}

	if validate.Var(d, "max=100") != nil {
		return "", ErrDesignationTooLong
	}

	return d, nil
}
