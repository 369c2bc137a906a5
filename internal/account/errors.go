package account

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("invalid input")
	ErrDuplicateAccount      = errors.New("an account with this email or username already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrBlockedAccount        = errors.New("account is blocked, please contact an administrator")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired verification token")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDeliveryFailure       = errors.New("failed to send verification email")
	// ErrInternal covers store or gateway failures, timeouts included. Callers
	// may retry operations failing with it.
	ErrInternal = errors.New("internal error")
)

// Kind names of the error taxonomy, as reported by KindOf.
const (
	KindValidation            = "ValidationError"
	KindDuplicateAccount      = "DuplicateAccount"
	KindInvalidCredentials    = "InvalidCredentials"
	KindBlockedAccount        = "BlockedAccount"
	KindInvalidOrExpiredToken = "InvalidOrExpiredToken"
	KindUnauthorized          = "Unauthorized"
	KindDeliveryFailure       = "DeliveryFailure"
	KindInternal              = "InternalError"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrDuplicateAccount, KindDuplicateAccount},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrBlockedAccount, KindBlockedAccount},
	{ErrInvalidOrExpiredToken, KindInvalidOrExpiredToken},
	{ErrUnauthorized, KindUnauthorized},
	{ErrDeliveryFailure, KindDeliveryFailure},
	{ErrInternal, KindInternal},
}

// KindOf maps err to its taxonomy kind. Unknown errors are internal. Returns
// an empty string for a nil error.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindInternal
}

// Retryable reports whether the operation that returned err may succeed if
// attempted again.
func Retryable(err error) bool {
	return KindOf(err) == KindInternal
}

type validationError struct {
	err error
}

func (e validationError) Error() string {
	return e.err.Error()
}

func (e validationError) Unwrap() []error {
	return []error{ErrValidation, e.err}
}

func invalid(err error) error {
	return validationError{err: err}
}

func internalErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", ErrInternal, op, err)
	}

	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
