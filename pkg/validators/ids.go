package validators

import (
	"errors"
	"strings"
)

const MaxBulkIDs = 1000

var (
	ErrIDsEmpty   = errors.New("no account IDs provided")
	ErrIDsTooMany = errors.New("too many account IDs provided, the limit is 1000")
	ErrIDsInvalid = errors.New("account IDs can't be blank")
)

// IDsValidator checks an id list handed to a bulk admin operation.
func IDsValidator(ids []string) error {
	if len(ids) == 0 {
		return ErrIDsEmpty
	}

	if len(ids) > MaxBulkIDs {
		return ErrIDsTooMany
	}

	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrIDsInvalid
		}
	}

	return nil
}
