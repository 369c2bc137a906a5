// Package store persists account records. Every method is safe for concurrent
// use and honors the deadline carried by ctx.
package store

import (
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account with this email or username already exists")
)

// Update lists the fields to overwrite on a single account. Nil fields are
// left untouched so concurrent updates of disjoint fields don't clobber each
// other.
type Update struct {
	PasswordHash *string
	Designation  *string
	LastLoginAt  *time.Time
	// Verification replaces the pending verification token. It only applies
	// to accounts that are not verified yet.
	Verification *model.Verification
}

func (u Update) empty() bool {
	return u.PasswordHash == nil && u.Designation == nil && u.LastLoginAt == nil && u.Verification == nil
}

type Repository interface {
	// Create inserts a. Returns ErrDuplicate if the email, username or
	// verification token is already taken.
	Create(ctx context.Context, a *model.Account) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	// List returns every account, newest registration first.
	List(ctx context.Context) ([]model.Account, error)
	Update(ctx context.Context, id string, u Update) error
	// ConsumeVerification marks the account holding token as verified and
	// clears its token, but only if the token expires after now. The check
	// and the write happen as one conditional statement so at most one
	// caller can succeed per token. Returns ErrNotFound when nothing matched.
	ConsumeVerification(ctx context.Context, token string, now time.Time) (string, error)
	SetBlocked(ctx context.Context, ids []string, blocked bool) (int64, error)
	Delete(ctx context.Context, ids []string) (int64, error)
	DeleteUnverified(ctx context.Context) (int64, error)
	// ClearExpiredVerifications drops the token pair from every account whose
	// token expired at or before now. Verification state is left unchanged.
	ClearExpiredVerifications(ctx context.Context, now time.Time) (int64, error)
}
