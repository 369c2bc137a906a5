// Package account implements the account lifecycle: registration, email
// verification, login, session checks and bulk administration.
package account

import (
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/validators"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idLength  = 16
)

type PasswordHasher interface {
	GenerateFromPassword(p string) (string, error)
	VerifyPasswd(p, encoded string) (bool, error)
}

// NewAccount is the registration input.
type NewAccount struct {
	Username    string
	Email       string
	Password    string
	Designation string
}

// Changes lists the account fields to update. Nil fields are kept.
type Changes struct {
	Password    *string
	Designation *string
	LastLoginAt *time.Time
}

// CredentialStore owns account records and their password hashes. Plaintext
// passwords are hashed exactly once on the way in and never stored or logged.
type CredentialStore struct {
	repo   store.Repository
	hasher PasswordHasher
	settings

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialStore(repo store.Repository, hasher PasswordHasher, opts ...Option) *CredentialStore {
	return &CredentialStore{
		repo:     repo,
		hasher:   hasher,
		settings: newSettings(opts),
	}
}

// Create validates in and inserts a new unverified account carrying the
// pending verification v.
func (c *CredentialStore) Create(ctx context.Context, in NewAccount, v model.Verification) (*model.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := validators.NormalizeEmail(in.Email)

	if err := validators.UsernameValidator(username); err != nil {
		return nil, invalid(err)
	}

	if err := validators.EmailValidator(email); err != nil {
		return nil, invalid(err)
	}

	if err := validators.PasswordValidator(in.Password); err != nil {
		return nil, invalid(err)
	}

	designation, err := validators.Designation(in.Designation)
	if err != nil {
		return nil, invalid(err)
	}

	if _, err := c.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := c.hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	id, err := gonanoid.Generate(idCharset, idLength)
	if err != nil {
		return nil, internalErr("generate account ID", err)
	}

	token, expiry := v.Token, v.ExpiresAt
	a := &model.Account{
		ID:                      id,
		Username:                username,
		Email:                   email,
		PasswordHash:            hash,
		Designation:             designation,
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
		RegisteredAt:            c.now(),
	}

	// A committed insert must be seen through to delivery, so the caller
	// going away doesn't abort it. The timeout still applies.
	ctx, cancel := c.bound(context.WithoutCancel(ctx))
	defer cancel()

	if err := c.repo.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}

		return nil, internalErr("create account", err)
	}

	return a, nil
}

// FindByEmail returns store.ErrNotFound when no account uses email.
func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	a, err := c.repo.FindByEmail(ctx, validators.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		return nil, internalErr("find account by email", err)
	}

	return a, nil
}

// FindByID returns store.ErrNotFound when no account has id.
func (c *CredentialStore) FindByID(ctx context.Context, id string) (*model.Account, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	a, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		return nil, internalErr("find account by ID", err)
	}

	return a, nil
}

// VerifyPassword reports whether candidate matches the stored hash of a.
func (c *CredentialStore) VerifyPassword(a *model.Account, candidate string) bool {
	ok, err := c.hasher.VerifyPasswd(candidate, a.PasswordHash)
	if err != nil {
		zap.L().Error("Failed to verify password", zap.Error(err), zap.String("accountID", a.ID))
		return false
	}

	return ok
}

// burnPassword spends about as long as VerifyPassword so unknown emails can't
// be told apart from wrong passwords by timing.
func (c *CredentialStore) burnPassword(candidate string) {
	c.dummyOnce.Do(func() {
		c.dummyHash, _ = c.hasher.GenerateFromPassword("not-a-real-password")
	})

	if c.dummyHash != "" {
		_, _ = c.hasher.VerifyPasswd(candidate, c.dummyHash)
	}
}

// Update persists ch for the account with id. The password is re-hashed only
// when ch.Password is set.
func (c *CredentialStore) Update(ctx context.Context, id string, ch Changes) error {
	var u store.Update

	if ch.Password != nil {
		if err := validators.PasswordValidator(*ch.Password); err != nil {
			return invalid(err)
		}

		hash, err := c.hasher.GenerateFromPassword(*ch.Password)
		if err != nil {
			return internalErr("hash password", err)
		}
		u.PasswordHash = &hash
	}

	if ch.Designation != nil {
		d, err := validators.Designation(*ch.Designation)
		if err != nil {
			return invalid(err)
		}
		u.Designation = &d
	}

	u.LastLoginAt = ch.LastLoginAt

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.repo.Update(ctx, id, u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}

		return internalErr("update account", err)
	}

	return nil
}
