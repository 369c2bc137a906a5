package account

import (
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"
	"context"
	"errors"
)

// VerificationTokens mints and redeems single-use email verification tokens.
type VerificationTokens struct {
	repo store.Repository
	settings
}

func NewVerificationTokens(repo store.Repository, opts ...Option) *VerificationTokens {
	return &VerificationTokens{repo: repo, settings: newSettings(opts)}
}

// Generate returns a fresh token expiring 24 hours from now. It is not
// persisted.
func (v *VerificationTokens) Generate() (model.Verification, error) {
	t, err := security.MakeVerificationToken(v.now())
	if err != nil {
		return model.Verification{}, internalErr("generate verification token", err)
	}

	return t, nil
}

// ValidateAndConsume verifies the account holding token and invalidates the
// token, all in a single conditional write. Unknown, used and expired tokens
// are indistinguishable to the caller.
func (v *VerificationTokens) ValidateAndConsume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidOrExpiredToken
	}

	ctx, cancel := v.bound(ctx)
	defer cancel()

	id, err := v.repo.ConsumeVerification(ctx, token, v.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidOrExpiredToken
		}

		return "", internalErr("consume verification token", err)
	}

	return id, nil
}

// Reissue makes sure the unverified account a carries a usable token and
// returns it. A still valid token is reused, an expired or missing one is
// replaced. Returns store.ErrNotFound if a was verified or deleted meanwhile.
func (v *VerificationTokens) Reissue(ctx context.Context, a *model.Account) (string, error) {
	if a.Pending() && a.VerificationTokenExpiry.After(v.now()) {
		return *a.VerificationToken, nil
	}

	t, err := v.Generate()
	if err != nil {
		return "", err
	}

	ctx, cancel := v.bound(ctx)
	defer cancel()

	if err := v.repo.Update(ctx, a.ID, store.Update{Verification: &t}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", err
		}

		return "", internalErr("store verification token", err)
	}

	return t.Token, nil
}

// SweepExpired drops expired token pairs from unverified accounts and returns
// how many were cleared.
func (v *VerificationTokens) SweepExpired(ctx context.Context) (int64, error) {
	ctx, cancel := v.bound(ctx)
	defer cancel()

	n, err := v.repo.ClearExpiredVerifications(ctx, v.now())
	if err != nil {
		return 0, internalErr("clear expired verification tokens", err)
	}

	return n, nil
}
