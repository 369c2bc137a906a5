package account

import (
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/validators"
	"context"
)

// Admin runs bulk operations over many accounts. Unknown IDs are skipped and
// every operation is idempotent.
type Admin struct {
	repo store.Repository
	settings
}

func NewAdmin(repo store.Repository, opts ...Option) *Admin {
	return &Admin{repo: repo, settings: newSettings(opts)}
}

// List returns all accounts, newest registration first.
func (a *Admin) List(ctx context.Context) ([]model.Account, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	accounts, err := a.repo.List(ctx)
	if err != nil {
		return nil, internalErr("list accounts", err)
	}

	return accounts, nil
}

func (a *Admin) BlockMany(ctx context.Context, ids []string) (int64, error) {
	return a.setBlocked(ctx, ids, true)
}

func (a *Admin) UnblockMany(ctx context.Context, ids []string) (int64, error) {
	return a.setBlocked(ctx, ids, false)
}

func (a *Admin) setBlocked(ctx context.Context, ids []string, blocked bool) (int64, error) {
	if err := validators.IDsValidator(ids); err != nil {
		return 0, invalid(err)
	}

	ctx, cancel := a.bound(ctx)
	defer cancel()

	n, err := a.repo.SetBlocked(ctx, ids, blocked)
	if err != nil {
		return 0, internalErr("update blocked state", err)
	}

	return n, nil
}

func (a *Admin) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if err := validators.IDsValidator(ids); err != nil {
		return 0, invalid(err)
	}

	ctx, cancel := a.bound(ctx)
	defer cancel()

	n, err := a.repo.Delete(ctx, ids)
	if err != nil {
		return 0, internalErr("delete accounts", err)
	}

	return n, nil
}

// PurgeUnverified deletes every account that never verified its email,
// regardless of age.
func (a *Admin) PurgeUnverified(ctx context.Context) (int64, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	n, err := a.repo.DeleteUnverified(ctx)
	if err != nil {
		return 0, internalErr("delete unverified accounts", err)
	}

	return n, nil
}
