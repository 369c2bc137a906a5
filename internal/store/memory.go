package store

import (
	"bitwise74/account-api/internal/model"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository keeps accounts in process memory. It is the test double
// used by the account, HTTP and store tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*model.Account)}
}

func clone(a *model.Account) *model.Account {
	c := *a
	if a.VerificationToken != nil {
		t := *a.VerificationToken
		c.VerificationToken = &t
	}
	if a.VerificationTokenExpiry != nil {
		e := *a.VerificationTokenExpiry
		c.VerificationTokenExpiry = &e
	}
	if a.LastLoginAt != nil {
		l := *a.LastLoginAt
		c.LastLoginAt = &l
	}

	return &c
}

func (r *MemoryRepository) Create(ctx context.Context, a *model.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[a.ID]; ok {
		return ErrDuplicate
	}

	for _, existing := range r.accounts {
		if existing.Email == a.Email || existing.Username == a.Username {
			return ErrDuplicate
		}

		if a.VerificationToken != nil && existing.VerificationToken != nil &&
			*existing.VerificationToken == *a.VerificationToken {
			return ErrDuplicate
		}
	}

	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	r.accounts[a.ID] = clone(a)
	return nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(ctx, func(a *model.Account) bool { return a.Email == email })
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.find(ctx, func(a *model.Account) bool { return a.ID == id })
}

func (r *MemoryRepository) find(ctx context.Context, match func(*model.Account) bool) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(a) {
			return clone(a), nil
		}
	}

	return nil, ErrNotFound
}

func (r *MemoryRepository) List(ctx context.Context) ([]model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *clone(a))
	}

	slices.SortFunc(out, func(a, b model.Account) int {
		return b.RegisteredAt.Compare(a.RegisteredAt)
	})

	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if u.empty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}

	if u.Verification != nil {
		if a.IsVerified {
			return ErrNotFound
		}

		for otherID, other := range r.accounts {
			if otherID != id && other.VerificationToken != nil && *other.VerificationToken == u.Verification.Token {
				return ErrDuplicate
			}
		}

		token, expiry := u.Verification.Token, u.Verification.ExpiresAt
		a.VerificationToken = &token
		a.VerificationTokenExpiry = &expiry
	}

	if u.PasswordHash != nil {
		a.PasswordHash = *u.PasswordHash
	}
	if u.Designation != nil {
		a.Designation = *u.Designation
	}
	if u.LastLoginAt != nil {
		l := *u.LastLoginAt
		a.LastLoginAt = &l
	}

	a.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ConsumeVerification(ctx context.Context, token string, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.accounts {
		if a.VerificationToken == nil || *a.VerificationToken != token {
			continue
		}

		if a.VerificationTokenExpiry == nil || !a.VerificationTokenExpiry.After(now) {
			return "", ErrNotFound
		}

		a.IsVerified = true
		a.VerificationToken = nil
		a.VerificationTokenExpiry = nil
		a.UpdatedAt = time.Now()

		return id, nil
	}

	return "", ErrNotFound
}

func (r *MemoryRepository) SetBlocked(ctx context.Context, ids []string, blocked bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range dedupe(ids) {
		if a, ok := r.accounts[id]; ok {
			a.IsBlocked = blocked
			a.UpdatedAt = time.Now()
			n++
		}
	}

	return n, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, id := range dedupe(ids) {
		if _, ok := r.accounts[id]; ok {
			delete(r.accounts, id)
			n++
		}
	}

	return n, nil
}

func (r *MemoryRepository) DeleteUnverified(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.accounts {
		if !a.IsVerified {
			delete(r.accounts, id)
			n++
		}
	}

	return n, nil
}

func (r *MemoryRepository) ClearExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, a := range r.accounts {
		if a.VerificationToken != nil && a.VerificationTokenExpiry != nil && !a.VerificationTokenExpiry.After(now) {
			a.VerificationToken = nil
			a.VerificationTokenExpiry = nil
			n++
		}
	}

	return n, nil
}

func dedupe(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
