package store

import (
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormRepository stores accounts in a SQL database through gorm. The *gorm.DB
// must be opened with TranslateError enabled so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, a *model.Account) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}

		return fmt.Errorf("failed to insert account, %w", err)
	}

	return nil
}

func (r *GormRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormRepository) first(ctx context.Context, query string, args ...any) (*model.Account, error) {
	var a model.Account

	err := r.db.WithContext(ctx).
		Where(query, args...).
		First(&a).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to query account, %w", err)
	}

	return &a, nil
}

func (r *GormRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account

	err := r.db.WithContext(ctx).
		Order("registered_at desc").
		Find(&accounts).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts, %w", err)
	}

	return accounts, nil
}

func (r *GormRepository) Update(ctx context.Context, id string, u Update) error {
	if u.empty() {
		return nil
	}

	fields := map[string]any{}
	if u.PasswordHash != nil {
		fields["password_hash"] = *u.PasswordHash
	}
	if u.Designation != nil {
		fields["designation"] = *u.Designation
	}
	if u.LastLoginAt != nil {
		fields["last_login_at"] = *u.LastLoginAt
	}

	q := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id)
	if u.Verification != nil {
		fields["verification_token"] = u.Verification.Token
		fields["verification_token_expiry"] = u.Verification.ExpiresAt
		q = q.Where("is_verified = ?", false)
	}

	res := q.Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}

		return fmt.Errorf("failed to update account, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *GormRepository) ConsumeVerification(ctx context.Context, token string, now time.Time) (string, error) {
	var ids []string

	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("verification_token = ?", token).
		Limit(1).
		Pluck("id", &ids).
		Error
	if err != nil {
		return "", fmt.Errorf("failed to look up verification token, %w", err)
	}

	if len(ids) == 0 {
		return "", ErrNotFound
	}
	id := ids[0]

	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND verification_token = ? AND verification_token_expiry > ?", id, token, now).
		Updates(map[string]any{
			"is_verified":               true,
			"verification_token":        nil,
			"verification_token_expiry": nil,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to consume verification token, %w", res.Error)
	}

	if res.RowsAffected != 1 {
		return "", ErrNotFound
	}

	return id, nil
}

func (r *GormRepository) SetBlocked(ctx context.Context, ids []string, blocked bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id IN ?", ids).
		Update("is_blocked", blocked)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update blocked state, %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (r *GormRepository) Delete(ctx context.Context, ids []string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&model.Account{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete accounts, %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (r *GormRepository) DeleteUnverified(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_verified = ?", false).
		Delete(&model.Account{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete unverified accounts, %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (r *GormRepository) ClearExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("verification_token IS NOT NULL AND verification_token_expiry <= ?", now).
		Updates(map[string]any{
			"verification_token":        nil,
			"verification_token_expiry": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear expired verification tokens, %w", res.Error)
	}

	return res.RowsAffected, nil
}
