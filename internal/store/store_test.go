package store

import (
	"bitwise74/account-api/internal/model"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLite(t *testing.T) Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Account{}))
	return NewGormRepository(db)
}

func eachRepo(t *testing.T, fn func(t *testing.T, r Repository)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryRepository()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
}

func pending(id, email, token string, expiry time.Time, registered time.Time) *model.Account {
	return &model.Account{
		ID:                      id,
		Username:                "user_" + id,
		Email:                   email,
		PasswordHash:            "hash",
		Designation:             "User",
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
		RegisteredAt:            registered,
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()

		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		dupEmail := pending("a2", "a@example.com", "t2", base.Add(time.Hour), base)
		assert.ErrorIs(t, r.Create(ctx, dupEmail), ErrDuplicate)

		dupUsername := pending("a3", "c@example.com", "t3", base.Add(time.Hour), base)
		dupUsername.Username = "user_a1"
		assert.ErrorIs(t, r.Create(ctx, dupUsername), ErrDuplicate)
	})
}

func TestFindByEmailAndID(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		got, err := r.FindByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", got.ID)
		assert.True(t, got.Pending())

		got, err = r.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", got.Email)

		_, err = r.FindByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListNewestFirst(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("old", "old@example.com", "t1", base.Add(time.Hour), base)))
		require.NoError(t, r.Create(ctx, pending("new", "new@example.com", "t2", base.Add(time.Hour), base.Add(time.Minute))))

		list, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "new", list[0].ID)
		assert.Equal(t, "old", list[1].ID)
	})
}

func TestUpdateTouchesOnlyGivenFields(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		login := base.Add(5 * time.Minute)
		require.NoError(t, r.Update(ctx, "a1", Update{LastLoginAt: &login}))

		got, err := r.FindByID(ctx, "a1")
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
		assert.True(t, login.Equal(*got.LastLoginAt))
		assert.Equal(t, "hash", got.PasswordHash)
		assert.Equal(t, "User", got.Designation)

		assert.ErrorIs(t, r.Update(ctx, "missing", Update{LastLoginAt: &login}), ErrNotFound)
	})
}

func TestUpdateVerificationSkipsVerifiedAccounts(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		_, err := r.ConsumeVerification(ctx, "t1", base)
		require.NoError(t, err)

		err = r.Update(ctx, "a1", Update{Verification: &model.Verification{Token: "t2", ExpiresAt: base.Add(time.Hour)}})
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := r.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Nil(t, got.VerificationToken)
		assert.Nil(t, got.VerificationTokenExpiry)
	})
}

func TestConsumeVerification(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		id, err := r.ConsumeVerification(ctx, "t1", base)
		require.NoError(t, err)
		assert.Equal(t, "a1", id)

		got, err := r.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, got.IsVerified)
		assert.Nil(t, got.VerificationToken)
		assert.Nil(t, got.VerificationTokenExpiry)

		_, err = r.ConsumeVerification(ctx, "t1", base)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = r.ConsumeVerification(ctx, "unknown", base)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConsumeVerificationRejectsExpired(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		_, err := r.ConsumeVerification(ctx, "t1", base.Add(time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := r.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.False(t, got.IsVerified)
	})
}

func TestConsumeVerificationSingleWinner(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a@example.com", "t1", base.Add(time.Hour), base)))

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)

		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.ConsumeVerification(ctx, "t1", base); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load())
	})
}

func TestBulkOperations(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		for i := range 3 {
			id := fmt.Sprintf("a%d", i)
			require.NoError(t, r.Create(ctx, pending(id, id+"@example.com", "t"+id, base.Add(time.Hour), base)))
		}

		n, err := r.SetBlocked(ctx, []string{"a0", "a1", "ghost"}, true)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		got, err := r.FindByID(ctx, "a0")
		require.NoError(t, err)
		assert.True(t, got.IsBlocked)
		assert.False(t, got.IsVerified)

		n, err = r.SetBlocked(ctx, []string{"a0"}, false)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = r.Delete(ctx, []string{"a2", "ghost"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = r.Delete(ctx, []string{"a2"})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})
}

func TestDeleteUnverified(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a1@example.com", "t1", base.Add(time.Hour), base)))
		require.NoError(t, r.Create(ctx, pending("a2", "a2@example.com", "t2", base.Add(time.Hour), base)))
		require.NoError(t, r.Create(ctx, pending("a3", "a3@example.com", "t3", base.Add(time.Hour), base)))

		_, err := r.ConsumeVerification(ctx, "t3", base)
		require.NoError(t, err)

		n, err := r.DeleteUnverified(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		list, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "a3", list[0].ID)
	})
}

func TestClearExpiredVerifications(t *testing.T) {
	eachRepo(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Create(ctx, pending("a1", "a1@example.com", "t1", base.Add(time.Minute), base)))
		require.NoError(t, r.Create(ctx, pending("a2", "a2@example.com", "t2", base.Add(48*time.Hour), base)))

		n, err := r.ClearExpiredVerifications(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := r.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Nil(t, got.VerificationToken)
		assert.Nil(t, got.VerificationTokenExpiry)
		assert.False(t, got.IsVerified)

		got, err = r.FindByID(ctx, "a2")
		require.NoError(t, err)
		assert.True(t, got.Pending())
	})
}

func TestMemoryRepositoryHonorsCanceledContext(t *testing.T) {
	r := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FindByID(ctx, "a1")
	assert.ErrorIs(t, err, context.Canceled)
}
