package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"
	"spin-rewards-backend/internal/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	testDB := testhelpers.SetupTestDatabase(t)
	store := services.NewPostgresStore(testDB.DB)
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "404404404")
		assert.ErrorIs(t, err, services.ErrAccountNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		account := models.NewDailyAccount(testUserID, "2026-03-01", time.Now().UTC())
		account.SpinsToday = 3
		account.DailyEarnings = decimal.RequireFromString("0.45")
		account.TotalEarnings = decimal.RequireFromString("7.95")
		require.NoError(t, store.Put(ctx, account))

		got, err := store.Get(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.SpinsToday)
		assert.True(t, got.DailyEarnings.Equal(account.DailyEarnings), "daily %s", got.DailyEarnings)
		assert.True(t, got.TotalEarnings.Equal(account.TotalEarnings), "total %s", got.TotalEarnings)
		assert.Equal(t, "2026-03-01", got.LastResetDate)
		assert.False(t, got.BonusClaimed)

		account.BonusClaimed = true
		account.LastResetDate = "2026-03-02"
		require.NoError(t, store.Put(ctx, account))

		got, err = store.Get(ctx, testUserID)
		require.NoError(t, err)
		assert.True(t, got.BonusClaimed)
		assert.Equal(t, "2026-03-02", got.LastResetDate)
	})

	t.Run("concurrent spins on a new account", func(t *testing.T) {
		const userID = "555555555"
		rewards := services.NewRewardService(store, services.SystemClock{Location: time.UTC}, nil)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < models.MaxSpins+5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := rewards.Spin(ctx, userID)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, services.ErrQuotaExceeded)
			}()
		}
		wg.Wait()

		assert.Equal(t, models.MaxSpins, succeeded)

		got, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, models.MaxSpins, got.SpinsToday)
		assert.True(t, got.DailyEarnings.Equal(models.DailyTarget), "daily %s", got.DailyEarnings)
	})
}
