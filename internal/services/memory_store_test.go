package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spin-rewards-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetPut(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "123456789")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	account := freshAccount()
	require.NoError(t, store.Put(ctx, account))

	// later mutation of the caller's copy does not leak into the store
	account.SpinsToday = 9

	got, err := store.Get(ctx, "123456789")
	require.NoError(t, err)
	assert.Equal(t, 0, got.SpinsToday)
	assert.Equal(t, "2026-03-01", got.LastResetDate)
}

func TestMemoryStore_RunExclusive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t.Run("nil result persists nothing", func(t *testing.T) {
		err := store.RunExclusive(ctx, "111111111", func(current *models.DailyAccount) (*models.DailyAccount, error) {
			assert.Nil(t, current)
			return nil, nil
		})
		require.NoError(t, err)

		_, err = store.Get(ctx, "111111111")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("error aborts the write", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, freshAccount()))

		boom := errors.New("boom")
		err := store.RunExclusive(ctx, "123456789", func(current *models.DailyAccount) (*models.DailyAccount, error) {
			current.SpinsToday = 5
			return current, boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, "123456789")
		require.NoError(t, err)
		assert.Equal(t, 0, got.SpinsToday)
	})

	t.Run("rejects a different account", func(t *testing.T) {
		err := store.RunExclusive(ctx, "123456789", func(current *models.DailyAccount) (*models.DailyAccount, error) {
			other := current.Clone()
			other.UserID = "987654321"
			return other, nil
		})
		assert.Error(t, err)
	})

	t.Run("serializes updates", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.RunExclusive(ctx, "222222222", func(current *models.DailyAccount) (*models.DailyAccount, error) {
					account := GetOrInit(current, "222222222", "2026-03-01", time.Now())
					account.SpinsToday++
					return account, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, "222222222")
		require.NoError(t, err)
		assert.Equal(t, 50, got.SpinsToday)
	})

	t.Run("drops per-user locks when idle", func(t *testing.T) {
		for _, id := range []string{"333333333", "444444444", "555555555"} {
			err := store.RunExclusive(ctx, id, func(current *models.DailyAccount) (*models.DailyAccount, error) {
				return GetOrInit(current, id, "2026-03-01", time.Now()), nil
			})
			require.NoError(t, err)
		}

		store.mu.Lock()
		defer store.mu.Unlock()
		assert.Empty(t, store.locks)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		called := false
		err := store.RunExclusive(cancelled, "123456789", func(current *models.DailyAccount) (*models.DailyAccount, error) {
			called = true
			return current, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestMemoryStore_Sessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	session := &models.UserSession{
		SessionID: "session-1",
		UserID:    "123456789",
		CreatedAt: now,
	}
	require.NoError(t, store.StoreUserSession(ctx, session, time.Hour))

	now = now.Add(30 * time.Minute)
	got, err := store.GetUserSession(ctx, "123456789", "session-1")
	require.NoError(t, err)
	assert.Equal(t, now, got.LastAccessed)

	_, err = store.GetUserSession(ctx, "123456789", "session-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(time.Hour)
	_, err = store.GetUserSession(ctx, "123456789", "session-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.StoreUserSession(ctx, session, time.Hour))
	require.NoError(t, store.DeleteUserSession(ctx, "123456789", "session-1"))
	_, err = store.GetUserSession(ctx, "123456789", "session-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_RateLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := store.CheckRateLimit(ctx, "123456789", "spin", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i+1)
	}

	allowed, err := store.CheckRateLimit(ctx, "123456789", "spin", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// other actions have their own window
	allowed, err = store.CheckRateLimit(ctx, "123456789", "scratch", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	now = now.Add(61 * time.Second)
	allowed, err = store.CheckRateLimit(ctx, "123456789", "spin", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
