package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"spin-rewards-backend/internal/config"
	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"
	"spin-rewards-backend/internal/testhelpers"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*services.RedisService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	service := services.NewRedisServiceWithClient(client)
	t.Cleanup(func() { service.Close() })

	return service, mr
}

func TestNewRedisService(t *testing.T) {
	mr := miniredis.RunT(t)

	service, err := services.NewRedisService(context.Background(), &config.Config{RedisURL: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, service.Close())

	mr.Close()
	_, err = services.NewRedisService(context.Background(), &config.Config{RedisURL: mr.Addr()})
	assert.Error(t, err)
}

func TestRedisService_Accounts(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	_, err := service.Get(ctx, testUserID)
	assert.ErrorIs(t, err, services.ErrAccountNotFound)

	account := models.NewDailyAccount(testUserID, "2026-03-01", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	account.SpinsToday = 4
	account.DailyEarnings = decimal.RequireFromString("0.73")
	account.TotalEarnings = decimal.RequireFromString("10.73")
	require.NoError(t, service.Put(ctx, account))

	assert.True(t, mr.Exists("account:"+testUserID))
	assert.Zero(t, mr.TTL("account:"+testUserID))

	got, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SpinsToday)
	assert.True(t, got.DailyEarnings.Equal(account.DailyEarnings))
	assert.True(t, got.TotalEarnings.Equal(account.TotalEarnings))
	assert.Equal(t, "2026-03-01", got.LastResetDate)

	mr.Del("account:" + testUserID)
	_, err = service.Get(ctx, testUserID)
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
}

func TestRedisService_RunExclusive(t *testing.T) {
	service, _ := newTestRedis(t)
	ctx := context.Background()

	err := service.RunExclusive(ctx, testUserID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		assert.Nil(t, current)
		return nil, nil
	})
	require.NoError(t, err)
	_, err = service.Get(ctx, testUserID)
	assert.ErrorIs(t, err, services.ErrAccountNotFound)

	err = service.RunExclusive(ctx, testUserID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		return services.GetOrInit(current, testUserID, "2026-03-01", time.Now()), nil
	})
	require.NoError(t, err)

	err = service.RunExclusive(ctx, testUserID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		return nil, services.ErrQuotaExceeded
	})
	assert.ErrorIs(t, err, services.ErrQuotaExceeded)

	// concurrent writers retry until each increment lands
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := service.RunExclusive(ctx, testUserID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
				current.SpinsToday++
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.SpinsToday)
}

func TestRedisService_SpinFlow(t *testing.T) {
	service, _ := newTestRedis(t)
	ctx := context.Background()

	rewards := services.NewRewardService(service, services.SystemClock{Location: time.UTC}, nil)

	sum := decimal.Zero
	for i := 0; i < models.MaxSpins; i++ {
		result, err := rewards.Spin(ctx, testUserID)
		require.NoError(t, err)
		sum = sum.Add(result.ActualReward)
	}
	assert.True(t, sum.Equal(models.DailyTarget))

	_, err := rewards.Spin(ctx, testUserID)
	assert.ErrorIs(t, err, services.ErrQuotaExceeded)

	stored, err := service.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, stored.DailyEarnings.Equal(models.DailyTarget))
}

func TestRedisService_TotalSurvivesIdleDays(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	clock := testhelpers.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rewards := services.NewRewardService(service, clock, nil)

	for i := 0; i < models.MaxSpins; i++ {
		_, err := rewards.Spin(ctx, testUserID)
		require.NoError(t, err)
	}

	assert.Zero(t, mr.TTL("account:"+testUserID))

	idle := 91 * 24 * time.Hour
	mr.FastForward(idle)
	clock.Advance(idle)

	account, err := rewards.Account(ctx, testUserID)
	require.NoError(t, err)
	assert.True(t, account.TotalEarnings.Equal(models.DailyTarget), "total %s", account.TotalEarnings)
	assert.Equal(t, 0, account.SpinsToday)
	assert.True(t, account.DailyEarnings.IsZero())
}

func TestRedisService_Sessions(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	session := &models.UserSession{
		SessionID: "session-1",
		UserID:    testUserID,
		CreatedAt: time.Now(),
	}
	require.NoError(t, service.StoreUserSession(ctx, session, time.Hour))

	got, err := service.GetUserSession(ctx, testUserID, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", got.SessionID)
	assert.False(t, got.LastAccessed.IsZero())

	// reading refreshes last_accessed without dropping the expiry
	assert.Equal(t, time.Hour, mr.TTL("user:"+testUserID+":session:session-1"))
	raw, err := mr.Get("user:" + testUserID + ":session:session-1")
	require.NoError(t, err)
	var stored models.UserSession
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.True(t, stored.LastAccessed.Equal(got.LastAccessed))

	mr.FastForward(2 * time.Hour)
	_, err = service.GetUserSession(ctx, testUserID, "session-1")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	require.NoError(t, service.StoreUserSession(ctx, session, time.Hour))
	require.NoError(t, service.DeleteUserSession(ctx, testUserID, "session-1"))
	_, err = service.GetUserSession(ctx, testUserID, "session-1")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestRedisService_RateLimit(t *testing.T) {
	service, mr := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := service.CheckRateLimit(ctx, testUserID, "spin", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := service.CheckRateLimit(ctx, testUserID, "spin", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, err = service.CheckRateLimit(ctx, testUserID, "spin", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.Equal(t, time.Minute, mr.TTL("ratelimit:"+testUserID+":spin"))
}
