package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spin-rewards-backend/internal/config"
	"spin-rewards-backend/internal/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisServiceWithClient(client), nil
}

func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadAccount(ctx context.Context, g stringGetter, key string) (*models.DailyAccount, error) {
	data, err := g.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var account models.DailyAccount
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

func (s *RedisService) Get(ctx context.Context, userID string) (*models.DailyAccount, error) {
	return loadAccount(ctx, s.client, fmt.Sprintf(KeyAccount, userID))
}

// Put writes the account without expiry. Lifetime totals outlive any idle
// period.
func (s *RedisService) Put(ctx context.Context, account *models.DailyAccount) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	key := fmt.Sprintf(KeyAccount, account.UserID)
	return s.client.Set(ctx, key, data, 0).Err()
}

// RunExclusive runs fn inside an optimistic WATCH/MULTI transaction on the
// account key, retrying when a concurrent writer wins the race.
func (s *RedisService) RunExclusive(ctx context.Context, userID string, fn ExclusiveFunc) error {
	key := fmt.Sprintf(KeyAccount, userID)

	txf := func(tx *redis.Tx) error {
		current, err := loadAccount(ctx, tx, key)
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			return err
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}
		if updated == nil {
			return nil
		}
		if updated.UserID != userID {
			return fmt.Errorf("account id mismatch: %s != %s", updated.UserID, userID)
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < MaxExclusiveRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("account %s: exclusive update retries exhausted", userID)
}

func (s *RedisService) StoreUserSession(ctx context.Context, session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.UserID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(ctx context.Context, userID, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key, updatedData, redis.KeepTTL).Err(); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to refresh session last_accessed")
	}

	return &session, nil
}

func (s *RedisService) DeleteUserSession(ctx context.Context, userID, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(ctx, key).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}
