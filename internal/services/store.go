package services

import (
	"context"
	"time"

	"spin-rewards-backend/internal/models"
)

// ExclusiveFunc receives the stored account, or nil when none exists, and
// returns the account to persist. A nil account persists nothing; an error
// aborts without writing.
type ExclusiveFunc func(current *models.DailyAccount) (*models.DailyAccount, error)

// AccountStore keeps daily accounts keyed by user id. RunExclusive must
// serialize read-modify-write sequences for the same id.
type AccountStore interface {
	Get(ctx context.Context, userID string) (*models.DailyAccount, error)
	Put(ctx context.Context, account *models.DailyAccount) error
	RunExclusive(ctx context.Context, userID string, fn ExclusiveFunc) error
}

type SessionStore interface {
	StoreUserSession(ctx context.Context, session *models.UserSession, expiry time.Duration) error
	GetUserSession(ctx context.Context, userID, sessionID string) (*models.UserSession, error)
	DeleteUserSession(ctx context.Context, userID, sessionID string) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error)
}
