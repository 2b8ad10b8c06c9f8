package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spin-rewards-backend/internal/database"
	"spin-rewards-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Queryable is satisfied by both the pool and a transaction.
type Queryable interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectAccountSQL = `
	SELECT
		user_id,
		spins_today,
		daily_earnings::text,
		total_earnings::text,
		bonus_claimed,
		to_char(last_reset_date, 'YYYY-MM-DD'),
		created_at
	FROM daily_accounts
	WHERE user_id = $1`

const upsertAccountSQL = `
	INSERT INTO daily_accounts (
		user_id, spins_today, daily_earnings, total_earnings,
		bonus_claimed, last_reset_date, created_at, updated_at
	) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::date, $7, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		spins_today     = EXCLUDED.spins_today,
		daily_earnings  = EXCLUDED.daily_earnings,
		total_earnings  = EXCLUDED.total_earnings,
		bonus_claimed   = EXCLUDED.bonus_claimed,
		last_reset_date = EXCLUDED.last_reset_date,
		updated_at      = NOW()`

func getAccount(ctx context.Context, q Queryable, userID string, forUpdate bool) (*models.DailyAccount, error) {
	query := selectAccountSQL
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		account       models.DailyAccount
		daily, total  string
		createdAt     time.Time
		lastResetDate string
	)
	err := q.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.SpinsToday,
		&daily,
		&total,
		&account.BonusClaimed,
		&lastResetDate,
		&createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", userID, err)
	}

	if account.DailyEarnings, err = decimal.NewFromString(daily); err != nil {
		return nil, fmt.Errorf("invalid daily earnings %q: %w", daily, err)
	}
	if account.TotalEarnings, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total earnings %q: %w", total, err)
	}
	account.LastResetDate = lastResetDate
	account.CreatedAt = createdAt

	return &account, nil
}

func putAccount(ctx context.Context, q Queryable, account *models.DailyAccount) error {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := q.Exec(ctx, upsertAccountSQL,
		account.UserID,
		account.SpinsToday,
		account.DailyEarnings.StringFixed(2),
		account.TotalEarnings.StringFixed(2),
		account.BonusClaimed,
		account.LastResetDate,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.UserID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.DailyAccount, error) {
	return getAccount(ctx, s.db.Pool, userID, false)
}

func (s *PostgresStore) Put(ctx context.Context, account *models.DailyAccount) error {
	return putAccount(ctx, s.db.Pool, account)
}

// RunExclusive serializes on a transaction-scoped advisory lock so that
// first-time accounts, which have no row to lock yet, are covered too.
func (s *PostgresStore) RunExclusive(ctx context.Context, userID string, fn ExclusiveFunc) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", userID); err != nil {
		return fmt.Errorf("failed to lock account %s: %w", userID, err)
	}

	current, err := getAccount(ctx, tx, userID, true)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}
	if updated == nil {
		return tx.Commit(ctx)
	}
	if updated.UserID != userID {
		return fmt.Errorf("account id mismatch: %s != %s", updated.UserID, userID)
	}

	if err := putAccount(ctx, tx, updated); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account %s: %w", userID, err)
	}
	return nil
}
