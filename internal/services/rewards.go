package services

import (
	"context"
	"fmt"

	"spin-rewards-backend/internal/models"

	log "github.com/sirupsen/logrus"
)

// RewardService applies the spin and bonus policy to stored accounts. Each
// operation holds the account exclusively for its read-modify-write; relay
// calls and pushes happen after the exclusive section.
type RewardService struct {
	store       AccountStore
	clock       Clock
	rng         Rand
	dispatcher  *Dispatcher
	broadcaster Broadcaster
}

type RewardOption func(*RewardService)

func WithRand(rng Rand) RewardOption {
	return func(s *RewardService) {
		s.rng = rng
	}
}

func WithBroadcaster(b Broadcaster) RewardOption {
	return func(s *RewardService) {
		s.broadcaster = b
	}
}

func NewRewardService(store AccountStore, clock Clock, dispatcher *Dispatcher, opts ...RewardOption) *RewardService {
	s := &RewardService{
		store:      store,
		clock:      clock,
		rng:        DefaultRand(),
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = &lockedRand{r: s.rng}
	return s
}

// SetBroadcaster attaches the push channel once it exists.
func (s *RewardService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *RewardService) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *RewardService) today() string {
	return s.clock.Now().Format(models.DateLayout)
}

// Account returns the user's account, creating it or applying the daily
// reset as needed.
func (s *RewardService) Account(ctx context.Context, userID string) (*models.DailyAccount, error) {
	now := s.clock.Now()
	today := now.Format(models.DateLayout)

	var result *models.DailyAccount
	err := s.store.RunExclusive(ctx, userID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		account := GetOrInit(current, userID, today, now)
		result = account.Clone()

		if current != nil && current.LastResetDate == today {
			return nil, nil
		}
		return account, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", userID, err)
	}

	return result, nil
}

// Login loads the account and refuses identifiers that already completed
// today's cycle.
func (s *RewardService) Login(ctx context.Context, userID string) (*models.DailyAccount, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	if account.AlreadyPlayedToday(s.today()) {
		return nil, ErrAlreadyPlayedToday
	}

	return account, nil
}

func (s *RewardService) Spin(ctx context.Context, userID string) (*models.SpinResult, error) {
	now := s.clock.Now()
	today := now.Format(models.DateLayout)

	var (
		result   *models.SpinResult
		snapshot *models.DailyAccount
	)
	err := s.store.RunExclusive(ctx, userID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		account := GetOrInit(current, userID, today, now)

		spin, err := AllocateSpin(account, s.rng)
		if err != nil {
			return nil, err
		}

		result = spin
		snapshot = account.Clone()
		return account, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":        userID,
		"visual_reward":  result.VisualReward.StringFixed(2),
		"actual_reward":  result.ActualReward.StringFixed(2),
		"daily_earnings": result.DailyEarnings.StringFixed(2),
		"spins_left":     result.SpinsRemaining,
	}).Info("Spin allocated")

	s.broadcast(snapshot)
	return result, nil
}

// ClaimBonus reveals the day's bonus and queues the credit request. Relay
// failures are only logged; the claim stands either way.
func (s *RewardService) ClaimBonus(ctx context.Context, userID string) (*models.BonusResult, error) {
	now := s.clock.Now()
	today := now.Format(models.DateLayout)

	var (
		result   *models.BonusResult
		snapshot *models.DailyAccount
	)
	err := s.store.RunExclusive(ctx, userID, func(current *models.DailyAccount) (*models.DailyAccount, error) {
		account := GetOrInit(current, userID, today, now)

		bonus, err := ClaimBonus(account)
		if err != nil {
			return nil, err
		}

		result = bonus
		snapshot = account.Clone()
		return account, nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":        userID,
		"bonus_amount":   result.BonusAmount.StringFixed(2),
		"total_earnings": result.TotalEarnings.StringFixed(2),
	}).Info("Bonus claimed")

	if s.dispatcher != nil {
		s.dispatcher.Notify(fmt.Sprintf("🎫 User %s used scratch card\n💰 Revealed: %s",
			userID, models.FormatAmount(result.BonusAmount)))
		s.dispatcher.Credit(userID, models.BonusAmount)
	}

	s.broadcast(snapshot)
	return result, nil
}

func (s *RewardService) Snapshot(account *models.DailyAccount) models.AccountSnapshot {
	return account.Snapshot(s.clock.Now())
}

func (s *RewardService) broadcast(account *models.DailyAccount) {
	if s.broadcaster == nil || account == nil {
		return
	}
	s.broadcaster.BroadcastAccountUpdate(account.UserID, s.Snapshot(account))
}
