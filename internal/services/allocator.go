package services

import (
	"time"

	"spin-rewards-backend/internal/models"

	"github.com/shopspring/decimal"
)

var (
	shareFloor  = decimal.RequireFromString("0.8")
	shareSpread = decimal.RequireFromString("0.7") // U ranges over [0.8, 1.5]
)

// GetOrInit returns the account for userID, creating a zeroed one when
// current is nil and applying the lazy daily reset otherwise.
func GetOrInit(current *models.DailyAccount, userID, today string, now time.Time) *models.DailyAccount {
	if current == nil {
		return models.NewDailyAccount(userID, today, now)
	}
	account := current.Clone()
	account.ResetIfStale(today)
	return account
}

// AllocateSpin draws one spin for the account and applies it. The credited
// amount follows a perturbed fair share of the remaining daily budget,
// capped by the displayed reward; the final spin takes whatever remains so
// that the day converges on DailyTarget.
func AllocateSpin(account *models.DailyAccount, rng Rand) (*models.SpinResult, error) {
	if account.SpinsToday >= models.MaxSpins {
		return nil, ErrQuotaExceeded
	}

	visual := models.RewardTable[rng.IntN(len(models.RewardTable))]

	spinsLeft := models.MaxSpins - account.SpinsToday
	remaining := models.DailyTarget.Sub(account.DailyEarnings)

	var actual decimal.Decimal
	if spinsLeft == 1 {
		actual = decimal.Max(models.MinCredit, remaining)
	} else {
		u := shareFloor.Add(shareSpread.Mul(decimal.NewFromFloat(rng.Float64())))
		share := remaining.Div(decimal.NewFromInt(int64(spinsLeft))).Mul(u)
		actual = decimal.Min(visual, share)

		// Keep MinCredit per later spin in the budget so the final spin
		// never has to credit more than what remains.
		reserve := models.MinCredit.Mul(decimal.NewFromInt(int64(spinsLeft - 1)))
		actual = decimal.Min(actual, remaining.Sub(reserve))
		actual = decimal.Max(actual, decimal.Zero)
	}
	actual = actual.Round(2)

	account.SpinsToday++
	account.DailyEarnings = account.DailyEarnings.Add(actual)
	account.TotalEarnings = account.TotalEarnings.Add(actual)

	return &models.SpinResult{
		VisualReward:   visual,
		ActualReward:   actual,
		WinningZone:    models.WinningZones[rng.IntN(len(models.WinningZones))],
		SpinsRemaining: account.SpinsRemaining(),
		DailyEarnings:  account.DailyEarnings,
		BonusAvailable: account.HasPendingBonus(),
	}, nil
}

// ClaimBonus marks the day's bonus as claimed. The bonus amount is only
// displayed; TotalEarnings is left unchanged.
func ClaimBonus(account *models.DailyAccount) (*models.BonusResult, error) {
	if account.SpinsToday < models.MaxSpins {
		return nil, ErrQuotaNotReached
	}
	if account.BonusClaimed {
		return nil, ErrAlreadyClaimed
	}

	account.BonusClaimed = true

	return &models.BonusResult{
		BonusAmount:   models.BonusAmount,
		TotalEarnings: account.TotalEarnings,
	}, nil
}
