package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for daily resets.
const DateLayout = "2006-01-02"

// DailyAccount is the per-user reward state. Daily fields reset lazily on
// the first access of a new calendar date; TotalEarnings never resets.
type DailyAccount struct {
	UserID        string          `json:"user_id" redis:"user_id"`
	SpinsToday    int             `json:"spins_today" redis:"spins_today"`
	DailyEarnings decimal.Decimal `json:"daily_earnings" redis:"daily_earnings"`
	TotalEarnings decimal.Decimal `json:"total_earnings" redis:"total_earnings"`
	BonusClaimed  bool            `json:"bonus_claimed" redis:"bonus_claimed"`
	LastResetDate string          `json:"last_reset_date" redis:"last_reset_date"`
	CreatedAt     time.Time       `json:"created_at" redis:"created_at"`
}

func NewDailyAccount(userID, today string, now time.Time) *DailyAccount {
	return &DailyAccount{
		UserID:        userID,
		DailyEarnings: decimal.Zero,
		TotalEarnings: decimal.Zero,
		LastResetDate: today,
		CreatedAt:     now,
	}
}

// ResetIfStale clears the daily counters when today differs from the last
// reset date. It reports whether a reset happened.
func (a *DailyAccount) ResetIfStale(today string) bool {
	if a.LastResetDate == today {
		return false
	}

	a.SpinsToday = 0
	a.DailyEarnings = decimal.Zero
	a.BonusClaimed = false
	a.LastResetDate = today
	return true
}

func (a *DailyAccount) HasPendingBonus() bool {
	return a.SpinsToday == MaxSpins && !a.BonusClaimed
}

// AlreadyPlayedToday reports whether the full spin and bonus cycle has been
// completed on the given date.
func (a *DailyAccount) AlreadyPlayedToday(today string) bool {
	return a.LastResetDate == today && a.BonusClaimed
}

func (a *DailyAccount) SpinsRemaining() int {
	return MaxSpins - a.SpinsToday
}

func (a *DailyAccount) Clone() *DailyAccount {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
