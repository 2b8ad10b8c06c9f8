package models

import "github.com/shopspring/decimal"

const (
	MaxSpins        = 15
	MinUserIDLength = 5
)

var (
	DailyTarget = decimal.RequireFromString("2.50")
	BonusAmount = decimal.RequireFromString("2.50")
	MinCredit   = decimal.RequireFromString("0.10")

	// RewardTable holds the amounts a spin can display.
	RewardTable = []decimal.Decimal{
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.15"),
		decimal.RequireFromString("0.20"),
		decimal.RequireFromString("0.25"),
		decimal.RequireFromString("0.30"),
		decimal.RequireFromString("0.35"),
		decimal.RequireFromString("0.40"),
		decimal.RequireFromString("0.50"),
		decimal.RequireFromString("0.80"),
		decimal.RequireFromString("1.00"),
	}

	WinningZones = []string{"😍", "🤑", "🥳", "💎"}
)

type SpinResult struct {
	VisualReward   decimal.Decimal `json:"visual_reward"`
	ActualReward   decimal.Decimal `json:"actual_reward"`
	WinningZone    string          `json:"winning_zone"`
	SpinsRemaining int             `json:"spins_remaining"`
	DailyEarnings  decimal.Decimal `json:"daily_earnings"`
	BonusAvailable bool            `json:"bonus_available"`
}

type BonusResult struct {
	BonusAmount   decimal.Decimal `json:"bonus_amount"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// AccountSnapshot is the client view of an account.
type AccountSnapshot struct {
	UserID          string  `json:"user_id"`
	SpinsToday      int     `json:"spins_today"`
	DailyEarnings   float64 `json:"daily_earnings"`
	TotalEarnings   float64 `json:"total_earnings"`
	ScratchUsed     bool    `json:"scratch_used"`
	SpinsRemaining  int     `json:"spins_remaining"`
	HoursUntilReset float64 `json:"hours_until_reset"`
}

type LoginRequest struct {
	UserID     string     `json:"user_id"`
	DeviceInfo DeviceInfo `json:"device_info"`
}

type DeviceInfo struct {
	Device  string `json:"device"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Screen  string `json:"screen"`
}

type SpinRequest struct {
	AdViewed bool `json:"ad_viewed"`
}

type AdClickRequest struct {
	Position  string `json:"position"`
	Timestamp string `json:"timestamp"`
}
