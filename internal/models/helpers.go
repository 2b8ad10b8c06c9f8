package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidUserID = errors.New("invalid telegram user id")

// ValidateUserID trims the identifier and checks it is a plausible
// Telegram user id: digits only, at least MinUserIDLength long.
func ValidateUserID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if len(id) < MinUserIDLength {
		return "", ErrInvalidUserID
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", ErrInvalidUserID
		}
	}
	return id, nil
}

func GenerateSessionID() string {
	return uuid.New().String()
}

func GenerateRequestID() string {
	return fmt.Sprintf("req_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// DeviceFingerprint returns a short stable tag for the reported device.
func DeviceFingerprint(info DeviceInfo) string {
	raw := strings.Join([]string{info.Device, info.Browser, info.OS, info.Screen}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:8]
}

func FormatAmount(amount decimal.Decimal) string {
	return "₹" + amount.StringFixed(2)
}

// OrUnknown substitutes "Unknown" for empty device fields.
func OrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Snapshot builds the client view of an account at the given instant.
// now must already be in the zone used for daily resets.
func (a *DailyAccount) Snapshot(now time.Time) AccountSnapshot {
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	hours := nextMidnight.Sub(now).Hours()

	return AccountSnapshot{
		UserID:          a.UserID,
		SpinsToday:      a.SpinsToday,
		DailyEarnings:   a.DailyEarnings.InexactFloat64(),
		TotalEarnings:   a.TotalEarnings.InexactFloat64(),
		ScratchUsed:     a.BonusClaimed,
		SpinsRemaining:  a.SpinsRemaining(),
		HoursUntilReset: decimal.NewFromFloat(hours).Round(1).InexactFloat64(),
	}
}
