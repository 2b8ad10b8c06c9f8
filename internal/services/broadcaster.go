package services

import "spin-rewards-backend/internal/models"

type Broadcaster interface {
	BroadcastAccountUpdate(userID string, snapshot models.AccountSnapshot)
}
