package models

import "time"

type UserSession struct {
	SessionID    string    `json:"session_id" redis:"session_id"`
	UserID       string    `json:"user_id" redis:"user_id"`
	Fingerprint  string    `json:"fingerprint" redis:"fingerprint"`
	UserAgent    string    `json:"user_agent" redis:"user_agent"`
	CreatedAt    time.Time `json:"created_at" redis:"created_at"`
	LastAccessed time.Time `json:"last_accessed" redis:"last_accessed"`
}
