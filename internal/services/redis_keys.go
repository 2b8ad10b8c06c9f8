package services

const (
	KeyUserSession = "user:%s:session:%s"
	KeyAccount     = "account:%s"
	KeyRateLimit   = "ratelimit:%s:%s"

	MaxExclusiveRetries = 10

	DefaultRateLimitSpins   = 30 // Max 30 spins per minute
	DefaultRateLimitScratch = 10
	DefaultRateLimitLogin   = 10
)
