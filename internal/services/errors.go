package services

import "errors"

var (
	ErrQuotaExceeded      = errors.New("daily spin limit reached")
	ErrQuotaNotReached    = errors.New("complete all spins first")
	ErrAlreadyClaimed     = errors.New("scratch card already used today")
	ErrAlreadyPlayedToday = errors.New("this id has already been used today")

	ErrAccountNotFound = errors.New("account not found")
	ErrSessionNotFound = errors.New("session not found")
)
