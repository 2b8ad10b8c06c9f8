package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spin-rewards-backend/internal/models"
)

// MemoryStore keeps accounts, sessions and rate-limit windows in process
// memory. State is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*models.DailyAccount
	locks    map[string]*userLock

	sessionMu sync.Mutex
	sessions  map[string]memorySession

	rateMu   sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// userLock is dropped from the map once no caller holds or waits on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

type memorySession struct {
	session   models.UserSession
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.DailyAccount),
		locks:    make(map[string]*userLock),
		sessions: make(map[string]memorySession),
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.DailyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, account *models.DailyAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.UserID] = account.Clone()
	return nil
}

func (s *MemoryStore) acquire(userID string) *userLock {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *MemoryStore) release(userID string, l *userLock) {
	l.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, userID)
	}
}

func (s *MemoryStore) RunExclusive(ctx context.Context, userID string, fn ExclusiveFunc) error {
	l := s.acquire(userID)
	defer s.release(userID, l)

	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := s.Get(ctx, userID)
	if err != nil && err != ErrAccountNotFound {
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	if updated.UserID != userID {
		return fmt.Errorf("account id mismatch: %s != %s", updated.UserID, userID)
	}

	return s.Put(ctx, updated)
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (s *MemoryStore) StoreUserSession(ctx context.Context, session *models.UserSession, expiry time.Duration) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	s.sessions[sessionKey(session.UserID, session.SessionID)] = memorySession{
		session:   *session,
		expiresAt: s.now().Add(expiry),
	}
	return nil
}

func (s *MemoryStore) GetUserSession(ctx context.Context, userID, sessionID string) (*models.UserSession, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	key := sessionKey(userID, sessionID)
	entry, ok := s.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.sessions, key)
		return nil, ErrSessionNotFound
	}

	entry.session.LastAccessed = s.now()
	s.sessions[key] = entry

	session := entry.session
	return &session, nil
}

func (s *MemoryStore) DeleteUserSession(ctx context.Context, userID, sessionID string) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	delete(s.sessions, sessionKey(userID, sessionID))
	return nil
}

// CheckRateLimit allows at most limit calls per sliding window for the
// given user and action.
func (s *MemoryStore) CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()

	key := userID + ":" + action
	now := s.now()
	cutoff := now.Add(-window)

	var valid []time.Time
	for _, at := range s.requests[key] {
		if at.After(cutoff) {
			valid = append(valid, at)
		}
	}

	if len(valid) >= limit {
		s.requests[key] = valid
		return false, nil
	}

	s.requests[key] = append(valid, now)
	return true, nil
}
