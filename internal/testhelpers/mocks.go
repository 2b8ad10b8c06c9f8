package testhelpers

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"spin-rewards-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockRelay is a mock implementation of services.Relay
type MockRelay struct {
	mock.Mock
}

func (m *MockRelay) SendCreditRequest(ctx context.Context, userID string, amount decimal.Decimal) bool {
	args := m.Called(ctx, userID, amount)
	return args.Bool(0)
}

func (m *MockRelay) Notify(ctx context.Context, message string) bool {
	args := m.Called(ctx, message)
	return args.Bool(0)
}

func (m *MockRelay) ChatInfo(ctx context.Context, userID string) string {
	args := m.Called(ctx, userID)
	return args.String(0)
}

// AmountEquals matches a decimal argument by value.
func AmountEquals(want decimal.Decimal) interface{} {
	return mock.MatchedBy(func(got decimal.Decimal) bool {
		return got.Equal(want)
	})
}

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SeededRand returns a deterministic generator for allocator tests.
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RecordingBroadcaster collects account pushes.
type RecordingBroadcaster struct {
	mu      sync.Mutex
	Updates []models.AccountSnapshot
}

func (b *RecordingBroadcaster) BroadcastAccountUpdate(userID string, snapshot models.AccountSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Updates = append(b.Updates, snapshot)
}

func (b *RecordingBroadcaster) Last() (models.AccountSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.Updates) == 0 {
		return models.AccountSnapshot{}, false
	}
	return b.Updates[len(b.Updates)-1], true
}
