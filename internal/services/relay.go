package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Relay forwards payouts and admin notifications to the bot that does the
// real balance crediting. Calls are best effort and report success only.
type Relay interface {
	SendCreditRequest(ctx context.Context, userID string, amount decimal.Decimal) bool
	Notify(ctx context.Context, message string) bool
	ChatInfo(ctx context.Context, userID string) string
}

type relayJob struct {
	name string
	run  func(ctx context.Context)
}

// Dispatcher runs relay jobs on a background worker so callers never wait
// on the bot API.
type Dispatcher struct {
	relay Relay
	jobs  chan relayJob
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(relay Relay, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &Dispatcher{
		relay: relay,
		jobs:  make(chan relayJob, queueSize),
	}
}

// Start launches the worker. It drains the queue until Stop is called or
// ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		log.Info("Relay dispatcher started")

		for {
			select {
			case <-ctx.Done():
				log.Info("Relay dispatcher shutting down (context cancelled)...")
				return
			case job, ok := <-d.jobs:
				if !ok {
					log.Info("Relay dispatcher shutting down (queue closed)...")
					return
				}
				d.run(ctx, job)
			}
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, job relayJob) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("job", job.name).Errorf("Relay job panicked: %v", r)
		}
	}()
	job.run(ctx)
}

// Stop closes the queue and waits for queued jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) enqueue(job relayJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.WithField("job", job.name).Warn("Relay dispatcher stopped, dropping job")
		return
	}

	select {
	case d.jobs <- job:
	default:
		log.WithField("job", job.name).Warn("Relay queue full, dropping job")
	}
}

// Notify queues an admin notification.
func (d *Dispatcher) Notify(message string) {
	d.enqueue(relayJob{
		name: "notify",
		run: func(ctx context.Context) {
			if !d.relay.Notify(ctx, message) {
				log.WithField("message", message).Warn("Failed to send admin notification")
			}
		},
	})
}

// NotifyWithChatInfo queues a notification whose text is completed with
// the user's chat info, looked up on the worker.
func (d *Dispatcher) NotifyWithChatInfo(userID string, build func(chatInfo string) string) {
	d.enqueue(relayJob{
		name: "notify_chat_info",
		run: func(ctx context.Context) {
			message := build(d.relay.ChatInfo(ctx, userID))
			if !d.relay.Notify(ctx, message) {
				log.WithField("user_id", userID).Warn("Failed to send admin notification")
			}
		},
	})
}

// Credit queues a credit request. The admin hears about the bot command
// and then about the payout.
func (d *Dispatcher) Credit(userID string, amount decimal.Decimal) {
	d.enqueue(relayJob{
		name: "credit",
		run: func(ctx context.Context) {
			logger := log.WithFields(log.Fields{"user_id": userID, "amount": amount.StringFixed(2)})

			if d.relay.SendCreditRequest(ctx, userID, amount) {
				logger.Info("Credit request sent")
				d.relay.Notify(ctx, "✅ Successfully sent command: "+CreditCommand(userID, amount))
				d.relay.Notify(ctx, "✅ Successfully sent ₹"+amount.StringFixed(2)+" to user "+userID+" via main bot")
				return
			}

			logger.Error("Credit request failed")
			d.relay.Notify(ctx, "❌ Failed to send addbalance command for user "+userID)
			d.relay.Notify(ctx, "❌ Failed to send balance to user "+userID+" - Check bot tokens!")
		},
	})
}
