package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
)

const defaultCapacity = 4096

// MemoryQueue is an in-process BatchQueue backed by a buffered channel.
//
// At-least-once semantics are provided by a per-delivery visibility lease:
// when a consumer dequeues a batch it must Ack or Nack before the lease
// expires, otherwise the consumer is assumed dead and the batch is put back
// on the channel for redelivery. Nack redelivers immediately.
//
// A batch that exhausts maxDeliveries is dropped with an error log; in a
// multi-node deployment the AMQP implementation's dead-letter handling takes
// over this role.
type MemoryQueue struct {
	mu     sync.Mutex
	ch     chan *envelope
	closed bool

	visibility    time.Duration
	maxDeliveries int
	logger        *zap.Logger
}

type envelope struct {
	msg     domain.BatchMessage
	attempt int
}

// NewMemoryQueue creates a queue with the given visibility lease and delivery
// cap. maxDeliveries < 1 means unlimited redelivery.
func NewMemoryQueue(visibility time.Duration, maxDeliveries int, logger *zap.Logger) *MemoryQueue {
	return &MemoryQueue{
		ch:            make(chan *envelope, defaultCapacity),
		visibility:    visibility,
		maxDeliveries: maxDeliveries,
		logger:        logger,
	}
}

// Enqueue accepts either every message or none: capacity is checked up front
// under the producer lock, so a half-submitted campaign cannot occur.
func (q *MemoryQueue) Enqueue(_ context.Context, msgs []domain.BatchMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}
	if len(msgs) > cap(q.ch)-len(q.ch) {
		return domain.ErrQueueFull
	}
	for _, msg := range msgs {
		q.ch <- &envelope{msg: msg, attempt: 0}
	}
	return nil
}

// Dequeue blocks until a batch is available or ctx is cancelled, then hands
// it out under a fresh visibility lease.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, bool) {
	for {
		var env *envelope
		select {
		case env = <-q.ch:
		case <-ctx.Done():
			return nil, false
		}

		env.attempt++
		if q.maxDeliveries > 0 && env.attempt > q.maxDeliveries {
			q.logger.Error("dropping batch after delivery cap",
				zap.String("campaign_id", env.msg.CampaignID),
				zap.Int("seq", env.msg.Seq),
				zap.Int("deliveries", env.attempt-1),
			)
			continue
		}
		return q.lease(env), true
	}
}

// Depth returns the number of batches currently waiting for delivery.
// In-flight (leased) batches are not counted.
func (q *MemoryQueue) Depth() int {
	return len(q.ch)
}

// Close rejects further enqueues. In-flight deliveries may still settle.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *MemoryQueue) lease(env *envelope) *Delivery {
	var settled atomic.Bool

	timer := time.AfterFunc(q.visibility, func() {
		if settled.CompareAndSwap(false, true) {
			q.logger.Warn("visibility lease expired, redelivering batch",
				zap.String("campaign_id", env.msg.CampaignID),
				zap.Int("seq", env.msg.Seq),
				zap.Int("attempt", env.attempt),
			)
			q.requeue(env)
		}
	})

	return &Delivery{
		Message: env.msg,
		Attempt: env.attempt,
		ack: func() {
			if settled.CompareAndSwap(false, true) {
				timer.Stop()
			}
		},
		nack: func() {
			if settled.CompareAndSwap(false, true) {
				timer.Stop()
				q.requeue(env)
			}
		},
	}
}

func (q *MemoryQueue) requeue(env *envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- env:
	default:
		q.logger.Error("queue full during redelivery, dropping batch",
			zap.String("campaign_id", env.msg.CampaignID),
			zap.Int("seq", env.msg.Seq),
		)
	}
}

var _ BatchQueue = (*MemoryQueue)(nil)
