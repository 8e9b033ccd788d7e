package queue

import (
	"context"

	"github.com/optkit/optkit/internal/domain"
)

// BatchQueue carries campaign batches from the dispatcher to the batch
// processors with at-least-once semantics. Two implementations exist: an
// in-process lease queue (memory_queue.go) and RabbitMQ (amqp_queue.go).
type BatchQueue interface {
	// Enqueue submits all batches of one campaign as a single atomic
	// submission: either every message is accepted or none is.
	Enqueue(ctx context.Context, msgs []domain.BatchMessage) error

	// Dequeue blocks until a delivery is available or ctx is cancelled.
	// Returns (nil, false) on cancellation (graceful shutdown signal).
	Dequeue(ctx context.Context) (*Delivery, bool)
}

// Delivery is one at-least-once delivery of a batch. The consumer holds an
// exclusive processing lease until it settles the delivery: Ack removes the
// batch from the queue, Nack makes it eligible for redelivery. A delivery
// that is never settled is redelivered when its visibility lease expires,
// possibly to a different consumer.
type Delivery struct {
	Message domain.BatchMessage

	// Attempt is 1 for the first delivery and grows with each redelivery.
	Attempt int

	ack  func()
	nack func()
}

func (d *Delivery) Ack()  { d.ack() }
func (d *Delivery) Nack() { d.nack() }
