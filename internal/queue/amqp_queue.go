package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
)

// AMQPQueue is a BatchQueue backed by a durable RabbitMQ queue.
//
// Publishing runs on a transactional channel so a multi-batch campaign
// submission commits atomically. Consuming uses manual acknowledgements:
// Ack removes the message, Nack requeues it, and an unacknowledged message
// is redelivered by the broker once the consumer's channel dies — the
// broker-side equivalent of the memory queue's visibility lease.
type AMQPQueue struct {
	conn   *amqp.Connection
	pubMu  sync.Mutex
	pubCh  *amqp.Channel
	name   string
	logger *zap.Logger

	consumeOnce sync.Once
	deliveries  <-chan amqp.Delivery
	consumeErr  error
}

// NewAMQPQueue connects to the broker and declares the durable batch queue.
func NewAMQPQueue(url, name string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := pubCh.Tx(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable publisher transactions: %w", err)
	}

	if _, err := pubCh.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", name, err)
	}

	return &AMQPQueue{conn: conn, pubCh: pubCh, name: name, logger: logger}, nil
}

func (q *AMQPQueue) Enqueue(_ context.Context, msgs []domain.BatchMessage) error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	for _, msg := range msgs {
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal batch %d: %w", msg.Seq, err)
		}
		err = q.pubCh.Publish("", q.name, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
		if err != nil {
			q.rollback()
			return fmt.Errorf("publish batch %d: %w", msg.Seq, err)
		}
	}

	if err := q.pubCh.TxCommit(); err != nil {
		return fmt.Errorf("commit batch submission: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Dequeue(ctx context.Context) (*Delivery, bool) {
	q.consumeOnce.Do(q.startConsumer)
	if q.consumeErr != nil {
		return nil, false
	}

	for {
		select {
		case d, ok := <-q.deliveries:
			if !ok {
				return nil, false
			}
			var msg domain.BatchMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				// A malformed payload can never succeed; drop it instead of
				// letting the broker redeliver forever.
				q.logger.Error("discarding undecodable batch message", zap.Error(err))
				_ = d.Ack(false)
				continue
			}

			attempt := 1
			if d.Redelivered {
				attempt = 2
			}
			return &Delivery{
				Message: msg,
				Attempt: attempt,
				ack: func() {
					if err := d.Ack(false); err != nil {
						q.logger.Error("ack failed", zap.Error(err))
					}
				},
				nack: func() {
					if err := d.Nack(false, true); err != nil {
						q.logger.Error("nack failed", zap.Error(err))
					}
				},
			}, true
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Depth asks the broker for the current ready-message count.
func (q *AMQPQueue) Depth() int {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	state, err := q.pubCh.QueueInspect(q.name)
	if err != nil {
		return 0
	}
	return state.Messages
}

func (q *AMQPQueue) Close() error {
	return q.conn.Close()
}

func (q *AMQPQueue) startConsumer() {
	ch, err := q.conn.Channel()
	if err != nil {
		q.consumeErr = fmt.Errorf("open consume channel: %w", err)
		return
	}
	// One unacknowledged batch per consumer: a slow gateway call blocks only
	// that batch's redelivery, not the whole queue.
	if err := ch.Qos(1, 0, false); err != nil {
		q.consumeErr = fmt.Errorf("set qos: %w", err)
		return
	}

	deliveries, err := ch.Consume(
		q.name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		q.consumeErr = fmt.Errorf("register consumer: %w", err)
		return
	}
	q.deliveries = deliveries
}

func (q *AMQPQueue) rollback() {
	if err := q.pubCh.TxRollback(); err != nil {
		q.logger.Error("publisher tx rollback failed", zap.Error(err))
	}
}

var _ BatchQueue = (*AMQPQueue)(nil)
