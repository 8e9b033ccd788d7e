package queue

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
)

func testMsg(seq int) domain.BatchMessage {
	return domain.BatchMessage{
		CampaignID: "c1",
		Seq:        seq,
		Emails:     []string{"a@x.com"},
		Subject:    "s",
		HTML:       "<p>b</p>",
	}
}

func TestMemoryQueue_EnqueueDequeueOrder(t *testing.T) {
	q := NewMemoryQueue(time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	msgs := []domain.BatchMessage{testMsg(0), testMsg(1), testMsg(2)}
	if err := q.Enqueue(ctx, msgs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Depth() != 3 {
		t.Fatalf("expected depth=3, got %d", q.Depth())
	}

	for i := 0; i < 3; i++ {
		d, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatal("expected a delivery")
		}
		if d.Message.Seq != i {
			t.Fatalf("expected seq=%d, got %d", i, d.Message.Seq)
		}
		if d.Attempt != 1 {
			t.Fatalf("expected attempt=1, got %d", d.Attempt)
		}
		d.Ack()
	}
	if q.Depth() != 0 {
		t.Fatalf("expected empty queue, got depth=%d", q.Depth())
	}
}

func TestMemoryQueue_DequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(time.Minute, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Dequeue(ctx); ok {
		t.Fatal("expected ok=false on cancelled context")
	}
}

func TestMemoryQueue_NackRedelivers(t *testing.T) {
	q := NewMemoryQueue(time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, []domain.BatchMessage{testMsg(7)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := q.Dequeue(ctx)
	d.Nack()

	redelivered, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatal("expected redelivery after nack")
	}
	if redelivered.Message.Seq != 7 {
		t.Fatalf("expected seq=7, got %d", redelivered.Message.Seq)
	}
	if redelivered.Attempt != 2 {
		t.Fatalf("expected attempt=2, got %d", redelivered.Attempt)
	}
	redelivered.Ack()
}

func TestMemoryQueue_LeaseExpiryRedelivers(t *testing.T) {
	q := NewMemoryQueue(20*time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, []domain.BatchMessage{testMsg(0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dequeue and neither ack nor nack: the lease must expire.
	if _, ok := q.Dequeue(ctx); !ok {
		t.Fatal("expected a delivery")
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	d, ok := q.Dequeue(waitCtx)
	if !ok {
		t.Fatal("expected redelivery after lease expiry")
	}
	if d.Attempt != 2 {
		t.Fatalf("expected attempt=2, got %d", d.Attempt)
	}
	d.Ack()
}

func TestMemoryQueue_AckAfterLeaseExpiryIsNoop(t *testing.T) {
	q := NewMemoryQueue(10*time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, []domain.BatchMessage{testMsg(0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := q.Dequeue(ctx)
	time.Sleep(50 * time.Millisecond)
	d.Ack() // lease already expired; the late ack must not double-settle

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	redelivered, ok := q.Dequeue(waitCtx)
	if !ok {
		t.Fatal("expected redelivery despite late ack")
	}
	redelivered.Ack()
}

func TestMemoryQueue_DeliveryCapDropsBatch(t *testing.T) {
	q := NewMemoryQueue(time.Minute, 2, zap.NewNop())
	ctx := context.Background()

	if err := q.Enqueue(ctx, []domain.BatchMessage{testMsg(0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		d, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatalf("delivery %d: expected ok", i+1)
		}
		d.Nack()
	}

	// Third delivery exceeds the cap: Dequeue should block until cancelled.
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, ok := q.Dequeue(waitCtx); ok {
		t.Fatal("expected batch to be dropped after delivery cap")
	}
}

func TestMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewMemoryQueue(time.Minute, 0, zap.NewNop())
	q.Close()

	err := q.Enqueue(context.Background(), []domain.BatchMessage{testMsg(0)})
	if err != domain.ErrQueueClosed {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}
