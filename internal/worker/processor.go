package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/gateway"
	"github.com/optkit/optkit/internal/queue"
	"github.com/optkit/optkit/internal/ratelimiter"
	"github.com/optkit/optkit/internal/repository"
)

// Processor is a single goroutine that continuously pulls batch deliveries
// from the queue, sends every address in the batch through the gateway, then
// settles the delivery: the tally is merged into the campaign counters in one
// transaction with the batch's applied-marker, so a redelivered batch never
// double-counts.
type Processor struct {
	id        int
	q         queue.BatchQueue
	campaigns repository.CampaignRepository
	gw        gateway.Gateway
	limiter   *ratelimiter.SendLimiter
	sender    string
	logger    *zap.Logger

	// Hooks for metrics — injected by the pool so the processor stays
	// metrics-agnostic.
	onEmailSent   func()
	onEmailFailed func()
	onApplied     func(duplicate bool, elapsed time.Duration)
	onNacked      func()
}

// NewProcessor constructs a processor. Hook funcs are optional (nil = no-op).
func NewProcessor(
	id int,
	q queue.BatchQueue,
	campaigns repository.CampaignRepository,
	gw gateway.Gateway,
	limiter *ratelimiter.SendLimiter,
	sender string,
	logger *zap.Logger,
	hooks MetricHooks,
) *Processor {
	if hooks.OnEmailSent == nil {
		hooks.OnEmailSent = func() {}
	}
	if hooks.OnEmailFailed == nil {
		hooks.OnEmailFailed = func() {}
	}
	if hooks.OnApplied == nil {
		hooks.OnApplied = func(bool, time.Duration) {}
	}
	if hooks.OnNacked == nil {
		hooks.OnNacked = func() {}
	}
	return &Processor{
		id: id, q: q, campaigns: campaigns, gw: gw,
		limiter: limiter, sender: sender, logger: logger,
		onEmailSent:   hooks.OnEmailSent,
		onEmailFailed: hooks.OnEmailFailed,
		onApplied:     hooks.OnApplied,
		onNacked:      hooks.OnNacked,
	}
}

// Run blocks until ctx is cancelled, processing one batch per iteration.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("batch processor started", zap.Int("id", p.id))
	for {
		d, ok := p.q.Dequeue(ctx)
		if !ok {
			p.logger.Info("batch processor stopping", zap.Int("id", p.id))
			return
		}
		p.process(ctx, d)
	}
}

func (p *Processor) process(ctx context.Context, d *queue.Delivery) {
	start := time.Now()
	msg := d.Message
	log := p.logger.With(
		zap.String("campaign_id", msg.CampaignID),
		zap.Int("seq", msg.Seq),
		zap.Int("attempt", d.Attempt),
	)

	sent, failed := p.sendBatch(ctx, msg, log)
	if ctx.Err() != nil {
		// Shutdown mid-batch: leave the delivery unsettled so the lease
		// expires and another processor picks the whole batch up again.
		log.Warn("shutdown during batch, leaving delivery for redelivery")
		return
	}

	_, applied, err := p.campaigns.ApplyBatch(ctx, msg.CampaignID, msg.Seq, sent, failed)
	if err != nil {
		log.Error("batch merge failed, returning to queue", zap.Error(err))
		d.Nack()
		p.onNacked()
		return
	}

	d.Ack()
	elapsed := time.Since(start)
	p.onApplied(!applied, elapsed)

	if !applied {
		log.Info("batch already applied, acknowledged duplicate delivery")
		return
	}
	log.Info("batch applied",
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Duration("latency", elapsed),
	)
}

// sendBatch delivers to every address in the batch and returns the local
// tally. A per-address failure counts as failed and the loop continues; only
// context cancellation stops it early.
func (p *Processor) sendBatch(ctx context.Context, msg domain.BatchMessage, log *zap.Logger) (sent, failed int) {
	for _, email := range msg.Emails {
		if err := p.limiter.Wait(ctx); err != nil {
			// ctx cancelled while waiting — processor is shutting down.
			return sent, failed
		}

		err := p.gw.Send(ctx, gateway.Message{
			From:    p.sender,
			To:      email,
			Subject: msg.Subject,
			HTML:    msg.HTML,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sent, failed
			}
			failed++
			p.onEmailFailed()
			log.Warn("email delivery failed", zap.String("to", email), zap.Error(err))
			continue
		}
		sent++
		p.onEmailSent()
	}
	return sent, failed
}
