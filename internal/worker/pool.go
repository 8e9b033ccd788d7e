package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/gateway"
	"github.com/optkit/optkit/internal/queue"
	"github.com/optkit/optkit/internal/ratelimiter"
	"github.com/optkit/optkit/internal/repository"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnEmailSent   func()
	OnEmailFailed func()
	OnApplied     func(duplicate bool, elapsed time.Duration)
	OnNacked      func()
}

// Pool manages the lifecycle of all batch processors. All processors share
// the same queue and the same send limiter, so the configured send rate holds
// across the whole pool.
type Pool struct {
	processors []*Processor
	wg         sync.WaitGroup
}

// NewPool creates size identical processors.
func NewPool(
	size int,
	q queue.BatchQueue,
	campaigns repository.CampaignRepository,
	gw gateway.Gateway,
	limiter *ratelimiter.SendLimiter,
	sender string,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	processors := make([]*Processor, size)
	for i := range processors {
		processors[i] = NewProcessor(
			i, q, campaigns, gw, limiter, sender,
			logger.With(zap.Int("processor_id", i)),
			hooks,
		)
	}
	return &Pool{processors: processors}
}

// Start launches all processors as goroutines.
// The provided ctx is forwarded to every processor; cancelling it triggers a
// graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, proc := range p.processors {
		p.wg.Add(1)
		go func(proc *Processor) {
			defer p.wg.Done()
			proc.Run(ctx)
		}(proc)
	}
}

// Wait blocks until every processor has returned after ctx is cancelled.
// Call this after cancelling the context so in-flight batches settle.
func (p *Pool) Wait() {
	p.wg.Wait()
}
