package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/queue"
	"github.com/optkit/optkit/internal/repository"
)

// CampaignOptions tunes the dispatch path.
type CampaignOptions struct {
	// BatchSize is the number of addresses per batch. Zero uses
	// domain.DefaultBatchSize.
	BatchSize int

	// SnapshotLimit caps how many active subscribers one campaign addresses.
	SnapshotLimit int
}

// CampaignService creates campaigns and fans their recipient snapshot out to
// the batch queue. Subscribers who opt out after dispatch still receive the
// in-flight campaign; the snapshot is immutable once taken.
type CampaignService struct {
	campaigns   repository.CampaignRepository
	subscribers repository.SubscriberRepository
	q           queue.BatchQueue
	batchSize   int
	snapshotCap int
	logger      *zap.Logger
}

func NewCampaignService(
	campaigns repository.CampaignRepository,
	subscribers repository.SubscriberRepository,
	q queue.BatchQueue,
	opts CampaignOptions,
	logger *zap.Logger,
) *CampaignService {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}
	snapshotCap := opts.SnapshotLimit
	if snapshotCap <= 0 {
		snapshotCap = 10000
	}
	return &CampaignService{
		campaigns:   campaigns,
		subscribers: subscribers,
		q:           q,
		batchSize:   batchSize,
		snapshotCap: snapshotCap,
		logger:      logger,
	}
}

// Dispatch validates the input, records the campaign, snapshots the active
// subscriber list and enqueues one message per batch. A campaign with zero
// active subscribers completes immediately without touching the queue.
func (s *CampaignService) Dispatch(ctx context.Context, in domain.CampaignInput) (*domain.Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:        uuid.NewString(),
		Subject:   in.Subject,
		HTML:      in.HTML,
		Status:    domain.CampaignQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	emails, err := s.subscribers.ActiveEmails(ctx, s.snapshotCap)
	if err != nil {
		return nil, fmt.Errorf("snapshot subscribers: %w", err)
	}
	batches := domain.PartitionEmails(emails, s.batchSize)

	campaign, err = s.campaigns.MarkSending(ctx, campaign.ID, len(emails), len(batches))
	if err != nil {
		return nil, fmt.Errorf("mark campaign sending: %w", err)
	}

	if len(batches) == 0 {
		completed := domain.CampaignCompleted
		campaign, err = s.campaigns.Update(ctx, campaign.ID, domain.CampaignUpdate{Status: &completed})
		if err != nil {
			return nil, fmt.Errorf("complete empty campaign: %w", err)
		}
		s.logger.Info("campaign dispatched to empty list", zap.String("campaign_id", campaign.ID))
		return campaign, nil
	}

	msgs := make([]domain.BatchMessage, len(batches))
	for i, batch := range batches {
		msgs[i] = domain.BatchMessage{
			CampaignID: campaign.ID,
			Seq:        i,
			Emails:     batch,
			Subject:    campaign.Subject,
			HTML:       campaign.HTML,
		}
	}
	if err := s.q.Enqueue(ctx, msgs); err != nil {
		// The campaign stays in sending with its durable batch descriptors;
		// an operator can re-enqueue from them.
		s.logger.Error("batch enqueue failed",
			zap.String("campaign_id", campaign.ID),
			zap.Int("batches", len(msgs)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("enqueue batches: %w", err)
	}

	s.logger.Info("campaign dispatched",
		zap.String("campaign_id", campaign.ID),
		zap.Int("total", campaign.Total),
		zap.Int("batches", len(msgs)),
	)
	return campaign, nil
}

// Get returns a campaign with its current counters.
func (s *CampaignService) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}
