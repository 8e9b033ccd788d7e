package repository

import (
	"context"

	"github.com/optkit/optkit/internal/domain"
)

// CampaignRepository defines all persistence operations for campaigns and
// their batch markers. The pgx implementation is in pg_campaign_repo.go.
// Tests use a hand-written mock (mock_campaign_repo.go).
type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)

	// Update applies a shallow partial update and refreshes updated_at.
	// Returns domain.ErrCampaignNotFound for an unknown id.
	Update(ctx context.Context, id string, upd domain.CampaignUpdate) (*domain.Campaign, error)

	// MarkSending commits the subscriber snapshot in one transaction: it sets
	// total and status=sending and writes one durable batch descriptor row per
	// batch (seq 0..batchCount-1). The descriptors double as applied-markers
	// for ApplyBatch.
	MarkSending(ctx context.Context, id string, total, batchCount int) (*domain.Campaign, error)

	// ApplyBatch merges one batch's local tally into the campaign counters and
	// flips status to completed when every address has an outcome. The marker
	// claim and the counter merge happen in a single transaction, so a
	// redelivered batch that was already applied returns applied=false and
	// leaves the counters untouched.
	ApplyBatch(ctx context.Context, id string, seq, sent, failed int) (c *domain.Campaign, applied bool, err error)
}
