package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optkit/optkit/internal/domain"
)

type pgCampaignRepository struct {
	pool *pgxpool.Pool
}

// NewPgCampaignRepository returns a CampaignRepository backed by PostgreSQL.
func NewPgCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &pgCampaignRepository{pool: pool}
}

func (r *pgCampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO campaigns
			(id, subject, html, status, total, sent, failed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Subject, c.HTML, c.Status, c.Total, c.Sent, c.Failed, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *pgCampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, subject, html, status, total, sent, failed, created_at, updated_at
		FROM campaigns WHERE id = $1`, id)

	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	return c, err
}

func (r *pgCampaignRepository) Update(ctx context.Context, id string, upd domain.CampaignUpdate) (*domain.Campaign, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	add := func(column string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Total != nil {
		add("total", *upd.Total)
	}
	if upd.Sent != nil {
		add("sent", *upd.Sent)
	}
	if upd.Failed != nil {
		add("failed", *upd.Failed)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE campaigns SET %s WHERE id = $%d
		RETURNING id, subject, html, status, total, sent, failed, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	return c, nil
}

func (r *pgCampaignRepository) MarkSending(ctx context.Context, id string, total, batchCount int) (*domain.Campaign, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	c, err := scanCampaign(tx.QueryRow(ctx, `
		UPDATE campaigns
		SET total = $1, status = $2, updated_at = $3
		WHERE id = $4
		RETURNING id, subject, html, status, total, sent, failed, created_at, updated_at`,
		total, domain.CampaignSending, now, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark campaign sending: %w", err)
	}

	for seq := 0; seq < batchCount; seq++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO campaign_batches (campaign_id, seq, applied, created_at)
			VALUES ($1, $2, FALSE, $3)`,
			id, seq, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert batch descriptor %d: %w", seq, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mark sending: %w", err)
	}
	return c, nil
}

func (r *pgCampaignRepository) ApplyBatch(ctx context.Context, id string, seq, sent, failed int) (*domain.Campaign, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Claim the marker. The WHERE guard makes the claim a no-op when the batch
	// was already applied by an earlier delivery.
	tag, err := tx.Exec(ctx, `
		UPDATE campaign_batches
		SET applied = TRUE, applied_at = NOW()
		WHERE campaign_id = $1 AND seq = $2 AND applied = FALSE`,
		id, seq,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim batch marker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the batch was already applied (redelivery) or the descriptor
		// never existed. Distinguish so callers can ack the former and
		// surface the latter.
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM campaign_batches WHERE campaign_id = $1 AND seq = $2)`,
			id, seq).Scan(&exists)
		if err != nil {
			return nil, false, fmt.Errorf("check batch marker: %w", err)
		}
		if !exists {
			return nil, false, domain.ErrBatchUnknown
		}
		c, err := scanCampaign(tx.QueryRow(ctx, `
			SELECT id, subject, html, status, total, sent, failed, created_at, updated_at
			FROM campaigns WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domain.ErrCampaignNotFound
		}
		if err != nil {
			return nil, false, fmt.Errorf("get campaign: %w", err)
		}
		return c, false, nil
	}

	c, err := scanCampaign(tx.QueryRow(ctx, `
		SELECT id, subject, html, status, total, sent, failed, created_at, updated_at
		FROM campaigns WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock campaign: %w", err)
	}

	c.Sent += sent
	c.Failed += failed
	c.Status = domain.CampaignSending
	if c.Done() {
		c.Status = domain.CampaignCompleted
	}
	c.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE campaigns
		SET sent = $1, failed = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		c.Sent, c.Failed, c.Status, c.UpdatedAt, id,
	)
	if err != nil {
		return nil, false, fmt.Errorf("merge campaign counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit batch merge: %w", err)
	}
	return c, true, nil
}

// scanCampaign reads a single campaign row from any pgx row type.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID, &c.Subject, &c.HTML, &c.Status,
		&c.Total, &c.Sent, &c.Failed,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
