package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optkit/optkit/internal/domain"
)

type pgSubscriberRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubscriberRepository returns a SubscriberRepository backed by PostgreSQL.
func NewPgSubscriberRepository(pool *pgxpool.Pool) SubscriberRepository {
	return &pgSubscriberRepository{pool: pool}
}

func (r *pgSubscriberRepository) Upsert(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subscribers (email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		s.Email, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	return nil
}

func (r *pgSubscriberRepository) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT email, status, created_at, updated_at
		FROM subscribers WHERE email = $1`, email)

	var s domain.Subscriber
	err := row.Scan(&s.Email, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return &s, nil
}

func (r *pgSubscriberRepository) List(ctx context.Context, q domain.ListQuery) (*domain.SubscriberPage, error) {
	q = q.Normalize()
	where, args := buildSubscriberWhere(q)

	// Total count is scoped by both the status and search filters.
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM subscribers"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	// Per-status counts are scoped by the search filter only, so the admin
	// surface always sees both totals regardless of the selected status tab.
	active, unsubscribed, err := r.statusCounts(ctx, q.Search)
	if err != nil {
		return nil, err
	}

	orderBy := map[domain.SortKey]string{
		domain.SortCreated: "created_at",
		domain.SortUpdated: "updated_at",
		domain.SortEmail:   "email",
	}[q.Sort]
	dir := "DESC"
	if q.Order == domain.OrderAsc {
		dir = "ASC"
	}

	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(`
		SELECT email, status, created_at, updated_at
		FROM subscribers%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`, where, orderBy, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.Email, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.SubscriberPage{
		Subscribers:  subscribers,
		Total:        total,
		Active:       active,
		Unsubscribed: unsubscribed,
		HasMore:      q.Offset()+q.Limit < total,
	}, nil
}

func (r *pgSubscriberRepository) ActiveEmails(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email FROM subscribers
		WHERE status = 'active'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot active subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan active email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *pgSubscriberRepository) Delete(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subscribers WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- helpers ----

func (r *pgSubscriberRepository) statusCounts(ctx context.Context, search string) (active, unsubscribed int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'unsubscribed')
		FROM subscribers`
	var args []any
	if search != "" {
		query += " WHERE email LIKE $1"
		args = append(args, "%"+search+"%")
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&active, &unsubscribed); err != nil {
		return 0, 0, fmt.Errorf("count subscriber statuses: %w", err)
	}
	return active, unsubscribed, nil
}

// buildSubscriberWhere builds a parameterised WHERE clause from a ListQuery.
func buildSubscriberWhere(q domain.ListQuery) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if q.Status != nil {
		add("status = $%d", *q.Status)
	}
	if q.Search != "" {
		add("email LIKE $%d", "%"+q.Search+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
