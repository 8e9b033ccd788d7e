package repository

import (
	"context"

	"github.com/optkit/optkit/internal/domain"
)

// SubscriberRepository defines all persistence operations for subscribers.
// The pgx implementation is in pg_subscriber_repo.go.
// Tests use a hand-written mock (mock_subscriber_repo.go).
//
// Upsert is the single write path: the email primary key guarantees at most
// one row per normalized address even under concurrent opt-in calls.
type SubscriberRepository interface {
	Upsert(ctx context.Context, s *domain.Subscriber) error
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)
	List(ctx context.Context, q domain.ListQuery) (*domain.SubscriberPage, error)
	Delete(ctx context.Context, email string) error

	// ActiveEmails returns up to limit active addresses in creation order.
	// The dispatcher uses it to take the campaign snapshot; unlike List it is
	// not subject to the public page-size cap.
	ActiveEmails(ctx context.Context, limit int) ([]string, error)
}
