package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/gateway"
	"github.com/optkit/optkit/internal/repository"
)

func newSubscriptionFixture() (*SubscriptionService, *repository.MockSubscriberRepository, *gateway.MockGateway) {
	repo := repository.NewMockSubscriberRepository()
	gw := gateway.NewMockGateway()
	svc := NewSubscriptionService(repo, gw, SubscriptionOptions{
		SenderEmail: "newsletter@example.com",
		AdminEmail:  "admin@example.com",
	}, zap.NewNop())
	return svc, repo, gw
}

func TestOptInNormalizesAndActivates(t *testing.T) {
	svc, repo, gw := newSubscriptionFixture()

	sub, err := svc.OptIn(context.Background(), "  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("OptIn: %v", err)
	}
	if sub.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", sub.Email)
	}
	if sub.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", sub.Status)
	}

	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail after opt-in: %v", err)
	}
	if stored.Status != domain.StatusActive {
		t.Errorf("stored status = %q, want active", stored.Status)
	}

	// Welcome to the subscriber plus the admin notification.
	sent := gw.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sent))
	}
	if sent[0].To != "alice@example.com" || sent[0].Subject != "Welcome!" {
		t.Errorf("first email = %q/%q, want welcome to subscriber", sent[0].To, sent[0].Subject)
	}
	if sent[1].To != "admin@example.com" {
		t.Errorf("second email to %q, want admin notification", sent[1].To)
	}
}

func TestOptInRejectsInvalidEmail(t *testing.T) {
	svc, _, gw := newSubscriptionFixture()

	for _, email := range []string{"", "not-an-email", "a@b", "has space@example.com"} {
		if _, err := svc.OptIn(context.Background(), email); !errors.Is(err, domain.ErrInvalidEmail) {
			t.Errorf("OptIn(%q) err = %v, want ErrInvalidEmail", email, err)
		}
	}
	if len(gw.Sent()) != 0 {
		t.Errorf("sent %d emails on invalid input, want 0", len(gw.Sent()))
	}
}

func TestOptInActiveConflicts(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()

	if _, err := svc.OptIn(context.Background(), "bob@example.com"); err != nil {
		t.Fatalf("first OptIn: %v", err)
	}
	if _, err := svc.OptIn(context.Background(), "bob@example.com"); !errors.Is(err, domain.ErrAlreadySubscribed) {
		t.Fatalf("second OptIn err = %v, want ErrAlreadySubscribed", err)
	}
}

func TestOptInReactivatesUnsubscribed(t *testing.T) {
	svc, repo, _ := newSubscriptionFixture()
	ctx := context.Background()

	if _, err := svc.OptIn(ctx, "carol@example.com"); err != nil {
		t.Fatalf("OptIn: %v", err)
	}
	original, _ := repo.GetByEmail(ctx, "carol@example.com")

	if _, err := svc.OptOut(ctx, "carol@example.com"); err != nil {
		t.Fatalf("OptOut: %v", err)
	}
	sub, err := svc.OptIn(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("re-OptIn: %v", err)
	}
	if sub.Status != domain.StatusActive {
		t.Errorf("status = %q, want active after re-opt-in", sub.Status)
	}
	if !sub.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt changed on re-opt-in: %v != %v", sub.CreatedAt, original.CreatedAt)
	}
}

func TestOptInSurvivesGatewayFailure(t *testing.T) {
	svc, repo, gw := newSubscriptionFixture()
	gw.SendErr = errors.New("smtp down")

	sub, err := svc.OptIn(context.Background(), "dave@example.com")
	if err != nil {
		t.Fatalf("OptIn should not fail on confirmation error, got %v", err)
	}
	if sub.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", sub.Status)
	}
	if _, err := repo.GetByEmail(context.Background(), "dave@example.com"); err != nil {
		t.Errorf("subscription not persisted: %v", err)
	}
}

func TestOptInFailsWhenUpsertFails(t *testing.T) {
	svc, repo, gw := newSubscriptionFixture()
	repo.UpsertErr = errors.New("db down")

	if _, err := svc.OptIn(context.Background(), "erin@example.com"); err == nil {
		t.Fatal("OptIn succeeded despite upsert failure")
	}
	if len(gw.Sent()) != 0 {
		t.Errorf("sent %d emails despite upsert failure, want 0", len(gw.Sent()))
	}
}

func TestOptOutUnknownCreatesSuppressedRecord(t *testing.T) {
	svc, repo, gw := newSubscriptionFixture()

	sub, err := svc.OptOut(context.Background(), "Frank@Example.com")
	if err != nil {
		t.Fatalf("OptOut: %v", err)
	}
	if sub.Status != domain.StatusUnsubscribed {
		t.Errorf("status = %q, want unsubscribed", sub.Status)
	}

	stored, err := repo.GetByEmail(context.Background(), "frank@example.com")
	if err != nil {
		t.Fatalf("record not created for unknown opt-out: %v", err)
	}
	if stored.Status != domain.StatusUnsubscribed {
		t.Errorf("stored status = %q, want unsubscribed", stored.Status)
	}

	sent := gw.Sent()
	if len(sent) != 1 || sent[0].Subject != "You've been unsubscribed" {
		t.Errorf("sent = %+v, want single opt-out confirmation", sent)
	}
}

func TestOptOutIsIdempotent(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()
	ctx := context.Background()

	if _, err := svc.OptOut(ctx, "gail@example.com"); err != nil {
		t.Fatalf("first OptOut: %v", err)
	}
	sub, err := svc.OptOut(ctx, "gail@example.com")
	if err != nil {
		t.Fatalf("second OptOut: %v", err)
	}
	if sub.Status != domain.StatusUnsubscribed {
		t.Errorf("status = %q, want unsubscribed", sub.Status)
	}
}

// seedMixedList creates 3 active and 2 unsubscribed subscribers; the
// addresses containing "team" are one of each status.
func seedMixedList(t *testing.T, svc *SubscriptionService) {
	t.Helper()
	ctx := context.Background()
	for _, email := range []string{"a1@x.com", "a2@x.com", "team.a3@x.com"} {
		if _, err := svc.OptIn(ctx, email); err != nil {
			t.Fatalf("seed opt-in %s: %v", email, err)
		}
	}
	for _, email := range []string{"u1@x.com", "team.u2@x.com"} {
		if _, err := svc.OptOut(ctx, email); err != nil {
			t.Fatalf("seed opt-out %s: %v", email, err)
		}
	}
}

func TestListCountsScopedBySearchNotStatus(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()
	seedMixedList(t, svc)
	ctx := context.Background()
	active := domain.StatusActive

	// Status filter narrows the page and total but never the per-status counts.
	page, err := svc.List(ctx, domain.ListQuery{Status: &active})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 || len(page.Subscribers) != 3 {
		t.Errorf("total = %d (%d rows), want 3 active", page.Total, len(page.Subscribers))
	}
	if page.Active != 3 || page.Unsubscribed != 2 {
		t.Errorf("counts = %d/%d, want 3/2 regardless of status filter", page.Active, page.Unsubscribed)
	}
	if page.Active+page.Unsubscribed != 5 {
		t.Errorf("active+unsubscribed = %d, want the full population 5", page.Active+page.Unsubscribed)
	}

	// Search narrows both the total and the per-status counts.
	page, err = svc.List(ctx, domain.ListQuery{Search: "team"})
	if err != nil {
		t.Fatalf("List with search: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("search total = %d, want 2", page.Total)
	}
	if page.Active != 1 || page.Unsubscribed != 1 {
		t.Errorf("search counts = %d/%d, want 1/1", page.Active, page.Unsubscribed)
	}

	// Search and status combined: total honors both, counts only the search.
	page, err = svc.List(ctx, domain.ListQuery{Search: "team", Status: &active})
	if err != nil {
		t.Fatalf("List with search+status: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("search+status total = %d, want 1", page.Total)
	}
	if page.Active != 1 || page.Unsubscribed != 1 {
		t.Errorf("search+status counts = %d/%d, want 1/1", page.Active, page.Unsubscribed)
	}
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()
	seedMixedList(t, svc)

	page, err := svc.List(context.Background(), domain.ListQuery{Search: "TEAM"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("total = %d, want 2 (stored addresses are lowercase)", page.Total)
	}
}

func TestListPaginationAndHasMore(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.OptIn(ctx, fmt.Sprintf("p%d@x.com", i)); err != nil {
			t.Fatalf("seed opt-in %d: %v", i, err)
		}
	}

	tests := []struct {
		page     int
		wantRows int
		wantMore bool
	}{
		{1, 2, true},
		{2, 2, true},  // offset 2 + limit 2 = 4 < 5
		{3, 1, false}, // offset 4 + limit 2 = 6 > 5
		{4, 0, false},
	}
	for _, tc := range tests {
		got, err := svc.List(ctx, domain.ListQuery{Page: tc.page, Limit: 2})
		if err != nil {
			t.Fatalf("List page %d: %v", tc.page, err)
		}
		if len(got.Subscribers) != tc.wantRows {
			t.Errorf("page %d: %d rows, want %d", tc.page, len(got.Subscribers), tc.wantRows)
		}
		if got.Total != 5 {
			t.Errorf("page %d: total = %d, want 5", tc.page, got.Total)
		}
		if got.HasMore != tc.wantMore {
			t.Errorf("page %d: hasMore = %v, want %v", tc.page, got.HasMore, tc.wantMore)
		}
	}

	// Boundary: the population ends exactly at offset+limit.
	got, err := svc.List(ctx, domain.ListQuery{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("List exact page: %v", err)
	}
	if got.HasMore {
		t.Error("hasMore = true when total == offset+limit, want false")
	}
}

func TestDeleteUnknownReturnsNotFound(t *testing.T) {
	svc, _, _ := newSubscriptionFixture()

	if err := svc.Delete(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}
}
