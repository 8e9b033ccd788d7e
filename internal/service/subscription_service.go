package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/domain"
	"github.com/optkit/optkit/internal/gateway"
	"github.com/optkit/optkit/internal/repository"
)

// SubscriptionOptions configures the subscription service. The validator and
// templates are injected strategies; nil fields use the package defaults.
type SubscriptionOptions struct {
	SenderEmail string
	AdminEmail  string // empty disables new-subscriber notifications

	ValidateEmail func(email string) bool
	Templates     Templates
}

// SubscriptionService owns the opt-in/opt-out lifecycle and the list surface.
// Subscription changes are durable before any confirmation email is attempted;
// confirmation failures are logged and never surfaced to the caller.
type SubscriptionService struct {
	repo      repository.SubscriberRepository
	gw        gateway.Gateway
	validate  func(string) bool
	templates Templates
	sender    string
	admin     string
	logger    *zap.Logger
}

func NewSubscriptionService(
	repo repository.SubscriberRepository,
	gw gateway.Gateway,
	opts SubscriptionOptions,
	logger *zap.Logger,
) *SubscriptionService {
	validate := opts.ValidateEmail
	if validate == nil {
		validate = domain.ValidateEmail
	}
	return &SubscriptionService{
		repo:      repo,
		gw:        gw,
		validate:  validate,
		templates: opts.Templates.withDefaults(),
		sender:    opts.SenderEmail,
		admin:     opts.AdminEmail,
		logger:    logger,
	}
}

// OptIn activates a subscription for the address. Re-activating an
// unsubscribed address mutates the existing record; an already-active address
// is a conflict. On success a welcome email and an admin notification go out
// best-effort.
func (s *SubscriptionService) OptIn(ctx context.Context, email string) (*domain.Subscriber, error) {
	normalized := domain.NormalizeEmail(email)
	if !s.validate(normalized) {
		return nil, domain.ErrInvalidEmail
	}

	existing, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}
	if existing != nil && existing.Status == domain.StatusActive {
		return nil, domain.ErrAlreadySubscribed
	}

	sub := upsertRecord(existing, normalized, domain.StatusActive)
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist opt-in: %w", err)
	}

	s.sendBestEffort(ctx, normalized, s.templates.OptIn(normalized), "opt-in confirmation")
	if s.admin != "" {
		s.sendBestEffort(ctx, s.admin, s.templates.NewSubscriber(normalized), "new-subscriber notification")
	}

	return sub, nil
}

// OptOut deactivates a subscription. Opting out an address that was never
// seen creates an unsubscribed record rather than erroring, so suppression
// survives a later import of the same address.
func (s *SubscriptionService) OptOut(ctx context.Context, email string) (*domain.Subscriber, error) {
	normalized := domain.NormalizeEmail(email)
	if !s.validate(normalized) {
		return nil, domain.ErrInvalidEmail
	}

	existing, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}

	sub := upsertRecord(existing, normalized, domain.StatusUnsubscribed)
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist opt-out: %w", err)
	}

	s.sendBestEffort(ctx, normalized, s.templates.OptOut(normalized), "opt-out confirmation")

	return sub, nil
}

// Get returns the subscriber record for the normalized address, or
// domain.ErrNotFound.
func (s *SubscriptionService) Get(ctx context.Context, email string) (*domain.Subscriber, error) {
	return s.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
}

// List returns one page of subscribers plus the aggregate counts.
func (s *SubscriptionService) List(ctx context.Context, q domain.ListQuery) (*domain.SubscriberPage, error) {
	return s.repo.List(ctx, q)
}

// Delete removes a subscriber entirely. Admin-only; the dispatch pipeline
// never hard-deletes.
func (s *SubscriptionService) Delete(ctx context.Context, email string) error {
	return s.repo.Delete(ctx, domain.NormalizeEmail(email))
}

// ---- private helpers ----

func upsertRecord(existing *domain.Subscriber, email string, status domain.SubscriberStatus) *domain.Subscriber {
	now := time.Now().UTC()
	if existing != nil {
		existing.Status = status
		existing.UpdatedAt = now
		return existing
	}
	return &domain.Subscriber{
		Email:     email,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *SubscriptionService) sendBestEffort(ctx context.Context, to string, tpl Template, kind string) {
	err := s.gw.Send(ctx, gateway.Message{
		From:    s.sender,
		To:      to,
		Subject: tpl.Subject,
		HTML:    tpl.HTML,
		Text:    tpl.Text,
	})
	if err != nil {
		s.logger.Warn("confirmation email failed",
			zap.String("kind", kind),
			zap.String("to", to),
			zap.Error(err),
		)
	}
}
