package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/optkit/optkit/internal/domain"
)

// MockSubscriberRepository is a hand-written, in-memory implementation of
// SubscriberRepository used in unit tests. No mock-generation library needed.
// It is also the reference single-writer table: a mutex serializes every
// operation, matching the store's serialized-actor model.
type MockSubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[string]*domain.Subscriber

	// Optional error overrides — set in tests to simulate failure paths.
	UpsertErr error
	ListErr   error
}

func NewMockSubscriberRepository() *MockSubscriberRepository {
	return &MockSubscriberRepository{
		subscribers: make(map[string]*domain.Subscriber),
	}
}

func (m *MockSubscriberRepository) Upsert(_ context.Context, s *domain.Subscriber) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.subscribers[s.Email] = &clone
	return nil
}

func (m *MockSubscriberRepository) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscribers[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockSubscriberRepository) List(_ context.Context, q domain.ListQuery) (*domain.SubscriberPage, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	q = q.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Subscriber
	var active, unsubscribed int
	for _, s := range m.subscribers {
		if q.Search != "" && !strings.Contains(s.Email, q.Search) {
			continue
		}
		switch s.Status {
		case domain.StatusActive:
			active++
		case domain.StatusUnsubscribed:
			unsubscribed++
		}
		if q.Status != nil && s.Status != *q.Status {
			continue
		}
		clone := *s
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch q.Sort {
		case domain.SortEmail:
			less = matched[i].Email < matched[j].Email
		case domain.SortUpdated:
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if q.Order == domain.OrderDesc {
			return !less
		}
		return less
	})

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}

	return &domain.SubscriberPage{
		Subscribers:  matched[start:end],
		Total:        total,
		Active:       active,
		Unsubscribed: unsubscribed,
		HasMore:      q.Offset()+q.Limit < total,
	}, nil
}

func (m *MockSubscriberRepository) ActiveEmails(_ context.Context, limit int) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*domain.Subscriber
	for _, s := range m.subscribers {
		if s.Status == domain.StatusActive {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].Email < active[j].Email
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	if len(active) > limit {
		active = active[:limit]
	}
	emails := make([]string, len(active))
	for i, s := range active {
		emails[i] = s.Email
	}
	return emails, nil
}

func (m *MockSubscriberRepository) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscribers[email]; !ok {
		return domain.ErrNotFound
	}
	delete(m.subscribers, email)
	return nil
}

var _ SubscriberRepository = (*MockSubscriberRepository)(nil)
