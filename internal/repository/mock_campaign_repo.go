package repository

import (
	"context"
	"sync"
	"time"

	"github.com/optkit/optkit/internal/domain"
)

type batchKey struct {
	campaignID string
	seq        int
}

// MockCampaignRepository is a hand-written, in-memory implementation of
// CampaignRepository used in unit tests. ApplyBatch mirrors the transactional
// marker-then-merge semantics of the Postgres implementation.
type MockCampaignRepository struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	markers   map[batchKey]bool

	// Optional error overrides — set in tests to simulate failure paths.
	CreateErr      error
	MarkSendingErr error
	ApplyBatchErr  error
}

func NewMockCampaignRepository() *MockCampaignRepository {
	return &MockCampaignRepository{
		campaigns: make(map[string]*domain.Campaign),
		markers:   make(map[batchKey]bool),
	}
}

func (m *MockCampaignRepository) Create(_ context.Context, c *domain.Campaign) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.campaigns[c.ID] = &clone
	return nil
}

func (m *MockCampaignRepository) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MockCampaignRepository) Update(_ context.Context, id string, upd domain.CampaignUpdate) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.Total != nil {
		c.Total = *upd.Total
	}
	if upd.Sent != nil {
		c.Sent = *upd.Sent
	}
	if upd.Failed != nil {
		c.Failed = *upd.Failed
	}
	c.UpdatedAt = time.Now().UTC()
	clone := *c
	return &clone, nil
}

func (m *MockCampaignRepository) MarkSending(_ context.Context, id string, total, batchCount int) (*domain.Campaign, error) {
	if m.MarkSendingErr != nil {
		return nil, m.MarkSendingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	c.Total = total
	c.Status = domain.CampaignSending
	c.UpdatedAt = time.Now().UTC()
	for seq := 0; seq < batchCount; seq++ {
		m.markers[batchKey{id, seq}] = false
	}
	clone := *c
	return &clone, nil
}

func (m *MockCampaignRepository) ApplyBatch(_ context.Context, id string, seq, sent, failed int) (*domain.Campaign, bool, error) {
	if m.ApplyBatchErr != nil {
		return nil, false, m.ApplyBatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	applied, ok := m.markers[batchKey{id, seq}]
	if !ok {
		return nil, false, domain.ErrBatchUnknown
	}
	c, ok := m.campaigns[id]
	if !ok {
		return nil, false, domain.ErrCampaignNotFound
	}
	if applied {
		clone := *c
		return &clone, false, nil
	}

	m.markers[batchKey{id, seq}] = true
	c.Sent += sent
	c.Failed += failed
	c.Status = domain.CampaignSending
	if c.Done() {
		c.Status = domain.CampaignCompleted
	}
	c.UpdatedAt = time.Now().UTC()
	clone := *c
	return &clone, true, nil
}

// All returns a snapshot of every stored campaign, for test assertions.
func (m *MockCampaignRepository) All() []*domain.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		clone := *c
		out = append(out, &clone)
	}
	return out
}

var _ CampaignRepository = (*MockCampaignRepository)(nil)
