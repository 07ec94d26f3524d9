package repository

import (
	"context"
	"sync"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// MockPolicyRepository is the in-memory PolicyRepository used in unit tests.
type MockPolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]*domain.PublishPolicy

	GetErr        error
	ListActiveErr error
}

func NewMockPolicyRepository() *MockPolicyRepository {
	return &MockPolicyRepository{policies: make(map[string]*domain.PublishPolicy)}
}

func (m *MockPolicyRepository) Get(_ context.Context, tenantID string) (*domain.PublishPolicy, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *MockPolicyRepository) Upsert(_ context.Context, p *domain.PublishPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.policies[p.TenantID] = &clone
	return nil
}

func (m *MockPolicyRepository) ListActive(_ context.Context) ([]*domain.PublishPolicy, error) {
	if m.ListActiveErr != nil {
		return nil, m.ListActiveErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.PublishPolicy
	for _, p := range m.policies {
		if p.Active {
			clone := *p
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockPolicyRepository) SetActive(_ context.Context, tenantID string, active bool) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.Active = active })
}

func (m *MockPolicyRepository) SetModeration(_ context.Context, tenantID string, mod domain.Moderation) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.Moderation = mod })
}

func (m *MockPolicyRepository) SetOnEmpty(_ context.Context, tenantID string, o domain.OnEmpty) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.OnEmpty = o })
}

func (m *MockPolicyRepository) SetGenerateCovers(_ context.Context, tenantID string, v bool) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.GenerateCovers = v })
}

func (m *MockPolicyRepository) SetGenerating(_ context.Context, tenantID string, v bool) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.Generating = v })
}

func (m *MockPolicyRepository) TouchProcessed(_ context.Context, tenantID string, at time.Time) error {
	return m.update(tenantID, func(p *domain.PublishPolicy) { p.LastProcessedAt = &at })
}

func (m *MockPolicyRepository) update(tenantID string, fn func(*domain.PublishPolicy)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	fn(p)
	return nil
}
