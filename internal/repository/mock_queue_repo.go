package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
type MockQueueRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.QueueItem

	// Optional error overrides — set in tests to simulate failure paths.
	AppendErr    error
	NextReadyErr error
	DeleteErr    error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[string]*domain.QueueItem)}
}

func (m *MockQueueRepository) Append(_ context.Context, item *domain.QueueItem) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Position = m.maxActivePositionLocked(item.TenantID) + 1
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *MockQueueRepository) AppendBatch(_ context.Context, tenantID string, items []*domain.QueueItem) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.maxActivePositionLocked(tenantID)
	for i, item := range items {
		item.Position = base + i + 1
		clone := *item
		m.items[item.ID] = &clone
	}
	return nil
}

func (m *MockQueueRepository) InsertAfter(_ context.Context, afterPosition int, item *domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.TenantID == item.TenantID && existing.Status.IsActive() && existing.Position > afterPosition {
			existing.Position++
		}
	}
	item.Position = afterPosition + 1
	clone := *item
	m.items[item.ID] = &clone
	return nil
}

func (m *MockQueueRepository) Delete(_ context.Context, tenantID, itemID string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[itemID]; !ok {
		return nil
	}
	delete(m.items, itemID)
	for i, item := range m.activeLocked(tenantID) {
		item.Position = i + 1
	}
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, itemID string) (*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) ListActive(_ context.Context, tenantID string) ([]*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.QueueItem
	for _, item := range m.activeLocked(tenantID) {
		clone := *item
		result = append(result, &clone)
	}
	return result, nil
}

func (m *MockQueueRepository) List(_ context.Context, tenantID string, filter domain.ListFilter) ([]*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.QueueItem
	for _, item := range m.items {
		if item.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		clone := *item
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (m *MockQueueRepository) CountByStatus(_ context.Context, tenantID string) (map[domain.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.Status]int)
	for _, item := range m.items {
		if item.TenantID == tenantID {
			counts[item.Status]++
		}
	}
	return counts, nil
}

func (m *MockQueueRepository) NextReady(_ context.Context, tenantID string, now time.Time) (*domain.QueueItem, error) {
	if m.NextReadyErr != nil {
		return nil, m.NextReadyErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *domain.QueueItem
	for _, item := range m.items {
		if item.TenantID != tenantID || item.Status != domain.StatusReady {
			continue
		}
		if item.ScheduledAt == nil || item.ScheduledAt.After(now) {
			continue
		}
		if best == nil || item.Position < best.Position {
			best = item
		}
	}
	if best == nil {
		return nil, nil
	}
	clone := *best
	return &clone, nil
}

func (m *MockQueueRepository) UpdateStatus(_ context.Context, itemID string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[itemID]; ok {
		item.Status = status
	}
	return nil
}

func (m *MockQueueRepository) SetReview(_ context.Context, itemID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[itemID]; ok {
		item.Status = domain.StatusReview
		item.LastReminderAt = &at
	}
	return nil
}

func (m *MockQueueRepository) IncrementReminder(_ context.Context, itemID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[itemID]; ok {
		item.ReviewReminders++
		item.LastReminderAt = &at
	}
	return nil
}

func (m *MockQueueRepository) ReviewItems(_ context.Context, tenantID string) ([]*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.QueueItem
	for _, item := range m.items {
		if item.TenantID == tenantID && item.Status == domain.StatusReview {
			clone := *item
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (m *MockQueueRepository) AllReviewItems(_ context.Context) ([]*domain.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.QueueItem
	for _, item := range m.items {
		if item.Status == domain.StatusReview {
			clone := *item
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockQueueRepository) AssignScheduledAt(_ context.Context, assignments []ScheduledAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range assignments {
		if item, ok := m.items[a.ItemID]; ok {
			item.ScheduledAt = a.At
		}
	}
	return nil
}

func (m *MockQueueRepository) ClearActive(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.TenantID == tenantID && item.Status.IsActive() {
			delete(m.items, id)
		}
	}
	return nil
}

// activeLocked returns the tenant's active items ordered by position.
// Callers must hold the mutex; returned pointers alias stored items.
func (m *MockQueueRepository) activeLocked(tenantID string) []*domain.QueueItem {
	var active []*domain.QueueItem
	for _, item := range m.items {
		if item.TenantID == tenantID && item.Status.IsActive() {
			active = append(active, item)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Position < active[j].Position })
	return active
}

func (m *MockQueueRepository) maxActivePositionLocked(tenantID string) int {
	max := 0
	for _, item := range m.items {
		if item.TenantID == tenantID && item.Status.IsActive() && item.Position > max {
			max = item.Position
		}
	}
	return max
}
