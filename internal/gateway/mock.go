package gateway

import (
	"context"
	"sync"
)

// MockGateway is the in-memory gateway used by unit tests. Every outbound
// call is recorded; error overrides simulate failing collaborators.
type MockGateway struct {
	mu sync.Mutex

	Published     []string // content refs, in publish order
	Notifications []string // messages, in send order
	Generated     []string // topics sent to Generate

	PublishErr      error
	NotifyErr       error
	PlanTopicsErr   error
	GenerateErr     error
	CheckPublishErr error
	CheckGenErr     error

	// PlannedTopics is returned by PlanTopics when set.
	PlannedTopics []TopicSuggestion
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Publish(_ context.Context, _ string, contentRef string) (*PublishResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return nil, m.PublishErr
	}
	m.Published = append(m.Published, contentRef)
	return &PublishResult{MessageID: "msg-" + contentRef}, nil
}

func (m *MockGateway) Notify(_ context.Context, _ string, message string, _ []Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotifyErr != nil {
		return m.NotifyErr
	}
	m.Notifications = append(m.Notifications, message)
	return nil
}

func (m *MockGateway) PlanTopics(_ context.Context, _ string, count int) ([]TopicSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlanTopicsErr != nil {
		return nil, m.PlanTopicsErr
	}
	if m.PlannedTopics != nil {
		return m.PlannedTopics, nil
	}
	topics := make([]TopicSuggestion, count)
	for i := range topics {
		topics[i] = TopicSuggestion{Topic: "topic", Format: "overview"}
	}
	return topics, nil
}

func (m *MockGateway) Generate(_ context.Context, _ string, topic, _ string, _ bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GenerateErr != nil {
		return "", m.GenerateErr
	}
	m.Generated = append(m.Generated, topic)
	return "ref-" + topic, nil
}

func (m *MockGateway) CheckPublish(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckPublishErr
}

func (m *MockGateway) CheckGeneration(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckGenErr
}

func (m *MockGateway) RecordPublish(_ context.Context, _ string) error {
	return nil
}

// PublishedCount returns how many publishes succeeded so far.
func (m *MockGateway) PublishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// NotificationCount returns how many notifications were sent so far.
func (m *MockGateway) NotificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notifications)
}
