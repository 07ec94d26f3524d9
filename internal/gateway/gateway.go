// Package gateway holds the narrow interfaces through which the scheduling
// engine talks to its external collaborators: content production, channel
// publishing, tenant notification, and entitlements. Webhook-backed HTTP
// implementations live alongside; tests substitute mocks.
package gateway

import "context"

// Action is one of the buttons offered on an approval notification.
type Action string

const (
	ActionApprove Action = "approve"
	ActionEdit    Action = "edit"
	ActionSkip    Action = "skip"
	ActionDelete  Action = "delete"
)

// ReviewActions is the standard button set attached to approval prompts
// and reminders.
var ReviewActions = []Action{ActionApprove, ActionEdit, ActionSkip, ActionDelete}

// PublishResult carries the external channel's acknowledgement.
type PublishResult struct {
	MessageID string
}

// Publisher delivers a finished piece of content to the tenant's channel.
type Publisher interface {
	Publish(ctx context.Context, tenantID string, contentRef string) (*PublishResult, error)
}

// Notifier sends a human-readable message to the tenant, optionally with
// action buttons. Failures to notify are never fatal to the caller.
type Notifier interface {
	Notify(ctx context.Context, tenantID, message string, actions []Action) error
}

// TopicSuggestion is one entry of a generated content plan.
type TopicSuggestion struct {
	Topic  string `json:"topic"`
	Format string `json:"format"`
}

// Producer generates content-plan topics and composes posts. Composition of
// the content itself (text and covers) happens entirely behind this
// interface; the engine only keeps the opaque content reference.
type Producer interface {
	PlanTopics(ctx context.Context, tenantID string, count int) ([]TopicSuggestion, error)
	Generate(ctx context.Context, tenantID string, topic, format string, withCover bool) (contentRef string, err error)
}

// Entitlements answers billing questions: whether the tenant may still
// publish this month and whether generation budget remains. domain
// sentinels (ErrLimitReached, ErrBudgetExhausted) signal exhaustion.
type Entitlements interface {
	CheckPublish(ctx context.Context, tenantID string) error
	CheckGeneration(ctx context.Context, tenantID string) error
	// RecordPublish increments the tenant's usage counter after a
	// successful publish.
	RecordPublish(ctx context.Context, tenantID string) error
}
