package domain

import "time"

// Status tracks the lifecycle of a queue item.
type Status string

const (
	// StatusPending means the item exists but its content is still being
	// generated asynchronously; it is not eligible for dispatch yet.
	StatusPending Status = "pending"
	// StatusReady means the item can be dispatched at its scheduled time.
	StatusReady Status = "ready"
	// StatusReview means the item was sent to the tenant for approval and
	// is blocking further dispatch until resolved.
	StatusReview Status = "review"
	// Terminal states.
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReady, StatusReview, StatusPublished, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status counts toward the dense 1..N position
// sequence. Only active items are renumbered and rescheduled.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusReady
}

// QueueItem is one pending/handled piece of content in a tenant's queue.
//
// Among items with an active status, Position is a dense 1-based sequence
// per tenant: it defines both display order and dispatch order.
type QueueItem struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Position       int        `json:"position"`
	Topic          string     `json:"topic"`
	Format         string     `json:"format,omitempty"`
	ContentRef     *string    `json:"content_ref,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	Status         Status     `json:"status"`
	ReviewReminders int       `json:"review_reminders"`
	LastReminderAt *time.Time `json:"last_reminder_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EnqueueRequest is the inbound payload for adding a single queue item.
type EnqueueRequest struct {
	Topic      string  `json:"topic"`
	Format     string  `json:"format,omitempty"`
	ContentRef *string `json:"content_ref,omitempty"`
	// Status defaults to ready; pending is accepted for items whose
	// content is produced asynchronously.
	Status Status `json:"status,omitempty"`
}

func (r *EnqueueRequest) Validate() error {
	if r.Topic == "" || len(r.Topic) > 512 {
		return ErrInvalidTopic
	}
	if r.Status == "" {
		r.Status = StatusReady
	}
	if !r.Status.IsActive() {
		return ErrInvalidStatus
	}
	return nil
}

// InsertAfterRequest inserts an item after an existing active position.
// AfterPosition 0 inserts at the head of the queue.
type InsertAfterRequest struct {
	AfterPosition int            `json:"after_position"`
	Item          EnqueueRequest `json:"item"`
}

func (r *InsertAfterRequest) Validate() error {
	if r.AfterPosition < 0 {
		return ErrInvalidPosition
	}
	return r.Item.Validate()
}

// ListFilter holds query parameters for queue listing.
type ListFilter struct {
	Status *Status
}
