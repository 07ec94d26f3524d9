package repository

import (
	"context"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// ScheduledAssignment pairs a queue item with its recalculated timestamp.
// A nil At clears the item's scheduled time (more items than slots).
type ScheduledAssignment struct {
	ItemID string
	At     *time.Time
}

// QueueRepository defines all persistence operations for the per-tenant
// content queue. The pgx implementation is in pg_queue_repo.go; tests use a
// hand-written in-memory mock (mock_queue_repo.go).
//
// The backing store must make each operation atomic: InsertAfter's shift and
// Delete's renumbering run inside a single transaction so no reader ever
// observes a duplicate or missing position.
type QueueRepository interface {
	// Append inserts the item at position max(active)+1 for its tenant.
	Append(ctx context.Context, item *domain.QueueItem) error
	// AppendBatch inserts the items at consecutive positions starting at
	// max(active)+1, preserving input order.
	AppendBatch(ctx context.Context, tenantID string, items []*domain.QueueItem) error
	// InsertAfter shifts every active item with a greater position up by
	// one and inserts the item at afterPosition+1.
	InsertAfter(ctx context.Context, afterPosition int, item *domain.QueueItem) error
	// Delete removes the item and renumbers the tenant's remaining active
	// items to a dense 1..N sequence. Missing items are a no-op: a human
	// racing the scheduler must not produce an error.
	Delete(ctx context.Context, tenantID, itemID string) error

	GetByID(ctx context.Context, itemID string) (*domain.QueueItem, error)
	// ListActive returns the tenant's pending+ready items ordered by position.
	ListActive(ctx context.Context, tenantID string) ([]*domain.QueueItem, error)
	List(ctx context.Context, tenantID string, filter domain.ListFilter) ([]*domain.QueueItem, error)
	CountByStatus(ctx context.Context, tenantID string) (map[domain.Status]int, error)

	// NextReady returns the lowest-position ready item whose scheduled
	// time is at or before now, or nil when there is none.
	NextReady(ctx context.Context, tenantID string, now time.Time) (*domain.QueueItem, error)

	UpdateStatus(ctx context.Context, itemID string, status domain.Status) error
	// SetReview flips the item to review and stamps last_reminder_at so the
	// escalator's reminder interval starts from the initial send.
	SetReview(ctx context.Context, itemID string, at time.Time) error
	IncrementReminder(ctx context.Context, itemID string, at time.Time) error
	ReviewItems(ctx context.Context, tenantID string) ([]*domain.QueueItem, error)
	// AllReviewItems spans every tenant; used by the review escalator.
	AllReviewItems(ctx context.Context) ([]*domain.QueueItem, error)

	AssignScheduledAt(ctx context.Context, assignments []ScheduledAssignment) error
	// ClearActive removes all pending+ready items, used before a plan regeneration.
	ClearActive(ctx context.Context, tenantID string) error
}
