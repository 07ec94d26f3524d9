package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/slotcalc"
)

// QueueService owns every mutation of the content queue and the shared
// dispatch paths. The scheduler loop and the manual HTTP actions both go
// through here, so the position and scheduling invariants hold no matter
// who triggered the change: every structural mutation renumbers and fully
// recomputes scheduled timestamps, never patches them incrementally.
type QueueService struct {
	queue    repository.QueueRepository
	policies repository.PolicyRepository
	pub      gateway.Publisher
	notify   gateway.Notifier
	ent      gateway.Entitlements
	clk      clock.Clock
	logger   *zap.Logger

	// Hooks for metrics — injected by main so the service stays metrics-agnostic.
	OnPublished       func()
	OnPublishFailed   func()
	OnReviewRequested func()
	OnPaused          func()
}

func NewQueueService(
	queue repository.QueueRepository,
	policies repository.PolicyRepository,
	pub gateway.Publisher,
	notify gateway.Notifier,
	ent gateway.Entitlements,
	clk clock.Clock,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		queue:    queue,
		policies: policies,
		pub:      pub,
		notify:   notify,
		ent:      ent,
		clk:      clk,
		logger:   logger,
	}
}

// Append validates and adds an item to the end of the tenant's queue, then
// recomputes all scheduled timestamps.
func (s *QueueService) Append(ctx context.Context, tenantID string, req domain.EnqueueRequest) (*domain.QueueItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item := s.buildItem(tenantID, req)
	if err := s.queue.Append(ctx, item); err != nil {
		return nil, fmt.Errorf("append queue item: %w", err)
	}
	if err := s.Recalculate(ctx, tenantID); err != nil {
		return nil, err
	}
	fresh, err := s.queue.GetByID(ctx, item.ID)
	if err != nil {
		return item, nil
	}
	return fresh, nil
}

// AppendBatch adds many items at consecutive positions in input order, used
// when a content plan produces items for many slots together.
func (s *QueueService) AppendBatch(ctx context.Context, tenantID string, reqs []domain.EnqueueRequest) ([]*domain.QueueItem, error) {
	items := make([]*domain.QueueItem, len(reqs))
	for i := range reqs {
		if err := reqs[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = s.buildItem(tenantID, reqs[i])
	}

	if err := s.queue.AppendBatch(ctx, tenantID, items); err != nil {
		return nil, fmt.Errorf("append batch: %w", err)
	}
	if err := s.Recalculate(ctx, tenantID); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertAfter inserts an item after the given active position (0 = head),
// shifting later items up by one, then recomputes scheduled timestamps.
// A position past the current tail would leave a hole in the 1..N
// numbering, so it is rejected rather than inserted.
func (s *QueueService) InsertAfter(ctx context.Context, tenantID string, req domain.InsertAfterRequest) (*domain.QueueItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	active, err := s.queue.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active items: %w", err)
	}
	if req.AfterPosition > len(active) {
		return nil, domain.ErrInvalidPosition
	}

	item := s.buildItem(tenantID, req.Item)
	if err := s.queue.InsertAfter(ctx, req.AfterPosition, item); err != nil {
		return nil, fmt.Errorf("insert queue item: %w", err)
	}
	if err := s.Recalculate(ctx, tenantID); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item and renumbers the remaining active items to a
// dense 1..N, then recomputes scheduled timestamps. Deleting an item that
// is already gone is a no-op: a tenant racing the scheduler is benign.
func (s *QueueService) Delete(ctx context.Context, tenantID, itemID string) error {
	if err := s.queue.Delete(ctx, tenantID, itemID); err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	return s.Recalculate(ctx, tenantID)
}

// Recalculate re-reads all active items in position order and assigns the
// i-th upcoming slot instant to the i-th item. A tenant without a policy or
// with an empty slot set is a valid configuration, not an error: scheduled
// times are cleared so no stale timestamp survives a schedule wipe.
func (s *QueueService) Recalculate(ctx context.Context, tenantID string) error {
	items, err := s.queue.ListActive(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list active items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	var times []time.Time
	policy, err := s.policies.Get(ctx, tenantID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// no schedule yet; fall through with no times
	case err != nil:
		return fmt.Errorf("load policy: %w", err)
	default:
		times, err = slotcalc.NextTimes(policy.Schedule, s.clk.Now(), len(items))
		if err != nil {
			return fmt.Errorf("compute slot times: %w", err)
		}
	}

	assignments := make([]repository.ScheduledAssignment, len(items))
	for i, item := range items {
		assignments[i] = repository.ScheduledAssignment{ItemID: item.ID}
		if i < len(times) {
			t := times[i]
			assignments[i].At = &t
		}
	}
	return s.queue.AssignScheduledAt(ctx, assignments)
}

// PublishItem is the shared publish path: entitlement check, external
// publish, status flip, usage record, tenant notification. The scheduler's
// auto branch and the manual publish-now/approve action both land here.
func (s *QueueService) PublishItem(ctx context.Context, tenantID, itemID string) error {
	item, err := s.queue.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.TenantID != tenantID {
		return domain.ErrNotFound
	}
	if item.Status != domain.StatusReady && item.Status != domain.StatusReview {
		return domain.ErrNotDispatchable
	}

	if err := s.ent.CheckPublish(ctx, tenantID); err != nil {
		if errors.Is(err, domain.ErrLimitReached) {
			s.Pause(ctx, tenantID,
				"Monthly publish limit reached. Auto-publishing has been paused.")
		}
		return err
	}

	if item.ContentRef == nil {
		// Content never materialized; drop the item so it cannot block
		// the queue.
		if err := s.queue.UpdateStatus(ctx, itemID, domain.StatusSkipped); err != nil {
			return err
		}
		return domain.ErrNotDispatchable
	}

	if _, err := s.pub.Publish(ctx, tenantID, *item.ContentRef); err != nil {
		if s.OnPublishFailed != nil {
			s.OnPublishFailed()
		}
		s.logger.Warn("publish failed",
			zap.String("tenant_id", tenantID),
			zap.String("item_id", itemID),
			zap.Error(err))
		s.notifyBestEffort(ctx, tenantID,
			fmt.Sprintf("Could not publish %q. It stays in the queue; the next slot will retry.", item.Topic))
		return fmt.Errorf("publish item: %w", err)
	}

	if err := s.queue.UpdateStatus(ctx, itemID, domain.StatusPublished); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	if err := s.ent.RecordPublish(ctx, tenantID); err != nil {
		s.logger.Warn("record publish failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
	if s.OnPublished != nil {
		s.OnPublished()
	}
	s.notifyBestEffort(ctx, tenantID, fmt.Sprintf("Published: %q", truncate(item.Topic, 50)))
	s.logger.Info("item published",
		zap.String("tenant_id", tenantID), zap.String("item_id", itemID))
	return nil
}

// RequestReview flips the item to review and sends the tenant an approval
// prompt with the action buttons. The review timestamp starts the
// escalator's reminder interval.
func (s *QueueService) RequestReview(ctx context.Context, policy *domain.PublishPolicy, item *domain.QueueItem) error {
	if err := s.queue.SetReview(ctx, item.ID, s.clk.Now()); err != nil {
		return fmt.Errorf("set review: %w", err)
	}

	msg := fmt.Sprintf("Ready for review: %q", item.Topic)
	if item.ScheduledAt != nil {
		if loc, err := time.LoadLocation(policy.Schedule.Timezone); err == nil {
			msg += fmt.Sprintf(" (scheduled %s)", item.ScheduledAt.In(loc).Format("02.01.2006 15:04"))
		}
	}
	if err := s.notify.Notify(ctx, item.TenantID, msg, gateway.ReviewActions); err != nil {
		s.logger.Warn("review prompt failed",
			zap.String("tenant_id", item.TenantID),
			zap.String("item_id", item.ID),
			zap.Error(err))
	}
	if s.OnReviewRequested != nil {
		s.OnReviewRequested()
	}
	return nil
}

// Skip abandons an item without publishing it.
func (s *QueueService) Skip(ctx context.Context, tenantID, itemID string) error {
	item, err := s.queue.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item.TenantID != tenantID {
		return domain.ErrNotFound
	}
	return s.queue.UpdateStatus(ctx, itemID, domain.StatusSkipped)
}

func (s *QueueService) List(ctx context.Context, tenantID string, filter domain.ListFilter) ([]*domain.QueueItem, error) {
	return s.queue.List(ctx, tenantID, filter)
}

func (s *QueueService) Counts(ctx context.Context, tenantID string) (map[domain.Status]int, error) {
	return s.queue.CountByStatus(ctx, tenantID)
}

// ---- private helpers ----

func (s *QueueService) buildItem(tenantID string, req domain.EnqueueRequest) *domain.QueueItem {
	now := s.clk.Now()
	return &domain.QueueItem{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Topic:      req.Topic,
		Format:     req.Format,
		ContentRef: req.ContentRef,
		Status:     req.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Pause is the fail-safe stop: deactivate the policy and tell the tenant
// why, rather than silently skipping slots.
func (s *QueueService) Pause(ctx context.Context, tenantID, reason string) {
	if err := s.policies.SetActive(ctx, tenantID, false); err != nil {
		s.logger.Error("failed to deactivate policy", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	if s.OnPaused != nil {
		s.OnPaused()
	}
	s.notifyBestEffort(ctx, tenantID, reason)
}

func (s *QueueService) notifyBestEffort(ctx context.Context, tenantID, msg string) {
	if err := s.notify.Notify(ctx, tenantID, msg, nil); err != nil {
		s.logger.Debug("notify failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// truncate shortens s to max runes. Topics are free text, so cutting on
// bytes could split a multi-byte rune mid-sequence.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
