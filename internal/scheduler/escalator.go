package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/repository"
)

// EscalatorConfig controls the review reminder cadence.
type EscalatorConfig struct {
	// PollInterval is how often pending reviews are scanned.
	PollInterval time.Duration
	// ReminderInterval is the minimum gap between reminders for one item.
	ReminderInterval time.Duration
	// MaxReminders is the number of reminders sent before the item is
	// skipped automatically.
	MaxReminders int
}

func (c EscalatorConfig) withDefaults() EscalatorConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = 30 * time.Minute
	}
	if c.MaxReminders <= 0 {
		c.MaxReminders = 3
	}
	return c
}

// EscalatorHooks carries the metric callbacks injected by main.
type EscalatorHooks struct {
	OnReminderSent func()
	OnAutoSkipped  func()
}

// Escalator nags tenants about items stuck in review and, after
// MaxReminders unanswered reminders, skips the item so the queue keeps
// moving. The publication loop refuses to dispatch while a review is
// outstanding, so without the escalator a single ignored approval would
// stall a tenant forever.
type Escalator struct {
	cfg    EscalatorConfig
	queue  repository.QueueRepository
	notify gateway.Notifier
	clk    clock.Clock
	hooks  EscalatorHooks
	logger *zap.Logger
}

func NewEscalator(
	cfg EscalatorConfig,
	queue repository.QueueRepository,
	notify gateway.Notifier,
	clk clock.Clock,
	hooks EscalatorHooks,
	logger *zap.Logger,
) *Escalator {
	return &Escalator{
		cfg:    cfg.withDefaults(),
		queue:  queue,
		notify: notify,
		clk:    clk,
		hooks:  hooks,
		logger: logger,
	}
}

// Run polls until ctx is cancelled.
func (e *Escalator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.logger.Info("review escalator started",
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Duration("reminder_interval", e.cfg.ReminderInterval),
		zap.Int("max_reminders", e.cfg.MaxReminders))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("review escalator stopping")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep processes every item currently in review, across all tenants.
// Exported so tests can drive it without the ticker.
func (e *Escalator) Sweep(ctx context.Context) {
	items, err := e.queue.AllReviewItems(ctx)
	if err != nil {
		e.logger.Error("failed to load review items", zap.Error(err))
		return
	}

	for _, item := range items {
		if err := e.process(ctx, item); err != nil {
			e.logger.Error("failed to escalate review item",
				zap.String("tenant_id", item.TenantID),
				zap.String("item_id", item.ID),
				zap.Error(err))
		}
	}
}

func (e *Escalator) process(ctx context.Context, item *domain.QueueItem) error {
	if item.ReviewReminders >= e.cfg.MaxReminders {
		return e.autoSkip(ctx, item)
	}

	// The reminder clock starts at the initial review request.
	if item.LastReminderAt == nil {
		return nil
	}
	if e.clk.Now().Sub(*item.LastReminderAt) < e.cfg.ReminderInterval {
		return nil
	}
	return e.remind(ctx, item)
}

func (e *Escalator) remind(ctx context.Context, item *domain.QueueItem) error {
	remaining := e.cfg.MaxReminders - item.ReviewReminders

	msg := fmt.Sprintf("Reminder: the post %q is still waiting for your review.", item.Topic)
	if remaining <= 1 {
		msg += " It will be skipped automatically if there is no response."
	}
	if err := e.notify.Notify(ctx, item.TenantID, msg, gateway.ReviewActions); err != nil {
		// Do not advance the counter on a failed send: the tenant never
		// saw this reminder.
		return fmt.Errorf("send reminder: %w", err)
	}

	if err := e.queue.IncrementReminder(ctx, item.ID, e.clk.Now()); err != nil {
		return fmt.Errorf("increment reminder count: %w", err)
	}

	if e.hooks.OnReminderSent != nil {
		e.hooks.OnReminderSent()
	}
	e.logger.Info("review reminder sent",
		zap.String("tenant_id", item.TenantID),
		zap.String("item_id", item.ID),
		zap.Int("reminder", item.ReviewReminders+1),
		zap.Int("max", e.cfg.MaxReminders))
	return nil
}

func (e *Escalator) autoSkip(ctx context.Context, item *domain.QueueItem) error {
	if err := e.queue.UpdateStatus(ctx, item.ID, domain.StatusSkipped); err != nil {
		return fmt.Errorf("skip item: %w", err)
	}

	if e.hooks.OnAutoSkipped != nil {
		e.hooks.OnAutoSkipped()
	}
	e.logger.Info("review item auto-skipped",
		zap.String("tenant_id", item.TenantID),
		zap.String("item_id", item.ID))

	msg := fmt.Sprintf("The post %q was skipped automatically after %d unanswered review reminders.",
		item.Topic, e.cfg.MaxReminders)
	if err := e.notify.Notify(ctx, item.TenantID, msg, nil); err != nil {
		e.logger.Debug("auto-skip notification failed",
			zap.String("tenant_id", item.TenantID), zap.Error(err))
	}
	return nil
}
