// Package scheduler contains the two background processes of the engine:
// the publication loop, which advances queue items through their state
// machine when a weekly slot fires, and the review escalator, which keeps
// items from blocking the queue in review forever.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/guard"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/service"
	"github.com/postloop/autopublisher/internal/slotcalc"
)

// Config controls the scheduler loop's timing.
type Config struct {
	// TickInterval is the wake-up period of the loop (defaults to 1m).
	TickInterval time.Duration
	// MinProcessInterval is the per-tenant throttle between processed slot
	// matches, guarding against a wake-up granularity finer than the slot
	// granularity re-triggering within the same slot minute.
	MinProcessInterval time.Duration
	// CallTimeout bounds each outbound call so a hung collaborator cannot
	// hold the tenant guard forever.
	CallTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.MinProcessInterval <= 0 {
		c.MinProcessInterval = 5 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 15 * time.Second
	}
	return c
}

// MetricHooks carries the metric callbacks injected by main.
// Using a struct keeps the loop metrics-agnostic.
type MetricHooks struct {
	OnTick         func(d time.Duration)
	ActivePolicies func(n int)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnTick == nil {
		h.OnTick = func(time.Duration) {}
	}
	if h.ActivePolicies == nil {
		h.ActivePolicies = func(int) {}
	}
	return h
}

// Loop drives per-tenant publication. Every tick it loads the active
// policies and processes each tenant as an independently scheduled
// goroutine: one slow external call must never block other tenants.
type Loop struct {
	cfg      Config
	policies repository.PolicyRepository
	queue    repository.QueueRepository
	queueSvc *service.QueueService
	planSvc  *service.PlanService
	tenants  guard.TenantGuard
	clk      clock.Clock
	hooks    MetricHooks
	logger   *zap.Logger

	wg sync.WaitGroup
}

func NewLoop(
	cfg Config,
	policies repository.PolicyRepository,
	queue repository.QueueRepository,
	queueSvc *service.QueueService,
	planSvc *service.PlanService,
	tenants guard.TenantGuard,
	clk clock.Clock,
	hooks MetricHooks,
	logger *zap.Logger,
) *Loop {
	return &Loop{
		cfg:      cfg.withDefaults(),
		policies: policies,
		queue:    queue,
		queueSvc: queueSvc,
		planSvc:  planSvc,
		tenants:  tenants,
		clk:      clk,
		hooks:    hooks.withDefaults(),
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled. In-flight tenant ticks are allowed to
// finish; call Wait after cancelling to drain them.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	l.logger.Info("scheduler loop started", zap.Duration("interval", l.cfg.TickInterval))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler loop stopping")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Wait blocks until every in-flight tenant tick has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Tick fans one wake-up out across all tenants with an active policy.
// One tenant's failure (or panic) cannot prevent other tenants' ticks.
//
// The tick runs on a context detached from ctx: shutdown cancellation
// stops Run from scheduling new ticks, but a publish or notify that is
// already on the wire must complete (or hit CallTimeout) rather than be
// aborted halfway through.
func (l *Loop) Tick(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	policies, err := l.policies.ListActive(ctx)
	if err != nil {
		l.logger.Error("failed to load active policies", zap.Error(err))
		return
	}
	l.hooks.ActivePolicies(len(policies))

	for _, p := range policies {
		l.wg.Add(1)
		go func(p *domain.PublishPolicy) {
			defer l.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("panic in tenant tick",
						zap.String("tenant_id", p.TenantID),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())))
				}
			}()
			l.ProcessTenant(ctx, p)
		}(p)
	}
}

// ProcessTenant runs the per-tenant decision logic for one wake-up:
//
//	guard -> throttle -> slot match -> review gate -> generation gate ->
//	fetch -> {empty-queue policy | moderation branch}
//
// It is exported so a manual "run now" action and the tests can drive a
// single tenant without the ticker.
func (l *Loop) ProcessTenant(ctx context.Context, policy *domain.PublishPolicy) {
	tenantID := policy.TenantID
	log := l.logger.With(zap.String("tenant_id", tenantID))

	// Per-tenant mutual exclusion: a slow external call from the previous
	// tick must not be double-processed.
	if !l.tenants.TryAcquire(tenantID) {
		log.Debug("tick skipped: tenant already processing")
		return
	}
	defer l.tenants.Release(tenantID)

	start := l.clk.Now()
	defer func() { l.hooks.OnTick(l.clk.Now().Sub(start)) }()

	now := l.clk.Now()
	if policy.LastProcessedAt != nil && now.Sub(*policy.LastProcessedAt) < l.cfg.MinProcessInterval {
		log.Debug("tick skipped: too soon since last process")
		return
	}

	matched, err := slotcalc.Matches(policy.Schedule, now)
	if err != nil {
		log.Error("invalid schedule", zap.Error(err))
		return
	}
	if !matched {
		return
	}

	// At most one outstanding approval per tenant.
	reviews, err := l.queue.ReviewItems(ctx, tenantID)
	if err != nil {
		log.Error("failed to check review items", zap.Error(err))
		return
	}
	if len(reviews) > 0 {
		log.Info("tick skipped: waiting for review response", zap.Int("review_count", len(reviews)))
		return
	}

	if policy.Generating {
		log.Info("tick skipped: content generation in progress")
		return
	}

	item, err := l.queue.NextReady(ctx, tenantID, now)
	if err != nil {
		log.Error("failed to fetch next ready item", zap.Error(err))
		return
	}

	if item == nil {
		log.Info("queue empty", zap.String("on_empty", string(policy.OnEmpty)))
		l.handleEmptyQueue(ctx, policy, log)
		l.touchProcessed(ctx, tenantID, log)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	switch policy.Moderation {
	case domain.ModerationAuto:
		log.Info("dispatching item", zap.String("item_id", item.ID), zap.String("action", "publish"))
		if err := l.queueSvc.PublishItem(callCtx, tenantID, item.ID); err != nil {
			// Item stays put; the next slot is the retry path.
			log.Warn("auto-publish failed", zap.String("item_id", item.ID), zap.Error(err))
		}
	default:
		log.Info("dispatching item", zap.String("item_id", item.ID), zap.String("action", "review"))
		if err := l.queueSvc.RequestReview(callCtx, policy, item); err != nil {
			log.Error("review request failed", zap.String("item_id", item.ID), zap.Error(err))
		}
	}

	l.touchProcessed(ctx, tenantID, log)
}

// handleEmptyQueue applies the policy's on_empty behavior. pause is the
// fail-safe stop; auto_generate repopulates the queue for a later tick —
// never the same one.
func (l *Loop) handleEmptyQueue(ctx context.Context, policy *domain.PublishPolicy, log *zap.Logger) {
	switch policy.OnEmpty {
	case domain.OnEmptyAutoGenerate:
		callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
		defer cancel()
		if err := l.planSvc.Generate(callCtx, policy.TenantID); err != nil {
			// The queue stays empty; the tenant is prompted again next slot.
			log.Warn("auto-generate failed", zap.Error(err))
		}
	default: // pause
		l.queueSvc.Pause(ctx, policy.TenantID,
			"Your content queue is empty, so auto-publishing has been paused. Generate a new content plan to resume.")
	}
}

func (l *Loop) touchProcessed(ctx context.Context, tenantID string, log *zap.Logger) {
	if err := l.policies.TouchProcessed(ctx, tenantID, l.clk.Now()); err != nil {
		log.Error("failed to update last processed time", zap.Error(err))
	}
}
