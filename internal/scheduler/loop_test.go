package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/guard"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/scheduler"
	"github.com/postloop/autopublisher/internal/service"
)

const tenant = "tenant-1"

// 2024-01-01 is a Monday; the test schedule fires Mondays at 10:00 UTC and
// Wednesdays at 18:00 UTC.
var (
	mondayMorning = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mondaySlot    = time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
)

type loopFixture struct {
	loop     *scheduler.Loop
	queueSvc *service.QueueService
	queue    *repository.MockQueueRepository
	policies *repository.MockPolicyRepository
	gw       *gateway.MockGateway
	tenants  *guard.InMemory
	clk      *clock.Fake
}

func newLoopFixture(t *testing.T, moderation domain.Moderation, onEmpty domain.OnEmpty) *loopFixture {
	t.Helper()
	queue := repository.NewMockQueueRepository()
	policies := repository.NewMockPolicyRepository()
	gw := gateway.NewMockGateway()
	clk := clock.NewFake(mondayMorning)
	tenants := guard.NewInMemory()
	logger := zap.NewNop()

	policy := &domain.PublishPolicy{
		TenantID: tenant,
		Active:   true,
		Schedule: domain.Schedule{
			Timezone: "UTC",
			Slots: []domain.WeeklySlot{
				{Day: 0, Time: "10:00"},
				{Day: 2, Time: "18:00"},
			},
		},
		Moderation: moderation,
		OnEmpty:    onEmpty,
	}
	if err := policies.Upsert(context.Background(), policy); err != nil {
		t.Fatalf("seed policy: %v", err)
	}

	queueSvc := service.NewQueueService(queue, policies, gw, gw, gw, clk, logger)
	planSvc := service.NewPlanService(policies, queueSvc, gw, gw, gw, clk, logger)

	loop := scheduler.NewLoop(
		scheduler.Config{MinProcessInterval: 5 * time.Minute},
		policies, queue, queueSvc, planSvc, tenants, clk,
		scheduler.MetricHooks{}, logger,
	)
	return &loopFixture{
		loop: loop, queueSvc: queueSvc, queue: queue,
		policies: policies, gw: gw, tenants: tenants, clk: clk,
	}
}

func (f *loopFixture) seedReady(t *testing.T, topic, contentRef string) *domain.QueueItem {
	t.Helper()
	item, err := f.queueSvc.Append(context.Background(), tenant, domain.EnqueueRequest{
		Topic:      topic,
		ContentRef: &contentRef,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func (f *loopFixture) processAtSlot(t *testing.T) {
	t.Helper()
	f.clk.Set(mondaySlot)
	policy, err := f.policies.Get(context.Background(), tenant)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	f.loop.ProcessTenant(context.Background(), policy)
}

func (f *loopFixture) policy(t *testing.T) *domain.PublishPolicy {
	t.Helper()
	p, err := f.policies.Get(context.Background(), tenant)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	return p
}

func TestLoop_AutoModerationPublishes(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	item := f.seedReady(t, "monday post", "content-1")

	f.processAtSlot(t)

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusPublished {
		t.Fatalf("expected published, got %s", got.Status)
	}
	if f.gw.PublishedCount() != 1 {
		t.Fatalf("expected 1 publish, got %d", f.gw.PublishedCount())
	}
	if f.policy(t).LastProcessedAt == nil {
		t.Fatal("expected last_processed_at to be stamped")
	}
}

func TestLoop_ReviewModerationRequestsApproval(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationReview, domain.OnEmptyPause)
	item := f.seedReady(t, "monday post", "content-1")

	f.processAtSlot(t)

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusReview {
		t.Fatalf("expected review, got %s", got.Status)
	}
	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no publish under review moderation")
	}
	if f.gw.NotificationCount() == 0 {
		t.Fatal("expected an approval prompt")
	}
	if f.policy(t).LastProcessedAt == nil {
		t.Fatal("expected last_processed_at to be stamped")
	}
}

func TestLoop_NoDispatchOutsideSlot(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "waiting", "content-1")

	// 10:02 is past the slot minute; nothing may fire.
	f.clk.Set(time.Date(2024, 1, 1, 10, 2, 0, 0, time.UTC))
	f.loop.ProcessTenant(context.Background(), f.policy(t))

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no publish outside the slot minute")
	}
	if f.policy(t).LastProcessedAt != nil {
		t.Fatal("expected last_processed_at untouched outside a slot")
	}
}

func TestLoop_ThrottleSkipsRecentlyProcessed(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "monday post", "content-1")

	recent := mondaySlot.Add(-2 * time.Minute)
	if err := f.policies.TouchProcessed(context.Background(), tenant, recent); err != nil {
		t.Fatalf("touch: %v", err)
	}

	f.processAtSlot(t)

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected the throttle to suppress a second process within 5 minutes")
	}
}

func TestLoop_PendingReviewBlocksDispatch(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	blocked := f.seedReady(t, "in review", "content-1")
	f.seedReady(t, "next up", "content-2")

	if err := f.queue.SetReview(context.Background(), blocked.ID, mondayMorning); err != nil {
		t.Fatalf("set review: %v", err)
	}

	f.processAtSlot(t)

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no dispatch while a review is outstanding")
	}
	if f.policy(t).LastProcessedAt != nil {
		t.Fatal("expected last_processed_at untouched while review-gated")
	}
}

func TestLoop_GeneratingBlocksDispatch(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "monday post", "content-1")
	if err := f.policies.SetGenerating(context.Background(), tenant, true); err != nil {
		t.Fatalf("set generating: %v", err)
	}

	f.processAtSlot(t)

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no dispatch while generation is in flight")
	}
}

func TestLoop_EmptyQueuePauses(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)

	f.processAtSlot(t)

	p := f.policy(t)
	if p.Active {
		t.Fatal("expected the policy to be paused on an empty queue")
	}
	if p.LastProcessedAt == nil {
		t.Fatal("expected last_processed_at stamped on the empty branch")
	}
	if f.gw.NotificationCount() == 0 {
		t.Fatal("expected a pause notification")
	}
}

func TestLoop_EmptyQueueAutoGenerates(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyAutoGenerate)
	f.gw.PlannedTopics = []gateway.TopicSuggestion{
		{Topic: "refill one", Format: "essay"},
		{Topic: "refill two", Format: "essay"},
	}

	f.processAtSlot(t)

	items, _ := f.queue.ListActive(context.Background(), tenant)
	if len(items) != 2 {
		t.Fatalf("expected 2 generated items, got %d", len(items))
	}
	// Generation fills the queue for a later slot; nothing publishes in
	// the same tick.
	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no publish in the generation tick")
	}
	if !f.policy(t).Active {
		t.Fatal("expected the policy to stay active")
	}
}

func TestLoop_PublishFailureStillStampsProcessed(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	item := f.seedReady(t, "flaky", "content-1")
	f.gw.PublishErr = errors.New("channel down")

	f.processAtSlot(t)

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusReady {
		t.Fatalf("expected the item to stay ready, got %s", got.Status)
	}
	if f.policy(t).LastProcessedAt == nil {
		t.Fatal("expected last_processed_at stamped even after a failed publish")
	}
}

func TestLoop_GuardPreventsConcurrentTicks(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "monday post", "content-1")

	if !f.tenants.TryAcquire(tenant) {
		t.Fatal("setup: guard should be free")
	}
	defer f.tenants.Release(tenant)

	f.processAtSlot(t)

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected the held guard to suppress the tick")
	}
	if f.policy(t).LastProcessedAt != nil {
		t.Fatal("expected no processing while the guard is held")
	}
}

func TestLoop_SingleDispatchPerSlot(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "first", "content-1")
	f.seedReady(t, "second", "content-2")

	f.processAtSlot(t)

	if f.gw.PublishedCount() != 1 {
		t.Fatalf("expected exactly one publish per slot, got %d", f.gw.PublishedCount())
	}
	items, _ := f.queue.ListActive(context.Background(), tenant)
	if len(items) != 1 {
		t.Fatalf("expected 1 remaining active item, got %d", len(items))
	}
}

func TestLoop_InactivePolicySkippedByTick(t *testing.T) {
	f := newLoopFixture(t, domain.ModerationAuto, domain.OnEmptyPause)
	f.seedReady(t, "monday post", "content-1")
	if err := f.policies.SetActive(context.Background(), tenant, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	f.clk.Set(mondaySlot)
	f.loop.Tick(context.Background())
	f.loop.Wait()

	if f.gw.PublishedCount() != 0 {
		t.Fatal("expected no dispatch for an inactive policy")
	}
}

// deadlinePublisher fails like an HTTP client would when its context is
// already cancelled.
type deadlinePublisher struct {
	inner *gateway.MockGateway
}

func (p deadlinePublisher) Publish(ctx context.Context, tenantID, contentRef string) (*gateway.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.inner.Publish(ctx, tenantID, contentRef)
}

func TestLoop_ShutdownDoesNotAbortInFlightPublish(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	policies := repository.NewMockPolicyRepository()
	gw := gateway.NewMockGateway()
	clk := clock.NewFake(mondayMorning)
	logger := zap.NewNop()

	policy := &domain.PublishPolicy{
		TenantID: tenant,
		Active:   true,
		Schedule: domain.Schedule{
			Timezone: "UTC",
			Slots:    []domain.WeeklySlot{{Day: 0, Time: "10:00"}},
		},
		Moderation: domain.ModerationAuto,
		OnEmpty:    domain.OnEmptyPause,
	}
	if err := policies.Upsert(context.Background(), policy); err != nil {
		t.Fatalf("seed policy: %v", err)
	}

	queueSvc := service.NewQueueService(queue, policies, deadlinePublisher{inner: gw}, gw, gw, clk, logger)
	planSvc := service.NewPlanService(policies, queueSvc, gw, gw, gw, clk, logger)
	loop := scheduler.NewLoop(
		scheduler.Config{}, policies, queue, queueSvc, planSvc,
		guard.NewInMemory(), clk, scheduler.MetricHooks{}, logger,
	)

	contentRef := "content-1"
	if _, err := queueSvc.Append(context.Background(), tenant, domain.EnqueueRequest{
		Topic:      "monday post",
		ContentRef: &contentRef,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	clk.Set(mondaySlot)

	// Shutdown races the tick: the cancellation must not reach a publish
	// call already underway.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop.Tick(ctx)
	loop.Wait()

	if gw.PublishedCount() != 1 {
		t.Fatalf("expected the in-flight publish to complete, got %d", gw.PublishedCount())
	}
}
