package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/scheduler"
)

type escalatorFixture struct {
	esc   *scheduler.Escalator
	queue *repository.MockQueueRepository
	gw    *gateway.MockGateway
	clk   *clock.Fake
}

func newEscalatorFixture(t *testing.T) *escalatorFixture {
	t.Helper()
	queue := repository.NewMockQueueRepository()
	gw := gateway.NewMockGateway()
	clk := clock.NewFake(mondayMorning)

	esc := scheduler.NewEscalator(
		scheduler.EscalatorConfig{
			ReminderInterval: 30 * time.Minute,
			MaxReminders:     3,
		},
		queue, gw, clk,
		scheduler.EscalatorHooks{}, zap.NewNop(),
	)
	return &escalatorFixture{esc: esc, queue: queue, gw: gw, clk: clk}
}

func (f *escalatorFixture) seedReview(t *testing.T, id string) *domain.QueueItem {
	t.Helper()
	item := &domain.QueueItem{
		ID:       id,
		TenantID: tenant,
		Topic:    "awaiting approval",
		Status:   domain.StatusReady,
	}
	if err := f.queue.Append(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := f.queue.SetReview(context.Background(), id, f.clk.Now()); err != nil {
		t.Fatalf("set review: %v", err)
	}
	return item
}

func TestEscalator_RemindsAfterInterval(t *testing.T) {
	f := newEscalatorFixture(t)
	item := f.seedReview(t, "item-1")

	// Half the interval: too early for a reminder.
	f.clk.Advance(15 * time.Minute)
	f.esc.Sweep(context.Background())
	if f.gw.NotificationCount() != 0 {
		t.Fatal("expected no reminder before the interval elapses")
	}

	f.clk.Advance(15 * time.Minute)
	f.esc.Sweep(context.Background())
	if f.gw.NotificationCount() != 1 {
		t.Fatalf("expected 1 reminder, got %d", f.gw.NotificationCount())
	}

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.ReviewReminders != 1 {
		t.Fatalf("expected reminder count 1, got %d", got.ReviewReminders)
	}
	if !got.LastReminderAt.Equal(f.clk.Now()) {
		t.Fatal("expected the reminder timestamp to advance")
	}
}

func TestEscalator_SkipsAfterMaxReminders(t *testing.T) {
	f := newEscalatorFixture(t)
	item := f.seedReview(t, "item-1")

	// Three reminder cycles, then one more sweep to trigger the skip.
	for i := 0; i < 3; i++ {
		f.clk.Advance(30 * time.Minute)
		f.esc.Sweep(context.Background())
	}
	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.ReviewReminders != 3 {
		t.Fatalf("expected 3 reminders sent, got %d", got.ReviewReminders)
	}
	if got.Status != domain.StatusReview {
		t.Fatalf("expected the item to still be in review, got %s", got.Status)
	}

	f.clk.Advance(30 * time.Minute)
	f.esc.Sweep(context.Background())

	got, _ = f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusSkipped {
		t.Fatalf("expected the item to be auto-skipped, got %s", got.Status)
	}
	// 3 reminders + 1 skip notice.
	if f.gw.NotificationCount() != 4 {
		t.Fatalf("expected 4 notifications, got %d", f.gw.NotificationCount())
	}
}

func TestEscalator_FailedSendDoesNotAdvanceCounter(t *testing.T) {
	f := newEscalatorFixture(t)
	item := f.seedReview(t, "item-1")
	f.gw.NotifyErr = errors.New("notify down")

	f.clk.Advance(30 * time.Minute)
	f.esc.Sweep(context.Background())

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.ReviewReminders != 0 {
		t.Fatalf("expected reminder count unchanged on send failure, got %d", got.ReviewReminders)
	}

	// Once the notifier recovers, the reminder goes out.
	f.gw.NotifyErr = nil
	f.esc.Sweep(context.Background())
	got, _ = f.queue.GetByID(context.Background(), item.ID)
	if got.ReviewReminders != 1 {
		t.Fatalf("expected reminder count 1 after recovery, got %d", got.ReviewReminders)
	}
}

func TestEscalator_IgnoresNonReviewItems(t *testing.T) {
	f := newEscalatorFixture(t)
	item := &domain.QueueItem{
		ID:       "ready-1",
		TenantID: tenant,
		Topic:    "nothing to remind",
		Status:   domain.StatusReady,
	}
	if err := f.queue.Append(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	f.clk.Advance(2 * time.Hour)
	f.esc.Sweep(context.Background())
	if f.gw.NotificationCount() != 0 {
		t.Fatal("expected no reminders for non-review items")
	}
}

func TestEscalator_FinalReminderWarnsAboutSkip(t *testing.T) {
	f := newEscalatorFixture(t)
	f.seedReview(t, "item-1")

	for i := 0; i < 3; i++ {
		f.clk.Advance(30 * time.Minute)
		f.esc.Sweep(context.Background())
	}

	last := f.gw.Notifications[len(f.gw.Notifications)-1]
	if !strings.Contains(last, "skipped automatically") {
		t.Fatalf("expected the final reminder to warn about the pending skip, got %q", last)
	}
}
