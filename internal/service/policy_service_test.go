package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/service"
)

func newPolicyService(t *testing.T) (*service.PolicyService, *repository.MockPolicyRepository, *repository.MockQueueRepository) {
	t.Helper()
	queue := repository.NewMockQueueRepository()
	policies := repository.NewMockPolicyRepository()
	gw := gateway.NewMockGateway()
	clk := clock.NewFake(mondayMorning)

	queueSvc := service.NewQueueService(queue, policies, gw, gw, gw, clk, zap.NewNop())
	svc := service.NewPolicyService(policies, queueSvc, clk, zap.NewNop())
	return svc, policies, queue
}

func validUpsert() domain.UpsertPolicyRequest {
	return domain.UpsertPolicyRequest{
		Schedule: domain.Schedule{
			Timezone: "UTC",
			Slots: []domain.WeeklySlot{
				{Day: 0, Time: "10:00"},
				{Day: 2, Time: "18:00"},
			},
		},
	}
}

func TestPolicyService_Upsert_Defaults(t *testing.T) {
	svc, _, _ := newPolicyService(t)

	policy, err := svc.Upsert(context.Background(), tenant, validUpsert())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if policy.Moderation != domain.ModerationReview {
		t.Fatalf("expected default moderation=review, got %s", policy.Moderation)
	}
	if policy.OnEmpty != domain.OnEmptyPause {
		t.Fatalf("expected default on_empty=pause, got %s", policy.OnEmpty)
	}
	if !policy.GenerateCovers {
		t.Fatal("expected generate_covers to default to true")
	}
}

func TestPolicyService_Upsert_PreservesRuntimeFields(t *testing.T) {
	svc, policies, _ := newPolicyService(t)

	if _, err := svc.Upsert(context.Background(), tenant, validUpsert()); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	processed := mondayMorning.Add(-time.Hour)
	if err := policies.TouchProcessed(context.Background(), tenant, processed); err != nil {
		t.Fatalf("touch: %v", err)
	}

	second, err := svc.Upsert(context.Background(), tenant, validUpsert())
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.LastProcessedAt == nil || !second.LastProcessedAt.Equal(processed) {
		t.Fatalf("expected last_processed_at preserved, got %v", second.LastProcessedAt)
	}
}

func TestPolicyService_Upsert_RecalculatesQueue(t *testing.T) {
	svc, policies, queue := newPolicyService(t)
	gw := gateway.NewMockGateway()
	queueSvc := service.NewQueueService(queue, policies, gw, gw, gw, clock.NewFake(mondayMorning), zap.NewNop())

	// Item enqueued before any policy exists: no scheduled time.
	item, err := queueSvc.Append(context.Background(), tenant, domain.EnqueueRequest{Topic: "early bird"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if item.ScheduledAt != nil {
		t.Fatalf("expected no schedule before the policy, got %v", item.ScheduledAt)
	}

	if _, err := svc.Upsert(context.Background(), tenant, validUpsert()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := queue.GetByID(context.Background(), item.ID)
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got.ScheduledAt == nil || !got.ScheduledAt.Equal(want) {
		t.Fatalf("expected schedule %v after policy upsert, got %v", want, got.ScheduledAt)
	}
}

func TestPolicyService_Toggle(t *testing.T) {
	svc, _, _ := newPolicyService(t)
	if _, err := svc.Upsert(context.Background(), tenant, validUpsert()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tests := []struct {
		field domain.ToggleField
		want  any
	}{
		{domain.ToggleModeration, domain.ModerationAuto},
		{domain.ToggleModeration, domain.ModerationReview},
		{domain.ToggleOnEmpty, domain.OnEmptyAutoGenerate},
		{domain.ToggleGenerateCovers, false},
	}
	for _, tt := range tests {
		got, err := svc.Toggle(context.Background(), tenant, tt.field)
		if err != nil {
			t.Fatalf("toggle %s: %v", tt.field, err)
		}
		if got != tt.want {
			t.Fatalf("toggle %s: expected %v, got %v", tt.field, tt.want, got)
		}
	}
}

func TestPolicyService_Toggle_UnknownField(t *testing.T) {
	svc, _, _ := newPolicyService(t)
	_, err := svc.Toggle(context.Background(), tenant, "color_scheme")
	if !errors.Is(err, domain.ErrInvalidToggle) {
		t.Fatalf("expected ErrInvalidToggle, got %v", err)
	}
}

func TestPolicyService_NextSlotTime(t *testing.T) {
	svc, _, _ := newPolicyService(t)
	if _, err := svc.Upsert(context.Background(), tenant, validUpsert()); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	next, err := svc.NextSlotTime(context.Background(), tenant)
	if err != nil {
		t.Fatalf("next slot: %v", err)
	}
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if next == nil || !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestPolicyService_NextSlotTime_NoPolicy(t *testing.T) {
	svc, _, _ := newPolicyService(t)
	_, err := svc.NextSlotTime(context.Background(), "missing-tenant")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
