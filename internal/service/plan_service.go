package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/slotcalc"
)

// PlanService orchestrates content-plan generation: plan size from the
// weekly slot density, topic generation, per-topic content composition,
// and the batch append into the queue. Used by the scheduler's
// auto-generate branch and by the manual "generate plan" action.
type PlanService struct {
	policies repository.PolicyRepository
	queueSvc *QueueService
	producer gateway.Producer
	ent      gateway.Entitlements
	notify   gateway.Notifier
	clk      clock.Clock
	logger   *zap.Logger

	// OnPlanGenerated is an optional metrics hook, wired by main.
	OnPlanGenerated func()
	// OnPaused fires when the budget fail-safe deactivates a policy.
	OnPaused func()
}

func NewPlanService(
	policies repository.PolicyRepository,
	queueSvc *QueueService,
	producer gateway.Producer,
	ent gateway.Entitlements,
	notify gateway.Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		policies: policies,
		queueSvc: queueSvc,
		producer: producer,
		ent:      ent,
		notify:   notify,
		clk:      clk,
		logger:   logger,
	}
}

// Generate produces a fresh content plan for the tenant.
//
// The generating flag serializes plan generation: it is set before any
// external call and cleared on every exit path, including failures, so a
// crashed generation can never wedge auto-generation permanently.
func (s *PlanService) Generate(ctx context.Context, tenantID string) error {
	policy, err := s.policies.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if policy.Generating {
		return domain.ErrAlreadyGenerating
	}

	if err := s.ent.CheckGeneration(ctx, tenantID); err != nil {
		if errors.Is(err, domain.ErrBudgetExhausted) {
			// Fail-safe stop: deactivate and tell the tenant, rather
			// than silently retrying every slot.
			if derr := s.policies.SetActive(ctx, tenantID, false); derr != nil {
				s.logger.Error("failed to deactivate policy", zap.String("tenant_id", tenantID), zap.Error(derr))
			} else if s.OnPaused != nil {
				s.OnPaused()
			}
			s.notifyBestEffort(ctx, tenantID,
				"Generation budget exhausted. Auto-publishing has been paused.")
		}
		return err
	}

	count := slotcalc.PostsPerWeek(policy.Schedule)
	if count == 0 {
		return nil
	}

	if err := s.policies.SetGenerating(ctx, tenantID, true); err != nil {
		return fmt.Errorf("set generating: %w", err)
	}
	defer func() {
		// Detached from ctx: when generation fails because the call
		// deadline expired, the clear must still reach the database or
		// every later run is rejected with ErrAlreadyGenerating.
		clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.policies.SetGenerating(clearCtx, tenantID, false); err != nil {
			s.logger.Error("failed to clear generating flag",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}()

	topics, err := s.producer.PlanTopics(ctx, tenantID, count)
	if err != nil {
		return fmt.Errorf("plan topics: %w", err)
	}
	if len(topics) == 0 {
		return nil
	}

	reqs := make([]domain.EnqueueRequest, 0, len(topics))
	for _, t := range topics {
		ref, err := s.producer.Generate(ctx, tenantID, t.Topic, t.Format, policy.GenerateCovers)
		if err != nil {
			// One bad topic does not sink the plan.
			s.logger.Warn("content generation failed",
				zap.String("tenant_id", tenantID),
				zap.String("topic", truncate(t.Topic, 50)),
				zap.Error(err))
			continue
		}
		reqs = append(reqs, domain.EnqueueRequest{
			Topic:      t.Topic,
			Format:     t.Format,
			ContentRef: &ref,
			Status:     domain.StatusReady,
		})
	}
	if len(reqs) == 0 {
		return fmt.Errorf("plan generation produced no items")
	}

	if _, err := s.queueSvc.AppendBatch(ctx, tenantID, reqs); err != nil {
		return err
	}

	if s.OnPlanGenerated != nil {
		s.OnPlanGenerated()
	}
	s.notifyBestEffort(ctx, tenantID,
		fmt.Sprintf("New content plan ready: %d posts queued.", len(reqs)))
	s.logger.Info("content plan generated",
		zap.String("tenant_id", tenantID), zap.Int("items", len(reqs)))
	return nil
}

// Regenerate clears the tenant's active queue and generates a fresh plan.
func (s *PlanService) Regenerate(ctx context.Context, tenantID string) error {
	if err := s.queueSvc.queue.ClearActive(ctx, tenantID); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return s.Generate(ctx, tenantID)
}

func (s *PlanService) notifyBestEffort(ctx context.Context, tenantID, msg string) {
	if err := s.notify.Notify(ctx, tenantID, msg, nil); err != nil {
		s.logger.Debug("notify failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
