package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/slotcalc"
)

// PolicyService manages per-tenant publish policies. Schedule changes flow
// through here so every structural change triggers a timestamp
// recalculation on the queue.
type PolicyService struct {
	policies repository.PolicyRepository
	queueSvc *QueueService
	clk      clock.Clock
	logger   *zap.Logger
}

func NewPolicyService(
	policies repository.PolicyRepository,
	queueSvc *QueueService,
	clk clock.Clock,
	logger *zap.Logger,
) *PolicyService {
	return &PolicyService{policies: policies, queueSvc: queueSvc, clk: clk, logger: logger}
}

func (s *PolicyService) Get(ctx context.Context, tenantID string) (*domain.PublishPolicy, error) {
	return s.policies.Get(ctx, tenantID)
}

// Upsert creates or replaces the tenant's policy and recalculates the
// queue's scheduled timestamps against the (possibly new) schedule.
func (s *PolicyService) Upsert(ctx context.Context, tenantID string, req domain.UpsertPolicyRequest) (*domain.PublishPolicy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	policy := &domain.PublishPolicy{
		TenantID:   tenantID,
		Schedule:   req.Schedule,
		Moderation: req.Moderation,
		OnEmpty:    req.OnEmpty,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Active != nil {
		policy.Active = *req.Active
	}
	if req.GenerateCovers != nil {
		policy.GenerateCovers = *req.GenerateCovers
	} else {
		policy.GenerateCovers = true
	}

	// Preserve fields the request does not carry.
	if existing, err := s.policies.Get(ctx, tenantID); err == nil {
		policy.CreatedAt = existing.CreatedAt
		policy.LastProcessedAt = existing.LastProcessedAt
		policy.Generating = existing.Generating
		if req.Active == nil {
			policy.Active = existing.Active
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, err
	}
	if err := s.queueSvc.Recalculate(ctx, tenantID); err != nil {
		return nil, err
	}
	s.logger.Info("policy updated",
		zap.String("tenant_id", tenantID),
		zap.Int("slots", len(policy.Schedule.Slots)),
		zap.Bool("active", policy.Active))
	return policy, nil
}

func (s *PolicyService) SetActive(ctx context.Context, tenantID string, active bool) error {
	return s.policies.SetActive(ctx, tenantID, active)
}

// Toggle flips a two-state policy field and returns its new value.
func (s *PolicyService) Toggle(ctx context.Context, tenantID string, field domain.ToggleField) (any, error) {
	if !field.IsValid() {
		return nil, domain.ErrInvalidToggle
	}
	policy, err := s.policies.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	switch field {
	case domain.ToggleModeration:
		next := domain.ModerationAuto
		if policy.Moderation == domain.ModerationAuto {
			next = domain.ModerationReview
		}
		return next, s.policies.SetModeration(ctx, tenantID, next)
	case domain.ToggleOnEmpty:
		next := domain.OnEmptyAutoGenerate
		if policy.OnEmpty == domain.OnEmptyAutoGenerate {
			next = domain.OnEmptyPause
		}
		return next, s.policies.SetOnEmpty(ctx, tenantID, next)
	default: // generate_covers
		next := !policy.GenerateCovers
		return next, s.policies.SetGenerateCovers(ctx, tenantID, next)
	}
}

// NextSlotTime returns the next scheduled slot instant for display, or nil
// when the tenant has no slots configured. Independent of queue contents.
func (s *PolicyService) NextSlotTime(ctx context.Context, tenantID string) (*time.Time, error) {
	policy, err := s.policies.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return slotcalc.NextTime(policy.Schedule, s.clk.Now())
}
