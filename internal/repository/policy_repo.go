package repository

import (
	"context"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// PolicyRepository defines persistence for per-tenant publish policies.
type PolicyRepository interface {
	Get(ctx context.Context, tenantID string) (*domain.PublishPolicy, error)
	// Upsert creates or replaces the tenant's policy row.
	Upsert(ctx context.Context, p *domain.PublishPolicy) error
	// ListActive returns every policy with active=true, the scheduler
	// loop's per-tick working set.
	ListActive(ctx context.Context) ([]*domain.PublishPolicy, error)

	SetActive(ctx context.Context, tenantID string, active bool) error
	SetModeration(ctx context.Context, tenantID string, m domain.Moderation) error
	SetOnEmpty(ctx context.Context, tenantID string, o domain.OnEmpty) error
	SetGenerateCovers(ctx context.Context, tenantID string, v bool) error
	// SetGenerating flips the generation-in-progress flag. Callers must
	// clear it on every exit path, including failures.
	SetGenerating(ctx context.Context, tenantID string, v bool) error
	// TouchProcessed records the last slot-match processing time, the
	// input to the loop's min-interval throttle.
	TouchProcessed(ctx context.Context, tenantID string, at time.Time) error
}
