package gateway

import (
	"context"

	"github.com/postloop/autopublisher/internal/ratelimiter"
)

// RateLimited wraps a gateway so every outbound call first acquires a
// token from the matching per-operation limiter. Entitlement lookups are
// cheap internal calls and run unthrottled.
type RateLimited struct {
	publish  Publisher
	notify   Notifier
	producer Producer
	limiters *ratelimiter.OutboundLimiters
}

func NewRateLimited(
	publish Publisher,
	notify Notifier,
	producer Producer,
	limiters *ratelimiter.OutboundLimiters,
) *RateLimited {
	return &RateLimited{
		publish:  publish,
		notify:   notify,
		producer: producer,
		limiters: limiters,
	}
}

var (
	_ Publisher = (*RateLimited)(nil)
	_ Notifier  = (*RateLimited)(nil)
	_ Producer  = (*RateLimited)(nil)
)

func (g *RateLimited) Publish(ctx context.Context, tenantID, contentRef string) (*PublishResult, error) {
	if err := g.limiters.Wait(ctx, ratelimiter.OpPublish); err != nil {
		return nil, err
	}
	return g.publish.Publish(ctx, tenantID, contentRef)
}

func (g *RateLimited) Notify(ctx context.Context, tenantID, message string, actions []Action) error {
	if err := g.limiters.Wait(ctx, ratelimiter.OpNotify); err != nil {
		return err
	}
	return g.notify.Notify(ctx, tenantID, message, actions)
}

func (g *RateLimited) PlanTopics(ctx context.Context, tenantID string, count int) ([]TopicSuggestion, error) {
	if err := g.limiters.Wait(ctx, ratelimiter.OpGenerate); err != nil {
		return nil, err
	}
	return g.producer.PlanTopics(ctx, tenantID, count)
}

func (g *RateLimited) Generate(ctx context.Context, tenantID string, topic, format string, withCover bool) (string, error) {
	if err := g.limiters.Wait(ctx, ratelimiter.OpGenerate); err != nil {
		return "", err
	}
	return g.producer.Generate(ctx, tenantID, topic, format, withCover)
}
