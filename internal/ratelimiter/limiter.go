package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Op names an outbound operation class. Each class gets its own token
// bucket so a burst of notifications cannot starve publishes.
type Op string

const (
	OpPublish  Op = "publish"
	OpNotify   Op = "notify"
	OpGenerate Op = "generate"
)

// OutboundLimiters holds one token bucket per outbound operation class.
// Burst is set equal to the rate so no extra burst capacity accumulates
// beyond the configured per-second maximum.
type OutboundLimiters struct {
	limiters map[Op]*rate.Limiter
}

// New creates an OutboundLimiters with ratePerSec tokens per second per op.
func New(ratePerSec int) *OutboundLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &OutboundLimiters{
		limiters: map[Op]*rate.Limiter{
			OpPublish:  rate.NewLimiter(r, burst),
			OpNotify:   rate.NewLimiter(r, burst),
			OpGenerate: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the op's limiter grants a token. Returns a non-nil
// error only if ctx is cancelled while waiting.
func (ol *OutboundLimiters) Wait(ctx context.Context, op Op) error {
	return ol.limiters[op].Wait(ctx)
}
