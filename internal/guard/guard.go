// Package guard provides the per-tenant mutual-exclusion guard the
// scheduler acquires around each tick. It is an explicit, injectable
// component rather than a package-level set so a multi-process deployment
// can swap it for a distributed lock (e.g. a leased row) without touching
// the loop.
//
// The in-memory implementation is only correct when a single process makes
// all scheduling decisions. That is a deployment constraint, not an
// implementation detail.
package guard

import "sync"

// TenantGuard serializes work per tenant: at most one holder per key.
type TenantGuard interface {
	// TryAcquire reports whether the tenant was free; callers that get
	// true must Release when their tick ends, on every exit path.
	TryAcquire(tenantID string) bool
	Release(tenantID string)
}

// InMemory is a keyed in-process guard.
type InMemory struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{locked: make(map[string]struct{})}
}

func (g *InMemory) TryAcquire(tenantID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.locked[tenantID]; held {
		return false
	}
	g.locked[tenantID] = struct{}{}
	return true
}

func (g *InMemory) Release(tenantID string) {
	g.mu.Lock()
	delete(g.locked, tenantID)
	g.mu.Unlock()
}

var _ TenantGuard = (*InMemory)(nil)
