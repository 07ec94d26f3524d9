package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/service"
)

// StatusHandler serves a human-readable JSON snapshot of a tenant's queue.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type StatusHandler struct {
	queueSvc  *service.QueueService
	policySvc *service.PolicyService
}

func NewStatusHandler(queueSvc *service.QueueService, policySvc *service.PolicyService) *StatusHandler {
	return &StatusHandler{queueSvc: queueSvc, policySvc: policySvc}
}

// Status handles GET /api/v1/tenants/{tenantID}/status
//
// @Summary  Queue depth and policy snapshot for one tenant
// @Tags     status
// @Produce  json
// @Param    tenantID  path      string  true  "Tenant ID"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/tenants/{tenantID}/status [get]
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	counts, err := h.queueSvc.Counts(r.Context(), tenantID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count queue items")
		return
	}

	snapshot := map[string]any{
		"queue_depth": map[string]int{
			"pending":   counts[domain.StatusPending],
			"ready":     counts[domain.StatusReady],
			"review":    counts[domain.StatusReview],
			"published": counts[domain.StatusPublished],
			"skipped":   counts[domain.StatusSkipped],
			"cancelled": counts[domain.StatusCancelled],
		},
	}

	// A tenant without a policy still has a meaningful queue snapshot.
	policy, err := h.policySvc.Get(r.Context(), tenantID)
	switch {
	case err == nil:
		snapshot["policy"] = map[string]any{
			"active":     policy.Active,
			"moderation": policy.Moderation,
			"on_empty":   policy.OnEmpty,
			"generating": policy.Generating,
		}
	case errors.Is(err, domain.ErrNotFound):
		snapshot["policy"] = nil
	default:
		respondError(w, http.StatusInternalServerError, "failed to load policy")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}
