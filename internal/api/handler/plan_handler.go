package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/service"
)

// PlanHandler triggers content plan generation on demand.
type PlanHandler struct {
	svc    *service.PlanService
	logger *zap.Logger
}

func NewPlanHandler(svc *service.PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, logger: logger}
}

// Generate handles POST /api/v1/tenants/{tenantID}/plan/generate
//
// Fills the queue with a freshly generated content plan. Returns 409 if a
// generation run is already in flight for the tenant.
//
// @Summary  Generate a content plan into the queue
// @Tags     plan
// @Param    tenantID  path  string  true  "Tenant ID"
// @Success  202  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Failure  402  {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/plan/generate [post]
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if err := h.svc.Generate(r.Context(), tenantID); err != nil {
		h.logger.Warn("plan generation failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "generated"})
}

// Regenerate handles POST /api/v1/tenants/{tenantID}/plan/regenerate
//
// Cancels the remaining active items and generates a fresh plan in their
// place.
//
// @Summary  Replace the current queue with a fresh content plan
// @Tags     plan
// @Param    tenantID  path  string  true  "Tenant ID"
// @Success  202  {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/plan/regenerate [post]
func (h *PlanHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if err := h.svc.Regenerate(r.Context(), tenantID); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "regenerated"})
}
