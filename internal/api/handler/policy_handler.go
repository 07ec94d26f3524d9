package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/service"
)

// PolicyHandler handles the per-tenant publish policy endpoints.
type PolicyHandler struct {
	svc    *service.PolicyService
	logger *zap.Logger
}

func NewPolicyHandler(svc *service.PolicyService, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{svc: svc, logger: logger}
}

// Get handles GET /api/v1/tenants/{tenantID}/policy
//
// @Summary  Get a tenant's publish policy
// @Tags     policy
// @Produce  json
// @Param    tenantID  path      string  true  "Tenant ID"
// @Success  200       {object}  domain.PublishPolicy
// @Failure  404       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/policy [get]
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	policy, err := h.svc.Get(r.Context(), tenantID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policy)
}

// Upsert handles PUT /api/v1/tenants/{tenantID}/policy
//
// @Summary  Create or replace a tenant's publish policy
// @Tags     policy
// @Accept   json
// @Produce  json
// @Param    tenantID  path      string                      true  "Tenant ID"
// @Param    body      body      domain.UpsertPolicyRequest  true  "Policy payload"
// @Success  200       {object}  domain.PublishPolicy
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/policy [put]
func (h *PolicyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req domain.UpsertPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	policy, err := h.svc.Upsert(r.Context(), tenantID, req)
	if err != nil {
		h.logger.Warn("policy upsert failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policy)
}

// SetActive handles POST /api/v1/tenants/{tenantID}/policy/active
//
// @Summary  Activate or deactivate auto-publishing
// @Tags     policy
// @Accept   json
// @Param    tenantID  path  string           true  "Tenant ID"
// @Param    body      body  map[string]bool  true  `{"active": true}`
// @Success  200  {object}  map[string]bool
// @Router   /api/v1/tenants/{tenantID}/policy/active [post]
func (h *PolicyHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.svc.SetActive(r.Context(), tenantID, req.Active); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// Toggle handles POST /api/v1/tenants/{tenantID}/policy/toggle/{field}
//
// Flips one of the two-state policy fields (moderation, on_empty,
// generate_covers) and returns the new value.
//
// @Summary  Toggle a policy field
// @Tags     policy
// @Produce  json
// @Param    tenantID  path      string  true  "Tenant ID"
// @Param    field     path      string  true  "moderation | on_empty | generate_covers"
// @Success  200       {object}  map[string]any
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/policy/toggle/{field} [post]
func (h *PolicyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	field := domain.ToggleField(chi.URLParam(r, "field"))

	value, err := h.svc.Toggle(r.Context(), tenantID, field)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"field": field,
		"value": value,
	})
}

// NextSlot handles GET /api/v1/tenants/{tenantID}/next-slot
//
// @Summary  Next scheduled publication time for the tenant
// @Tags     policy
// @Produce  json
// @Param    tenantID  path      string  true  "Tenant ID"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/tenants/{tenantID}/next-slot [get]
func (h *PolicyHandler) NextSlot(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	next, err := h.svc.NextSlotTime(r.Context(), tenantID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"next_slot": next})
}
