package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/postloop/autopublisher/internal/api/middleware"
	"github.com/postloop/autopublisher/internal/domain"
	"github.com/postloop/autopublisher/internal/service"
)

// QueueHandler handles the per-tenant content queue endpoints.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// Append handles POST /api/v1/tenants/{tenantID}/queue
//
// @Summary  Append an item to the end of the queue
// @Tags     queue
// @Accept   json
// @Produce  json
// @Param    tenantID  path      string                true  "Tenant ID"
// @Param    body      body      domain.EnqueueRequest true  "Item payload"
// @Success  201       {object}  domain.QueueItem
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue [post]
func (h *QueueHandler) Append(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.Append(r.Context(), tenantID, req)
	if err != nil {
		h.logger.Warn("queue append failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// AppendBatch handles POST /api/v1/tenants/{tenantID}/queue/batch
//
// @Summary  Append several items in queue order
// @Tags     queue
// @Accept   json
// @Produce  json
// @Param    tenantID  path      string                  true  "Tenant ID"
// @Param    body      body      []domain.EnqueueRequest true  "Item payloads"
// @Success  201       {array}   domain.QueueItem
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue/batch [post]
func (h *QueueHandler) AppendBatch(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var reqs []domain.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "batch must not be empty")
		return
	}

	items, err := h.svc.AppendBatch(r.Context(), tenantID, reqs)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, items)
}

// InsertAfter handles POST /api/v1/tenants/{tenantID}/queue/insert
//
// @Summary  Insert an item after an existing position
// @Tags     queue
// @Accept   json
// @Produce  json
// @Param    tenantID  path      string                    true  "Tenant ID"
// @Param    body      body      domain.InsertAfterRequest true  "Insert payload"
// @Success  201       {object}  domain.QueueItem
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue/insert [post]
func (h *QueueHandler) InsertAfter(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req domain.InsertAfterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item, err := h.svc.InsertAfter(r.Context(), tenantID, req)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// List handles GET /api/v1/tenants/{tenantID}/queue
//
// @Summary  List queue items in position order
// @Tags     queue
// @Produce  json
// @Param    tenantID  path      string  true   "Tenant ID"
// @Param    status    query     string  false  "Filter by status"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/tenants/{tenantID}/queue [get]
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var filter domain.ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.Status(s)
		if !st.IsValid() {
			respondError(w, http.StatusUnprocessableEntity, "unknown status")
			return
		}
		filter.Status = &st
	}

	items, err := h.svc.List(r.Context(), tenantID, filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list queue")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": len(items),
	})
}

// Delete handles DELETE /api/v1/tenants/{tenantID}/queue/{id}
//
// @Summary  Delete a queue item and renumber the remainder
// @Tags     queue
// @Param    tenantID  path  string  true  "Tenant ID"
// @Param    id        path  string  true  "Item UUID"
// @Success  204
// @Router   /api/v1/tenants/{tenantID}/queue/{id} [delete]
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	itemID := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), tenantID, itemID); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /api/v1/tenants/{tenantID}/queue/{id}/publish
//
// Immediate manual publication, bypassing the slot schedule. Shares the
// dispatch path with the background loop, so entitlement checks and the
// missing-content skip behave identically.
//
// @Summary  Publish a queue item now
// @Tags     queue
// @Param    tenantID  path  string  true  "Tenant ID"
// @Param    id        path  string  true  "Item UUID"
// @Success  200  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue/{id}/publish [post]
func (h *QueueHandler) Publish(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	itemID := chi.URLParam(r, "id")

	if err := h.svc.PublishItem(r.Context(), tenantID, itemID); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "published"})
}

// Skip handles POST /api/v1/tenants/{tenantID}/queue/{id}/skip
//
// @Summary  Skip a queue item without publishing it
// @Tags     queue
// @Param    tenantID  path  string  true  "Tenant ID"
// @Param    id        path  string  true  "Item UUID"
// @Success  200  {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue/{id}/skip [post]
func (h *QueueHandler) Skip(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	itemID := chi.URLParam(r, "id")

	if err := h.svc.Skip(r.Context(), tenantID, itemID); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}

// Recalculate handles POST /api/v1/tenants/{tenantID}/queue/recalculate
//
// @Summary  Reassign scheduled times for all active items
// @Tags     queue
// @Param    tenantID  path  string  true  "Tenant ID"
// @Success  200  {object}  map[string]string
// @Router   /api/v1/tenants/{tenantID}/queue/recalculate [post]
func (h *QueueHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if err := h.svc.Recalculate(r.Context(), tenantID); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "recalculated"})
}
