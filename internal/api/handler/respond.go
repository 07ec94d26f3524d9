package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/postloop/autopublisher/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotReviewable),
		errors.Is(err, domain.ErrNotDispatchable),
		errors.Is(err, domain.ErrAlreadyGenerating):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTopic),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidSlotDay),
		errors.Is(err, domain.ErrInvalidSlotTime),
		errors.Is(err, domain.ErrInvalidTimezone),
		errors.Is(err, domain.ErrInvalidModeration),
		errors.Is(err, domain.ErrInvalidOnEmpty),
		errors.Is(err, domain.ErrInvalidToggle):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBudgetExhausted),
		errors.Is(err, domain.ErrLimitReached):
		respondError(w, http.StatusPaymentRequired, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
