package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/repository"
)

// Preferences are created through chat; this handler only lists and
// deletes them.
type PreferenceHandler struct {
	prefRepo *repository.PreferenceRepo
}

func NewPreferenceHandler(prefRepo *repository.PreferenceRepo) *PreferenceHandler {
	return &PreferenceHandler{prefRepo: prefRepo}
}

func (h *PreferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	prefs, err := h.prefRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load preferences", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"preferences": prefs})
}

func (h *PreferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid preference ID", r))
		return
	}

	if err := h.prefRepo.Delete(r.Context(), id, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete preference", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Preference deleted"})
}
