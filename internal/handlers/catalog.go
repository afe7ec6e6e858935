package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"nutrichat-backend/internal/models"
)

type catalogStore interface {
	ListAvailable(ctx context.Context) ([]models.CatalogItem, error)
	Search(ctx context.Context, q string, limit int) ([]models.CatalogItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
}

type CatalogHandler struct {
	catalogRepo catalogStore
}

func NewCatalogHandler(catalogRepo catalogStore) *CatalogHandler {
	return &CatalogHandler{catalogRepo: catalogRepo}
}

// List returns available catalog items, filtered by ?q= when present.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if query != "" {
		items, err := h.catalogRepo.Search(r.Context(), query, 50)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to search catalog", r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "query": query})
		return
	}

	items, err := h.catalogRepo.ListAvailable(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load catalog", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Get returns a single catalog item, available or not, so clients can
// resolve items referenced by older meals.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid item ID", r))
		return
	}

	item, err := h.catalogRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Catalog item not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load catalog item", r))
		return
	}

	writeJSON(w, http.StatusOK, item)
}
