package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/repository"
)

type mealStore interface {
	Create(ctx context.Context, m *models.Meal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meal, error)
	ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*models.Meal, error)
	Update(ctx context.Context, m *models.Meal) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	MarkLogged(ctx context.Context, id, userID uuid.UUID) error
}

// mealNotifier fans out after a meal write so the day rollup and any
// live websocket sessions catch up. Manual edits go through the same
// path as chat-logged meals.
type mealNotifier interface {
	MealsChanged(ctx context.Context, userID uuid.UUID, date time.Time)
}

type MealHandler struct {
	mealRepo mealStore
	notifier mealNotifier
}

func NewMealHandler(mealRepo mealStore, notifier mealNotifier) *MealHandler {
	return &MealHandler{mealRepo: mealRepo, notifier: notifier}
}

func (h *MealHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	date, err := parseDateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Date must be YYYY-MM-DD", r))
		return
	}

	meals, err := h.mealRepo.ListByUserAndDate(r.Context(), userID, date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load meals", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"meals": meals,
	})
}

// Create adds a manual entry. Manual entries always carry estimate
// provenance; library provenance is reserved for catalog matches made
// by the chat pipeline.
func (h *MealHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	date := todayLocal()
	if req.Date != "" {
		var err error
		date, err = time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			fields["date"] = "Date must be YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	status := req.Status
	if status == "" {
		status = models.MealStatusLogged
	}
	portion := req.Portion
	if portion == "" {
		portion = models.PortionFull
	}

	meal := &models.Meal{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       req.Name,
		MealType:   req.MealType,
		Date:       date,
		Portion:    portion,
		Status:     status,
		Nutrition:  req.Nutrition,
		Provenance: models.ProvenanceEstimate,
	}

	if err := h.mealRepo.Create(r.Context(), meal); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create meal", r))
		return
	}

	h.notifier.MealsChanged(r.Context(), userID, meal.Date)
	writeJSON(w, http.StatusCreated, meal)
}

func (h *MealHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	meal, ok := h.loadOwnedMeal(w, r, userID)
	if !ok {
		return
	}

	var req models.UpdateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Name != nil {
		meal.Name = *req.Name
	}
	if req.MealType != nil {
		meal.MealType = *req.MealType
	}
	if req.Nutrition != nil {
		meal.Nutrition = *req.Nutrition
	}

	if err := h.mealRepo.Update(r.Context(), meal); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update meal", r))
		return
	}

	h.notifier.MealsChanged(r.Context(), userID, meal.Date)
	writeJSON(w, http.StatusOK, meal)
}

func (h *MealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// Fetch first so the rollup knows which day to recompute.
	meal, ok := h.loadOwnedMeal(w, r, userID)
	if !ok {
		return
	}

	if err := h.mealRepo.Delete(r.Context(), meal.ID, userID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete meal", r))
		return
	}

	h.notifier.MealsChanged(r.Context(), userID, meal.Date)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Meal deleted"})
}

// MarkEaten flips a planned meal to logged. The transition is one-way
// and idempotent: a meal that is already logged stays logged and the
// request still succeeds.
func (h *MealHandler) MarkEaten(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	meal, ok := h.loadOwnedMeal(w, r, userID)
	if !ok {
		return
	}

	if err := h.mealRepo.MarkLogged(r.Context(), meal.ID, userID); err != nil {
		if !errors.Is(err, repository.ErrNoPlannedMeal) {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update meal", r))
			return
		}
	} else {
		// Only a real planned-to-logged transition changes the day totals.
		h.notifier.MealsChanged(r.Context(), userID, meal.Date)
	}
	meal.Status = models.MealStatusLogged

	writeJSON(w, http.StatusOK, meal)
}

func (h *MealHandler) loadOwnedMeal(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Meal, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid meal ID", r))
		return nil, false
	}

	meal, err := h.mealRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Meal not found", r))
		return nil, false
	}
	if meal.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return meal, true
}

func todayLocal() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
