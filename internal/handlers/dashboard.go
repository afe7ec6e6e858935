package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/redis/go-redis/v9"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/repository"
	"nutrichat-backend/internal/worker"
)

type DashboardHandler struct {
	mealRepo *repository.MealRepo
	redis    *redis.Client
}

func NewDashboardHandler(mealRepo *repository.MealRepo, redisClient *redis.Client) *DashboardHandler {
	return &DashboardHandler{mealRepo: mealRepo, redis: redisClient}
}

// DayTotals serves the cached rollup when the worker has produced one,
// falling back to a live sum when the cache is cold.
func (h *DashboardHandler) DayTotals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	date, err := parseDateParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Date must be YYYY-MM-DD", r))
		return
	}
	dateStr := date.Format("2006-01-02")

	if h.redis != nil {
		raw, err := h.redis.Get(r.Context(), worker.TotalsCacheKey(userID, dateStr)).Result()
		if err == nil {
			var totals models.DayTotals
			if json.Unmarshal([]byte(raw), &totals) == nil {
				writeJSON(w, http.StatusOK, totals)
				return
			}
		}
	}

	totals, err := h.mealRepo.SumByUserAndDate(r.Context(), userID, date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to compute totals", r))
		return
	}
	totals.UserID = userID
	totals.Date = dateStr

	writeJSON(w, http.StatusOK, totals)
}
