package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/repository"
)

// ─── Meal Handler Tests ───

type stubMealStore struct {
	meals      map[uuid.UUID]*models.Meal
	markLogged error
}

func newStubMealStore() *stubMealStore {
	return &stubMealStore{meals: map[uuid.UUID]*models.Meal{}}
}

func (s *stubMealStore) Create(_ context.Context, m *models.Meal) error {
	s.meals[m.ID] = m
	return nil
}

func (s *stubMealStore) GetByID(_ context.Context, id uuid.UUID) (*models.Meal, error) {
	m, ok := s.meals[id]
	if !ok {
		return nil, repository.ErrNoPlannedMeal
	}
	cp := *m
	return &cp, nil
}

func (s *stubMealStore) ListByUserAndDate(_ context.Context, _ uuid.UUID, _ time.Time) ([]*models.Meal, error) {
	return nil, nil
}

func (s *stubMealStore) Update(_ context.Context, m *models.Meal) error {
	s.meals[m.ID] = m
	return nil
}

func (s *stubMealStore) Delete(_ context.Context, id, _ uuid.UUID) error {
	delete(s.meals, id)
	return nil
}

func (s *stubMealStore) MarkLogged(_ context.Context, id, _ uuid.UUID) error {
	if s.markLogged != nil {
		return s.markLogged
	}
	s.meals[id].Status = models.MealStatusLogged
	return nil
}

type notifyCall struct {
	userID uuid.UUID
	date   time.Time
}

type stubNotifier struct {
	calls []notifyCall
}

func (n *stubNotifier) MealsChanged(_ context.Context, userID uuid.UUID, date time.Time) {
	n.calls = append(n.calls, notifyCall{userID: userID, date: date})
}

func mealRequest(userID uuid.UUID, method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func withMealID(req *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestMealCreate_NotifiesRollup(t *testing.T) {
	store := newStubMealStore()
	notifier := &stubNotifier{}
	h := NewMealHandler(store, notifier)
	userID := uuid.New()

	req := mealRequest(userID, http.MethodPost, "/api/v1/meals", models.CreateMealRequest{
		Name: "oatmeal",
		Date: "2026-03-15",
	})
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected 1 rollup notification, got %d", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.userID != userID {
		t.Errorf("notification for wrong user: %s", call.userID)
	}
	if got := call.date.Format("2006-01-02"); got != "2026-03-15" {
		t.Errorf("expected notification for 2026-03-15, got %s", got)
	}
}

func TestMealCreate_ValidationSkipsNotify(t *testing.T) {
	notifier := &stubNotifier{}
	h := NewMealHandler(newStubMealStore(), notifier)

	req := mealRequest(uuid.New(), http.MethodPost, "/api/v1/meals", models.CreateMealRequest{})
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("rejected create must not notify, got %d calls", len(notifier.calls))
	}
}

func TestMealDelete_NotifiesForMealDate(t *testing.T) {
	store := newStubMealStore()
	notifier := &stubNotifier{}
	h := NewMealHandler(store, notifier)
	userID := uuid.New()

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)
	meal := &models.Meal{ID: uuid.New(), UserID: userID, Name: "pasta", Date: date}
	store.meals[meal.ID] = meal

	req := withMealID(mealRequest(userID, http.MethodDelete, "/api/v1/meals/"+meal.ID.String(), nil), meal.ID)
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected 1 rollup notification, got %d", len(notifier.calls))
	}
	if !notifier.calls[0].date.Equal(date) {
		t.Errorf("expected notification for the deleted meal's date, got %s", notifier.calls[0].date)
	}
}

func TestMealDelete_ForbiddenForOtherUser(t *testing.T) {
	store := newStubMealStore()
	notifier := &stubNotifier{}
	h := NewMealHandler(store, notifier)

	meal := &models.Meal{ID: uuid.New(), UserID: uuid.New(), Name: "pasta"}
	store.meals[meal.ID] = meal

	req := withMealID(mealRequest(uuid.New(), http.MethodDelete, "/api/v1/meals/"+meal.ID.String(), nil), meal.ID)
	rr := httptest.NewRecorder()
	h.Delete(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("forbidden delete must not notify, got %d calls", len(notifier.calls))
	}
	if _, ok := store.meals[meal.ID]; !ok {
		t.Error("forbidden delete must not remove the meal")
	}
}

func TestMealUpdate_NotifiesRollup(t *testing.T) {
	store := newStubMealStore()
	notifier := &stubNotifier{}
	h := NewMealHandler(store, notifier)
	userID := uuid.New()

	meal := &models.Meal{ID: uuid.New(), UserID: userID, Name: "salad", Date: time.Date(2026, 3, 12, 0, 0, 0, 0, time.Local)}
	store.meals[meal.ID] = meal

	name := "greek salad"
	req := withMealID(mealRequest(userID, http.MethodPut, "/api/v1/meals/"+meal.ID.String(), models.UpdateMealRequest{Name: &name}), meal.ID)
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(notifier.calls) != 1 {
		t.Fatalf("expected 1 rollup notification, got %d", len(notifier.calls))
	}
	if store.meals[meal.ID].Name != "greek salad" {
		t.Errorf("expected renamed meal, got %q", store.meals[meal.ID].Name)
	}
}

func TestMealMarkEaten_NotifiesOnTransitionOnly(t *testing.T) {
	userID := uuid.New()
	meal := &models.Meal{ID: uuid.New(), UserID: userID, Name: "planned dinner", Status: models.MealStatusPlanned}

	t.Run("planned meal transitions and notifies", func(t *testing.T) {
		store := newStubMealStore()
		store.meals[meal.ID] = meal
		notifier := &stubNotifier{}
		h := NewMealHandler(store, notifier)

		req := withMealID(mealRequest(userID, http.MethodPost, "/api/v1/meals/"+meal.ID.String()+"/eaten", nil), meal.ID)
		rr := httptest.NewRecorder()
		h.MarkEaten(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if len(notifier.calls) != 1 {
			t.Fatalf("expected 1 rollup notification, got %d", len(notifier.calls))
		}
	})

	t.Run("already logged stays logged without notifying", func(t *testing.T) {
		store := newStubMealStore()
		logged := &models.Meal{ID: uuid.New(), UserID: userID, Name: "lunch", Status: models.MealStatusLogged}
		store.meals[logged.ID] = logged
		store.markLogged = repository.ErrNoPlannedMeal
		notifier := &stubNotifier{}
		h := NewMealHandler(store, notifier)

		req := withMealID(mealRequest(userID, http.MethodPost, "/api/v1/meals/"+logged.ID.String()+"/eaten", nil), logged.ID)
		rr := httptest.NewRecorder()
		h.MarkEaten(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if len(notifier.calls) != 0 {
			t.Errorf("no-op transition must not notify, got %d calls", len(notifier.calls))
		}
	})
}
