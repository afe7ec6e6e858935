package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/nutrition"
	"nutrichat-backend/internal/repository"
	"nutrichat-backend/internal/services"
)

// ─── Chat Stream Handler Tests ───

type stubStreamer struct {
	deltas []string
}

func (s *stubStreamer) StreamChat(_ context.Context, _ []*models.ChatMessage, _ string, _ *models.ImageAttachment, onDelta func(string)) (string, error) {
	full := ""
	for _, d := range s.deltas {
		onDelta(d)
		full += d
	}
	return full, nil
}

type stubPipeline struct {
	result *nutrition.Result
}

func (s *stubPipeline) Run(_ context.Context, _ uuid.UUID, _ string, _ *models.ImageAttachment, _ models.MealStatus) (*nutrition.Result, error) {
	return s.result, nil
}

type stubChatStore struct{}

func (s *stubChatStore) Create(_ context.Context, _ *models.ChatMessage) error { return nil }
func (s *stubChatStore) Recent(_ context.Context, _ uuid.UUID, _ int) ([]*models.ChatMessage, error) {
	return nil, nil
}

type stubPlannedStore struct{}

func (s *stubPlannedStore) FindPlanned(_ context.Context, _ uuid.UUID, _ time.Time, _ models.MealType) (*models.Meal, error) {
	return nil, repository.ErrNoPlannedMeal
}
func (s *stubPlannedStore) MarkLogged(_ context.Context, _, _ uuid.UUID) error { return nil }

type stubPrefStore struct{}

func (s *stubPrefStore) Create(_ context.Context, _ *models.Preference) error { return nil }

func newStreamHandler(streamer *stubStreamer, pipeline *stubPipeline) *ChatHandler {
	svc := services.NewChatService(streamer, pipeline, &stubChatStore{}, &stubPlannedStore{}, &stubPrefStore{}, nil)
	return NewChatHandler(svc, nil)
}

func streamRequest(t *testing.T, h *ChatHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	jsonBody, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/stream", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New())

	rr := httptest.NewRecorder()
	h.Stream(rr, req.WithContext(ctx))
	return rr
}

func TestStreamHandler_PlainReplyFrames(t *testing.T) {
	h := newStreamHandler(&stubStreamer{deltas: []string{"Hello", " world"}}, &stubPipeline{})

	rr := streamRequest(t, h, models.ChatRequest{Message: "hi there"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `data: {"content":"Hello"}`) {
		t.Errorf("missing first content frame in %q", body)
	}
	if !strings.Contains(body, `data: {"content":" world"}`) {
		t.Errorf("missing second content frame in %q", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream must end with the DONE sentinel, got %q", body)
	}
}

func TestStreamHandler_ActionFrameBeforeSentinel(t *testing.T) {
	meal := &models.Meal{ID: uuid.New(), Name: "banana", Status: models.MealStatusLogged}
	pipeline := &stubPipeline{result: &nutrition.Result{Meals: []*models.Meal{meal}, Attempted: 1, Saved: 1}}
	h := newStreamHandler(&stubStreamer{deltas: []string{"Logged it."}}, pipeline)

	rr := streamRequest(t, h, models.ChatRequest{Message: "I ate a banana"})

	body := rr.Body.String()
	actionIdx := strings.Index(body, `"action"`)
	doneIdx := strings.Index(body, "data: [DONE]")
	if actionIdx < 0 {
		t.Fatalf("expected an action frame in %q", body)
	}
	if doneIdx < actionIdx {
		t.Error("action frame must precede the DONE sentinel")
	}
	if !strings.Contains(body, `"type":"meal_logged"`) {
		t.Errorf("expected meal_logged action in %q", body)
	}
}

func TestStreamHandler_RejectsEmptyMessage(t *testing.T) {
	h := newStreamHandler(&stubStreamer{}, &stubPipeline{})

	rr := streamRequest(t, h, models.ChatRequest{Message: "   "})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "VALIDATION_ERROR") {
		t.Errorf("expected validation error body, got %q", rr.Body.String())
	}
}

func TestStreamHandler_RejectsMalformedBody(t *testing.T) {
	h := newStreamHandler(&stubStreamer{}, &stubPipeline{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/stream", strings.NewReader("{not json"))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New())
	rr := httptest.NewRecorder()
	h.Stream(rr, req.WithContext(ctx))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
