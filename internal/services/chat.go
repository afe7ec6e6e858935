package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"nutrichat-backend/internal/intent"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/nutrition"
	"nutrichat-backend/internal/repository"
)

const historyDepth = 12

// replyStreamer produces the conversational reply token by token and
// returns the full accumulated text when the stream ends.
type replyStreamer interface {
	StreamChat(ctx context.Context, history []*models.ChatMessage, message string, image *models.ImageAttachment, onDelta func(string)) (string, error)
}

type mealPipeline interface {
	Run(ctx context.Context, userID uuid.UUID, message string, image *models.ImageAttachment, status models.MealStatus) (*nutrition.Result, error)
}

type chatMessageStore interface {
	Create(ctx context.Context, m *models.ChatMessage) error
	Recent(ctx context.Context, userID uuid.UUID, n int) ([]*models.ChatMessage, error)
}

type plannedMealStore interface {
	FindPlanned(ctx context.Context, userID uuid.UUID, date time.Time, mealType models.MealType) (*models.Meal, error)
	MarkLogged(ctx context.Context, id, userID uuid.UUID) error
}

type preferenceStore interface {
	Create(ctx context.Context, p *models.Preference) error
}

// ChatService coordinates one chat turn: it streams the assistant reply
// while classifying the message and, when warranted, runs the structured
// side effects (meal rows, preference rows, planned-meal transitions).
// At most one action event is emitted per turn, always after the final
// content delta and before the done sentinel.
type ChatService struct {
	streamer replyStreamer
	pipeline mealPipeline
	chatRepo chatMessageStore
	mealRepo plannedMealStore
	prefRepo preferenceStore
	notifier *RollupNotifier

	now func() time.Time
}

func NewChatService(streamer replyStreamer, pipeline mealPipeline, chatRepo chatMessageStore, mealRepo plannedMealStore, prefRepo preferenceStore, redisClient *redis.Client) *ChatService {
	return &ChatService{
		streamer: streamer,
		pipeline: pipeline,
		chatRepo: chatRepo,
		mealRepo: mealRepo,
		prefRepo: prefRepo,
		notifier: NewRollupNotifier(redisClient),
		now:      time.Now,
	}
}

// StreamReply runs a full chat turn and returns a channel of events for
// the SSE writer. The channel is closed after the done or error event.
// Event order is fixed: zero or more content deltas, at most one action,
// then exactly one done (or a single error if streaming fails).
func (s *ChatService) StreamReply(ctx context.Context, userID uuid.UUID, req models.ChatRequest) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, 16)

	go func() {
		defer close(events)

		// Side effects must survive a client disconnect so that what the
		// user said and what was persisted never diverge.
		workCtx := context.WithoutCancel(ctx)

		userMsg := &models.ChatMessage{
			ID:      uuid.New(),
			UserID:  userID,
			Role:    models.RoleUser,
			Content: req.Message,
		}
		if err := s.chatRepo.Create(workCtx, userMsg); err != nil {
			log.Printf("chat: persist user message failed for %s: %v", userID, err)
		}

		history, err := s.chatRepo.Recent(workCtx, userID, historyDepth)
		if err != nil {
			log.Printf("chat: load history failed for %s: %v", userID, err)
			history = nil
		}

		reply, err := s.streamer.StreamChat(ctx, history, req.Message, req.Image, func(delta string) {
			events <- models.StreamEvent{Type: models.StreamContentDelta, Content: delta}
		})
		if err != nil {
			log.Printf("chat: stream failed for %s: %v", userID, err)
			events <- models.StreamEvent{Type: models.StreamError, Err: err}
			return
		}

		if action := s.processIntent(workCtx, userID, req); action != nil {
			events <- models.StreamEvent{Type: models.StreamAction, Action: action}
		}

		if reply != "" {
			assistantMsg := &models.ChatMessage{
				ID:      uuid.New(),
				UserID:  userID,
				Role:    models.RoleAssistant,
				Content: reply,
			}
			if err := s.chatRepo.Create(workCtx, assistantMsg); err != nil {
				log.Printf("chat: persist assistant message failed for %s: %v", userID, err)
			}
		}

		events <- models.StreamEvent{Type: models.StreamDone}
	}()

	return events
}

// processIntent classifies the message and runs the matching side
// effects. It never fails the turn: any error or panic degrades to a
// plain conversational reply with no action event.
func (s *ChatService) processIntent(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (action *models.Action) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("chat: intent processing panicked for %s: %v", userID, r)
			action = nil
		}
	}()

	switch intent.Classify(req.Message, req.Image != nil) {
	case intent.LogMeal:
		return s.runPipeline(ctx, userID, req, models.MealStatusLogged, models.ActionMealLogged)
	case intent.PlanMeal:
		return s.runPipeline(ctx, userID, req, models.MealStatusPlanned, models.ActionMealPlanned)
	case intent.UpdatePreference:
		return s.updatePreference(ctx, userID, req.Message)
	case intent.MarkPlannedEaten:
		return s.markPlannedEaten(ctx, userID, req.Message)
	default:
		return nil
	}
}

func (s *ChatService) runPipeline(ctx context.Context, userID uuid.UUID, req models.ChatRequest, status models.MealStatus, actionType models.ActionType) *models.Action {
	result, err := s.pipeline.Run(ctx, userID, req.Message, req.Image, status)
	if err != nil {
		log.Printf("chat: meal pipeline failed for %s: %v", userID, err)
		return nil
	}
	if result.Saved == 0 {
		return nil
	}

	s.notifier.MealsChanged(ctx, userID, s.today())

	if result.Saved == 1 {
		return &models.Action{Type: actionType, Data: result.Meals[0]}
	}
	return &models.Action{Type: actionType, Data: result.Meals, Count: result.Saved}
}

func (s *ChatService) updatePreference(ctx context.Context, userID uuid.UUID, message string) *models.Action {
	parsed := intent.ParsePreference(message)
	if parsed == nil {
		log.Printf("chat: preference cue without extractable subject for %s", userID)
		return nil
	}

	pref := &models.Preference{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    parsed.Type,
		Subject: parsed.Subject,
		Notes:   parsed.Notes,
	}
	if err := s.prefRepo.Create(ctx, pref); err != nil {
		log.Printf("chat: persist preference failed for %s: %v", userID, err)
		return nil
	}

	s.notifier.PublishUpdate(ctx, userID, models.WSMessage{Type: "preference_updated", Payload: pref})
	return &models.Action{Type: models.ActionPreferenceUpdated, Data: pref}
}

func (s *ChatService) markPlannedEaten(ctx context.Context, userID uuid.UUID, message string) *models.Action {
	today := s.today()
	meal, err := s.mealRepo.FindPlanned(ctx, userID, today, intent.MealTimeCue(message))
	if err != nil {
		if errors.Is(err, repository.ErrNoPlannedMeal) {
			log.Printf("chat: no planned meal to mark eaten for %s", userID)
		} else {
			log.Printf("chat: planned meal lookup failed for %s: %v", userID, err)
		}
		return nil
	}

	if err := s.mealRepo.MarkLogged(ctx, meal.ID, userID); err != nil {
		// Already logged is a no-op, not a failure.
		if !errors.Is(err, repository.ErrNoPlannedMeal) {
			log.Printf("chat: mark planned meal logged failed for %s: %v", userID, err)
		}
		return nil
	}
	meal.Status = models.MealStatusLogged

	s.notifier.MealsChanged(ctx, userID, today)
	return &models.Action{Type: models.ActionMealUpdated, Data: meal}
}

func (s *ChatService) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ValidateChatRequest rejects the only hard failures a chat turn has:
// a missing message when no image is attached.
func ValidateChatRequest(req models.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" && req.Image == nil {
		return &ValidationError{Fields: map[string]string{"message": "message or image is required"}}
	}
	return nil
}
