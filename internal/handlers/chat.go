package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"nutrichat-backend/internal/middleware"
	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/repository"
	"nutrichat-backend/internal/services"
)

type ChatHandler struct {
	chatService *services.ChatService
	chatRepo    *repository.ChatRepo
}

func NewChatHandler(chatService *services.ChatService, chatRepo *repository.ChatRepo) *ChatHandler {
	return &ChatHandler{chatService: chatService, chatRepo: chatRepo}
}

// streamFrame is the JSON payload of one SSE data line. Exactly one
// field is set per frame.
type streamFrame struct {
	Content string         `json:"content,omitempty"`
	Action  *models.Action `json:"action,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Stream runs one chat turn over SSE. Frames are written as
// "data: <json>\n\n" and the stream always ends with "data: [DONE]\n\n"
// unless the turn fails mid-stream.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if err := services.ValidateChatRequest(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Streaming unsupported", r))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	userID := middleware.GetUserID(r.Context())
	events := h.chatService.StreamReply(r.Context(), userID, req)

	for ev := range events {
		switch ev.Type {
		case models.StreamContentDelta:
			writeFrame(w, flusher, streamFrame{Content: ev.Content})
		case models.StreamAction:
			writeFrame(w, flusher, streamFrame{Action: ev.Action})
		case models.StreamError:
			writeFrame(w, flusher, streamFrame{Error: "stream interrupted"})
			return
		case models.StreamDone:
			fmt.Fprint(w, "data: [DONE]\n\n")
			flusher.Flush()
			return
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame streamFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("chat: marshal stream frame: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

// Messages returns chat history, newest first.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	messages, err := h.chatRepo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load messages", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}
