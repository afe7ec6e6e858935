package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the conversation. Assistant content is only
// persisted once the full reply is known; user content is written eagerly
// at request start.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageAttachment carries an optional photo of the meal. Data is base64
// on the wire (encoding/json handles []byte transparently).
type ImageAttachment struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

type ChatRequest struct {
	Message string           `json:"message"`
	Image   *ImageAttachment `json:"image,omitempty"`
}
