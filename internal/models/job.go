package models

import (
	"github.com/google/uuid"
)

// RollupJob asks the worker pool to recompute one user's totals for one
// calendar date. Jobs are enqueued on every meal write and are safe to
// replay; recomputation is idempotent.
type RollupJob struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Date   string    `json:"date"` // YYYY-MM-DD
}

// WSMessage is the envelope pushed to connected websocket clients.
type WSMessage struct {
	Type    string      `json:"type"` // "meal_logged" | "preference_updated" | "totals_updated"
	Payload interface{} `json:"payload"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
