package models

import (
	"time"

	"github.com/google/uuid"
)

type PreferenceType string

const (
	PreferenceAllergy     PreferenceType = "allergy"
	PreferenceRestriction PreferenceType = "dietary_restriction"
	PreferenceDislike     PreferenceType = "dislike"
	PreferenceGoal        PreferenceType = "goal"
)

// Preference records are append-only; users delete them explicitly.
type Preference struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      PreferenceType `json:"type"`
	Subject   string         `json:"subject"`
	Notes     string         `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
}
