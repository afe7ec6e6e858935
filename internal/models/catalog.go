package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem is a curated, brand-attributed food with known per-serving
// nutrition, as opposed to a free-text estimate.
type CatalogItem struct {
	ID          uuid.UUID       `json:"id"`
	Brand       string          `json:"brand"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Nutrition   NutritionVector `json:"nutrition"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// MatchResult is the matcher's verdict for one food name. Only a high
// tier may populate a meal from the catalog; medium and low are kept as
// discarded rationale and the food falls through to estimation.
type MatchResult struct {
	Item       *CatalogItem   `json:"item,omitempty"`
	Confidence ConfidenceTier `json:"confidence"`
	Rationale  string         `json:"rationale"`
}
