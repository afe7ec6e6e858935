package models

import (
	"time"

	"github.com/google/uuid"
)

type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
	MealTypeUnset     MealType = ""
)

type MealStatus string

const (
	MealStatusPlanned MealStatus = "planned"
	MealStatusLogged  MealStatus = "logged"
)

type Provenance string

const (
	ProvenanceLibrary  Provenance = "library"
	ProvenanceEstimate Provenance = "estimate"
)

// PortionToken is the closed set of portion fractions a user can express.
type PortionToken string

const (
	PortionQuarter       PortionToken = "1/4"
	PortionHalf          PortionToken = "1/2"
	PortionThreeQuarters PortionToken = "3/4"
	PortionFull          PortionToken = "full"
	PortionDouble        PortionToken = "2x"
)

// NutritionVector holds per-serving macros. Fields are independent
// measurements; calories is never derived from the other three. Nil means
// the value is unknown and must stay NULL in storage, never zero.
type NutritionVector struct {
	Calories *float64 `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

type Meal struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	Name       string       `json:"name"`
	MealType   MealType     `json:"meal_type"`
	Date       time.Time    `json:"date"`
	Portion    PortionToken `json:"portion"`
	Status     MealStatus   `json:"status"`
	Nutrition  NutritionVector `json:"nutrition"`
	Provenance Provenance      `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ExtractedFood is one food the extractor pulled out of a user message.
// MealType is set only when the message states it explicitly.
type ExtractedFood struct {
	Name     string       `json:"name"`
	MealType MealType     `json:"meal_type"`
	Portion  PortionToken `json:"portion"`
}

// EstimatedFood pairs an extracted food with a full-serving estimate. Used
// by the full-message fallback where extraction and estimation happen in
// one completion call.
type EstimatedFood struct {
	ExtractedFood
	Nutrition NutritionVector `json:"nutrition"`
}

type CreateMealRequest struct {
	Name      string          `json:"name"`
	MealType  MealType        `json:"meal_type"`
	Date      string          `json:"date"`
	Portion   PortionToken    `json:"portion"`
	Status    MealStatus      `json:"status"`
	Nutrition NutritionVector `json:"nutrition"`
}

type UpdateMealRequest struct {
	Name      *string          `json:"name"`
	MealType  *MealType        `json:"meal_type"`
	Nutrition *NutritionVector `json:"nutrition"`
}

// DayTotals is the per-day rollup cached in Redis and recomputed by the
// worker pool after every meal write.
type DayTotals struct {
	UserID    uuid.UUID `json:"user_id"`
	Date      string    `json:"date"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	CarbsG    float64   `json:"carbs_g"`
	FatG      float64   `json:"fat_g"`
	MealCount int       `json:"meal_count"`
}
