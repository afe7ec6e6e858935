package nutrition

import (
	"math"
	"strings"

	"nutrichat-backend/internal/models"
)

// portionFactors is the closed mapping from portion token to multiplier.
var portionFactors = map[models.PortionToken]float64{
	models.PortionQuarter:       0.25,
	models.PortionHalf:          0.5,
	models.PortionThreeQuarters: 0.75,
	models.PortionFull:          1,
	models.PortionDouble:        2,
}

// NormalizePortion maps free text onto the portion enum. Unrecognized
// text defaults to a full serving.
func NormalizePortion(raw string) models.PortionToken {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "1/4", "quarter", "a quarter", "0.25", ".25", "25%":
		return models.PortionQuarter
	case "1/2", "half", "a half", "0.5", ".5", "50%":
		return models.PortionHalf
	case "3/4", "three quarters", "three-quarters", "0.75", ".75", "75%":
		return models.PortionThreeQuarters
	case "2", "2x", "double", "twice", "200%":
		return models.PortionDouble
	default:
		return models.PortionFull
	}
}

// PortionFactor returns the multiplier for a token; unknown tokens are
// treated as a full serving.
func PortionFactor(token models.PortionToken) float64 {
	if f, ok := portionFactors[token]; ok {
		return f
	}
	return 1
}

// ScalePortion multiplies a full-serving vector by the portion factor.
// Nil fields stay nil. Results are rounded to whole units, which keeps
// every scaled field within ±1 of the exact product.
func ScalePortion(full models.NutritionVector, token models.PortionToken) models.NutritionVector {
	f := PortionFactor(token)
	return models.NutritionVector{
		Calories: scaleField(full.Calories, f),
		ProteinG: scaleField(full.ProteinG, f),
		CarbsG:   scaleField(full.CarbsG, f),
		FatG:     scaleField(full.FatG, f),
	}
}

func scaleField(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := math.Round(*v * factor)
	return &scaled
}
