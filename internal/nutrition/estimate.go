package nutrition

import (
	"fmt"
	"math"

	"nutrichat-backend/internal/models"
)

// CeilVector rounds every present field up to a whole unit. Estimates are
// always ceiling-rounded before persistence.
func CeilVector(v models.NutritionVector) models.NutritionVector {
	return models.NutritionVector{
		Calories: ceilField(v.Calories),
		ProteinG: ceilField(v.ProteinG),
		CarbsG:   ceilField(v.CarbsG),
		FatG:     ceilField(v.FatG),
	}
}

func ceilField(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := math.Ceil(*v)
	if c < 0 {
		c = 0
	}
	return &c
}

// SanityCheck flags estimate anomalies. These are advisory only: callers
// log them and proceed. Two known signatures:
//   - protein calories (protein x 4) exceeding total calories
//   - protein numerically equal to carbs+fat, which marks a mis-summed
//     upstream response
func SanityCheck(foodName string, v models.NutritionVector) []string {
	var anomalies []string

	if v.ProteinG != nil && v.Calories != nil && *v.ProteinG*4 > *v.Calories {
		anomalies = append(anomalies, fmt.Sprintf(
			"%s: protein %.0fg implies %.0f kcal, exceeding total %.0f kcal",
			foodName, *v.ProteinG, *v.ProteinG*4, *v.Calories))
	}

	if v.ProteinG != nil && v.CarbsG != nil && v.FatG != nil {
		if math.Abs(*v.ProteinG-(*v.CarbsG+*v.FatG)) < 0.01 && *v.ProteinG > 0 {
			anomalies = append(anomalies, fmt.Sprintf(
				"%s: protein equals carbs+fat (%.0f), likely mis-summed estimate",
				foodName, *v.ProteinG))
		}
	}

	return anomalies
}
