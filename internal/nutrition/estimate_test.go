package nutrition

import (
	"testing"

	"nutrichat-backend/internal/models"
)

func TestCeilVector(t *testing.T) {
	v := CeilVector(models.NutritionVector{
		Calories: fp(380.2),
		ProteinG: fp(12.0),
		FatG:     fp(-3.5),
	})

	if *v.Calories != 381 {
		t.Errorf("expected 380.2 to round up to 381, got %v", *v.Calories)
	}
	if *v.ProteinG != 12 {
		t.Errorf("whole values must stay put, got %v", *v.ProteinG)
	}
	if *v.FatG != 0 {
		t.Errorf("negative estimates clamp to 0, got %v", *v.FatG)
	}
	if v.CarbsG != nil {
		t.Error("absent field must stay nil")
	}
}

func TestSanityCheck(t *testing.T) {
	tests := []struct {
		name      string
		v         models.NutritionVector
		anomalies int
	}{
		{"clean estimate", models.NutritionVector{Calories: fp(500), ProteinG: fp(30), CarbsG: fp(50), FatG: fp(15)}, 0},
		{"protein calories exceed total", models.NutritionVector{Calories: fp(100), ProteinG: fp(40)}, 1},
		{"protein equals carbs plus fat", models.NutritionVector{Calories: fp(900), ProteinG: fp(60), CarbsG: fp(40), FatG: fp(20)}, 1},
		{"missing fields check nothing", models.NutritionVector{ProteinG: fp(40)}, 0},
		{"all zero is clean", models.NutritionVector{Calories: fp(0), ProteinG: fp(0), CarbsG: fp(0), FatG: fp(0)}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SanityCheck("test food", tc.v)
			if len(got) != tc.anomalies {
				t.Errorf("expected %d anomalies, got %d: %v", tc.anomalies, len(got), got)
			}
		})
	}
}
