package nutrition

import (
	"math"
	"testing"

	"nutrichat-backend/internal/models"
)

func fp(v float64) *float64 { return &v }

func TestNormalizePortion(t *testing.T) {
	tests := []struct {
		raw      string
		expected models.PortionToken
	}{
		{"half", models.PortionHalf},
		{"1/2", models.PortionHalf},
		{"0.5", models.PortionHalf},
		{"quarter", models.PortionQuarter},
		{"1/4", models.PortionQuarter},
		{"three quarters", models.PortionThreeQuarters},
		{"three-quarters", models.PortionThreeQuarters},
		{"3/4", models.PortionThreeQuarters},
		{"double", models.PortionDouble},
		{"twice", models.PortionDouble},
		{"2", models.PortionDouble},
		{"2x", models.PortionDouble},
		{"full", models.PortionFull},
		{"", models.PortionFull},
		{"a normal amount", models.PortionFull},
		{"HALF", models.PortionHalf},
		{"  half  ", models.PortionHalf},
	}

	for _, tc := range tests {
		if got := NormalizePortion(tc.raw); got != tc.expected {
			t.Errorf("NormalizePortion(%q) = %v, want %v", tc.raw, got, tc.expected)
		}
	}
}

func TestScalePortion_AllTokens(t *testing.T) {
	full := models.NutritionVector{
		Calories: fp(420),
		ProteinG: fp(18),
		CarbsG:   fp(51),
		FatG:     fp(15),
	}

	factors := map[models.PortionToken]float64{
		models.PortionQuarter:       0.25,
		models.PortionHalf:          0.5,
		models.PortionThreeQuarters: 0.75,
		models.PortionFull:          1,
		models.PortionDouble:        2,
	}

	for token, factor := range factors {
		scaled := ScalePortion(full, token)
		checks := []struct {
			name string
			got  *float64
			full float64
		}{
			{"calories", scaled.Calories, *full.Calories},
			{"protein", scaled.ProteinG, *full.ProteinG},
			{"carbs", scaled.CarbsG, *full.CarbsG},
			{"fat", scaled.FatG, *full.FatG},
		}
		for _, c := range checks {
			if c.got == nil {
				t.Fatalf("%s/%s: scaled field is nil", token, c.name)
			}
			if math.Abs(*c.got-c.full*factor) > 1 {
				t.Errorf("%s/%s: got %v, want %v ±1", token, c.name, *c.got, c.full*factor)
			}
		}
	}
}

func TestScalePortion_NilFieldsStayNil(t *testing.T) {
	full := models.NutritionVector{Calories: fp(300)}
	scaled := ScalePortion(full, models.PortionHalf)

	if scaled.Calories == nil || *scaled.Calories != 150 {
		t.Errorf("calories = %v, want 150", scaled.Calories)
	}
	if scaled.ProteinG != nil || scaled.CarbsG != nil || scaled.FatG != nil {
		t.Error("nil input fields must stay nil, never become zero")
	}
}

func TestPortionFactor_UnknownToken(t *testing.T) {
	if got := PortionFactor(models.PortionToken("1/3")); got != 1 {
		t.Errorf("unknown token factor = %v, want 1", got)
	}
}
