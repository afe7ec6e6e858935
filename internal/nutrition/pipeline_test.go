package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"nutrichat-backend/internal/models"
)

// ─── Fakes ───

type fakeCompleter struct {
	foods      []models.ExtractedFood
	extractErr error

	matches  map[string]*models.MatchResult
	matchErr error

	estimates   map[string]*models.NutritionVector
	estimateErr error

	fallback    []models.EstimatedFood
	fallbackErr error

	fallbackCalls int
}

func (f *fakeCompleter) ExtractFoods(_ context.Context, _ string, _ *models.ImageAttachment) ([]models.ExtractedFood, error) {
	return f.foods, f.extractErr
}

func (f *fakeCompleter) MatchCatalogItem(_ context.Context, name string, _ []models.CatalogItem) (*models.MatchResult, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.matches[name], nil
}

func (f *fakeCompleter) EstimateNutrition(_ context.Context, name string) (*models.NutritionVector, error) {
	if f.estimateErr != nil {
		return nil, f.estimateErr
	}
	return f.estimates[name], nil
}

func (f *fakeCompleter) EstimateFromMessage(_ context.Context, _ string) ([]models.EstimatedFood, error) {
	f.fallbackCalls++
	return f.fallback, f.fallbackErr
}

type fakeCatalog struct {
	items []models.CatalogItem
	err   error
}

func (f *fakeCatalog) ListAvailable(_ context.Context) ([]models.CatalogItem, error) {
	return f.items, f.err
}

type fakeMealStore struct {
	saved   []*models.Meal
	failFor map[string]bool
}

func (f *fakeMealStore) Create(_ context.Context, meal *models.Meal) error {
	if f.failFor[meal.Name] {
		return errors.New("store unavailable")
	}
	f.saved = append(f.saved, meal)
	return nil
}

func newTestPipeline(c *fakeCompleter, cat *fakeCatalog, store *fakeMealStore) *Pipeline {
	p := NewPipeline(c, cat, store, Config{SupportsImage: true, SupportsPortionAdjustment: true})
	p.now = func() time.Time {
		return time.Date(2026, 3, 14, 8, 30, 0, 0, time.Local)
	}
	return p
}

// ─── Tests ───

func TestPipeline_TwoFoodsBothBreakfast(t *testing.T) {
	// "I ate half a banana bread and a full avocado toast for breakfast"
	c := &fakeCompleter{
		foods: []models.ExtractedFood{
			{Name: "banana bread", MealType: models.MealTypeBreakfast, Portion: models.PortionHalf},
			{Name: "avocado toast", MealType: models.MealTypeBreakfast, Portion: models.PortionFull},
		},
		estimates: map[string]*models.NutritionVector{
			"banana bread":  {Calories: fp(400), ProteinG: fp(6), CarbsG: fp(54), FatG: fp(18)},
			"avocado toast": {Calories: fp(290), ProteinG: fp(8), CarbsG: fp(28), FatG: fp(17)},
		},
	}
	store := &fakeMealStore{}
	p := newTestPipeline(c, &fakeCatalog{}, store)

	result, err := p.Run(context.Background(), uuid.New(), "I ate half a banana bread and a full avocado toast for breakfast", nil, models.MealStatusLogged)
	if err != nil {
		t.Fatal(err)
	}

	if result.Saved != 2 || len(store.saved) != 2 {
		t.Fatalf("saved = %d, want 2", result.Saved)
	}

	for _, meal := range store.saved {
		if meal.MealType != models.MealTypeBreakfast {
			t.Errorf("%s: meal type = %v, want breakfast", meal.Name, meal.MealType)
		}
		if meal.Status != models.MealStatusLogged {
			t.Errorf("%s: status = %v, want logged", meal.Name, meal.Status)
		}
		if meal.Provenance != models.ProvenanceEstimate {
			t.Errorf("%s: provenance = %v, want estimate", meal.Name, meal.Provenance)
		}
	}

	// Half portion of banana bread is about 0.5x the full-serving estimate.
	bb := store.saved[0]
	if bb.Name != "banana bread" {
		t.Fatal("extraction order was not preserved")
	}
	if *bb.Nutrition.Calories < 199 || *bb.Nutrition.Calories > 201 {
		t.Errorf("banana bread calories = %v, want ~200", *bb.Nutrition.Calories)
	}
}

func TestPipeline_OnlyHighConfidencePopulatesFromCatalog(t *testing.T) {
	item := models.CatalogItem{
		ID:    uuid.New(),
		Brand: "Bakehouse",
		Name:  "Grilled Beef Skewer",
		Nutrition: models.NutritionVector{
			Calories: fp(310), ProteinG: fp(29), CarbsG: fp(4), FatG: fp(20),
		},
		Available: true,
	}

	tests := []struct {
		name           string
		confidence     models.ConfidenceTier
		wantProvenance models.Provenance
		wantDiscarded  int
	}{
		{"high applies", models.ConfidenceHigh, models.ProvenanceLibrary, 0},
		{"medium falls through", models.ConfidenceMedium, models.ProvenanceEstimate, 1},
		{"low falls through", models.ConfidenceLow, models.ProvenanceEstimate, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &fakeCompleter{
				foods: []models.ExtractedFood{{Name: "grilled beef", Portion: models.PortionFull}},
				matches: map[string]*models.MatchResult{
					"grilled beef": {Item: &item, Confidence: tc.confidence, Rationale: "name overlap"},
				},
				estimates: map[string]*models.NutritionVector{
					"grilled beef": {Calories: fp(250), ProteinG: fp(26), CarbsG: fp(0), FatG: fp(16)},
				},
			}
			store := &fakeMealStore{}
			p := newTestPipeline(c, &fakeCatalog{items: []models.CatalogItem{item}}, store)

			result, err := p.Run(context.Background(), uuid.New(), "ate grilled beef", nil, models.MealStatusLogged)
			if err != nil {
				t.Fatal(err)
			}
			if len(store.saved) != 1 {
				t.Fatal("expected one saved meal")
			}
			if store.saved[0].Provenance != tc.wantProvenance {
				t.Errorf("provenance = %v, want %v", store.saved[0].Provenance, tc.wantProvenance)
			}
			if len(result.Discarded) != tc.wantDiscarded {
				t.Errorf("discarded = %d, want %d", len(result.Discarded), tc.wantDiscarded)
			}
		})
	}
}

func TestPipeline_FallbackOnEmptyExtraction(t *testing.T) {
	c := &fakeCompleter{
		extractErr: errors.New("unparsable completion output"),
		fallback: []models.EstimatedFood{
			{
				ExtractedFood: models.ExtractedFood{Name: "leftover stew", Portion: models.PortionFull},
				Nutrition:     models.NutritionVector{Calories: fp(380.2), ProteinG: fp(22), CarbsG: fp(30), FatG: fp(18)},
			},
		},
	}
	store := &fakeMealStore{}
	p := newTestPipeline(c, &fakeCatalog{}, store)

	result, err := p.Run(context.Background(), uuid.New(), "some of yesterday's stew", nil, models.MealStatusLogged)
	if err != nil {
		t.Fatal(err)
	}
	if c.fallbackCalls != 1 {
		t.Errorf("fallback calls = %d, want 1", c.fallbackCalls)
	}
	if result.Saved != 1 {
		t.Fatalf("saved = %d, want 1", result.Saved)
	}
	// Fractional estimates are rounded up before persistence.
	if *store.saved[0].Nutrition.Calories != 381 {
		t.Errorf("calories = %v, want ceiling 381", *store.saved[0].Nutrition.Calories)
	}
}

func TestPipeline_FallbackFailureYieldsZeroMealsNoError(t *testing.T) {
	c := &fakeCompleter{fallbackErr: errors.New("timeout")}
	store := &fakeMealStore{}
	p := newTestPipeline(c, &fakeCatalog{}, store)

	result, err := p.Run(context.Background(), uuid.New(), "gibberish", nil, models.MealStatusLogged)
	if err != nil {
		t.Fatalf("soft failure must not surface as error, got %v", err)
	}
	if result.Saved != 0 || len(store.saved) != 0 {
		t.Error("expected zero meals")
	}
}

func TestPipeline_PartialPersistenceFailureIsIsolated(t *testing.T) {
	c := &fakeCompleter{
		foods: []models.ExtractedFood{
			{Name: "oatmeal", Portion: models.PortionFull},
			{Name: "orange juice", Portion: models.PortionFull},
			{Name: "boiled egg", Portion: models.PortionFull},
		},
		estimates: map[string]*models.NutritionVector{},
	}
	store := &fakeMealStore{failFor: map[string]bool{"orange juice": true}}
	p := newTestPipeline(c, &fakeCatalog{}, store)

	result, err := p.Run(context.Background(), uuid.New(), "oatmeal, orange juice, boiled egg", nil, models.MealStatusLogged)
	if err != nil {
		t.Fatal(err)
	}
	if result.Attempted != 3 {
		t.Errorf("attempted = %d, want 3", result.Attempted)
	}
	if result.Saved != 2 {
		t.Errorf("saved = %d, want 2 (siblings of a failed item are kept)", result.Saved)
	}
}

func TestPipeline_EstimateFailureLeavesFieldsUnset(t *testing.T) {
	c := &fakeCompleter{
		foods:       []models.ExtractedFood{{Name: "mystery dish", Portion: models.PortionFull}},
		estimateErr: errors.New("unavailable"),
	}
	store := &fakeMealStore{}
	p := newTestPipeline(c, &fakeCatalog{}, store)

	if _, err := p.Run(context.Background(), uuid.New(), "ate a mystery dish", nil, models.MealStatusLogged); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 1 {
		t.Fatal("meal should still be saved without nutrition")
	}
	n := store.saved[0].Nutrition
	if n.Calories != nil || n.ProteinG != nil || n.CarbsG != nil || n.FatG != nil {
		t.Error("unknown nutrition must stay unset, never zero")
	}
}

func TestPipeline_MatchOrderRestoredAfterParallelMatching(t *testing.T) {
	items := []models.CatalogItem{
		{ID: uuid.New(), Name: "Catalog A", Nutrition: models.NutritionVector{Calories: fp(100)}, Available: true},
		{ID: uuid.New(), Name: "Catalog B", Nutrition: models.NutritionVector{Calories: fp(200)}, Available: true},
	}
	c := &fakeCompleter{
		foods: []models.ExtractedFood{
			{Name: "first", Portion: models.PortionFull},
			{Name: "second", Portion: models.PortionFull},
		},
		matches: map[string]*models.MatchResult{
			"first":  {Item: &items[0], Confidence: models.ConfidenceHigh},
			"second": {Item: &items[1], Confidence: models.ConfidenceHigh},
		},
	}
	store := &fakeMealStore{}
	p := newTestPipeline(c, &fakeCatalog{items: items}, store)

	if _, err := p.Run(context.Background(), uuid.New(), "first and second", nil, models.MealStatusLogged); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 2 {
		t.Fatal("expected two meals")
	}
	if store.saved[0].Name != "Catalog A" || store.saved[1].Name != "Catalog B" {
		t.Errorf("order not preserved: got %q, %q", store.saved[0].Name, store.saved[1].Name)
	}
}

func TestDefaultMealType(t *testing.T) {
	tests := []struct {
		hour     int
		expected models.MealType
	}{
		{7, models.MealTypeBreakfast},
		{10, models.MealTypeBreakfast},
		{12, models.MealTypeLunch},
		{15, models.MealTypeLunch},
		{19, models.MealTypeDinner},
		{21, models.MealTypeDinner},
		{23, models.MealTypeSnack},
		{2, models.MealTypeSnack},
		{16, models.MealTypeSnack},
	}

	for _, tc := range tests {
		at := time.Date(2026, 3, 14, tc.hour, 0, 0, 0, time.Local)
		if got := DefaultMealType(at); got != tc.expected {
			t.Errorf("hour %d: got %v, want %v", tc.hour, got, tc.expected)
		}
	}
}
