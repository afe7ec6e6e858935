package nutrition

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"nutrichat-backend/internal/models"
)

// Completer is the slice of the completion service the pipeline needs.
type Completer interface {
	ExtractFoods(ctx context.Context, message string, image *models.ImageAttachment) ([]models.ExtractedFood, error)
	MatchCatalogItem(ctx context.Context, foodName string, items []models.CatalogItem) (*models.MatchResult, error)
	EstimateNutrition(ctx context.Context, foodName string) (*models.NutritionVector, error)
	EstimateFromMessage(ctx context.Context, message string) ([]models.EstimatedFood, error)
}

type CatalogSource interface {
	ListAvailable(ctx context.Context) ([]models.CatalogItem, error)
}

type MealStore interface {
	Create(ctx context.Context, meal *models.Meal) error
}

// Config collapses the historical image-aware and portion-aware pipeline
// variants into one parameterized pipeline.
type Config struct {
	SupportsImage             bool
	SupportsPortionAdjustment bool
}

type Pipeline struct {
	completer Completer
	catalog   CatalogSource
	meals     MealStore
	cfg       Config

	// injectable clock for meal-type defaulting
	now func() time.Time
}

// Result reports what one message produced. Saved may be lower than
// Attempted: per-item persistence failures are isolated and already-saved
// siblings are kept.
type Result struct {
	Meals     []*models.Meal
	Attempted int
	Saved     int
	Discarded []models.MatchResult
}

func NewPipeline(completer Completer, catalog CatalogSource, meals MealStore, cfg Config) *Pipeline {
	return &Pipeline{
		completer: completer,
		catalog:   catalog,
		meals:     meals,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run turns a user message (plus optional image) into zero or more
// persisted meals. Every sub-step soft-fails: a completion or parse
// failure degrades that step to an empty result and the rest continues.
func (p *Pipeline) Run(ctx context.Context, userID uuid.UUID, message string, image *models.ImageAttachment, status models.MealStatus) (*Result, error) {
	if !p.cfg.SupportsImage {
		image = nil
	}

	foods, err := p.completer.ExtractFoods(ctx, message, image)
	if err != nil {
		log.Printf("pipeline: extraction failed, using full-message fallback: %v", err)
		foods = nil
	}

	if len(foods) == 0 {
		return p.runFallback(ctx, userID, message, status)
	}

	resolved := p.matchAll(ctx, foods)

	result := &Result{Attempted: len(foods)}
	now := p.now()

	for i, food := range foods {
		meal := p.buildMeal(userID, food, status, now)

		match := resolved[i]
		if match != nil && match.Confidence == models.ConfidenceHigh && match.Item != nil {
			meal.Name = match.Item.Name
			meal.Nutrition = match.Item.Nutrition
			meal.Provenance = models.ProvenanceLibrary
		} else {
			if match != nil && match.Item != nil {
				// Below-threshold matches are recorded, never applied.
				result.Discarded = append(result.Discarded, *match)
			}
			est, err := p.completer.EstimateNutrition(ctx, food.Name)
			if err != nil {
				log.Printf("pipeline: estimate failed for %q: %v", food.Name, err)
			} else if est != nil {
				meal.Nutrition = CeilVector(*est)
				for _, a := range SanityCheck(food.Name, meal.Nutrition) {
					log.Printf("pipeline: estimate anomaly: %s", a)
				}
			}
			meal.Provenance = models.ProvenanceEstimate
		}

		if p.cfg.SupportsPortionAdjustment {
			meal.Nutrition = ScalePortion(meal.Nutrition, meal.Portion)
		}

		p.save(ctx, meal, result)
	}

	return result, nil
}

// runFallback asks the completion service to extract and estimate in a
// single call when structured extraction yielded nothing.
func (p *Pipeline) runFallback(ctx context.Context, userID uuid.UUID, message string, status models.MealStatus) (*Result, error) {
	estimates, err := p.completer.EstimateFromMessage(ctx, message)
	if err != nil {
		log.Printf("pipeline: full-message fallback failed: %v", err)
		return &Result{}, nil
	}

	result := &Result{Attempted: len(estimates)}
	now := p.now()

	for _, est := range estimates {
		meal := p.buildMeal(userID, est.ExtractedFood, status, now)
		meal.Nutrition = CeilVector(est.Nutrition)
		meal.Provenance = models.ProvenanceEstimate
		for _, a := range SanityCheck(est.Name, meal.Nutrition) {
			log.Printf("pipeline: estimate anomaly: %s", a)
		}
		if p.cfg.SupportsPortionAdjustment {
			meal.Nutrition = ScalePortion(meal.Nutrition, meal.Portion)
		}
		p.save(ctx, meal, result)
	}

	return result, nil
}

// matchAll runs catalog matching for every food concurrently. Matches
// have no ordering dependency between them, but results are written back
// by index so downstream consumers see original extraction order.
func (p *Pipeline) matchAll(ctx context.Context, foods []models.ExtractedFood) []*models.MatchResult {
	resolved := make([]*models.MatchResult, len(foods))

	items, err := p.catalog.ListAvailable(ctx)
	if err != nil || len(items) == 0 {
		if err != nil {
			log.Printf("pipeline: catalog unavailable, skipping matching: %v", err)
		}
		return resolved
	}

	var wg sync.WaitGroup
	for i, food := range foods {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			match, err := p.completer.MatchCatalogItem(ctx, name, items)
			if err != nil {
				log.Printf("pipeline: match failed for %q: %v", name, err)
				return
			}
			resolved[i] = match
		}(i, food.Name)
	}
	wg.Wait()

	return resolved
}

func (p *Pipeline) buildMeal(userID uuid.UUID, food models.ExtractedFood, status models.MealStatus, now time.Time) *models.Meal {
	mealType := food.MealType
	if mealType == models.MealTypeUnset {
		mealType = DefaultMealType(now)
	}

	portion := food.Portion
	if portion == "" {
		portion = models.PortionFull
	}

	return &models.Meal{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     food.Name,
		MealType: mealType,
		Date:     time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Portion:  portion,
		Status:   status,
	}
}

func (p *Pipeline) save(ctx context.Context, meal *models.Meal, result *Result) {
	if err := p.meals.Create(ctx, meal); err != nil {
		log.Printf("pipeline: failed to save meal %q: %v", meal.Name, err)
		return
	}
	result.Meals = append(result.Meals, meal)
	result.Saved++
}

// DefaultMealType buckets the current local time-of-day. Used only when
// the message carried no explicit meal-time cue; food identity never
// influences meal type.
//
// The 16:00 hour sits between lunch and dinner on purpose: food logged
// then is an afternoon snack, not a late lunch.
func DefaultMealType(t time.Time) models.MealType {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return models.MealTypeBreakfast
	case h >= 11 && h < 16:
		return models.MealTypeLunch
	case h >= 17 && h < 22:
		return models.MealTypeDinner
	default:
		return models.MealTypeSnack
	}
}
