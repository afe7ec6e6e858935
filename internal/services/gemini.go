package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"nutrichat-backend/internal/models"
	"nutrichat-backend/internal/nutrition"
)

// GeminiService is the single completion-service handle for the process.
// It is constructed once at bootstrap and injected everywhere; there is
// no package-level lazy client.
type GeminiService struct {
	client       *genai.Client
	chatModel    *genai.GenerativeModel
	extractModel *genai.GenerativeModel
	timeout      time.Duration
	rateChan     chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs, timeoutSecs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	chatModel := client.GenerativeModel("gemini-3-flash-preview")
	chatModel.SetTemperature(0.6)
	chatModel.SetTopP(0.95)

	// Structured extraction, matching and estimation want determinism.
	extractModel := client.GenerativeModel("gemini-3-flash-preview")
	extractModel.SetTemperature(0.1)
	extractModel.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:       client,
		chatModel:    chatModel,
		extractModel: extractModel,
		timeout:      time.Duration(timeoutSecs) * time.Second,
		rateChan:     rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

const chatSystemPrompt = `You are a friendly nutrition assistant. The user logs meals, plans meals, and manages dietary preferences by chatting with you. Reply conversationally and briefly. Acknowledge what they told you; do not invent nutrition numbers in your reply, the app computes those separately.`

// StreamChat streams the assistant reply token-by-token, invoking onDelta
// for each chunk as it arrives, and returns the accumulated text. The
// stream is not subject to the per-call timeout; only ctx bounds it.
func (s *GeminiService) StreamChat(ctx context.Context, history []*models.ChatMessage, message string, image *models.ImageAttachment, onDelta func(string)) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := s.chatModel.StartChat()
	cs.History = []*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text(chatSystemPrompt)}},
		{Role: "model", Parts: []genai.Part{genai.Text("Understood.")}},
	}
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	parts := []genai.Part{genai.Text(message)}
	if image != nil {
		parts = append(parts, genai.ImageData(imageFormat(image.MimeType), image.Data))
	}

	iter := cs.SendMessageStream(ctx, parts...)

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			// Deltas already forwarded stand; report what we have.
			return full.String(), fmt.Errorf("Gemini stream error: %w", err)
		}
		chunk := extractText(resp)
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		onDelta(chunk)
	}

	return full.String(), nil
}

const extractPrompt = `Extract the foods from this message. Return ONLY a valid JSON array. No preamble, no markdown, no backticks.

JSON schema per food:
{"name": "string", "meal_type": "breakfast"|"lunch"|"dinner"|"snack"|null, "portion": "string"}

Rules:
- meal_type must be null unless the message EXPLICITLY names the meal ("for breakfast", "at lunch"). NEVER infer it from the food itself.
- portion is the user's own words for how much they had ("half", "a quarter", "double"); use "full" when unstated.
- If an image is attached, identify the foods visible in it.
- If no foods are present, return [].

Message: %q`

// ExtractFoods issues one structured-extraction call. Unparsable or empty
// output degrades to an empty list; callers fall back to full-message
// estimation.
func (s *GeminiService) ExtractFoods(ctx context.Context, message string, image *models.ImageAttachment) ([]models.ExtractedFood, error) {
	raw, err := s.generate(ctx, fmt.Sprintf(extractPrompt, message), image)
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Name     string  `json:"name"`
		MealType *string `json:"meal_type"`
		Portion  string  `json:"portion"`
	}
	if !unmarshalArray(raw, &parsed) {
		log.Printf("gemini: unparsable extraction output, treating as empty")
		return nil, nil
	}

	lowerMsg := strings.ToLower(message)
	foods := make([]models.ExtractedFood, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		food := models.ExtractedFood{
			Name:    strings.TrimSpace(p.Name),
			Portion: nutrition.NormalizePortion(p.Portion),
		}
		// The model is told not to infer meal type, but enforce the
		// invariant anyway: accept it only when the word is actually
		// in the message.
		if p.MealType != nil && strings.Contains(lowerMsg, *p.MealType) {
			food.MealType = models.MealType(*p.MealType)
		}
		foods = append(foods, food)
	}
	return foods, nil
}

const matchPrompt = `You match a food name against a curated catalog. Return ONLY a valid JSON object. No preamble, no markdown, no backticks.

JSON schema:
{"index": int|null, "confidence": "high"|"medium"|"low", "rationale": "string"}

Rules:
- "index" is the zero-based position of the single best catalog item, or null when nothing fits.
- Be precise, not generous: superficially similar but distinct foods must NOT match. "grilled beef" is not a beef-flavored pastry. When in doubt, lower the confidence or return null.
- "high" means a user would agree it is the same food.

Food: %q

Catalog:
%s`

// MatchCatalogItem asks for the single best catalog index plus a
// confidence tier. A null index comes back as a nil result.
func (s *GeminiService) MatchCatalogItem(ctx context.Context, foodName string, items []models.CatalogItem) (*models.MatchResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s %s — %s (%s)\n", i, it.Brand, it.Name, it.Description, it.Category)
	}

	raw, err := s.generate(ctx, fmt.Sprintf(matchPrompt, foodName, b.String()), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Index      *int   `json:"index"`
		Confidence string `json:"confidence"`
		Rationale  string `json:"rationale"`
	}
	if !unmarshalObject(raw, &parsed) {
		log.Printf("gemini: unparsable match output for %q, treating as no match", foodName)
		return nil, nil
	}
	if parsed.Index == nil || *parsed.Index < 0 || *parsed.Index >= len(items) {
		return nil, nil
	}

	tier := models.ConfidenceTier(parsed.Confidence)
	switch tier {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		tier = models.ConfidenceLow
	}

	item := items[*parsed.Index]
	return &models.MatchResult{Item: &item, Confidence: tier, Rationale: parsed.Rationale}, nil
}

const estimatePrompt = `Estimate the nutrition of one typical full serving of %q. Return ONLY a valid JSON object. No preamble, no markdown, no backticks.

JSON schema:
{"calories": number, "protein_g": number, "carbs_g": number, "fat_g": number}

calories, protein_g, carbs_g and fat_g are independent measurements. Do NOT compute protein_g by adding the other fields.`

// EstimateNutrition returns a full-serving estimate for one named food.
func (s *GeminiService) EstimateNutrition(ctx context.Context, foodName string) (*models.NutritionVector, error) {
	raw, err := s.generate(ctx, fmt.Sprintf(estimatePrompt, foodName), nil)
	if err != nil {
		return nil, err
	}

	var v models.NutritionVector
	if !unmarshalObject(raw, &v) {
		log.Printf("gemini: unparsable estimate for %q, leaving nutrition unset", foodName)
		return nil, nil
	}
	return &v, nil
}

const fullMessagePrompt = `Extract the foods from this message AND estimate the nutrition of one typical full serving of each. Return ONLY a valid JSON array. No preamble, no markdown, no backticks.

JSON schema per food:
{"name": "string", "meal_type": "breakfast"|"lunch"|"dinner"|"snack"|null, "portion": "string", "nutrition": {"calories": number, "protein_g": number, "carbs_g": number, "fat_g": number}}

meal_type must be null unless the message explicitly names the meal. The nutrition fields are independent; never derive one from the others. If no foods are present, return [].

Message: %q`

// EstimateFromMessage is the full-message fallback: extraction and
// estimation in a single call, used when structured extraction yielded
// nothing.
func (s *GeminiService) EstimateFromMessage(ctx context.Context, message string) ([]models.EstimatedFood, error) {
	raw, err := s.generate(ctx, fmt.Sprintf(fullMessagePrompt, message), nil)
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Name      string                 `json:"name"`
		MealType  *string                `json:"meal_type"`
		Portion   string                 `json:"portion"`
		Nutrition models.NutritionVector `json:"nutrition"`
	}
	if !unmarshalArray(raw, &parsed) {
		log.Printf("gemini: unparsable full-message output, treating as empty")
		return nil, nil
	}

	lowerMsg := strings.ToLower(message)
	foods := make([]models.EstimatedFood, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		food := models.EstimatedFood{
			ExtractedFood: models.ExtractedFood{
				Name:    strings.TrimSpace(p.Name),
				Portion: nutrition.NormalizePortion(p.Portion),
			},
			Nutrition: p.Nutrition,
		}
		if p.MealType != nil && strings.Contains(lowerMsg, *p.MealType) {
			food.MealType = models.MealType(*p.MealType)
		}
		foods = append(foods, food)
	}
	return foods, nil
}

// generate runs one bounded, rate-limited completion on the
// deterministic model.
func (s *GeminiService) generate(ctx context.Context, prompt string, image *models.ImageAttachment) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parts := []genai.Part{genai.Text(prompt)}
	if image != nil {
		parts = append(parts, genai.ImageData(imageFormat(image.MimeType), image.Data))
	}

	resp, err := s.extractModel.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return extractText(resp), nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// unmarshalArray defensively parses a JSON array, falling back to the
// outermost bracketed slice of the text. Returns false when nothing
// parses; callers treat that as empty, never as an error.
func unmarshalArray(raw string, v interface{}) bool {
	raw = stripFences(raw)
	if json.Unmarshal([]byte(raw), v) == nil {
		return true
	}
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(raw[start:end+1]), v) == nil
	}
	return false
}

func unmarshalObject(raw string, v interface{}) bool {
	raw = stripFences(raw)
	if json.Unmarshal([]byte(raw), v) == nil {
		return true
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return json.Unmarshal([]byte(raw[start:end+1]), v) == nil
	}
	return false
}

func imageFormat(mimeType string) string {
	if f, ok := strings.CutPrefix(mimeType, "image/"); ok {
		return f
	}
	return "jpeg"
}
