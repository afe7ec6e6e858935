package intent

import (
	"regexp"
	"strings"

	"nutrichat-backend/internal/models"
)

// ParsedPreference is derived from a preference-shaped message before it
// becomes a persisted record.
type ParsedPreference struct {
	Type    models.PreferenceType
	Subject string
	Notes   string
}

var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`allergic to ([a-z0-9 ,'-]+)`),
	regexp.MustCompile(`allergy to ([a-z0-9 ,'-]+)`),
	regexp.MustCompile(`(?:don'?t like|hate|can'?t stand|dislike) ([a-z0-9 ,'-]+)`),
	regexp.MustCompile(`avoid(?:ing)? ([a-z0-9 ,'-]+)`),
	regexp.MustCompile(`add ([a-z0-9 ,'-]+?) (?:as|to)\b`),
}

var trailingNoise = regexp.MustCompile(`\s*(please|now|today|thanks|thank you)\.?$`)

// ParsePreference classifies a preference message into a type and pulls
// out the subject text. Returns nil when no subject can be recovered; the
// coordinator treats that as a soft failure (no action), never an error.
func ParsePreference(message string) *ParsedPreference {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return nil
	}

	p := &ParsedPreference{Type: classifyPreferenceType(msg)}

	// Diet labels are their own subject: "I'm vegetarian now".
	for _, diet := range []string{"vegetarian", "vegan", "pescatarian", "halal", "kosher"} {
		if strings.Contains(msg, diet) {
			p.Subject = diet
			return p
		}
	}

	for _, re := range subjectPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			p.Subject = cleanSubject(m[1])
			if p.Subject != "" {
				return p
			}
		}
	}

	return nil
}

func classifyPreferenceType(msg string) models.PreferenceType {
	switch {
	case strings.Contains(msg, "allergic") || strings.Contains(msg, "allergy"):
		return models.PreferenceAllergy
	case strings.Contains(msg, "vegetarian") || strings.Contains(msg, "vegan") ||
		strings.Contains(msg, "restriction") || strings.Contains(msg, "avoid"):
		return models.PreferenceRestriction
	case strings.Contains(msg, "goal") || strings.Contains(msg, "trying to"):
		return models.PreferenceGoal
	default:
		return models.PreferenceDislike
	}
}

func cleanSubject(s string) string {
	s = trailingNoise.ReplaceAllString(s, "")
	s = strings.Trim(s, " .,!")
	// "shellfish and peanuts" stays whole; a lone stopword does not.
	switch s {
	case "it", "that", "them", "this":
		return ""
	}
	return s
}
