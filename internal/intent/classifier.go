package intent

import (
	"regexp"
	"strings"

	"nutrichat-backend/internal/models"
)

// Intent is the inferred category of user purpose for one chat message.
type Intent string

const (
	LogMeal          Intent = "log_meal"
	PlanMeal         Intent = "plan_meal"
	UpdatePreference Intent = "update_preference"
	MarkPlannedEaten Intent = "mark_planned_eaten"
	None             Intent = "none"
)

// rule pairs a predicate with the intent it yields. Rules are evaluated
// in order; the first match wins. Order matters: preference cues must run
// before logging verbs ("add shellfish to my dislikes" contains "add"),
// and the logging rule carves out the planned-eaten phrasing ("ate my
// planned lunch" contains "ate") so the last rule stays reachable.
type rule struct {
	name  string
	match func(msg string, hasImage bool) bool
	label Intent
}

var mealTimeWords = []string{"breakfast", "lunch", "dinner", "snack"}

var loggingVerbs = []string{"ate", "had", "consumed", "want", "having", "eating"}

var preferenceCues = []string{
	"allergic", "allergy", "vegetarian", "vegan", "avoid", "restriction",
	"dislike", "don't like", "dont like", "hate", "can't stand", "cant stand",
}

var plannedEatenRe = regexp.MustCompile(`\b(ate|had)\b.{0,20}\bplanned\b`)

var rules = []rule{
	{
		name: "preference_update",
		match: func(msg string, _ bool) bool {
			for _, cue := range preferenceCues {
				if strings.Contains(msg, cue) {
					return true
				}
			}
			// "add ... negative" phrasing from quick-entry UIs
			return strings.Contains(msg, "add") && strings.Contains(msg, "negative")
		},
		label: UpdatePreference,
	},
	{
		name: "log_meal",
		match: func(msg string, hasImage bool) bool {
			if plannedEatenRe.MatchString(msg) {
				return false
			}
			if hasImage {
				return true
			}
			for _, v := range loggingVerbs {
				if containsWord(msg, v) {
					return true
				}
			}
			if containsWord(msg, "add") || containsWord(msg, "log") {
				return true
			}
			return containsWord(msg, "for") && containsMealTime(msg)
		},
		label: LogMeal,
	},
	{
		name: "plan_meal",
		match: func(msg string, _ bool) bool {
			// "plan" as a substring also covers "planning", but "ate my
			// planned lunch" belongs to the rule below
			if plannedEatenRe.MatchString(msg) {
				return false
			}
			return strings.Contains(msg, "plan") && containsMealTime(msg)
		},
		label: PlanMeal,
	},
	{
		name: "mark_planned_eaten",
		match: func(msg string, _ bool) bool {
			return plannedEatenRe.MatchString(msg)
		},
		label: MarkPlannedEaten,
	},
}

// Classify maps a raw user message to an intent. No match is None, which
// is a valid outcome, not an error.
func Classify(message string, hasImage bool) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" && !hasImage {
		return None
	}

	for _, r := range rules {
		if r.match(msg, hasImage) {
			return r.label
		}
	}
	return None
}

// MealTimeCue returns the meal type explicitly named in the message, or
// unset. This is the only place meal type may come from; food identity
// never implies one.
func MealTimeCue(message string) models.MealType {
	msg := strings.ToLower(message)
	for _, w := range mealTimeWords {
		if strings.Contains(msg, w) {
			return models.MealType(w)
		}
	}
	return models.MealTypeUnset
}

func containsMealTime(msg string) bool {
	for _, w := range mealTimeWords {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

var wordBoundary = map[string]*regexp.Regexp{}

func init() {
	words := append([]string{"add", "log", "for"}, loggingVerbs...)
	for _, w := range words {
		wordBoundary[w] = regexp.MustCompile(`\b` + w + `\b`)
	}
}

func containsWord(msg, word string) bool {
	re, ok := wordBoundary[word]
	if !ok {
		return strings.Contains(msg, word)
	}
	return re.MatchString(msg)
}
