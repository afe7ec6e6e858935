package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		hasImage bool
		expected Intent
	}{
		{"plain logging verb", "I ate a burrito", false, LogMeal},
		{"had verb", "had two eggs and toast", false, LogMeal},
		{"consumed verb", "consumed a protein shake", false, LogMeal},
		{"want verb", "I want a caesar salad", false, LogMeal},
		{"having verb", "having pizza tonight", false, LogMeal},
		{"image only", "", true, LogMeal},
		{"image with caption", "my lunch", true, LogMeal},
		{"add food", "add a banana", false, LogMeal},
		{"log food", "log oatmeal with berries", false, LogMeal},
		{"for plus meal time", "pancakes for breakfast", false, LogMeal},

		{"allergy beats logging verb", "I ate shellfish and now I know I'm allergic to shellfish", false, UpdatePreference},
		{"allergic", "I'm allergic to shellfish", false, UpdatePreference},
		{"vegetarian", "I'm vegetarian now", false, UpdatePreference},
		{"vegan", "going vegan", false, UpdatePreference},
		{"avoid", "trying to avoid gluten", false, UpdatePreference},
		{"dont like", "I don't like mushrooms", false, UpdatePreference},
		{"hate", "I hate cilantro", false, UpdatePreference},
		{"cant stand", "can't stand olives", false, UpdatePreference},
		{"add negative", "add beets as a negative", false, UpdatePreference},
		{"add dislike beats add-logging", "add mushrooms to my dislikes", false, UpdatePreference},

		{"plan dinner", "plan dinner", false, PlanMeal},
		{"plan my lunch", "can you plan my lunch", false, PlanMeal},
		{"plan without meal time is not planning", "plan something", false, None},

		{"ate my planned lunch", "I ate my planned lunch", false, MarkPlannedEaten},
		{"had my planned dinner", "had my planned dinner", false, MarkPlannedEaten},

		{"greeting", "hello there", false, None},
		{"question", "how much protein should I get?", false, None},
		{"empty", "", false, None},
		{"meal word alone", "breakfast", false, None},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.message, tc.hasImage)
			if got != tc.expected {
				t.Errorf("Classify(%q, %v) = %v, want %v", tc.message, tc.hasImage, got, tc.expected)
			}
		})
	}
}

func TestClassify_AllergyNeverLogsMeal(t *testing.T) {
	// Messages with explicit allergy phrasing must classify as a
	// preference update even when logging verbs are present.
	messages := []string{
		"I'm allergic to peanuts and I ate some by accident",
		"had a reaction, allergy to dairy confirmed",
		"log this: I'm allergic to soy",
		"add peanuts, I'm allergic",
	}

	for _, msg := range messages {
		if got := Classify(msg, false); got != UpdatePreference {
			t.Errorf("Classify(%q) = %v, want UpdatePreference", msg, got)
		}
	}
}

func TestClassify_RuleOrderIsStable(t *testing.T) {
	// The rule table encodes precedence; guard against reordering.
	expected := []Intent{LogMeal, PlanMeal, MarkPlannedEaten}
	var got []Intent
	for _, r := range rules {
		if r.label == UpdatePreference {
			continue
		}
		got = append(got, r.label)
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d non-preference rules, got %d", len(expected), len(got))
	}
	if rules[0].label != UpdatePreference {
		t.Fatal("preference rule must be evaluated first")
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("rule %d: got %v, want %v", i, got[i], expected[i])
		}
	}
}
