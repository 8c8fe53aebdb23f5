package score

import (
	"strings"

	"github.com/mfadeev/grantmatch/internal/model"
)

// EligibilityScreen flags opportunities whose eligibility text contains a
// phrase that rules out a career stage. The phrase table comes from config;
// an empty table falls back to the built-in defaults.
type EligibilityScreen struct {
	disqualifiers map[model.CareerStage][]string
}

// NewEligibilityScreen builds a screen from a per-stage phrase table
func NewEligibilityScreen(disqualifiers map[string][]string) *EligibilityScreen {
	if len(disqualifiers) == 0 {
		disqualifiers = model.DefaultDisqualifiers()
	}

	table := make(map[model.CareerStage][]string, len(disqualifiers))
	for stage, phrases := range disqualifiers {
		lowered := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				lowered = append(lowered, p)
			}
		}
		table[model.CareerStage(strings.ToLower(stage))] = lowered
	}

	return &EligibilityScreen{disqualifiers: table}
}

// Disqualified reports whether the opportunity's eligibility text names a
// phrase that excludes the given stage. Unspecified stages and empty
// eligibility text never disqualify.
func (e *EligibilityScreen) Disqualified(stage model.CareerStage, opp *model.Opportunity) bool {
	if stage == model.CareerUnspecified || opp.Eligibility == "" {
		return false
	}

	text := strings.ToLower(opp.Eligibility)
	for _, phrase := range e.disqualifiers[stage] {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
