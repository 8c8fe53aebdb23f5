package normalize

import (
	"encoding/json"

	"github.com/mfadeev/grantmatch/internal/model"
)

// Generic normalizes any JSON opportunity-like object by probing common
// field names. It backs the OTHER agency tag and any tag without a
// dedicated function.
func Generic(payload []byte) (*model.Opportunity, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, malformedf("generic record: %v", err)
	}

	opp := &model.Opportunity{
		ID:          stringField(m, "id", "identifier", "opportunityNumber", "number", "guid"),
		Title:       stringField(m, "title", "opportunityTitle", "name"),
		Synopsis:    StripHTML(stringField(m, "synopsis", "summary", "description", "abstract")),
		Eligibility: StripHTML(stringField(m, "eligibility", "eligibilityDesc")),
	}
	if ceiling, ok := floatField(m, "awardCeiling", "award_ceiling", "ceiling", "awardMax", "award_max"); ok {
		opp.AwardCeiling = &ceiling
	}
	if deadline, ok := dateField(m, "deadline", "closeDate", "close_date", "dueDate", "due_date"); ok {
		opp.Deadline = &deadline
	}
	return opp, nil
}
