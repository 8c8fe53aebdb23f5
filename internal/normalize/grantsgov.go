package normalize

import (
	"encoding/json"

	"github.com/mfadeev/grantmatch/internal/model"
)

// GrantsGov normalizes one record from the grants.gov search API
func GrantsGov(payload []byte) (*model.Opportunity, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, malformedf("grants.gov record: %v", err)
	}

	opp := &model.Opportunity{
		ID:          stringField(m, "opportunityNumber", "number", "id"),
		Title:       stringField(m, "title", "opportunityTitle"),
		Synopsis:    StripHTML(stringField(m, "synopsis", "description")),
		Eligibility: StripHTML(stringField(m, "eligibility", "eligibilityDesc", "applicantEligibilityDesc")),
	}
	if ceiling, ok := floatField(m, "awardCeiling", "award_ceiling"); ok {
		opp.AwardCeiling = &ceiling
	}
	if deadline, ok := dateField(m, "closeDate", "close_date", "responseDate"); ok {
		opp.Deadline = &deadline
	}
	return opp, nil
}
