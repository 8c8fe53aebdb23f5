package model

import "time"

// Agency identifies the funding source an opportunity record came from
type Agency string

const (
	AgencyNSF       Agency = "NSF"        // National Science Foundation feeds
	AgencyDOE       Agency = "DOE"        // Department of Energy funding announcements
	AgencyGrantsGov Agency = "GRANTS_GOV" // Grants.gov search records
	AgencyOther     Agency = "OTHER"      // Anything else, normalized best-effort
)

// ParseAgency maps a raw tag onto a known agency, defaulting to OTHER
func ParseAgency(s string) Agency {
	switch Agency(s) {
	case AgencyNSF, AgencyDOE, AgencyGrantsGov:
		return Agency(s)
	default:
		return AgencyOther
	}
}

// Opportunity is one funding opportunity in canonical form. Optional fields
// are pointers so "not stated" stays distinct from zero and never produces
// false eligibility matches downstream.
type Opportunity struct {
	Agency       Agency     `json:"agency"`
	ID           string     `json:"id"` // unique within the agency
	Title        string     `json:"title"`
	Synopsis     string     `json:"synopsis,omitempty"`
	Eligibility  string     `json:"eligibility,omitempty"`
	AwardCeiling *float64   `json:"award_ceiling,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Raw          []byte     `json:"-"` // original payload, retained for audit only
}

// Key returns the globally unique identity of an opportunity
func (o *Opportunity) Key() string {
	return string(o.Agency) + "/" + o.ID
}
