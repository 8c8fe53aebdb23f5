package model

// SectionKind names one segment of a proposal outline
type SectionKind string

const (
	SectionOverview     SectionKind = "OVERVIEW"
	SectionSignificance SectionKind = "SIGNIFICANCE"
	SectionApproach     SectionKind = "APPROACH"
	SectionTimeline     SectionKind = "TIMELINE"
	SectionBudgetNote   SectionKind = "BUDGET_NOTE"
)

// SectionOrder is the fixed generation order; a draft document always holds
// exactly one section per entry, in this order.
var SectionOrder = []SectionKind{
	SectionOverview,
	SectionSignificance,
	SectionApproach,
	SectionTimeline,
	SectionBudgetNote,
}

// SectionStatus marks whether a section was generated or failed
type SectionStatus string

const (
	SectionOK     SectionStatus = "OK"
	SectionFailed SectionStatus = "FAILED"
)

// DraftSection is one independently generated outline segment
type DraftSection struct {
	Kind   SectionKind   `json:"section"`
	Text   string        `json:"text"` // empty on failure
	Status SectionStatus `json:"status"`
}

// DraftDocument is a proposal outline for one opportunity. Partial documents
// (some sections FAILED) are valid and returned rather than discarded so a
// caller can regenerate individual sections.
type DraftDocument struct {
	Opportunity *Opportunity   `json:"opportunity"`
	Sections    []DraftSection `json:"sections"`
}

// NewDraftDocument allocates a document with every section slot present,
// initialized FAILED so an aborted run still serializes completely
func NewDraftDocument(opp *Opportunity) *DraftDocument {
	sections := make([]DraftSection, len(SectionOrder))
	for i, kind := range SectionOrder {
		sections[i] = DraftSection{Kind: kind, Status: SectionFailed}
	}
	return &DraftDocument{Opportunity: opp, Sections: sections}
}

// Section returns the slot for the given kind, nil if the kind is unknown
func (d *DraftDocument) Section(kind SectionKind) *DraftSection {
	for i := range d.Sections {
		if d.Sections[i].Kind == kind {
			return &d.Sections[i]
		}
	}
	return nil
}

// Completed reports how many sections generated successfully
func (d *DraftDocument) Completed() int {
	n := 0
	for _, s := range d.Sections {
		if s.Status == SectionOK {
			n++
		}
	}
	return n
}
