package model

import (
	"fmt"
	"sort"
	"strings"
)

// CareerStage positions a researcher for eligibility screening
type CareerStage string

const (
	CareerFaculty     CareerStage = "faculty"
	CareerPostdoc     CareerStage = "postdoc"
	CareerStudent     CareerStage = "student"
	CareerUnspecified CareerStage = "unspecified"
)

// ParseCareerStage maps a raw string onto a known stage
func ParseCareerStage(s string) CareerStage {
	stage := CareerStage(strings.ToLower(strings.TrimSpace(s)))
	switch stage {
	case CareerFaculty, CareerPostdoc, CareerStudent:
		return stage
	default:
		return CareerUnspecified
	}
}

// SourceDocument is one publication or proposal contributed to a profile
type SourceDocument struct {
	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract" yaml:"abstract"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"` // 0 when unknown
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// ResearcherProfile is the fit query for one matching session. Built once by
// the profile builder and never mutated afterwards.
type ResearcherProfile struct {
	ID          string           `json:"id"`
	CareerStage CareerStage      `json:"career_stage"`
	Documents   []SourceDocument `json:"documents,omitempty"`

	// TopicVector is the equal-weight mean of per-document embeddings.
	// Zero-valued for a profile built from zero documents.
	TopicVector []float64 `json:"-"`

	// Keywords is the union of document keywords, lower-cased and
	// deduplicated, in first-occurrence order.
	Keywords []string `json:"keywords,omitempty"`

	// KeywordWeights carries recency-weighted emphasis per keyword,
	// normalized so the strongest keyword is 1.0. Used for prompt seeding,
	// never for similarity math.
	KeywordWeights map[string]float64 `json:"-"`
}

// Summary renders the compact profile description seeded into judge and
// draft prompts: career stage, strongest keywords, most recent work.
func (p *ResearcherProfile) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Career stage: %s\n", p.CareerStage)

	if kws := p.topKeywords(12); len(kws) > 0 {
		fmt.Fprintf(&b, "Research keywords: %s\n", strings.Join(kws, ", "))
	}

	recent := p.recentDocuments(3)
	if len(recent) > 0 {
		b.WriteString("Recent work:\n")
		for _, doc := range recent {
			if doc.Year > 0 {
				fmt.Fprintf(&b, "- %s (%d)\n", doc.Title, doc.Year)
			} else {
				fmt.Fprintf(&b, "- %s\n", doc.Title)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// topKeywords returns up to n keywords ordered by recency weight, falling
// back to alphabetical order when no weights exist
func (p *ResearcherProfile) topKeywords(n int) []string {
	kws := make([]string, len(p.Keywords))
	copy(kws, p.Keywords)

	if len(p.KeywordWeights) > 0 {
		sort.SliceStable(kws, func(i, j int) bool {
			wi, wj := p.KeywordWeights[kws[i]], p.KeywordWeights[kws[j]]
			if wi != wj {
				return wi > wj
			}
			return kws[i] < kws[j]
		})
	}

	if len(kws) > n {
		kws = kws[:n]
	}
	return kws
}

// recentDocuments returns up to n documents, most recent year first
func (p *ResearcherProfile) recentDocuments(n int) []SourceDocument {
	docs := make([]SourceDocument, len(p.Documents))
	copy(docs, p.Documents)

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Year > docs[j].Year
	})

	if len(docs) > n {
		docs = docs[:n]
	}
	return docs
}
