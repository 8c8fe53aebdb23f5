package normalize

import (
	"errors"
	"fmt"

	"github.com/mfadeev/grantmatch/internal/model"
)

// Func converts one raw payload into a canonical opportunity. The registry
// stamps the agency tag and raw payload after the call, so implementations
// only fill content fields.
type Func func(payload []byte) (*model.Opportunity, error)

// RawRecord is one opportunity payload plus its source tag, supplied by the
// collaborator that queried the agency
type RawRecord struct {
	Agency  model.Agency
	Payload []byte
}

// Skip describes one record dropped during batch normalization
type Skip struct {
	Index  int
	Agency model.Agency
	Err    error
}

// MalformedRecordError reports a payload that cannot become an Opportunity:
// unparseable, or missing identifier/title
type MalformedRecordError struct {
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return "malformed record: " + e.Reason
}

// IsMalformed reports whether err is a per-record normalization failure,
// which callers skip and log rather than abort on
func IsMalformed(err error) bool {
	var m *MalformedRecordError
	return errors.As(err, &m)
}

func malformedf(format string, args ...any) error {
	return &MalformedRecordError{Reason: fmt.Sprintf(format, args...)}
}

// Registry dispatches payloads to per-agency normalization functions.
// Supporting a new source is one Register call.
type Registry struct {
	funcs map[model.Agency]Func
}

// NewRegistry builds the default dispatch table
func NewRegistry() *Registry {
	return &Registry{funcs: map[model.Agency]Func{
		model.AgencyNSF:       NSF,
		model.AgencyDOE:       DOE,
		model.AgencyGrantsGov: GrantsGov,
		model.AgencyOther:     Generic,
	}}
}

// Register installs or replaces the function for an agency
func (r *Registry) Register(agency model.Agency, fn Func) {
	r.funcs[agency] = fn
}

// Normalize converts one record into canonical form. Unknown agency tags
// fall back to the generic function.
func (r *Registry) Normalize(rec RawRecord) (*model.Opportunity, error) {
	fn, ok := r.funcs[rec.Agency]
	if !ok {
		fn = Generic
	}

	opp, err := fn(rec.Payload)
	if err != nil {
		return nil, err
	}

	// Required fields are enforced here once, for every source.
	if opp.ID == "" {
		return nil, malformedf("%s record has no identifier", rec.Agency)
	}
	if opp.Title == "" {
		return nil, malformedf("%s record %q has no title", rec.Agency, opp.ID)
	}

	opp.Agency = rec.Agency
	opp.Raw = append([]byte(nil), rec.Payload...)
	return opp, nil
}

// Batch normalizes records in order. Malformed entries are collected as
// skips, never aborting the batch. Duplicate (agency, identifier) keys
// collapse to one record: the last payload seen wins, keeping the position
// of the first occurrence.
func (r *Registry) Batch(records []RawRecord) ([]*model.Opportunity, []Skip) {
	var (
		out     []*model.Opportunity
		skipped []Skip
		seen    = make(map[string]int)
	)

	for i, rec := range records {
		opp, err := r.Normalize(rec)
		if err != nil {
			skipped = append(skipped, Skip{Index: i, Agency: rec.Agency, Err: err})
			continue
		}
		if pos, ok := seen[opp.Key()]; ok {
			out[pos] = opp
			continue
		}
		seen[opp.Key()] = len(out)
		out = append(out, opp)
	}

	return out, skipped
}
