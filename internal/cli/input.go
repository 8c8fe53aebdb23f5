package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mfadeev/grantmatch/internal/model"
	"github.com/mfadeev/grantmatch/internal/normalize"
)

// recordEntry is one element of the records input file. Payload is either a
// JSON object, passed through verbatim, or a string carrying raw XML.
type recordEntry struct {
	Agency  string          `json:"agency"`
	Payload json.RawMessage `json:"payload"`
}

// loadRecords reads raw opportunity records from a JSON array of
// {"agency": ..., "payload": ...} entries
func loadRecords(path string) ([]normalize.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	var entries []recordEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse records file %s: %w", path, err)
	}

	records := make([]normalize.RawRecord, 0, len(entries))
	for i, entry := range entries {
		payload := []byte(entry.Payload)
		var s string
		if json.Unmarshal(entry.Payload, &s) == nil {
			// String payloads carry raw feed XML.
			payload = []byte(s)
		}
		if len(payload) == 0 {
			return nil, fmt.Errorf("records file %s: entry %d has no payload", path, i)
		}
		records = append(records, normalize.RawRecord{
			Agency:  model.ParseAgency(entry.Agency),
			Payload: payload,
		})
	}
	return records, nil
}

// profileFile mirrors the YAML researcher profile input document
type profileFile struct {
	ID          string                 `yaml:"id"`
	CareerStage string                 `yaml:"career_stage"`
	Documents   []model.SourceDocument `yaml:"documents"`
}

// loadProfile reads the researcher profile input: identity, career stage and
// the source documents the topic vector is built from
func loadProfile(path string) (string, model.CareerStage, []model.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, fmt.Errorf("read profile file: %w", err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return "", "", nil, fmt.Errorf("parse profile file %s: %w", path, err)
	}
	if pf.ID == "" {
		return "", "", nil, fmt.Errorf("profile file %s: id is required", path)
	}

	return pf.ID, model.ParseCareerStage(pf.CareerStage), pf.Documents, nil
}
