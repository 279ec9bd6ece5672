package abundance

import (
	"context"
	"encoding/json"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// jsonRecord is the species-abundance output layout. A record without
// entries carries only the library and project ids.
type jsonRecord struct {
	LibraryID string   `json:"library_id"`
	ProjectID string   `json:"project_id"`
	Name1     *string  `json:"abundance_1_name,omitempty"`
	Fraction1 *float64 `json:"abundance_1_fraction_total_reads,omitempty"`
	Name2     *string  `json:"abundance_2_name,omitempty"`
	Fraction2 *float64 `json:"abundance_2_fraction_total_reads,omitempty"`
	Name3     *string  `json:"abundance_3_name,omitempty"`
	Fraction3 *float64 `json:"abundance_3_fraction_total_reads,omitempty"`
	Name4     *string  `json:"abundance_4_name,omitempty"`
	Fraction4 *float64 `json:"abundance_4_fraction_total_reads,omitempty"`
	Name5     *string  `json:"abundance_5_name,omitempty"`
	Fraction5 *float64 `json:"abundance_5_fraction_total_reads,omitempty"`
}

func (j *jsonRecord) fields() [Ranks]struct {
	name     **string
	fraction **float64
} {
	return [Ranks]struct {
		name     **string
		fraction **float64
	}{
		{&j.Name1, &j.Fraction1},
		{&j.Name2, &j.Fraction2},
		{&j.Name3, &j.Fraction3},
		{&j.Name4, &j.Fraction4},
		{&j.Name5, &j.Fraction5},
	}
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	j := jsonRecord{LibraryID: r.LibraryID, ProjectID: r.ProjectID}
	if len(r.Entries) > 0 {
		for i, f := range j.fields() {
			e := r.Entries[i]
			name := e.Name
			*f.name = &name
			*f.fraction = e.Fraction
		}
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(b []byte) error {
	var j jsonRecord
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*r = Record{LibraryID: j.LibraryID, ProjectID: j.ProjectID}
	hasEntries := false
	entries := make([]Entry, Ranks)
	for i, f := range j.fields() {
		if *f.name != nil {
			entries[i].Name = **f.name
			hasEntries = true
		}
		if *f.fraction != nil {
			entries[i].Fraction = *f.fraction
			hasEntries = true
		}
	}
	if hasEntries {
		r.Entries = entries
	}
	return nil
}

// Marshal encodes records as the species-abundance JSON document.
func Marshal(recs []*Record) ([]byte, error) {
	if recs == nil {
		recs = []*Record{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadJSON reads a species-abundance JSON document written by Marshal.
func ReadJSON(ctx context.Context, path string) ([]*Record, error) {
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(err, "read", path)
	}
	var recs []*Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errors.E(err, "decode", path)
	}
	return recs, nil
}
