// Package library defines the per-library QC record. A Library is created
// from a run's sample sheet, enriched with basic QC stats and species
// inference, and written once as part of the run's library-qc summary.
package library

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// Library is one sample within a run. Field order is the key order of the
// library-qc JSON output. Optional fields are nil (or "") when unknown and
// are then omitted from the output.
type Library struct {
	ID                            string   `json:"library_id"`
	SamplesheetProjectID          string   `json:"samplesheet_project_id"`
	TranslatedProjectID           string   `json:"translated_project_id,omitempty"`
	ProjectID                     string   `json:"project_id"`
	InferredSpeciesName           string   `json:"inferred_species_name,omitempty"`
	InferredSpeciesPercent        *float64 `json:"inferred_species_percent,omitempty"`
	InferredSpeciesGenomeSizeMb   *float64 `json:"inferred_species_genome_size_mb,omitempty"`
	InferredSpeciesEstimatedDepth *float64 `json:"inferred_species_estimated_depth,omitempty"`
	TotalBases                    *int64   `json:"total_bases,omitempty"`
	PercentBasesAboveQ30          *float64 `json:"percent_bases_above_q30,omitempty"`
}

var idReplacer = strings.NewReplacer("_", "-", ".", "-")

// NormalizeID rewrites a sample-sheet identifier into library id form by
// replacing '_' and '.' with '-'.
func NormalizeID(id string) string {
	return idReplacer.Replace(id)
}

// New creates a library record. The project id is the translated id when
// one is configured and the samplesheet id otherwise.
func New(id, samplesheetProjectID, translatedProjectID string) *Library {
	l := &Library{
		ID:                   id,
		SamplesheetProjectID: samplesheetProjectID,
	}
	l.ResolveProject(translatedProjectID)
	return l
}

// ResolveProject sets the translated project id and rederives ProjectID.
func (l *Library) ResolveProject(translatedProjectID string) {
	l.TranslatedProjectID = translatedProjectID
	if translatedProjectID != "" {
		l.ProjectID = translatedProjectID
	} else {
		l.ProjectID = l.SamplesheetProjectID
	}
}

// ParseFailure records a metric that could not be parsed for a library.
// The metric is left unset on the record.
type ParseFailure struct {
	LibraryID string
	Metric    string
	Value     string
	Err       error
}

func (f ParseFailure) String() string {
	return fmt.Sprintf("library=%s metric=%s value=%q: %v", f.LibraryID, f.Metric, f.Value, f.Err)
}

// Suggest returns the known id closest to id by edit distance, for
// diagnosing identifiers that almost match. It returns "", -1 when known is
// empty.
func Suggest(id string, known []string) (best string, distance int) {
	distance = -1
	for _, k := range known {
		d := matchr.Levenshtein(id, k)
		if distance < 0 || d < distance {
			best, distance = k, d
		}
	}
	return best, distance
}
