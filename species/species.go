// Package species infers the dominant organism of a library from its ranked
// abundance record and derives the metrics that depend on it.
package species

import (
	"github.com/phl-genomics/qccollect/abundance"
	"github.com/phl-genomics/qccollect/catalog"
	"github.com/phl-genomics/qccollect/library"
)

// Human is the host species. It is never inferred.
const Human = "Homo sapiens"

// Infer returns the best-guess species for a library. A fixed-genome
// project always yields its configured species. Otherwise the ranked
// entries are scanned from the last rank to the first and an entry replaces
// the running best only when its fraction is strictly greater, starting
// from a threshold of zero. Human, unnamed and unparsed entries are skipped.
// ok is false when nothing qualifies.
func Infer(rec *abundance.Record, project *catalog.Project) (name string, ok bool) {
	if project != nil && project.FixedGenomeSize {
		return project.SpeciesName, project.SpeciesName != ""
	}
	if rec == nil {
		return "", false
	}
	best := 0.0
	for i := len(rec.Entries) - 1; i >= 0; i-- {
		e := rec.Entries[i]
		if e.Name == "" || e.Name == Human || e.Fraction == nil {
			continue
		}
		if *e.Fraction > best {
			name, best, ok = e.Name, *e.Fraction, true
		}
	}
	return name, ok
}

// PercentOf returns the percentage of reads assigned to name in rec.
func PercentOf(rec *abundance.Record, name string) (float64, bool) {
	f, ok := rec.Fraction(name)
	if !ok {
		return 0, false
	}
	return f * 100, true
}

// EstimateDepth returns the expected sequencing depth over the genome,
// total*(percent/100)/(genomeSizeMb*1e6). ok is false if any input is
// missing or zero.
func EstimateDepth(totalBases *int64, genomeSizeMb, percent *float64) (depth float64, ok bool) {
	if totalBases == nil || genomeSizeMb == nil || percent == nil {
		return 0, false
	}
	if *totalBases == 0 || *genomeSizeMb == 0 || *percent == 0 {
		return 0, false
	}
	return float64(*totalBases) * (*percent / 100) / (*genomeSizeMb * 1e6), true
}

// genomeSize finds the genome size for an inferred species: the catalog
// entry by name, then by the project's taxid when the project names the
// same species, then the project's own genome size for fixed-genome
// projects.
func genomeSize(name string, project *catalog.Project, cat *catalog.Catalog) *float64 {
	if s, ok := cat.Species(name); ok && s.GenomeSizeMb != nil {
		return s.GenomeSizeMb
	}
	if project == nil {
		return nil
	}
	if project.SpeciesTaxID != "" && project.SpeciesName == name {
		if s, ok := cat.Species(project.SpeciesTaxID); ok && s.GenomeSizeMb != nil {
			return s.GenomeSizeMb
		}
	}
	if project.FixedGenomeSize {
		return project.GenomeSizeMb
	}
	return nil
}

// Enrich sets the inferred species fields and the estimated depth on l.
// Basic QC stats must already be applied to l. It returns false and leaves
// the species fields unset when no species can be inferred.
func Enrich(l *library.Library, rec *abundance.Record, cat *catalog.Catalog) bool {
	project, _ := cat.Project(l.ProjectID)
	name, ok := Infer(rec, project)
	if !ok {
		return false
	}
	l.InferredSpeciesName = name
	if pct, ok := PercentOf(rec, name); ok {
		l.InferredSpeciesPercent = &pct
	}
	if gs := genomeSize(name, project, cat); gs != nil {
		v := *gs
		l.InferredSpeciesGenomeSizeMb = &v
	}
	if d, ok := EstimateDepth(l.TotalBases, l.InferredSpeciesGenomeSizeMb, l.InferredSpeciesPercent); ok {
		l.InferredSpeciesEstimatedDepth = &d
	}
	return true
}
