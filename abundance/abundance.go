// Package abundance reads the per-library table of the five most abundant
// species (abundance_top_n/top_5_abundances_species.csv) and reads and
// writes the species-abundance JSON summary built from it.
package abundance

import (
	"context"
	"os"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/encoding/csvtable"
	"github.com/phl-genomics/qccollect/library"
)

// Path is the location of the top-5 table relative to a QC output directory.
const Path = "abundance_top_n/top_5_abundances_species.csv"

// Ranks is the number of ranked species per library.
const Ranks = 5

// Entry is one ranked species. Fraction is nil when the table value could
// not be parsed.
type Entry struct {
	Name     string
	Fraction *float64
}

// Record holds the ranked species of one library. Entries is either empty
// (no data for the library) or has exactly Ranks elements, Entries[i] being
// rank i+1.
type Record struct {
	LibraryID string
	ProjectID string
	Entries   []Entry
}

// Fraction returns the read fraction recorded for a species name. When the
// name appears at several ranks, the highest rank number wins. ok is false
// if the name is absent or its fraction is unknown.
func (r *Record) Fraction(name string) (fraction float64, ok bool) {
	if r == nil {
		return 0, false
	}
	for _, e := range r.Entries {
		if e.Name != name {
			continue
		}
		if e.Fraction == nil {
			fraction, ok = 0, false
			continue
		}
		fraction, ok = *e.Fraction, true
	}
	return fraction, ok
}

// Empty returns one record without entries for every library.
func Empty(libs *library.Set) []*Record {
	recs := make([]*Record, 0, libs.Len())
	for _, l := range libs.Libraries() {
		recs = append(recs, &Record{LibraryID: l.ID, ProjectID: l.ProjectID})
	}
	return recs
}

type row struct {
	SampleID  string `tsv:"sample_id"`
	Name1     string `tsv:"abundance_1_name"`
	Fraction1 string `tsv:"abundance_1_fraction_total_reads"`
	Name2     string `tsv:"abundance_2_name"`
	Fraction2 string `tsv:"abundance_2_fraction_total_reads"`
	Name3     string `tsv:"abundance_3_name"`
	Fraction3 string `tsv:"abundance_3_fraction_total_reads"`
	Name4     string `tsv:"abundance_4_name"`
	Fraction4 string `tsv:"abundance_4_fraction_total_reads"`
	Name5     string `tsv:"abundance_5_name"`
	Fraction5 string `tsv:"abundance_5_fraction_total_reads"`
}

func (r *row) ranked() [Ranks][2]string {
	return [Ranks][2]string{
		{r.Name1, r.Fraction1},
		{r.Name2, r.Fraction2},
		{r.Name3, r.Fraction3},
		{r.Name4, r.Fraction4},
		{r.Name5, r.Fraction5},
	}
}

// FractionMetric names the fraction column of a rank, as used in parse
// failure reports.
func FractionMetric(rank int) string {
	return "abundance_" + strconv.Itoa(rank) + "_fraction_total_reads"
}

// Read builds one record per library from the top-5 table at path, in
// library order. Rows for unknown libraries are ignored. A fraction that
// does not parse is reported in failures and left nil. If path does not
// exist, every record is empty.
func Read(ctx context.Context, path string, libs *library.Set) (recs []*Record, failures []library.ParseFailure, err error) {
	recs = Empty(libs)
	if _, err := file.Stat(ctx, path); err != nil {
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			log.Printf("species_abundance_source_missing src_file=%s", path)
			return recs, nil, nil
		}
		return nil, nil, errors.E(err, "stat", path)
	}
	byID := make(map[string]*Record, len(recs))
	for _, r := range recs {
		byID[r.LibraryID] = r
	}
	var rw row
	err = csvtable.ForEach(ctx, path, &rw, func() error {
		l, ok := libs.Lookup(rw.SampleID)
		if !ok {
			if best, d := library.Suggest(rw.SampleID, libs.IDs()); d >= 0 {
				log.Debug.Printf("species_abundance_row_unmatched sample_id=%s closest_library_id=%s distance=%d", rw.SampleID, best, d)
			}
			return nil
		}
		rec := byID[l.ID]
		rec.Entries = make([]Entry, Ranks)
		for i, cell := range rw.ranked() {
			rec.Entries[i].Name = cell[0]
			f, err := csvtable.Float(cell[1])
			if err != nil {
				failures = append(failures, library.ParseFailure{
					LibraryID: l.ID,
					Metric:    FractionMetric(i + 1),
					Value:     cell[1],
					Err:       err,
				})
				continue
			}
			rec.Entries[i].Fraction = &f
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return recs, failures, nil
}
