// Package qcstats reads per-library base counts and quality from the
// pipeline's basic_qc_stats/basic_qc_stats.csv table.
package qcstats

import (
	"context"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/encoding/csvtable"
	"github.com/phl-genomics/qccollect/library"
)

// Path is the location of the stats table relative to a QC output directory.
const Path = "basic_qc_stats/basic_qc_stats.csv"

// Metric names, as they appear in the table and in parse failure reports.
const (
	TotalBasesMetric           = "total_bases"
	PercentBasesAboveQ30Metric = "percent_bases_above_q30"
)

// Stats holds the basic QC metrics of one library. A nil field was absent or
// did not parse.
type Stats struct {
	TotalBases           *int64
	PercentBasesAboveQ30 *float64
}

// Apply copies the metrics onto a library record.
func (s Stats) Apply(l *library.Library) {
	l.TotalBases = s.TotalBases
	l.PercentBasesAboveQ30 = s.PercentBasesAboveQ30
}

type row struct {
	SampleID             string `tsv:"sample_id"`
	TotalBases           string `tsv:"total_bases"`
	PercentBasesAboveQ30 string `tsv:"percent_bases_above_q30"`
}

// Read returns the stats of every library in libs that has a row in the
// table at path, keyed by library id. Values that do not parse are reported
// in failures and left nil. A missing table yields no stats and no error.
func Read(ctx context.Context, path string, libs *library.Set) (stats map[string]Stats, failures []library.ParseFailure, err error) {
	if _, err := file.Stat(ctx, path); err != nil {
		if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
			log.Printf("basic_qc_stats_source_missing src_file=%s", path)
			return nil, nil, nil
		}
		return nil, nil, errors.E(err, "stat", path)
	}
	stats = make(map[string]Stats)
	var rw row
	err = csvtable.ForEach(ctx, path, &rw, func() error {
		l, ok := libs.Lookup(rw.SampleID)
		if !ok {
			if best, d := library.Suggest(rw.SampleID, libs.IDs()); d >= 0 {
				log.Debug.Printf("basic_qc_stats_row_unmatched sample_id=%s closest_library_id=%s distance=%d", rw.SampleID, best, d)
			}
			return nil
		}
		var s Stats
		if v, err := csvtable.Int(rw.TotalBases); err != nil {
			failures = append(failures, library.ParseFailure{LibraryID: l.ID, Metric: TotalBasesMetric, Value: rw.TotalBases, Err: err})
		} else {
			s.TotalBases = &v
		}
		if v, err := csvtable.Float(rw.PercentBasesAboveQ30); err != nil {
			failures = append(failures, library.ParseFailure{LibraryID: l.ID, Metric: PercentBasesAboveQ30Metric, Value: rw.PercentBasesAboveQ30, Err: err})
		} else {
			s.PercentBasesAboveQ30 = &v
		}
		stats[l.ID] = s
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stats, failures, nil
}
