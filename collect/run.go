// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package collect

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/abundance"
	"github.com/phl-genomics/qccollect/config"
	"github.com/phl-genomics/qccollect/library"
	"github.com/phl-genomics/qccollect/qcstats"
	"github.com/phl-genomics/qccollect/rundir"
	"github.com/phl-genomics/qccollect/samplesheet"
	"github.com/phl-genomics/qccollect/species"
)

// ReadIDs are the read directions with a FastQC report per library.
var ReadIDs = []string{"R1", "R2"}

// CollectRun collects one eligible run into the output tree of snap. All
// inputs are read before anything is written, so a run that aborts leaves
// no output behind. Outputs that already exist are left untouched.
func CollectRun(ctx context.Context, snap *config.Snapshot, run rundir.Run) (*RunReport, error) {
	log.Printf("collect_outputs_start sequencing_run_id=%s analysis_dir_path=%s", run.ID, run.AnalysisDir)
	r := &RunReport{RunID: run.ID, State: Discovered}
	out := snap.Config.OutputDir

	ssPath := filepath.Join(run.OutputDir, samplesheet.Path)
	libs, err := samplesheet.Resolve(ctx, ssPath, run.Sequencer, snap.Catalog)
	if err != nil {
		log.Error.Printf("find_parsed_samplesheet_failed sequencing_run_id=%s parsed_samplesheet_path=%s: %v", run.ID, ssPath, err)
		return r, abort(r, err)
	}
	r.State = SampleSheetResolved

	saDst := SpeciesAbundancePath(out, run.ID)
	saDone, err := exists(ctx, saDst)
	if err != nil {
		return r, abort(r, err)
	}
	var recs []*abundance.Record
	if saDone {
		if recs, err = abundance.ReadJSON(ctx, saDst); err != nil {
			return r, abort(r, err)
		}
	} else {
		var failures []library.ParseFailure
		recs, failures, err = abundance.Read(ctx, filepath.Join(run.OutputDir, abundance.Path), libs)
		if err != nil {
			return r, abort(r, err)
		}
		for _, f := range failures {
			log.Error.Printf("collect_species_abundance_metric_failed sequencing_run_id=%s %v", run.ID, f)
		}
		r.Failures = append(r.Failures, failures...)
	}
	r.State = AbundanceLoaded

	lqDst := LibraryQCPath(out, run.ID)
	lqDone, err := exists(ctx, lqDst)
	if err != nil {
		return r, abort(r, err)
	}
	if !lqDone {
		stats, failures, err := qcstats.Read(ctx, filepath.Join(run.OutputDir, qcstats.Path), libs)
		if err != nil {
			return r, abort(r, err)
		}
		for _, f := range failures {
			log.Error.Printf("collect_library_qc_metric_failed sequencing_run_id=%s %v", run.ID, f)
		}
		r.Failures = append(r.Failures, failures...)
		enrich(run.ID, libs, recs, stats, snap)
	}
	r.State = Enriched

	if !saDone {
		data, err := abundance.Marshal(recs)
		if err != nil {
			log.Panicf("encode species abundance for %s: %v", run.ID, err)
		}
		if err := r.write(ctx, saDst, data); err != nil {
			return r, err
		}
		log.Printf("write_species_abundance_complete run_id=%s dst_file=%s", run.ID, saDst)
	}
	if !lqDone {
		data, err := marshalJSON(libs.Libraries())
		if err != nil {
			log.Panicf("encode library qc for %s: %v", run.ID, err)
		}
		if err := r.write(ctx, lqDst, data); err != nil {
			return r, err
		}
		log.Printf("write_library_qc_complete run_id=%s dst_file=%s", run.ID, lqDst)
	}
	if err := r.copyReports(ctx, out, run, libs); err != nil {
		return r, err
	}
	r.State = Persisted
	log.Printf("collect_outputs_complete sequencing_run_id=%s analysis_dir_path=%s num_written=%d", run.ID, run.AnalysisDir, len(r.Written))
	return r, nil
}

// enrich merges basic QC stats and species inference into every library.
func enrich(runID string, libs *library.Set, recs []*abundance.Record, stats map[string]qcstats.Stats, snap *config.Snapshot) {
	byID := make(map[string]*abundance.Record, len(recs))
	for _, rec := range recs {
		byID[rec.LibraryID] = rec
	}
	for _, l := range libs.Libraries() {
		if s, ok := stats[l.ID]; ok {
			s.Apply(l)
		}
		if species.Enrich(l, byID[l.ID], snap.Catalog) {
			log.Debug.Printf("library_species_inferred sequencing_run_id=%s library_id=%s inferred_species=%q", runID, l.ID, l.InferredSpeciesName)
		} else {
			log.Debug.Printf("library_species_inference_failed sequencing_run_id=%s library_id=%s", runID, l.ID)
		}
	}
}

func marshalJSON(v interface{}) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (r *RunReport) write(ctx context.Context, dst string, data []byte) error {
	written, err := writeOnce(ctx, dst, data)
	if err != nil {
		r.Err = err
		return err
	}
	if written {
		r.Written = append(r.Written, dst)
	}
	return nil
}

// copyReports copies the per-library Bracken and FastQC reports and the
// run's MultiQC report. Missing sources are logged and skipped.
func (r *RunReport) copyReports(ctx context.Context, out string, run rundir.Run, libs *library.Set) error {
	type copyJob struct{ kind, src, dst string }
	var jobs []copyJob
	for _, id := range libs.IDs() {
		jobs = append(jobs, copyJob{"bracken",
			filepath.Join(run.OutputDir, "bracken", id+"_Species_bracken_abundances_adjusted.tsv"),
			BrackenPath(out, run.ID, id)})
	}
	for _, id := range libs.IDs() {
		for _, read := range ReadIDs {
			jobs = append(jobs, copyJob{"fastqc",
				filepath.Join(run.OutputDir, "fastqc", id+"_"+read+"_fastqc", "fastqc_report.html"),
				FastQCPath(out, run.ID, id, read)})
		}
	}
	jobs = append(jobs, copyJob{"multiqc",
		filepath.Join(run.OutputDir, "multiqc", "multiqc_report.html"),
		MultiQCPath(out, run.ID)})

	for _, j := range jobs {
		copied, err := copyOnce(ctx, j.kind, run.ID, j.src, j.dst)
		if err != nil {
			r.Err = err
			return err
		}
		if copied {
			r.Written = append(r.Written, j.dst)
		}
	}
	return nil
}
