// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package collect drives a collection scan: it discovers finished runs,
// builds their per-library QC summaries and copies their reports into the
// output tree. Every output file is written at most once; its existence is
// the durable record that the corresponding step is done.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/config"
	"github.com/phl-genomics/qccollect/library"
	"github.com/phl-genomics/qccollect/rundir"
	"github.com/pkg/errors"
)

// Source supplies the configuration snapshot for a scan and for each run
// within it. *config.Loader and config.Static implement it.
type Source interface {
	Reload(ctx context.Context) (*config.Snapshot, error)
}

// State is the progress of one run within a scan.
type State int

const (
	Discovered State = iota
	SampleSheetResolved
	AbundanceLoaded
	Enriched
	Persisted
	Skipped
	Aborted
)

var stateNames = [...]string{
	Discovered:          "discovered",
	SampleSheetResolved: "samplesheet_resolved",
	AbundanceLoaded:     "abundance_loaded",
	Enriched:            "enriched",
	Persisted:           "persisted",
	Skipped:             "skipped",
	Aborted:             "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ErrAborted is the cause of every error returned for a run whose
// collection was abandoned before any output was written.
var ErrAborted = errors.New("run collection aborted")

func abort(r *RunReport, err error) error {
	r.State = Aborted
	r.Err = errors.Wrapf(ErrAborted, "%s: %v", r.RunID, err)
	return r.Err
}

// RunReport describes what CollectRun did for one run.
type RunReport struct {
	RunID string
	State State
	// Written lists the output files created, in creation order.
	Written []string
	// Failures are the metric values that could not be parsed.
	Failures []library.ParseFailure
	Err      error
}

// ScanStats summarizes one scan.
type ScanStats struct {
	Discovered int
	Eligible   int
	Skipped    int
	Collected  int
	Aborted    int
	// Written counts output files created, runs.json excluded.
	Written int
}

// Collector runs scans against the configuration supplied by a Source.
type Collector struct {
	src Source
}

// New creates a collector.
func New(src Source) *Collector {
	return &Collector{src: src}
}

// Scan performs one full collection pass. Cancellation of ctx is honored
// only before the scan starts and between runs; a run that has started is
// always finished.
func (c *Collector) Scan(ctx context.Context) (stats ScanStats, err error) {
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	runCtx := context.WithoutCancel(ctx)
	snap, err := c.src.Reload(runCtx)
	if err != nil {
		return stats, err
	}
	start := time.Now()
	log.Printf("scan_start analysis_by_run_dir=%s output_dir=%s", snap.Config.AnalysisByRunDir, snap.Config.OutputDir)
	if err := EnsureOutputDirs(snap.Config.OutputDir); err != nil {
		return stats, err
	}
	if _, err := WriteManifest(runCtx, snap); err != nil {
		log.Error.Printf("write_runs_file_failed: %v", err)
	}
	candidates, err := rundir.Discover(runCtx, snap.Config.AnalysisByRunDir, snap.Catalog)
	if err != nil {
		return stats, err
	}
	stats.Discovered = len(candidates)
	for _, cand := range candidates {
		run, ok := cand.(rundir.Eligible)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Eligible++
		if ctx.Err() != nil {
			log.Printf("scan_interrupted next_sequencing_run_id=%s", run.Run.ID)
			break
		}
		if s, err := c.src.Reload(runCtx); err == nil {
			snap = s
		}
		report, err := CollectRun(runCtx, snap, run.Run)
		stats.Written += len(report.Written)
		if err != nil {
			stats.Aborted++
			log.Error.Printf("collect_outputs_aborted sequencing_run_id=%s: %v", run.Run.ID, err)
			continue
		}
		stats.Collected++
	}
	log.Printf("scan_complete duration=%v discovered=%d eligible=%d skipped=%d collected=%d aborted=%d written=%d",
		time.Since(start), stats.Discovered, stats.Eligible, stats.Skipped, stats.Collected, stats.Aborted, stats.Written)
	return stats, nil
}

// CollectOne collects a single run by id, regardless of whether it has
// been collected before. Runs that are not eligible are reported as
// errors naming the failed conditions.
func (c *Collector) CollectOne(ctx context.Context, runID string) (*RunReport, error) {
	snap, err := c.src.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if err := EnsureOutputDirs(snap.Config.OutputDir); err != nil {
		return nil, err
	}
	candidates, err := rundir.Discover(ctx, snap.Config.AnalysisByRunDir, snap.Catalog)
	if err != nil {
		return nil, err
	}
	for _, cand := range candidates {
		if cand.Name() != runID {
			continue
		}
		switch cand := cand.(type) {
		case rundir.Eligible:
			return CollectRun(ctx, snap, cand.Run)
		case rundir.Skipped:
			return &RunReport{RunID: runID, State: Skipped},
				errors.Errorf("run %s is not eligible: %v", runID, cand.Conditions)
		default:
			log.Panicf("unexpected candidate %T", cand)
		}
	}
	return nil, errors.Errorf("run %s not found in %s", runID, snap.Config.AnalysisByRunDir)
}
