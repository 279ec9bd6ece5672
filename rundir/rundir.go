// Package rundir finds sequencing-run analysis directories whose routine
// sequence QC pipeline has finished.
//
// An analysis root holds one directory per run, named by the run id. Each
// run directory holds one or more versioned QC output directories
// (routine-sequence-qc-v*-output); the lexicographically greatest one is the
// current output. A run is complete when its current output contains
// pipeline_complete.json.
package rundir

import (
	"encoding/json"
	"regexp"
)

const (
	// OutputDirPattern matches versioned QC output directory names.
	OutputDirPattern = "routine-sequence-qc-v*-output"
	// CompletionMarker is written by the QC pipeline when it finishes.
	CompletionMarker = "pipeline_complete.json"
	// QCCheckMarker optionally records the run's QC pass/fail verdict.
	QCCheckMarker = "qc_check_complete.json"
)

// SequencerType identifies the instrument family a run was produced on.
type SequencerType int

const (
	// Unknown is the type of ids matching no sequencer naming convention.
	Unknown SequencerType = iota
	MiSeq
	NextSeq
)

var (
	miseqRunID   = regexp.MustCompile(`^\d{6}_M\d{5}_\d+_\d{9}-[A-Z0-9]{5}`)
	nextseqRunID = regexp.MustCompile(`^\d{6}_VH\d{5}_\d+_[A-Z0-9]{9}`)
)

// Classify determines the sequencer type from a run id. MiSeq ids look like
// 230512_M01234_0123_000000000-ABCDE, NextSeq ids like
// 230512_VH00123_45_AAAAAAAAA. The two patterns are disjoint.
func Classify(runID string) SequencerType {
	switch {
	case miseqRunID.MatchString(runID):
		return MiSeq
	case nextseqRunID.MatchString(runID):
		return NextSeq
	}
	return Unknown
}

// String returns "miseq", "nextseq", or "" for Unknown.
func (s SequencerType) String() string {
	switch s {
	case MiSeq:
		return "miseq"
	case NextSeq:
		return "nextseq"
	}
	return ""
}

// MarshalJSON encodes the type as its name, or null for Unknown.
func (s SequencerType) MarshalJSON() ([]byte, error) {
	if s == Unknown {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *SequencerType) UnmarshalJSON(b []byte) error {
	var name *string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*s = Unknown
	if name != nil {
		switch *name {
		case "miseq":
			*s = MiSeq
		case "nextseq":
			*s = NextSeq
		}
	}
	return nil
}

// Run is a run whose QC output is ready to collect.
type Run struct {
	ID        string
	Sequencer SequencerType
	// AnalysisDir is the run's directory under the analysis root.
	AnalysisDir string
	// OutputDir is the current versioned QC output directory.
	OutputDir string
}
