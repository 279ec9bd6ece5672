// Package samplesheet resolves the libraries of a run from the sample sheet
// parsed by the QC pipeline (parse_sample_sheet/sample_sheet.json).
package samplesheet

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/grailbio/base/file"
	"github.com/phl-genomics/qccollect/library"
	"github.com/phl-genomics/qccollect/rundir"
	"github.com/pkg/errors"
)

// Path is the location of the parsed sample sheet relative to a QC output
// directory.
const Path = "parse_sample_sheet/sample_sheet.json"

// ErrUnknownSequencer is returned for runs whose sequencer type has no
// sample list key.
var ErrUnknownSequencer = errors.New("unrecognized sequencer type")

// Entry is one sample of a parsed sample sheet. Only the fields used to
// identify the library and its project are decoded.
type Entry struct {
	SampleID      *string `json:"sample_id"`
	SampleName    *string `json:"sample_name"`
	ProjectName   *string `json:"project_name"`
	SampleProject *string `json:"sample_project"`
}

type document struct {
	Data      []Entry `json:"data"`
	CloudData []Entry `json:"cloud_data"`
}

// ProjectResolver maps a samplesheet project id to its translated id, or ""
// when there is none.
type ProjectResolver interface {
	ResolveProjectID(samplesheetProjectID string) string
}

// placeholderSampleID matches the S<n> ids some instruments assign when the
// sample sheet leaves Sample_ID to be generated.
var placeholderSampleID = regexp.MustCompile(`^S\d{1,4}$`)

// LibraryID derives the normalized library id of an entry. Placeholder
// sample ids are replaced by the sample name when one is given.
func LibraryID(e Entry) string {
	var id string
	if e.SampleID != nil {
		id = *e.SampleID
	}
	if placeholderSampleID.MatchString(id) && e.SampleName != nil && *e.SampleName != "" {
		id = *e.SampleName
	}
	return library.NormalizeID(id)
}

// projectID returns the samplesheet project id of an entry, preferring
// project_name over sample_project.
func projectID(e Entry) string {
	switch {
	case e.ProjectName != nil:
		return *e.ProjectName
	case e.SampleProject != nil:
		return *e.SampleProject
	}
	return ""
}

// Resolve reads the parsed sample sheet at path and returns the run's
// libraries in sample-sheet order. MiSeq sheets list samples under "data",
// NextSeq sheets under "cloud_data".
func Resolve(ctx context.Context, path string, seq rundir.SequencerType, projects ProjectResolver) (*library.Set, error) {
	if seq != rundir.MiSeq && seq != rundir.NextSeq {
		return nil, errors.Wrapf(ErrUnknownSequencer, "%s: sequencer type %d", path, seq)
	}
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read sample sheet", path)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "%s: malformed sample sheet", path)
	}
	entries := doc.Data
	if seq == rundir.NextSeq {
		entries = doc.CloudData
	}
	libs := library.NewSet()
	for _, e := range entries {
		ssProjectID := projectID(e)
		libs.Add(library.New(LibraryID(e), ssProjectID, projects.ResolveProjectID(ssProjectID)))
	}
	return libs, nil
}
