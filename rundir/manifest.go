package rundir

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// QCCheck is the content of QCCheckMarker.
type QCCheck struct {
	CheckedMetrics []string `json:"checked_metrics"`
	// OverallPassFail is nil while the verdict is undetermined.
	OverallPassFail *string `json:"overall_pass_fail"`
}

// ManifestEntry describes one completed run in runs.json.
type ManifestEntry struct {
	RunID           string        `json:"run_id"`
	SequencerType   SequencerType `json:"sequencer_type"`
	CheckedMetrics  []string      `json:"checked_metrics"`
	OverallPassFail *string       `json:"overall_pass_fail"`
}

// ReadQCCheck reads QCCheckMarker from a QC output directory. A missing
// marker yields an empty metric list and an undetermined verdict.
func ReadQCCheck(ctx context.Context, outputDir string) (check QCCheck, err error) {
	check.CheckedMetrics = []string{}
	path := filepath.Join(outputDir, QCCheckMarker)
	ok, err := exists(ctx, path)
	if err != nil || !ok {
		return check, err
	}
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return check, errors.E(err, "read", path)
	}
	if err := json.Unmarshal(data, &check); err != nil {
		return QCCheck{CheckedMetrics: []string{}}, errors.E(err, "decode", path)
	}
	if check.CheckedMetrics == nil {
		check.CheckedMetrics = []string{}
	}
	return check, nil
}

// ListCompleted lists every non-excluded run under root whose current QC
// output is complete, whether or not it has already been collected.
func ListCompleted(ctx context.Context, root string, excl Excluder) ([]ManifestEntry, error) {
	log.Printf("find_runs_start analysis_by_run_dir=%s", root)
	entries, err := listDir(ctx, root)
	if err != nil {
		return nil, err
	}
	runs := []ManifestEntry{}
	for _, e := range entries {
		runID := filepath.Base(e.path)
		seq := Classify(runID)
		if !e.isDir || seq == Unknown || excl.Excluded(runID) {
			continue
		}
		outputDir, ok, err := completedOutputDir(ctx, e.path)
		if err != nil {
			log.Error.Printf("check_run_complete_failed analysis_directory_path=%s: %v", e.path, err)
			continue
		}
		if !ok {
			continue
		}
		check, err := ReadQCCheck(ctx, outputDir)
		if err != nil {
			log.Error.Printf("read_qc_check_failed sequencing_run_id=%s: %v", runID, err)
		}
		runs = append(runs, ManifestEntry{
			RunID:           runID,
			SequencerType:   seq,
			CheckedMetrics:  check.CheckedMetrics,
			OverallPassFail: check.OverallPassFail,
		})
	}
	log.Printf("find_runs_complete num_runs=%d", len(runs))
	return runs, nil
}
