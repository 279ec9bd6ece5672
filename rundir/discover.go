package rundir

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Excluder reports runs that must never be collected.
type Excluder interface {
	Excluded(runID string) bool
}

// Candidate is the discovery outcome for one entry of the analysis root:
// either Eligible or Skipped.
type Candidate interface {
	// Name is the directory entry name, i.e. the run id.
	Name() string
}

// Eligible is a run that is ready to collect.
type Eligible struct {
	Run Run
}

// Skipped is a directory entry that is not collected in this scan, with the
// conditions that were evaluated.
type Skipped struct {
	Path       string
	Conditions Conditions
}

// Name implements Candidate.
func (e Eligible) Name() string { return e.Run.ID }

// Name implements Candidate.
func (s Skipped) Name() string { return filepath.Base(s.Path) }

// Conditions are the checks that make a directory eligible.
type Conditions struct {
	IsDirectory        bool `json:"is_directory"`
	MatchesRunIDFormat bool `json:"matches_illumina_run_id_format"`
	NotExcluded        bool `json:"not_excluded"`
	ReadyToCollect     bool `json:"ready_to_collect"`
}

// Met reports whether every condition holds.
func (c Conditions) Met() bool {
	return c.IsDirectory && c.MatchesRunIDFormat && c.NotExcluded && c.ReadyToCollect
}

func (c Conditions) String() string {
	return fmt.Sprintf("is_directory=%v matches_illumina_run_id_format=%v not_excluded=%v ready_to_collect=%v",
		c.IsDirectory, c.MatchesRunIDFormat, c.NotExcluded, c.ReadyToCollect)
}

type entry struct {
	path  string
	isDir bool
}

// listDir returns the immediate children of dir sorted by name. A missing
// dir is an error, not an empty listing.
func listDir(ctx context.Context, dir string) ([]entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, err, "list", dir)
		}
		return nil, errors.E(err, "list", dir)
	}
	if !info.IsDir() {
		return nil, errors.E(errors.Invalid, "list", dir, "not a directory")
	}
	var entries []entry
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		entries = append(entries, entry{path: lister.Path(), isDir: lister.IsDir()})
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E(err, "list", dir)
	}
	sort.Slice(entries, func(i, j int) bool {
		return filepath.Base(entries[i].path) < filepath.Base(entries[j].path)
	})
	return entries, nil
}

// exists reports whether a file exists at path.
func exists(ctx context.Context, path string) (bool, error) {
	_, err := file.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// LatestOutputDir returns the lexicographically greatest child of
// analysisDir matching OutputDirPattern. ok is false when there is none.
func LatestOutputDir(ctx context.Context, analysisDir string) (dir string, ok bool, err error) {
	entries, err := listDir(ctx, analysisDir)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if !e.isDir {
			continue
		}
		if matched, _ := path.Match(OutputDirPattern, filepath.Base(e.path)); matched {
			// Entries are sorted, so the last match is the greatest.
			dir, ok = e.path, true
		}
	}
	return dir, ok, nil
}

// completedOutputDir returns the current output directory of a run if it
// carries the completion marker.
func completedOutputDir(ctx context.Context, analysisDir string) (string, bool, error) {
	dir, ok, err := LatestOutputDir(ctx, analysisDir)
	if err != nil || !ok {
		return "", false, err
	}
	done, err := exists(ctx, filepath.Join(dir, CompletionMarker))
	if err != nil || !done {
		return "", false, err
	}
	return dir, true, nil
}

// Discover examines every entry of root in name order and returns one
// Candidate per entry.
func Discover(ctx context.Context, root string, excl Excluder) ([]Candidate, error) {
	entries, err := listDir(ctx, root)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		runID := filepath.Base(e.path)
		seq := Classify(runID)
		cond := Conditions{
			IsDirectory:        e.isDir,
			MatchesRunIDFormat: seq != Unknown,
			NotExcluded:        !excl.Excluded(runID),
		}
		var outputDir string
		if e.isDir {
			var ready bool
			outputDir, ready, err = completedOutputDir(ctx, e.path)
			if err != nil {
				log.Error.Printf("check_run_complete_failed analysis_directory_path=%s: %v", e.path, err)
			}
			cond.ReadyToCollect = ready
		}
		if !cond.Met() {
			log.Debug.Printf("directory_skipped analysis_directory_path=%s %v", e.path, cond)
			candidates = append(candidates, Skipped{Path: e.path, Conditions: cond})
			continue
		}
		log.Printf("analysis_directory_found sequencing_run_id=%s analysis_directory_path=%s", runID, e.path)
		candidates = append(candidates, Eligible{Run: Run{
			ID:          runID,
			Sequencer:   seq,
			AnalysisDir: e.path,
			OutputDir:   outputDir,
		}})
	}
	return candidates, nil
}
