// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package collect

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/config"
	"github.com/phl-genomics/qccollect/rundir"
)

// Output subdirectories.
const (
	MultiQCDir          = "multiqc"
	FastQCDir           = "fastqc"
	LibraryQCDir        = "library-qc"
	SpeciesAbundanceDir = "species-abundance"
	BrackenDir          = "bracken-species-abundances"
)

// OutputDirs lists every output subdirectory. DeleteRun clears each of them.
var OutputDirs = []string{MultiQCDir, FastQCDir, LibraryQCDir, SpeciesAbundanceDir, BrackenDir}

// ManifestFile is the name of the completed-runs manifest in the output root.
const ManifestFile = "runs.json"

// SpeciesAbundancePath returns the species-abundance summary of a run.
func SpeciesAbundancePath(out, runID string) string {
	return filepath.Join(out, SpeciesAbundanceDir, runID+"_species_abundance.json")
}

// LibraryQCPath returns the library-qc summary of a run.
func LibraryQCPath(out, runID string) string {
	return filepath.Join(out, LibraryQCDir, runID+"_library_qc.json")
}

// BrackenPath returns the copied Bracken report of a library.
func BrackenPath(out, runID, libraryID string) string {
	return filepath.Join(out, BrackenDir, runID, libraryID+"_bracken_species_abundances.tsv")
}

// FastQCPath returns the copied FastQC report of one read of a library.
func FastQCPath(out, runID, libraryID, read string) string {
	return filepath.Join(out, FastQCDir, runID, libraryID+"_"+read+"_fastqc.html")
}

// MultiQCPath returns the copied MultiQC report of a run.
func MultiQCPath(out, runID string) string {
	return filepath.Join(out, MultiQCDir, runID+"_multiqc.html")
}

// EnsureOutputDirs creates the output root and its subdirectories.
func EnsureOutputDirs(out string) error {
	for _, d := range append([]string{""}, OutputDirs...) {
		if err := os.MkdirAll(filepath.Join(out, d), 0755); err != nil {
			return errors.E(err, "create output directory", filepath.Join(out, d))
		}
	}
	return nil
}

func exists(ctx context.Context, path string) (bool, error) {
	_, err := file.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.E(err, "stat", path)
}

// writeFile replaces dst with data. The file appears under its final name
// only once it is complete.
func writeFile(ctx context.Context, dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.E(err, "create directory", filepath.Dir(dst))
	}
	if err := file.WriteFile(ctx, dst, data); err != nil {
		return errors.E(err, "write", dst)
	}
	return nil
}

// writeOnce writes data to dst unless dst exists. written reports whether
// a file was created.
func writeOnce(ctx context.Context, dst string, data []byte) (written bool, err error) {
	done, err := exists(ctx, dst)
	if err != nil || done {
		return false, err
	}
	if err := writeFile(ctx, dst, data); err != nil {
		return false, err
	}
	return true, nil
}

// copyOnce copies src to dst unless dst exists. A missing src is logged as
// copy_<kind>_failed and is not an error.
func copyOnce(ctx context.Context, kind, runID, src, dst string) (copied bool, err error) {
	srcOK, err := exists(ctx, src)
	if err != nil {
		return false, err
	}
	if !srcOK {
		log.Printf("copy_%s_failed run_id=%s src_file=%s dst_file=%s: source missing", kind, runID, src, dst)
		return false, nil
	}
	if done, err := exists(ctx, dst); err != nil || done {
		return false, err
	}
	if err := copyFile(ctx, src, dst); err != nil {
		return false, err
	}
	log.Printf("copy_%s_complete run_id=%s src_file=%s dst_file=%s", kind, runID, src, dst)
	return true, nil
}

func copyFile(ctx context.Context, src, dst string) (err error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return errors.E(err, "open", src)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.E(err, "create directory", filepath.Dir(dst))
	}
	out, err := file.Create(ctx, dst)
	if err != nil {
		return errors.E(err, "create", dst)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if _, err = io.Copy(out.Writer(ctx), in.Reader(ctx)); err != nil {
		return errors.E(err, "copy", src, dst)
	}
	return nil
}

// WriteManifest lists every completed run and rewrites runs.json in the
// output root. It returns the manifest path.
func WriteManifest(ctx context.Context, snap *config.Snapshot) (string, error) {
	runs, err := rundir.ListCompleted(ctx, snap.Config.AnalysisByRunDir, snap.Catalog)
	if err != nil {
		return "", err
	}
	data, err := marshalJSON(runs)
	if err != nil {
		log.Panicf("encode manifest: %v", err)
	}
	dst := filepath.Join(snap.Config.OutputDir, ManifestFile)
	if err := writeFile(ctx, dst, data); err != nil {
		return "", err
	}
	log.Printf("write_runs_file_complete dst_file=%s num_runs=%d", dst, len(runs))
	return dst, nil
}

// DeleteRun removes every entry of the output subdirectories whose name
// starts with runID, so that the next scan collects the run again. It
// returns the removed paths.
func DeleteRun(ctx context.Context, out, runID string) (removed []string, err error) {
	if runID == "" {
		return nil, errors.E(errors.Invalid, "empty run id")
	}
	for _, d := range OutputDirs {
		dir := filepath.Join(out, d)
		lister := file.List(ctx, dir, false)
		var paths []string
		for lister.Scan() {
			if strings.HasPrefix(filepath.Base(lister.Path()), runID) {
				paths = append(paths, lister.Path())
			}
		}
		if err := lister.Err(); err != nil {
			if errors.Is(errors.NotExist, err) || os.IsNotExist(err) {
				continue
			}
			return removed, errors.E(err, "list", dir)
		}
		for _, p := range paths {
			if err := os.RemoveAll(p); err != nil {
				return removed, errors.E(err, "remove", p)
			}
			log.Printf("delete_run_output sequencing_run_id=%s path=%s", runID, p)
			removed = append(removed, p)
		}
	}
	return removed, nil
}
