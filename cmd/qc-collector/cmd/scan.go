package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/collect"
	"github.com/phl-genomics/qccollect/config"
	"github.com/phl-genomics/qccollect/rundir"
)

// scan runs collection scans until ctx is canceled, or once. The config is
// reloaded for every scan; after the first successful load, a broken config
// only logs and the previous one stays in effect.
func scan(ctx context.Context, configPath string, once bool) error {
	loader := config.NewLoader(configPath)
	c := collect.New(loader)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := c.Scan(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if loader.Current() == nil || once {
				return err
			}
			log.Error.Printf("scan_failed: %v", err)
		}
		if once {
			return nil
		}
		interval := config.DefaultScanInterval
		if snap := loader.Current(); snap != nil {
			interval = snap.Config.ScanInterval()
		}
		log.Printf("scan_wait next_scan=%s", time.Now().Add(interval).Format(time.RFC3339))
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func collectRun(ctx context.Context, configPath, runID string, w io.Writer) error {
	report, err := collect.New(config.NewLoader(configPath)).CollectOne(ctx, runID)
	if err != nil {
		return err
	}
	for _, p := range report.Written {
		fmt.Fprintln(w, p)
	}
	return nil
}

func listRuns(ctx context.Context, configPath string, w io.Writer) error {
	snap, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}
	runs, err := rundir.ListCompleted(ctx, snap.Config.AnalysisByRunDir, snap.Catalog)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func deleteRun(ctx context.Context, runID, dataDir string, w io.Writer) error {
	removed, err := collect.DeleteRun(ctx, dataDir, runID)
	for _, p := range removed {
		fmt.Fprintln(w, p)
	}
	return err
}
