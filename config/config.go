// Package config loads the collector configuration file and the catalogs it
// refers to into an immutable Snapshot.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/phl-genomics/qccollect/catalog"
	"gopkg.in/yaml.v3"
)

// DefaultScanInterval is used when scan_interval_seconds is absent or
// invalid.
const DefaultScanInterval = time.Hour

// Environment variables that override configured directories.
const (
	OutputDirEnv   = "QC_COLLECTOR_OUTPUT_DIR"
	AnalysisDirEnv = "QC_COLLECTOR_ANALYSIS_DIR"
)

// Config is the decoded configuration file. JSON files are accepted too.
type Config struct {
	AnalysisByRunDir       string `yaml:"analysis_by_run_dir"`
	OutputDir              string `yaml:"output_dir"`
	ExcludedRunsList       string `yaml:"excluded_runs_list"`
	ProjectsDefinitionFile string `yaml:"projects_definition_file"`
	KnownSpeciesList       string `yaml:"known_species_list"`
	// ScanIntervalSeconds is kept as text so that a malformed value falls
	// back to the default instead of failing the load.
	ScanIntervalSeconds string `yaml:"scan_interval_seconds"`
}

// ScanInterval returns the pause between scans.
func (c *Config) ScanInterval() time.Duration {
	s := strings.TrimSpace(c.ScanIntervalSeconds)
	if s == "" {
		return DefaultScanInterval
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		log.Printf("scan_interval_invalid value=%q default=%v", s, DefaultScanInterval)
		return DefaultScanInterval
	}
	return time.Duration(secs * float64(time.Second))
}

// Validate checks that the required directories are configured.
func (c *Config) Validate() error {
	var missing []string
	if c.AnalysisByRunDir == "" {
		missing = append(missing, "analysis_by_run_dir")
	}
	if c.OutputDir == "" {
		missing = append(missing, "output_dir")
	}
	if len(missing) > 0 {
		return errors.E(errors.Invalid, "missing required config keys: "+strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv(OutputDirEnv); dir != "" {
		c.OutputDir = dir
	}
	if dir := os.Getenv(AnalysisDirEnv); dir != "" {
		c.AnalysisByRunDir = dir
	}
}

// Snapshot is a loaded configuration together with its catalogs. It is
// never modified after Load returns.
type Snapshot struct {
	Path    string
	Config  Config
	Catalog *catalog.Catalog
}

// Load reads the configuration file at path and every catalog it names.
// Catalog keys that are empty yield empty catalog parts.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(err, "read config", path)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.E(err, "parse config", path)
	}
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, errors.E(err, path)
	}
	cat, err := loadCatalog(ctx, &c)
	if err != nil {
		return nil, err
	}
	log.Printf("config_loaded config_file=%s analysis_by_run_dir=%s output_dir=%s excluded_runs=%d",
		path, c.AnalysisByRunDir, c.OutputDir, cat.NumExcluded())
	return &Snapshot{Path: path, Config: c, Catalog: cat}, nil
}

func loadCatalog(ctx context.Context, c *Config) (*catalog.Catalog, error) {
	var (
		excluded []string
		projects []*catalog.Project
		species  []*catalog.KnownSpecies
		err      error
	)
	if c.ExcludedRunsList != "" {
		if excluded, err = catalog.ReadExcludedRuns(ctx, c.ExcludedRunsList); err != nil {
			return nil, err
		}
	}
	if c.ProjectsDefinitionFile != "" {
		if projects, err = catalog.ReadProjects(ctx, c.ProjectsDefinitionFile); err != nil {
			return nil, err
		}
	}
	if c.KnownSpeciesList != "" {
		if species, err = catalog.ReadKnownSpecies(ctx, c.KnownSpeciesList); err != nil {
			return nil, err
		}
	}
	return catalog.New(excluded, projects, species), nil
}
