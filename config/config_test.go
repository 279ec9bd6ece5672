package config_test

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/phl-genomics/qccollect/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, data string) {
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
}

// writeCatalogs writes the three catalog files into dir and returns a YAML
// config referencing them.
func writeCatalogs(t *testing.T, dir string) string {
	excluded := filepath.Join(dir, "excluded_runs.csv")
	projects := filepath.Join(dir, "projects.csv")
	species := filepath.Join(dir, "known_species.csv")
	writeFile(t, excluded, "# bad flowcell\n230101_M00123_0001_000000000-ABCDE\n\n")
	writeFile(t, projects, "samplesheet_project_id,translated_project_id,project_species_name,project_species_taxid,fixed_genome_size,genome_size_mb\n"+
		"mtb,tb,Mycobacterium tuberculosis,1773,True,4.4\n")
	writeFile(t, species, "ncbi_taxonomy_id,species_name,genome_size_mb,gc_percent,refseq_assembly_accession\n"+
		"562,Escherichia coli,5.0,50.8,GCF_000005845.2\n")
	return fmt.Sprintf("analysis_by_run_dir: %s\noutput_dir: %s\nexcluded_runs_list: %s\nprojects_definition_file: %s\nknown_species_list: %s\nscan_interval_seconds: 60\n",
		filepath.Join(dir, "analysis"), filepath.Join(dir, "out"), excluded, projects, species)
}

func TestLoadYAML(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, writeCatalogs(t, dir))

	s, err := config.Load(vcontext.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path)
	assert.Equal(t, filepath.Join(dir, "analysis"), s.Config.AnalysisByRunDir)
	assert.Equal(t, filepath.Join(dir, "out"), s.Config.OutputDir)
	assert.Equal(t, time.Minute, s.Config.ScanInterval())

	assert.True(t, s.Catalog.Excluded("230101_M00123_0001_000000000-ABCDE"))
	assert.Equal(t, 1, s.Catalog.NumExcluded())
	p, ok := s.Catalog.Project("tb")
	require.True(t, ok)
	assert.True(t, p.FixedGenomeSize)
	assert.Equal(t, "tb", s.Catalog.ResolveProjectID("mtb"))
	sp, ok := s.Catalog.Species("562")
	require.True(t, ok)
	assert.Equal(t, "Escherichia coli", sp.SpeciesName)
}

func TestLoadJSON(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "config.json")
	writeFile(t, path, fmt.Sprintf(`{"analysis_by_run_dir": %q, "output_dir": %q, "scan_interval_seconds": 5}`,
		filepath.Join(dir, "analysis"), filepath.Join(dir, "out")))

	s, err := config.Load(vcontext.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.Config.ScanInterval())
	assert.Equal(t, 0, s.Catalog.NumExcluded())
	_, ok := s.Catalog.Project("mtb")
	assert.False(t, ok)
}

func TestLoadErrors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	_, err := config.Load(ctx, filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(errors.NotExist, err), "%v", err)

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "output_dir: /tmp/out\n")
	_, err = config.Load(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis_by_run_dir")

	writeFile(t, path, "analysis_by_run_dir: [unterminated\n")
	_, err = config.Load(ctx, path)
	assert.Error(t, err)

	writeFile(t, path, fmt.Sprintf("analysis_by_run_dir: a\noutput_dir: b\nprojects_definition_file: %s\n", filepath.Join(dir, "nope.csv")))
	_, err = config.Load(ctx, path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "output_dir: /from/file\n")
	t.Setenv(config.AnalysisDirEnv, "/from/env/analysis")
	t.Setenv(config.OutputDirEnv, "/from/env/out")

	s, err := config.Load(vcontext.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env/analysis", s.Config.AnalysisByRunDir)
	assert.Equal(t, "/from/env/out", s.Config.OutputDir)
}

func TestScanInterval(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", config.DefaultScanInterval},
		{"3600", time.Hour},
		{" 90 ", 90 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"0", config.DefaultScanInterval},
		{"-10", config.DefaultScanInterval},
		{"soon", config.DefaultScanInterval},
	}
	for _, test := range tests {
		c := config.Config{ScanIntervalSeconds: test.value}
		assert.Equal(t, test.want, c.ScanInterval(), test.value)
	}
}

func TestLoaderKeepsLastGood(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(dir, "config.yaml")

	l := config.NewLoader(path)
	assert.Nil(t, l.Current())
	_, err := l.Reload(ctx)
	assert.Error(t, err)
	assert.Nil(t, l.Current())

	writeFile(t, path, writeCatalogs(t, dir))
	first, err := l.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, l.Current())

	// A broken file leaves the previous snapshot in effect.
	writeFile(t, path, "analysis_by_run_dir: [unterminated\n")
	got, err := l.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, got == first)
	assert.True(t, l.Current() == first)

	writeFile(t, path, fmt.Sprintf("analysis_by_run_dir: %s\noutput_dir: %s\n", dir, dir))
	second, err := l.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, second == first)
	assert.Equal(t, 0, second.Catalog.NumExcluded())
}

func TestStatic(t *testing.T) {
	s := &config.Snapshot{Path: "x"}
	got, err := config.Static{Snapshot: s}.Reload(vcontext.Background())
	require.NoError(t, err)
	assert.True(t, got == s)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}
