package catalog_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/phl-genomics/qccollect/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func TestNilCatalog(t *testing.T) {
	var c *catalog.Catalog
	assert.False(t, c.Excluded("210101_M00001_0001_000000000-AAAAA"))
	_, ok := c.Project("P1")
	assert.False(t, ok)
	_, ok = c.Species("Escherichia coli")
	assert.False(t, ok)
	assert.Equal(t, "", c.ResolveProjectID("P1"))
	assert.Equal(t, 0, c.NumExcluded())
}

func TestProjectKeyedByBothIDs(t *testing.T) {
	p := &catalog.Project{SamplesheetProjectID: "mtb", TranslatedProjectID: "tb-surveillance"}
	c := catalog.New(nil, []*catalog.Project{p, {SamplesheetProjectID: "plain"}}, nil)

	got, ok := c.Project("mtb")
	require.True(t, ok)
	assert.True(t, got == p)
	got, ok = c.Project("tb-surveillance")
	require.True(t, ok)
	assert.True(t, got == p)

	assert.Equal(t, "tb-surveillance", c.ResolveProjectID("mtb"))
	assert.Equal(t, "", c.ResolveProjectID("plain"))
	assert.Equal(t, "", c.ResolveProjectID("unknown"))
}

func TestSpeciesKeyedByTaxIDAndName(t *testing.T) {
	ecoli := &catalog.KnownSpecies{TaxonomyID: "562", SpeciesName: "Escherichia coli"}
	unnamed := &catalog.KnownSpecies{TaxonomyID: "1280"}
	c := catalog.New(nil, nil, []*catalog.KnownSpecies{ecoli, unnamed})

	for _, key := range []string{"562", "Escherichia coli"} {
		got, ok := c.Species(key)
		assert.True(t, ok, key)
		assert.True(t, got == ecoli, key)
	}
	_, ok := c.Species("1280")
	assert.True(t, ok)
	_, ok = c.Species("")
	assert.False(t, ok)
}

func TestReadExcludedRuns(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeFile(t, tempDir, "excluded.txt",
		"# bad runs\n210101_M00001_0001_000000000-AAAAA\n\n  220202_VH00001_1_AAAAAAAAA  \n#220303_VH00001_2_BBBBBBBBB\n")

	runs, err := catalog.ReadExcludedRuns(vcontext.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"210101_M00001_0001_000000000-AAAAA", "220202_VH00001_1_AAAAAAAAA"}, runs)

	c := catalog.New(runs, nil, nil)
	assert.True(t, c.Excluded("220202_VH00001_1_AAAAAAAAA"))
	assert.False(t, c.Excluded("220303_VH00001_2_BBBBBBBBB"))
	assert.Equal(t, 2, c.NumExcluded())
}

func TestReadProjects(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeFile(t, tempDir, "projects.csv",
		"samplesheet_project_id,translated_project_id,project_species_name,project_species_taxid,fixed_genome_size,genome_size_mb\n"+
			"mtb,tb,Mycobacterium tuberculosis,1773,True,4.4\n"+
			"amr,,,,false,\n"+
			"odd,,,,TRUE,big\n")

	projects, err := catalog.ReadProjects(vcontext.Background(), path)
	require.NoError(t, err)
	require.Len(t, projects, 3)

	mtb := projects[0]
	assert.Equal(t, "mtb", mtb.SamplesheetProjectID)
	assert.Equal(t, "tb", mtb.TranslatedProjectID)
	assert.Equal(t, "Mycobacterium tuberculosis", mtb.SpeciesName)
	assert.Equal(t, "1773", mtb.SpeciesTaxID)
	assert.True(t, mtb.FixedGenomeSize)
	require.NotNil(t, mtb.GenomeSizeMb)
	assert.Equal(t, 4.4, *mtb.GenomeSizeMb)

	amr := projects[1]
	assert.False(t, amr.FixedGenomeSize)
	assert.Nil(t, amr.GenomeSizeMb)
	assert.Equal(t, "", amr.TranslatedProjectID)

	odd := projects[2]
	assert.True(t, odd.FixedGenomeSize)
	assert.Nil(t, odd.GenomeSizeMb)
}

func TestReadKnownSpecies(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeFile(t, tempDir, "species.csv",
		"ncbi_taxonomy_id,species_name,genome_size_mb,gc_percent,refseq_assembly_accession\n"+
			"562,Escherichia coli,5.0,50.8,GCF_000005845.2\n"+
			"1280,Staphylococcus aureus,,,\n")

	species, err := catalog.ReadKnownSpecies(vcontext.Background(), path)
	require.NoError(t, err)
	require.Len(t, species, 2)
	assert.Equal(t, "562", species[0].TaxonomyID)
	assert.Equal(t, 5.0, *species[0].GenomeSizeMb)
	assert.Equal(t, 50.8, *species[0].GCPercent)
	assert.Equal(t, "GCF_000005845.2", species[0].AssemblyAccession)
	assert.Nil(t, species[1].GenomeSizeMb)
	assert.Nil(t, species[1].GCPercent)
}

func TestReadEmptyCatalogs(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := writeFile(t, tempDir, "empty.csv", "")

	projects, err := catalog.ReadProjects(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, projects)
	species, err := catalog.ReadKnownSpecies(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, species)
	runs, err := catalog.ReadExcludedRuns(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReadMissingFile(t *testing.T) {
	ctx := vcontext.Background()
	_, err := catalog.ReadProjects(ctx, "/nonexistent/projects.csv")
	assert.Error(t, err)
	_, err = catalog.ReadExcludedRuns(ctx, "/nonexistent/excluded.txt")
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}
