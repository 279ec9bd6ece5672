package catalog

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/phl-genomics/qccollect/encoding/csvtable"
)

// ReadExcludedRuns reads a run exclusion list: one run id per line, lines
// starting with '#' are comments.
func ReadExcludedRuns(ctx context.Context, path string) (runs []string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open excluded runs list", path)
	}
	defer file.CloseAndReport(ctx, in, &err)

	r := tsv.NewReader(in.Reader(ctx))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	row := struct{ RunID string }{}
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF || strings.Contains(err.Error(), tsv.EmptyReadErrStr) {
				break
			}
			return nil, errors.E(err, "read excluded runs list", path)
		}
		if id := strings.TrimSpace(row.RunID); id != "" {
			runs = append(runs, id)
		}
	}
	return runs, nil
}

type projectRow struct {
	SamplesheetProjectID string `tsv:"samplesheet_project_id"`
	TranslatedProjectID  string `tsv:"translated_project_id"`
	SpeciesName          string `tsv:"project_species_name"`
	SpeciesTaxID         string `tsv:"project_species_taxid"`
	FixedGenomeSize      string `tsv:"fixed_genome_size"`
	GenomeSizeMb         string `tsv:"genome_size_mb"`
}

// ReadProjects reads the projects definition CSV.
func ReadProjects(ctx context.Context, path string) ([]*Project, error) {
	var (
		row      projectRow
		projects []*Project
	)
	err := csvtable.ForEach(ctx, path, &row, func() error {
		projects = append(projects, &Project{
			SamplesheetProjectID: row.SamplesheetProjectID,
			TranslatedProjectID:  row.TranslatedProjectID,
			SpeciesName:          row.SpeciesName,
			SpeciesTaxID:         row.SpeciesTaxID,
			FixedGenomeSize:      strings.EqualFold(strings.TrimSpace(row.FixedGenomeSize), "true"),
			GenomeSizeMb:         csvtable.OptionalFloat(row.GenomeSizeMb),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

type speciesRow struct {
	TaxonomyID        string `tsv:"ncbi_taxonomy_id"`
	SpeciesName       string `tsv:"species_name"`
	GenomeSizeMb      string `tsv:"genome_size_mb"`
	GCPercent         string `tsv:"gc_percent"`
	AssemblyAccession string `tsv:"refseq_assembly_accession"`
}

// ReadKnownSpecies reads the known species CSV.
func ReadKnownSpecies(ctx context.Context, path string) ([]*KnownSpecies, error) {
	var (
		row     speciesRow
		species []*KnownSpecies
	)
	err := csvtable.ForEach(ctx, path, &row, func() error {
		species = append(species, &KnownSpecies{
			TaxonomyID:        row.TaxonomyID,
			SpeciesName:       row.SpeciesName,
			GenomeSizeMb:      csvtable.OptionalFloat(row.GenomeSizeMb),
			GCPercent:         csvtable.OptionalFloat(row.GCPercent),
			AssemblyAccession: row.AssemblyAccession,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return species, nil
}
