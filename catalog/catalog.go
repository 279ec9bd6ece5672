// Package catalog holds the read-only lookup tables consulted while
// collecting a run: the run-exclusion set, the project catalog and the
// known-species catalog. A Catalog is built once and never mutated; a reload
// produces a new Catalog.
package catalog

// Project describes how libraries in a sample-sheet project are reported.
type Project struct {
	SamplesheetProjectID string
	// TranslatedProjectID replaces SamplesheetProjectID in reports when set.
	TranslatedProjectID string
	SpeciesName         string
	SpeciesTaxID        string
	// FixedGenomeSize marks mono-species projects. Species inference
	// returns SpeciesName for such projects regardless of abundance data.
	FixedGenomeSize bool
	GenomeSizeMb    *float64
}

// KnownSpecies is a reference organism with its genome attributes.
type KnownSpecies struct {
	TaxonomyID        string
	SpeciesName       string
	GenomeSizeMb      *float64
	GCPercent         *float64
	AssemblyAccession string
}

// Catalog is an immutable set of lookup tables. The zero value and a nil
// *Catalog are both valid empty catalogs.
type Catalog struct {
	excluded map[string]struct{}
	projects map[string]*Project
	species  map[string]*KnownSpecies
}

// New indexes the given tables. Projects are keyed by both their
// samplesheet and translated ids; species by taxonomy id and name. Later
// entries replace earlier ones sharing a key.
func New(excludedRuns []string, projects []*Project, species []*KnownSpecies) *Catalog {
	c := &Catalog{
		excluded: make(map[string]struct{}, len(excludedRuns)),
		projects: make(map[string]*Project, 2*len(projects)),
		species:  make(map[string]*KnownSpecies, 2*len(species)),
	}
	for _, id := range excludedRuns {
		c.excluded[id] = struct{}{}
	}
	for _, p := range projects {
		c.projects[p.SamplesheetProjectID] = p
		if p.TranslatedProjectID != "" {
			c.projects[p.TranslatedProjectID] = p
		}
	}
	for _, s := range species {
		c.species[s.TaxonomyID] = s
		if s.SpeciesName != "" {
			c.species[s.SpeciesName] = s
		}
	}
	return c
}

// Excluded reports whether runID is on the exclusion list.
func (c *Catalog) Excluded(runID string) bool {
	if c == nil {
		return false
	}
	_, ok := c.excluded[runID]
	return ok
}

// NumExcluded returns the size of the exclusion list.
func (c *Catalog) NumExcluded() int {
	if c == nil {
		return 0
	}
	return len(c.excluded)
}

// Project looks up a project by samplesheet or translated id.
func (c *Catalog) Project(id string) (*Project, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.projects[id]
	return p, ok
}

// Species looks up a known species by taxonomy id or species name.
func (c *Catalog) Species(key string) (*KnownSpecies, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.species[key]
	return s, ok
}

// ResolveProjectID returns the translated project id configured for a
// samplesheet project id, or "" when the project is unknown or has no
// translation.
func (c *Catalog) ResolveProjectID(samplesheetProjectID string) string {
	p, ok := c.Project(samplesheetProjectID)
	if !ok {
		return ""
	}
	return p.TranslatedProjectID
}
