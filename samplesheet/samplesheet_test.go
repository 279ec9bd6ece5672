package samplesheet

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/phl-genomics/qccollect/catalog"
	"github.com/phl-genomics/qccollect/library"
	"github.com/phl-genomics/qccollect/rundir"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestLibraryID(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{SampleID: strp("S1"), SampleName: strp("Lib_01.A")}, "Lib-01-A"},
		{Entry{SampleID: strp("S1234"), SampleName: strp("named")}, "named"},
		{Entry{SampleID: strp("S12345"), SampleName: strp("named")}, "S12345"},
		{Entry{SampleID: strp("S1")}, "S1"},
		{Entry{SampleID: strp("S1"), SampleName: strp("")}, "S1"},
		{Entry{SampleID: strp("BC_2023.7"), SampleName: strp("ignored")}, "BC-2023-7"},
		{Entry{SampleID: strp("XS1"), SampleName: strp("ignored")}, "XS1"},
		{Entry{SampleName: strp("no-id")}, ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, LibraryID(test.entry))
	}
}

func writeSheet(t *testing.T, data string) string {
	dir, cleanup := testutil.TempDir(t, "", "")
	t.Cleanup(cleanup)
	path := filepath.Join(dir, "sample_sheet.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func TestResolveMiSeq(t *testing.T) {
	path := writeSheet(t, `{
  "header": {"iem_file_version": 5},
  "data": [
    {"sample_id": "S1", "sample_name": "Lib_01.A", "sample_project": "mtb"},
    {"sample_id": "Lib_02", "sample_name": "", "project_name": "amr", "sample_project": "ignored"},
    {"sample_id": "Lib_03"}
  ]
}`)
	cat := catalog.New(nil, []*catalog.Project{{SamplesheetProjectID: "mtb", TranslatedProjectID: "tb"}}, nil)

	libs, err := Resolve(vcontext.Background(), path, rundir.MiSeq, cat)
	require.NoError(t, err)
	assert.Equal(t, []*library.Library{
		{ID: "Lib-01-A", SamplesheetProjectID: "mtb", TranslatedProjectID: "tb", ProjectID: "tb"},
		{ID: "Lib-02", SamplesheetProjectID: "amr", ProjectID: "amr"},
		{ID: "Lib-03", SamplesheetProjectID: "", ProjectID: ""},
	}, libs.Libraries())
}

func TestResolveNextSeq(t *testing.T) {
	path := writeSheet(t, `{
  "data": [{"sample_id": "wrong-list", "project_name": "x"}],
  "cloud_data": [
    {"sample_id": "NS_01", "project_name": "tb"},
    {"sample_id": "NS_02", "project_name": "covid"}
  ]
}`)
	cat := catalog.New(nil, []*catalog.Project{{SamplesheetProjectID: "mtb", TranslatedProjectID: "tb"}}, nil)

	libs, err := Resolve(vcontext.Background(), path, rundir.NextSeq, cat)
	require.NoError(t, err)
	assert.Equal(t, []string{"NS-01", "NS-02"}, libs.IDs())
	l, ok := libs.Get("NS-01")
	require.True(t, ok)
	// Projects are keyed by their translated id as well.
	assert.Equal(t, "tb", l.ProjectID)
	assert.Equal(t, "tb", l.TranslatedProjectID)
	l, ok = libs.Get("NS-02")
	require.True(t, ok)
	assert.Equal(t, "covid", l.ProjectID)
	assert.Equal(t, "", l.TranslatedProjectID)
}

func TestResolveErrors(t *testing.T) {
	ctx := vcontext.Background()
	cat := catalog.New(nil, nil, nil)

	path := writeSheet(t, `{"data": []}`)
	_, err := Resolve(ctx, path, rundir.Unknown, cat)
	assert.Equal(t, ErrUnknownSequencer, errors.Cause(err))

	_, err = Resolve(ctx, filepath.Join(filepath.Dir(path), "missing.json"), rundir.MiSeq, cat)
	assert.Error(t, err)

	bad := writeSheet(t, `{"data": [`)
	_, err = Resolve(ctx, bad, rundir.MiSeq, cat)
	assert.Error(t, err)

	// A sheet with no sample list for the sequencer yields no libraries.
	libs, err := Resolve(ctx, path, rundir.NextSeq, cat)
	require.NoError(t, err)
	assert.Equal(t, 0, libs.Len())
}
