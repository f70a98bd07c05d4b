package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const usDescriptor = `{
  "jurisdictions": {
    "default": [
      ["us", "United States", null, 0],
      ["ca", "California", 0, 1],
      ["la", "Los Angeles", 1]
    ],
    "fr": [
      ["us", "États-Unis", null]
    ]
  },
  "courts": [
    ["supreme.court", "Supreme Court"],
    ["superior.court", "%s Superior Court"]
  ]
}`

func TestParseDescriptor(t *testing.T) {
	d, err := Parse([]byte(usDescriptor), Options{ValidateSchema: true})
	require.NoError(t, err)

	entries := d.Jurisdictions["default"]
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{LocalID: "us", LocalName: "United States", Parent: NoParent, Courts: []int{0}}, entries[0])
	assert.True(t, entries[0].IsRoot())
	assert.Equal(t, 0, entries[1].Parent)
	assert.Equal(t, []int{1}, entries[1].Courts)
	assert.Empty(t, entries[2].Courts)

	require.Len(t, d.Courts, 2)
	assert.Equal(t, Court{ID: "superior.court", Name: "%s Superior Court"}, d.Courts[1])

	assert.Equal(t, 4, d.RowCount())
}

func TestParseWithoutCourts(t *testing.T) {
	d, err := Parse([]byte(`{"jurisdictions":{"default":[["us","United States",null]]}}`), Options{ValidateSchema: true})
	require.NoError(t, err)
	assert.Empty(t, d.Courts)
	assert.Equal(t, 1, d.RowCount())
}

func TestLanguagesDefaultFirst(t *testing.T) {
	d := &Descriptor{Jurisdictions: map[string][]Entry{
		"fr":      nil,
		"default": nil,
		"de":      nil,
	}}
	assert.Equal(t, []string{"default", "de", "fr"}, d.Languages())

	d = &Descriptor{Jurisdictions: map[string][]Entry{"ja": nil, "en": nil}}
	assert.Equal(t, []string{"en", "ja"}, d.Languages())
}

func TestParseRejectsForwardParent(t *testing.T) {
	doc := `{"jurisdictions":{"default":[["ca","California",1],["us","United States",null]]}}`

	for _, validate := range []bool{false, true} {
		_, err := Parse([]byte(doc), Options{ValidateSchema: validate})
		var serr *StructureError
		require.True(t, errors.As(err, &serr), "validate=%v: %v", validate, err)
		assert.Equal(t, "default", serr.Language)
		assert.Equal(t, 0, serr.Position)
	}
}

func TestParseRejectsSelfParent(t *testing.T) {
	doc := `{"jurisdictions":{"default":[["us","United States",null],["ca","California",1]]}}`

	_, err := Parse([]byte(doc), Options{})
	var serr *StructureError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Position)
}

func TestParseRejectsCourtOutOfRange(t *testing.T) {
	doc := `{"jurisdictions":{"default":[["us","United States",null,2]]},"courts":[["a","A"]]}`

	_, err := Parse([]byte(doc), Options{})
	var serr *StructureError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), "court position 2")
}

func TestParseMissingJurisdictions(t *testing.T) {
	_, err := Parse([]byte(`{"courts":[]}`), Options{})
	var serr *StructureError
	require.ErrorAs(t, err, &serr)

	_, err = Parse([]byte(`{"courts":[]}`), Options{ValidateSchema: true})
	assert.Error(t, err)
}

func TestSchemaRejectsBadTuples(t *testing.T) {
	docs := []string{
		`{"jurisdictions":{"default":[[1,"United States",null]]}}`,
		`{"jurisdictions":{"default":[["us","United States"]]}}`,
		`{"jurisdictions":{"default":[["","United States",null]]}}`,
		`{"jurisdictions":{"default":[["us","United States",null,"x"]]}}`,
		`{"jurisdictions":{"default":[["us","United States",null]]},"courts":[["only-id"]]}`,
	}
	for _, doc := range docs {
		_, err := Parse([]byte(doc), Options{ValidateSchema: true})
		assert.Error(t, err, doc)
	}
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"jurisdictions":`), Options{})
	assert.Error(t, err)
}

func TestParseUTF8BOM(t *testing.T) {
	data := append([]byte("\xEF\xBB\xBF"), usDescriptor...)

	d, err := Parse(data, Options{ValidateSchema: true})
	require.NoError(t, err)
	assert.Equal(t, "United States", d.Jurisdictions["default"][0].LocalName)
}

func TestParseUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte(usDescriptor))
	require.NoError(t, err)

	d, err := Parse(data, Options{ValidateSchema: true})
	require.NoError(t, err)
	assert.Equal(t, "États-Unis", d.Jurisdictions["fr"][0].LocalName)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "juris-us-map.json")
	require.NoError(t, os.WriteFile(path, []byte(usDescriptor), 0644))

	d, err := Load(path, Options{})
	require.NoError(t, err)
	assert.Len(t, d.Jurisdictions, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), Options{})
	assert.Error(t, err)
}

func TestParseRejectsNegativeParentWithoutSchema(t *testing.T) {
	data := []byte(`{"jurisdictions": {"default": [["us", "United States", null], ["ca", "California", -1]]}}`)

	for _, validate := range []bool{false, true} {
		_, err := Parse(data, Options{ValidateSchema: validate})
		assert.Error(t, err, "validate_schema=%v", validate)
	}

	_, err := Parse(data, Options{})
	assert.ErrorContains(t, err, "negative parent position -1")
}
