package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

func TestRun_DefaultsPass(t *testing.T) {
	var buf bytes.Buffer
	code := run(&buf, "", domain.DefaultMetadata())

	assert.Equal(t, 0, code, buf.String())
	assert.Contains(t, buf.String(), "All validations passed.")
}

func TestRun_HurricaneBinMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.yaml")
	catalog := `catalogs:
  wind:
    name: wind
    unit: kt
    bins:
      - {label: "BFT 0 - 3", high: 11, keys: [0, 1, 2, 3]}
      - {label: "BFT 4 - 11", low: 11, high: 56, keys: [4, 5, 6, 7, 8, 9, 10, 11]}
      - {label: "BFT 12", low: 56, keys: [12]}
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	var buf bytes.Buffer
	code := run(&buf, path, domain.DefaultMetadata())

	assert.Equal(t, 1, code)
	out := buf.String()
	assert.Contains(t, out, "Phase 3: Catalog vs metadata ranges")
	assert.Contains(t, out, "key 11")
	assert.Contains(t, out, "Validation FAILED.")
}

func TestRun_BadCatalogSkipsRangeCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalogs:\n  wind:\n    bins: []\n"), 0o600))

	var buf bytes.Buffer
	code := run(&buf, path, domain.DefaultMetadata())

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "Phase 1: Catalog structure")
	assert.NotContains(t, buf.String(), "Phase 3")
}

func TestRun_EmptyMetadataFails(t *testing.T) {
	var buf bytes.Buffer
	code := run(&buf, "", domain.Metadata{})

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "metadata has no time ranges")
}

func TestLoadMetadata_RejectsBothSources(t *testing.T) {
	_, err := loadMetadata("meta.json", "http://localhost", 0)
	assert.Error(t, err)
}

func TestLoadMetadata_ReadsRecordedResponse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":{"meta":{
		"buildDate":"2024-03-01",
		"timeRanges":["2016-2020"],
		"months":["Jan"],
		"windVelocities":[
			{"idx":1,"beaufortName":"Calm","beaufortNumber":0,"fromKt":"","toKt":"1"},
			{"idx":2,"beaufortName":"Light air","beaufortNumber":1,"fromKt":"1","toKt":"4"}
		]
	}}}`), 0o600))

	meta, err := loadMetadata(path, "", 0)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-01", meta.BuildDate)
	require.Len(t, meta.WindVelocities, 2)
	assert.Nil(t, meta.WindVelocities[0].FromKt)
	require.NotNil(t, meta.WindVelocities[1].FromKt)
	assert.InDelta(t, 1.0, *meta.WindVelocities[1].FromKt, 1e-12)
}

func TestLoadMetadata_RejectsMalformedBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeRanges":["2016-2020"],"months":["Jan"],
		"windVelocities":[{"idx":1,"beaufortNumber":0,"toKt":"one"}]}`), 0o600))

	_, err := loadMetadata(path, "", 0)
	assert.ErrorContains(t, err, "windVelocities.toKt")
}
