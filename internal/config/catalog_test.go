package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

const windOverride = `
pad_steps:
  - {max_zoom: 4, pad: 6}
  - {max_zoom: 9, pad: 2}
lat_band: [-60, 60]
catalogs:
  wind:
    unit: kt
    suppress_first: true
    bins:
      - {high: 11, keys: [0, 1, 2, 3], label: "Light", color: "#ffffe0"}
      - {low: 11, high: 34, keys: [4, 5, 6, 7], label: "Fresh", color: "#00429d"}
      - {low: 34, keys: [8, 9, 10, 11, 12], label: "Gale", color: "#ca0000"}
`

func TestParseArea_Override(t *testing.T) {
	area, err := ParseArea([]byte(windOverride))
	require.NoError(t, err)

	assert.Equal(t, domain.PhenomenonWind, area.Catalogs.Wind.Name)
	require.Len(t, area.Catalogs.Wind.Bins, 3)
	assert.Equal(t, "Fresh", area.Catalogs.Wind.Bins[1].Label)
	assert.InDelta(t, 34.0, *area.Catalogs.Wind.Bins[1].High, 1e-12)
	assert.Equal(t, domain.WaveCatalog(), area.Catalogs.Wave)

	assert.InDelta(t, 6.0, area.Selector.PadFactor(3), 1e-12)
	assert.InDelta(t, 2.0, area.Selector.PadFactor(9), 1e-12)
	assert.Equal(t, [2]float64{-60, 60}, area.Selector.LatBand())
}

func TestParseArea_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "pad_stepz: []"},
		{"gap in bins", "catalogs:\n  rain:\n    bins:\n      - {high: 1}\n      - {low: 2}\n"},
		{"bad lat band", "lat_band: [10]"},
		{"growing pad", "pad_steps:\n  - {max_zoom: 4, pad: 1}\n  - {max_zoom: 6, pad: 3}\n"},
		{"not yaml", "catalogs: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArea([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadArea_Defaults(t *testing.T) {
	area, err := LoadArea("", false)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultCatalogs().WithSuppressFirst(false), area.Catalogs)
	assert.InDelta(t, 3.0, area.Selector.PadFactor(6), 1e-12)
}

func TestLoadArea_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(windOverride), 0o600))

	area, err := LoadArea(path, false)
	require.NoError(t, err)

	assert.Len(t, area.Catalogs.Wind.Bins, 3)
	assert.False(t, area.Catalogs.Wind.SuppressFirst, "SUPPRESS_CALM wins over the file")
}

func TestLoadArea_MissingFile(t *testing.T) {
	_, err := LoadArea(filepath.Join(t.TempDir(), "nope.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIN_CATALOG_PATH")
}
