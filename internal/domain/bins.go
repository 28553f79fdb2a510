package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Display colors shared by the default catalogs.
const (
	ColorTransparent = "rgba(0,0,0,0)"
	ColorBoneWhite   = "#ffffe0"
	ColorGrayBlue    = "#80a1bf"
	ColorDarkBlue    = "#00429d"
	ColorPurpleBlue  = "#54479f"
	ColorPurplePink  = "#a84da0"
	ColorPinkRed     = "#b92650"
	ColorRed         = "#ca0000"
)

// Phenomenon names used for catalogs, metrics labels and summaries.
const (
	PhenomenonWind        = "wind"
	PhenomenonWave        = "wave"
	PhenomenonRain        = "rain"
	PhenomenonCurrent     = "current"
	PhenomenonTemperature = "temperature"
)

// Bin is a labeled half-open range [Low, High) of a physical scale. A nil bound is
// unbounded. Keys are the category keys (Beaufort numbers, Douglas degrees, intensity
// classes) that fall into the bin.
type Bin struct {
	Low   *float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High  *float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Keys  []int    `json:"keys,omitempty" yaml:"keys,omitempty"`
	Label string   `json:"label" yaml:"label"`
	Color string   `json:"color" yaml:"color"`
}

// HasKey reports whether key maps into b.
func (b Bin) HasKey(key int) bool {
	for _, k := range b.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Contains reports whether v lies in [Low, High).
func (b Bin) Contains(v float64) bool {
	if b.Low != nil && v < *b.Low {
		return false
	}
	if b.High != nil && v >= *b.High {
		return false
	}
	return true
}

// Catalog is an ordered partition of one physical scale.
type Catalog struct {
	Name string `json:"name" yaml:"name"`
	Unit string `json:"unit" yaml:"unit"`
	Bins []Bin  `json:"bins" yaml:"bins"`

	// SuppressFirst keeps the first ("calm", "dry") bin out of dominant-bin summaries.
	SuppressFirst bool `json:"suppress_first" yaml:"suppress_first"`
}

var (
	ErrEmptyCatalog     = errors.New("catalog has no bins")
	ErrCatalogGap       = errors.New("catalog bins are not contiguous")
	ErrCatalogBounds    = errors.New("catalog must be unbounded at both ends")
	ErrCatalogDuplicate = errors.New("category key assigned to more than one bin")
)

// Validate checks that the bins partition the scale: the first bin is unbounded below,
// the last unbounded above, each bin starts where the previous one ends, and no
// category key belongs to two bins.
func (c Catalog) Validate() error {
	if len(c.Bins) == 0 {
		return fmt.Errorf("%s: %w", c.Name, ErrEmptyCatalog)
	}
	if c.Bins[0].Low != nil || c.Bins[len(c.Bins)-1].High != nil {
		return fmt.Errorf("%s: %w", c.Name, ErrCatalogBounds)
	}

	owner := make(map[int]int)
	for i, b := range c.Bins {
		if i > 0 {
			prev := c.Bins[i-1]
			if prev.High == nil || b.Low == nil || *prev.High != *b.Low {
				return fmt.Errorf("%s: bin %d (%s): %w", c.Name, i, b.Label, ErrCatalogGap)
			}
		}
		if b.Low != nil && b.High != nil && *b.Low >= *b.High {
			return fmt.Errorf("%s: bin %d (%s): %w", c.Name, i, b.Label, ErrCatalogGap)
		}
		for _, k := range b.Keys {
			if j, ok := owner[k]; ok {
				return fmt.Errorf("%s: key %d in bins %d and %d: %w", c.Name, k, j, i, ErrCatalogDuplicate)
			}
			owner[k] = i
		}
	}
	return nil
}

// Locate returns the index of the bin containing v, or -1 for NaN.
func (c Catalog) Locate(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	for i, b := range c.Bins {
		if b.Contains(v) {
			return i
		}
	}
	return -1
}

// KeyIndex returns the bin index owning a category key, or -1.
func (c Catalog) KeyIndex(key int) int {
	for i, b := range c.Bins {
		if b.HasKey(key) {
			return i
		}
	}
	return -1
}

// RangeText formats the bin bounds in the catalog unit.
func (c Catalog) RangeText(b Bin) string {
	return FormatRange(b.Low, b.High, c.Unit)
}

// Catalogs groups the catalogs used when summarizing a selection.
type Catalogs struct {
	Wind        Catalog `json:"wind" yaml:"wind"`
	Wave        Catalog `json:"wave" yaml:"wave"`
	Rain        Catalog `json:"rain" yaml:"rain"`
	Current     Catalog `json:"current" yaml:"current"`
	Temperature Catalog `json:"temperature" yaml:"temperature"`
}

// Validate validates every catalog.
func (c Catalogs) Validate() error {
	return errors.Join(
		c.Wind.Validate(),
		c.Wave.Validate(),
		c.Rain.Validate(),
		c.Current.Validate(),
		c.Temperature.Validate(),
	)
}

// WithSuppressFirst returns a copy with SuppressFirst set on every keyed catalog.
// Temperature has no calm bin and is left alone.
func (c Catalogs) WithSuppressFirst(suppress bool) Catalogs {
	c.Wind.SuppressFirst = suppress
	c.Wave.SuppressFirst = suppress
	c.Rain.SuppressFirst = suppress
	c.Current.SuppressFirst = suppress
	return c
}

// DefaultCatalogs returns the built-in catalogs.
func DefaultCatalogs() Catalogs {
	return Catalogs{
		Wind:        WindCatalog(),
		Wave:        WaveCatalog(),
		Rain:        RainCatalog(),
		Current:     CurrentCatalog(),
		Temperature: TemperatureCatalog(),
	}
}

// WindCatalog groups Beaufort numbers in pairs, in knots. Beaufort 12 starts at 64 kt,
// matching the upstream velocity table.
func WindCatalog() Catalog {
	return Catalog{
		Name:          PhenomenonWind,
		Unit:          "kt",
		SuppressFirst: true,
		Bins: []Bin{
			{High: f(4), Keys: []int{0, 1}, Label: "BFT 0 - 1", Color: ColorTransparent},
			{Low: f(4), High: f(11), Keys: []int{2, 3}, Label: "BFT 2 - 3", Color: ColorGrayBlue},
			{Low: f(11), High: f(22), Keys: []int{4, 5}, Label: "BFT 4 - 5", Color: ColorDarkBlue},
			{Low: f(22), High: f(34), Keys: []int{6, 7}, Label: "BFT 6 - 7", Color: ColorPurpleBlue},
			{Low: f(34), High: f(48), Keys: []int{8, 9}, Label: "BFT 8 - 9", Color: ColorPurplePink},
			{Low: f(48), High: f(64), Keys: []int{10, 11}, Label: "BFT 10 - 11", Color: ColorPinkRed},
			{Low: f(64), Keys: []int{12}, Label: "BFT 12", Color: ColorRed},
		},
	}
}

// WaveCatalog groups Douglas sea-state degrees, in meters of significant wave height.
func WaveCatalog() Catalog {
	return Catalog{
		Name:          PhenomenonWave,
		Unit:          "m",
		SuppressFirst: true,
		Bins: []Bin{
			{High: f(0.1), Keys: []int{0, 1}, Label: "Calm", Color: ColorTransparent},
			{Low: f(0.1), High: f(1.25), Keys: []int{2, 3}, Label: "Smooth to slight", Color: ColorGrayBlue},
			{Low: f(1.25), High: f(2.5), Keys: []int{4}, Label: "Moderate", Color: ColorDarkBlue},
			{Low: f(2.5), High: f(4), Keys: []int{5}, Label: "Rough", Color: ColorPurpleBlue},
			{Low: f(4), High: f(6), Keys: []int{6}, Label: "Very rough", Color: ColorPurplePink},
			{Low: f(6), High: f(9), Keys: []int{7}, Label: "High", Color: ColorPinkRed},
			{Low: f(9), Keys: []int{8, 9}, Label: "Very high to phenomenal", Color: ColorRed},
		},
	}
}

// RainCatalog groups daily precipitation intensity classes, in mm.
func RainCatalog() Catalog {
	return Catalog{
		Name:          PhenomenonRain,
		Unit:          "mm",
		SuppressFirst: true,
		Bins: []Bin{
			{High: f(0.1), Keys: []int{1}, Label: "Dry", Color: ColorTransparent},
			{Low: f(0.1), High: f(2.5), Keys: []int{2}, Label: "Light rain", Color: ColorGrayBlue},
			{Low: f(2.5), High: f(7.6), Keys: []int{3}, Label: "Moderate rain", Color: ColorDarkBlue},
			{Low: f(7.6), High: f(50), Keys: []int{4}, Label: "Heavy rain", Color: ColorPurplePink},
			{Low: f(50), Keys: []int{5}, Label: "Violent rain", Color: ColorPinkRed},
		},
	}
}

// CurrentCatalog groups surface current velocity classes, in knots.
func CurrentCatalog() Catalog {
	return Catalog{
		Name:          PhenomenonCurrent,
		Unit:          "kt",
		SuppressFirst: true,
		Bins: []Bin{
			{High: f(0.5), Keys: []int{1}, Label: "Negligible", Color: ColorTransparent},
			{Low: f(0.5), High: f(1), Keys: []int{2}, Label: "Weak", Color: ColorGrayBlue},
			{Low: f(1), High: f(2), Keys: []int{3}, Label: "Moderate", Color: ColorDarkBlue},
			{Low: f(2), High: f(3), Keys: []int{4}, Label: "Strong", Color: ColorPurplePink},
			{Low: f(3), Keys: []int{5}, Label: "Very strong", Color: ColorRed},
		},
	}
}

// TemperatureCatalog colors air temperatures in °C. It has no category keys; use Locate.
func TemperatureCatalog() Catalog {
	return Catalog{
		Name: PhenomenonTemperature,
		Unit: "°C",
		Bins: []Bin{
			{High: f(-15), Label: "Freezing", Color: ColorPurpleBlue},
			{Low: f(-15), High: f(0), Label: "Cold", Color: ColorDarkBlue},
			{Low: f(0), High: f(15), Label: "Cool", Color: ColorGrayBlue},
			{Low: f(15), High: f(30), Label: "Warm", Color: ColorPurplePink},
			{Low: f(30), High: f(40), Label: "Hot", Color: ColorPinkRed},
			{Low: f(40), Label: "Extreme heat", Color: ColorRed},
		},
	}
}

// FormatRange renders bounds as "4 - 11 kt", "< 4 kt" or ">= 64 kt".
func FormatRange(low, high *float64, unit string) string {
	switch {
	case low != nil && high != nil:
		return fmt.Sprintf("%s - %s %s", formatNumber(*low), formatNumber(*high), unit)
	case high != nil:
		return fmt.Sprintf("< %s %s", formatNumber(*high), unit)
	case low != nil:
		return fmt.Sprintf(">= %s %s", formatNumber(*low), unit)
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func f(v float64) *float64 { return &v }
