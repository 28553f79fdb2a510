package domain

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownTimeRange = errors.New("unknown time range")
	ErrUnknownMonth     = errors.New("unknown month")
)

// WindDirection is one compass sector of the direction axis.
type WindDirection struct {
	Idx   int     `json:"idx"`
	Name  string  `json:"name"`
	Angle float64 `json:"angle"`
}

// WindVelocity maps a velocity index to its Beaufort number.
type WindVelocity struct {
	Idx            int      `json:"idx"`
	BeaufortName   string   `json:"beaufortName"`
	BeaufortNumber int      `json:"beaufortNumber"`
	FromKt         *float64 `json:"fromKt,omitempty"`
	ToKt           *float64 `json:"toKt,omitempty"`
}

// WaveHeight maps a height index to its Douglas degree.
type WaveHeight struct {
	Idx           int      `json:"idx"`
	DouglasDegree int      `json:"douglasDegree"`
	FromM         *float64 `json:"fromM,omitempty"`
	ToM           *float64 `json:"toM,omitempty"`
}

// RainIntensity maps a precipitation index to its intensity class.
type RainIntensity struct {
	Idx    int      `json:"idx"`
	Class  int      `json:"class"`
	Name   string   `json:"name"`
	FromMm *float64 `json:"fromMm,omitempty"`
	ToMm   *float64 `json:"toMm,omitempty"`
}

// CurrentVelocity maps a current velocity index to its class.
type CurrentVelocity struct {
	Idx    int      `json:"idx"`
	Class  int      `json:"class"`
	FromKt *float64 `json:"fromKt,omitempty"`
	ToKt   *float64 `json:"toKt,omitempty"`
}

// Metadata describes one build of the upstream dataset.
type Metadata struct {
	PipelineID        string            `json:"ciPipelineId"`
	BuildDate         string            `json:"buildDate"`
	TimeRanges        []string          `json:"timeRanges"`
	Months            []string          `json:"months"`
	Directions        []WindDirection   `json:"directions"`
	WindVelocities    []WindVelocity    `json:"windVelocities"`
	WaveHeights       []WaveHeight      `json:"waveHeights"`
	RainIntensities   []RainIntensity   `json:"rainIntensities"`
	CurrentVelocities []CurrentVelocity `json:"currentVelocities"`
}

// CategoryMap resolves a record index to a category key.
type CategoryMap map[int]int

// WindCategories maps velocity indices to Beaufort numbers.
func (m Metadata) WindCategories() CategoryMap {
	out := make(CategoryMap, len(m.WindVelocities))
	for _, v := range m.WindVelocities {
		out[v.Idx] = v.BeaufortNumber
	}
	return out
}

// WaveCategories maps height indices to Douglas degrees.
func (m Metadata) WaveCategories() CategoryMap {
	out := make(CategoryMap, len(m.WaveHeights))
	for _, w := range m.WaveHeights {
		out[w.Idx] = w.DouglasDegree
	}
	return out
}

// RainCategories maps precipitation indices to intensity classes.
func (m Metadata) RainCategories() CategoryMap {
	out := make(CategoryMap, len(m.RainIntensities))
	for _, r := range m.RainIntensities {
		out[r.Idx] = r.Class
	}
	return out
}

// CurrentCategories maps current velocity indices to classes.
func (m Metadata) CurrentCategories() CategoryMap {
	out := make(CategoryMap, len(m.CurrentVelocities))
	for _, c := range m.CurrentVelocities {
		out[c.Idx] = c.Class
	}
	return out
}

// Loaded reports whether the metadata carries the tables needed to answer queries.
func (m Metadata) Loaded() bool {
	return len(m.TimeRanges) > 0 && len(m.Months) > 0 && len(m.WindVelocities) > 0
}

// ValidateQuery checks the time range and month against the dataset build.
func (m Metadata) ValidateQuery(timeRange, month string) error {
	if !slices.Contains(m.TimeRanges, timeRange) {
		return fmt.Errorf("%w %q: must be one of %v", ErrUnknownTimeRange, timeRange, m.TimeRanges)
	}
	if !slices.Contains(m.Months, month) {
		return fmt.Errorf("%w %q: must be one of %v", ErrUnknownMonth, month, m.Months)
	}
	return nil
}

// DefaultMetadata is the index layout of the current dataset build. It is used for
// offline tools and as a fallback until the upstream metadata is loaded.
func DefaultMetadata() Metadata {
	return Metadata{
		TimeRanges: []string{"2016-2020", "2020"},
		Months:     []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		Directions: []WindDirection{
			{Idx: 1, Name: "N", Angle: 0},
			{Idx: 2, Name: "NNE", Angle: 22.5},
			{Idx: 3, Name: "NE", Angle: 45},
			{Idx: 4, Name: "ENE", Angle: 67.5},
			{Idx: 5, Name: "E", Angle: 90},
			{Idx: 6, Name: "ESE", Angle: 112.5},
			{Idx: 7, Name: "SE", Angle: 135},
			{Idx: 8, Name: "SSE", Angle: 157.5},
			{Idx: 9, Name: "S", Angle: 180},
			{Idx: 10, Name: "SSW", Angle: 202.5},
			{Idx: 11, Name: "SW", Angle: 225},
			{Idx: 12, Name: "WSW", Angle: 247.5},
			{Idx: 13, Name: "W", Angle: 270},
			{Idx: 14, Name: "WNW", Angle: 292.5},
			{Idx: 15, Name: "NW", Angle: 315},
			{Idx: 16, Name: "NNW", Angle: 337.5},
		},
		WindVelocities: []WindVelocity{
			{Idx: 1, BeaufortName: "Calm", BeaufortNumber: 0, FromKt: f(0), ToKt: f(1)},
			{Idx: 2, BeaufortName: "Light air", BeaufortNumber: 1, FromKt: f(1), ToKt: f(4)},
			{Idx: 3, BeaufortName: "Light breeze", BeaufortNumber: 2, FromKt: f(4), ToKt: f(7)},
			{Idx: 4, BeaufortName: "Gentle breeze", BeaufortNumber: 3, FromKt: f(7), ToKt: f(11)},
			{Idx: 5, BeaufortName: "Moderate breeze", BeaufortNumber: 4, FromKt: f(11), ToKt: f(17)},
			{Idx: 6, BeaufortName: "Fresh breeze", BeaufortNumber: 5, FromKt: f(17), ToKt: f(22)},
			{Idx: 7, BeaufortName: "Strong breeze", BeaufortNumber: 6, FromKt: f(22), ToKt: f(28)},
			{Idx: 8, BeaufortName: "Near gale", BeaufortNumber: 7, FromKt: f(28), ToKt: f(34)},
			{Idx: 9, BeaufortName: "Gale", BeaufortNumber: 8, FromKt: f(34), ToKt: f(41)},
			{Idx: 10, BeaufortName: "Strong gale", BeaufortNumber: 9, FromKt: f(41), ToKt: f(48)},
			{Idx: 11, BeaufortName: "Storm", BeaufortNumber: 10, FromKt: f(48), ToKt: f(56)},
			{Idx: 12, BeaufortName: "Violent storm", BeaufortNumber: 11, FromKt: f(56), ToKt: f(64)},
			{Idx: 13, BeaufortName: "Hurricane force", BeaufortNumber: 12, FromKt: f(64)},
		},
		WaveHeights: []WaveHeight{
			{Idx: 1, DouglasDegree: 0, ToM: f(0.1)},
			{Idx: 2, DouglasDegree: 2, FromM: f(0.1), ToM: f(0.5)},
			{Idx: 3, DouglasDegree: 3, FromM: f(0.5), ToM: f(1.25)},
			{Idx: 4, DouglasDegree: 4, FromM: f(1.25), ToM: f(2.5)},
			{Idx: 5, DouglasDegree: 5, FromM: f(2.5), ToM: f(4)},
			{Idx: 6, DouglasDegree: 6, FromM: f(4), ToM: f(6)},
			{Idx: 7, DouglasDegree: 7, FromM: f(6), ToM: f(9)},
			{Idx: 8, DouglasDegree: 8, FromM: f(9), ToM: f(14)},
			{Idx: 9, DouglasDegree: 9, FromM: f(14)},
		},
		RainIntensities: []RainIntensity{
			{Idx: 1, Class: 1, Name: "Dry", ToMm: f(0.1)},
			{Idx: 2, Class: 2, Name: "Light rain", FromMm: f(0.1), ToMm: f(2.5)},
			{Idx: 3, Class: 3, Name: "Moderate rain", FromMm: f(2.5), ToMm: f(7.6)},
			{Idx: 4, Class: 4, Name: "Heavy rain", FromMm: f(7.6), ToMm: f(50)},
			{Idx: 5, Class: 5, Name: "Violent rain", FromMm: f(50)},
		},
		CurrentVelocities: []CurrentVelocity{
			{Idx: 1, Class: 1, ToKt: f(0.5)},
			{Idx: 2, Class: 2, FromKt: f(0.5), ToKt: f(1)},
			{Idx: 3, Class: 3, FromKt: f(1), ToKt: f(2)},
			{Idx: 4, Class: 4, FromKt: f(2), ToKt: f(3)},
			{Idx: 5, Class: 5, FromKt: f(3)},
		},
	}
}

// CategoryBound is the physical range the metadata assigns to one category key.
type CategoryBound struct {
	Key  int
	From *float64
	To   *float64
}

// WindBounds lists the knot range of every Beaufort number.
func (m Metadata) WindBounds() []CategoryBound {
	out := make([]CategoryBound, len(m.WindVelocities))
	for i, v := range m.WindVelocities {
		out[i] = CategoryBound{Key: v.BeaufortNumber, From: v.FromKt, To: v.ToKt}
	}
	return out
}

// WaveBounds lists the meter range of every Douglas degree.
func (m Metadata) WaveBounds() []CategoryBound {
	out := make([]CategoryBound, len(m.WaveHeights))
	for i, w := range m.WaveHeights {
		out[i] = CategoryBound{Key: w.DouglasDegree, From: w.FromM, To: w.ToM}
	}
	return out
}

// RainBounds lists the mm range of every intensity class.
func (m Metadata) RainBounds() []CategoryBound {
	out := make([]CategoryBound, len(m.RainIntensities))
	for i, r := range m.RainIntensities {
		out[i] = CategoryBound{Key: r.Class, From: r.FromMm, To: r.ToMm}
	}
	return out
}

// CurrentBounds lists the knot range of every current class.
func (m Metadata) CurrentBounds() []CategoryBound {
	out := make([]CategoryBound, len(m.CurrentVelocities))
	for i, c := range m.CurrentVelocities {
		out[i] = CategoryBound{Key: c.Class, From: c.FromKt, To: c.ToKt}
	}
	return out
}

// ErrBoundMismatch is returned when a catalog disagrees with the metadata ranges.
var ErrBoundMismatch = errors.New("catalog bin does not match metadata range")

// CheckBounds verifies that every category key is binned and that the bin holding the
// key also holds the start of the category's physical range. Keys without a lower
// bound must sit in the first bin.
func (c Catalog) CheckBounds(bounds []CategoryBound) error {
	var errs []error
	for _, b := range bounds {
		byKey := c.KeyIndex(b.Key)
		if byKey < 0 {
			errs = append(errs, fmt.Errorf("%s: key %d: %w", c.Name, b.Key, ErrBoundMismatch))
			continue
		}
		byValue := 0
		if b.From != nil {
			byValue = c.Locate(*b.From)
		}
		if byKey != byValue {
			errs = append(errs, fmt.Errorf("%s: key %d is in bin %q but its range %s starts in bin %d: %w",
				c.Name, b.Key, c.Bins[byKey].Label, FormatRange(b.From, b.To, c.Unit), byValue, ErrBoundMismatch))
		}
	}
	return errors.Join(errs...)
}

// CheckMetadata runs CheckBounds for every categorical phenomenon.
func (c Catalogs) CheckMetadata(m Metadata) error {
	return errors.Join(
		c.Wind.CheckBounds(m.WindBounds()),
		c.Wave.CheckBounds(m.WaveBounds()),
		c.Rain.CheckBounds(m.RainBounds()),
		c.Current.CheckBounds(m.CurrentBounds()),
	)
}
