package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// NauticalMilesPerDegree is the length of one degree of latitude in nautical miles.
	NauticalMilesPerDegree = 60.0

	// minPadFactor is the smallest pad a zoom level can produce, in degrees.
	minPadFactor = 0.5

	// cellEpsilon absorbs float noise when snapping bounds to whole-degree cells.
	cellEpsilon = 0.0001
)

// DefaultLatBand is the latitude range covered by the dataset. Polar regions are excluded.
var DefaultLatBand = [2]float64{-70, 70}

// Point is a clicked map position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rectangle is a closed lat/lng query box: [Lats[0], Lats[1]] x [Lngs[0], Lngs[1]].
// Longitudes are not normalized and may lie outside [-180, 180].
type Rectangle struct {
	Lats [2]float64 `json:"lats"`
	Lngs [2]float64 `json:"lngs"`
}

// PadStep maps every zoom level up to and including MaxZoom to Pad degrees.
type PadStep struct {
	MaxZoom int     `json:"max_zoom" yaml:"max_zoom"`
	Pad     float64 `json:"pad" yaml:"pad"`
}

// DefaultPadSteps coarsens the query box when zoomed out and shrinks it toward the
// native 1-degree grid when zoomed in.
var DefaultPadSteps = []PadStep{
	{MaxZoom: 5, Pad: 4},
	{MaxZoom: 6, Pad: 3},
	{MaxZoom: 7, Pad: 2},
	{MaxZoom: 8, Pad: 1},
}

// AreaSelector turns clicks into query rectangles. The zero value is not usable;
// use DefaultAreaSelector or NewAreaSelector.
type AreaSelector struct {
	steps   []PadStep
	latBand [2]float64
}

// NewAreaSelector builds a selector from a pad step table and latitude band.
// Steps must be ordered by MaxZoom with non-increasing pads.
func NewAreaSelector(steps []PadStep, latBand [2]float64) (AreaSelector, error) {
	if latBand[0] >= latBand[1] || latBand[0] <= -90 || latBand[1] >= 90 {
		return AreaSelector{}, fmt.Errorf("invalid latitude band [%g, %g]", latBand[0], latBand[1])
	}
	for i, s := range steps {
		if s.Pad < minPadFactor {
			return AreaSelector{}, fmt.Errorf("pad step %d: pad %g below minimum %g", i, s.Pad, minPadFactor)
		}
		if i > 0 && (s.MaxZoom <= steps[i-1].MaxZoom || s.Pad > steps[i-1].Pad) {
			return AreaSelector{}, fmt.Errorf("pad step %d: steps must increase in zoom and not increase in pad", i)
		}
	}
	cp := make([]PadStep, len(steps))
	copy(cp, steps)
	return AreaSelector{steps: cp, latBand: latBand}, nil
}

// DefaultAreaSelector uses DefaultPadSteps and DefaultLatBand.
func DefaultAreaSelector() AreaSelector {
	return AreaSelector{steps: DefaultPadSteps, latBand: DefaultLatBand}
}

// LatBand returns the latitude exclusion band.
func (s AreaSelector) LatBand() [2]float64 { return s.latBand }

// PadFactor returns the pad in degrees for a zoom level.
func (s AreaSelector) PadFactor(zoom int) float64 {
	for _, step := range s.steps {
		if zoom <= step.MaxZoom {
			return step.Pad
		}
	}
	return minPadFactor
}

// RectangleFromClick builds the query rectangle around a clicked point. The centre is
// snapped to the nearest whole degree so lookups hit pre-aggregated grid cells.
// Longitude padding is widened by 1/cos(lat) so the box keeps a roughly constant
// physical width; the cosine latitude is clamped into the band to stay finite.
func (s AreaSelector) RectangleFromClick(p Point, zoom int) Rectangle {
	pad := s.PadFactor(zoom)
	lat := math.Round(p.Lat)
	lng := math.Round(p.Lng)

	cosLat := math.Cos(toRadians(s.clampLat(lat)))
	adjPad := pad / cosLat

	return Rectangle{
		Lats: [2]float64{
			s.clampLat(lat - 0.5*pad),
			s.clampLat(lat + 0.5*pad),
		},
		Lngs: [2]float64{
			lng - 0.5*adjPad,
			lng + 0.5*adjPad,
		},
	}
}

func (s AreaSelector) clampLat(lat float64) float64 {
	return math.Min(math.Max(lat, s.latBand[0]), s.latBand[1])
}

// SuggestPadFactor returns the default pad in degrees for a zoom level.
func SuggestPadFactor(zoom int) float64 {
	return DefaultAreaSelector().PadFactor(zoom)
}

// RectangleFromClick builds a query rectangle with the default selector.
func RectangleFromClick(p Point, zoom int) Rectangle {
	return DefaultAreaSelector().RectangleFromClick(p, zoom)
}

// NormalizeLongitude reduces any longitude to (-180, 180].
func NormalizeLongitude(lng float64) float64 {
	// math.Mod keeps the sign of the dividend.
	r := math.Mod(lng, 360)
	if r <= -180 {
		r += 360
	} else if r > 180 {
		r -= 360
	}
	return r
}

// RectangleArea approximates the surface of r in square nautical miles using an
// equirectangular projection at the mean latitude. Only meaningful for small boxes.
func RectangleArea(r Rectangle) float64 {
	height := (r.Lats[1] - r.Lats[0]) * NauticalMilesPerDegree
	meanLat := (r.Lats[0] + r.Lats[1]) / 2
	width := (r.Lngs[1] - r.Lngs[0]) * NauticalMilesPerDegree * math.Cos(toRadians(meanLat))
	area := height * width
	if area <= 0 || math.IsNaN(area) {
		return 0
	}
	return area
}

// Area returns RectangleArea(r).
func (r Rectangle) Area() float64 { return RectangleArea(r) }

// Valid reports whether both intervals are ordered and finite.
func (r Rectangle) Valid() bool {
	for _, v := range []float64{r.Lats[0], r.Lats[1], r.Lngs[0], r.Lngs[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Lats[0] <= r.Lats[1] && r.Lngs[0] <= r.Lngs[1] && r.Lats[0] >= -90 && r.Lats[1] <= 90
}

// Center returns the midpoint of r with a normalized longitude.
func (r Rectangle) Center() Point {
	return Point{
		Lat: (r.Lats[0] + r.Lats[1]) / 2,
		Lng: NormalizeLongitude((r.Lngs[0] + r.Lngs[1]) / 2),
	}
}

// Contains reports whether p lies inside r, accounting for longitude wraparound.
func (r Rectangle) Contains(p Point) bool {
	if p.Lat < r.Lats[0] || p.Lat > r.Lats[1] {
		return false
	}
	if r.Lngs[1]-r.Lngs[0] >= 360 {
		return true
	}
	// Shift the point into the rectangle's own longitude frame.
	lng := r.Lngs[0] + math.Mod(math.Mod(p.Lng-r.Lngs[0], 360)+360, 360)
	return lng <= r.Lngs[1]
}

// Bound converts r to an orb.Bound with normalized longitudes. A box that crosses the
// antimeridian keeps its western edge and extends past 180 so the bound stays ordered.
func (r Rectangle) Bound() orb.Bound {
	west := NormalizeLongitude(r.Lngs[0])
	east := west + (r.Lngs[1] - r.Lngs[0])
	return orb.Bound{
		Min: orb.Point{west, r.Lats[0]},
		Max: orb.Point{east, r.Lats[1]},
	}
}

// Cell identifies a whole-degree grid cell by its south-west corner.
type Cell struct {
	Lat int `json:"lat"`
	Lng int `json:"lng"`
}

// GridCells lists the whole-degree cells of the dataset grid that r touches, with
// latitude rows limited to DefaultLatBand.
func (r Rectangle) GridCells() []Cell {
	return gridCells(r, DefaultLatBand)
}

// GridCells lists the cells r touches with latitude rows limited to the selector's band.
func (s AreaSelector) GridCells(r Rectangle) []Cell {
	return gridCells(r, s.latBand)
}

// gridCells keeps latitude rows in [band[0], band[1]); longitudes are normalized and
// wrap across the antimeridian.
func gridCells(r Rectangle, band [2]float64) []Cell {
	lats := degreeSpan(r.Lats[0], r.Lats[1])
	lngs := lngSpan(r.Lngs[0], r.Lngs[1])

	lo, hi := int(math.Floor(band[0])), int(math.Ceil(band[1]))
	cells := make([]Cell, 0, len(lats)*len(lngs))
	for _, lat := range lats {
		if lat < lo || lat >= hi {
			continue
		}
		for _, lng := range lngs {
			cells = append(cells, Cell{Lat: lat, Lng: lng})
		}
	}
	return cells
}

// degreeSpan returns every whole degree k with floor(lo) <= k <= floor(hi).
func degreeSpan(lo, hi float64) []int {
	start := int(math.Floor(lo + cellEpsilon))
	end := int(math.Floor(hi + cellEpsilon))
	out := make([]int, 0, end-start+1)
	for k := start; k <= end; k++ {
		out = append(out, k)
	}
	return out
}

func lngSpan(lo, hi float64) []int {
	if hi-lo >= 360 {
		return degreeSpan(-180, 179)
	}
	west := NormalizeLongitude(lo)
	east := NormalizeLongitude(hi)

	var spans []int
	if west <= east {
		spans = degreeSpan(west, east)
	} else {
		spans = append(degreeSpan(west, 180), degreeSpan(-180, east)...)
	}

	seen := make(map[int]bool, len(spans))
	out := spans[:0]
	for _, k := range spans {
		if k < -180 || k >= 180 || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// FormatDMS renders a coordinate pair as degrees, minutes and seconds with hemispheres,
// e.g. "46° 0' 0'' N, 6° 0' 0'' W".
func FormatDMS(lat, lng float64) string {
	latCard := "N"
	if lat < 0 {
		latCard = "S"
	}
	lngCard := "E"
	if lng < 0 {
		lngCard = "W"
	}
	return fmt.Sprintf("%s %s, %s %s", dms(lat), latCard, dms(lng), lngCard)
}

func dms(coord float64) string {
	abs := math.Abs(coord)
	deg := math.Floor(abs)
	minutesFull := (abs - deg) * 60
	minutes := math.Floor(minutesFull)
	seconds := math.Floor((minutesFull - minutes) * 60)
	return fmt.Sprintf("%d° %d' %d''", int(deg), int(minutes), int(seconds))
}

// FormatArea renders square nautical miles with thousands separators, e.g. "57,600 nm²".
func FormatArea(nm2 float64) string {
	return groupThousands(int64(math.Round(nm2))) + " nm²"
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
