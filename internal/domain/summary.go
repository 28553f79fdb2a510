package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

const feetPerMeter = 3.28084

// summaryClock stamps generated summaries.
var summaryClock = clockwork.NewRealClock()

// SetClock swaps the time source for GeneratedAt. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	summaryClock = c
}

func now() time.Time {
	return summaryClock.Now().UTC()
}

// Condition is the most common bin of one phenomenon with its display text.
type Condition struct {
	Phenomenon string  `json:"phenomenon"`
	Label      string  `json:"label"`
	Range      string  `json:"range"`
	Frequency  float64 `json:"frequency"`
	Color      string  `json:"color"`
	Text       string  `json:"text"`
}

// Summary is everything presentation needs for one selection.
type Summary struct {
	Query       WeatherQuery `json:"query"`
	Area        float64      `json:"area_nm2"`
	AreaText    string       `json:"area_text"`
	Location    string       `json:"location"`
	Wind        Result       `json:"wind"`
	WindRose    Rose         `json:"wind_rose"`
	Wave        Result       `json:"wave"`
	Rain        Result       `json:"rain"`
	Current     Result       `json:"current"`
	CurrentRose Rose         `json:"current_rose"`
	Conditions  []Condition  `json:"conditions"`

	AirTemperature *TemperatureRange `json:"air_temperature,omitempty"`
	SeaTemperature *SeaTemperature   `json:"sea_temperature,omitempty"`
	RainAmount     *RainSummary      `json:"rain_amount,omitempty"`

	// Unmapped counts records per phenomenon whose index the metadata does not know.
	Unmapped map[string]int `json:"unmapped,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Texts returns the display texts of the summary in a stable order.
func (s Summary) Texts() []string {
	var out []string
	if t := s.AirTemperature; t != nil {
		out = append(out, fmt.Sprintf("Air temperature ranges from %d°C to %d°C (%d°F - %d°F)",
			t.LowC, t.HighC, t.LowF, t.HighF))
	}
	if r := s.RainAmount; r != nil {
		out = append(out, fmt.Sprintf("On average it rains %s mm daily (%s in) and %s mm the whole month (%s in)",
			formatNumber(r.DailyMm), formatNumber(r.DailyInch), formatNumber(r.MonthlyMm), formatNumber(r.MonthlyInch)))
	}
	if t := s.SeaTemperature; t != nil {
		out = append(out, fmt.Sprintf("Average water temperature is %s°C (%s°F)",
			formatNumber(math.Round(t.MeanC)), formatNumber(math.Round(t.MeanF))))
	}
	for _, c := range s.Conditions {
		out = append(out, c.Text)
	}
	return out
}

var conditionPhrases = map[string]string{
	PhenomenonWind:    "Winds of %s (%s)",
	PhenomenonWave:    "%s seas (%s)",
	PhenomenonRain:    "%s days (%s)",
	PhenomenonCurrent: "%s currents (%s)",
}

// Summarize aggregates a weather result for presentation. Catalog keys are resolved
// through the metadata; series without data are left nil.
func Summarize(q WeatherQuery, res WeatherResult, meta Metadata, cats Catalogs) Summary {
	center := q.Rect.Center()
	area := q.Rect.Area()
	s := Summary{
		Query:       q,
		Area:        area,
		AreaText:    FormatArea(area),
		Location:    FormatDMS(center.Lat, center.Lng),
		Wind:        Aggregate(res.Winds, cats.Wind, meta.WindCategories()),
		WindRose:    AggregateRose(res.Winds, cats.Wind, meta.WindCategories(), meta.Directions),
		Wave:        Aggregate(res.Waves, cats.Wave, meta.WaveCategories()),
		Rain:        Aggregate(res.Rains, cats.Rain, meta.RainCategories()),
		Current:     Aggregate(res.Currents, cats.Current, meta.CurrentCategories()),
		CurrentRose: AggregateRose(res.Currents, cats.Current, meta.CurrentCategories(), meta.Directions),
		GeneratedAt: now(),
	}

	for _, p := range []struct {
		cat Catalog
		res Result
	}{
		{cats.Wind, s.Wind},
		{cats.Wave, s.Wave},
		{cats.Rain, s.Rain},
		{cats.Current, s.Current},
	} {
		if p.res.Unmapped > 0 {
			if s.Unmapped == nil {
				s.Unmapped = make(map[string]int)
			}
			s.Unmapped[p.cat.Name] = p.res.Unmapped
		}
		if c, ok := DescribeDominant(p.cat, p.res); ok {
			s.Conditions = append(s.Conditions, c)
		}
	}

	if t, err := SummarizeAirTemperature(res.Temperatures); err == nil {
		t.Colorize(cats.Temperature)
		s.AirTemperature = &t
	}
	if t, err := SummarizeSeaTemperature(res.SeaTemperatures); err == nil {
		s.SeaTemperature = &t
	}
	if r, err := SummarizeRainAmount(res.RainAmounts); err == nil {
		s.RainAmount = &r
	}
	return s
}

// DescribeDominant formats the dominant bin of a result, honoring the catalog's
// SuppressFirst flag.
func DescribeDominant(cat Catalog, res Result) (Condition, bool) {
	bc, ok := res.Dominant(cat.SuppressFirst)
	if !ok {
		return Condition{}, false
	}
	rng := cat.RangeText(bc.Bin)
	if cat.Name == PhenomenonWave {
		rng = fmt.Sprintf("%s, %s", rng, FormatRange(scale(bc.Bin.Low, feetPerMeter), scale(bc.Bin.High, feetPerMeter), "ft"))
	}

	phrase, found := conditionPhrases[cat.Name]
	if !found {
		phrase = "%s (%s)"
	}
	subject := fmt.Sprintf(phrase, bc.Bin.Label, rng)
	return Condition{
		Phenomenon: cat.Name,
		Label:      bc.Bin.Label,
		Range:      rng,
		Frequency:  bc.Frequency,
		Color:      bc.Bin.Color,
		Text:       fmt.Sprintf("%s are most often encountered making up %s", subject, FormatPercent(bc.Frequency)),
	}, true
}

// FormatPercent renders a frequency as a whole percentage, e.g. "35%".
func FormatPercent(freq float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(freq*100)))
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return f(*v * factor)
}
