package graphql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

// Upstream GraphQL response types. Optional range bounds are strings; an empty or null
// bound is unbounded.

type weatherInput struct {
	TimeRange string  `json:"timeRange"`
	Month     string  `json:"month"`
	FromLat   float64 `json:"fromLat"`
	ToLat     float64 `json:"toLat"`
	FromLng   float64 `json:"fromLng"`
	ToLng     float64 `json:"toLng"`
}

type metaResponse struct {
	CIPipelineID   string                 `json:"ciPipelineId"`
	BuildDate      string                 `json:"buildDate"`
	TimeRanges     []string               `json:"timeRanges"`
	Months         []string               `json:"months"`
	Directions     []domain.WindDirection `json:"directions"`
	WindVelocities []struct {
		Idx            int     `json:"idx"`
		BeaufortName   string  `json:"beaufortName"`
		BeaufortNumber int     `json:"beaufortNumber"`
		FromKt         *string `json:"fromKt"`
		ToKt           *string `json:"toKt"`
	} `json:"windVelocities"`
	WaveHeights []struct {
		Idx           int     `json:"idx"`
		DouglasDegree int     `json:"douglasDegree"`
		FromM         *string `json:"fromM"`
		ToM           *string `json:"toM"`
	} `json:"waveHeights"`
	RainIntensities []struct {
		Idx    int     `json:"idx"`
		Class  int     `json:"class"`
		Name   string  `json:"name"`
		FromMm *string `json:"fromMm"`
		ToMm   *string `json:"toMm"`
	} `json:"rainIntensities"`
	CurrentVelocities []struct {
		Idx    int     `json:"idx"`
		Class  int     `json:"class"`
		FromKt *string `json:"fromKt"`
		ToKt   *string `json:"toKt"`
	} `json:"currentVelocities"`
}

func (m metaResponse) toDomain() (domain.Metadata, error) {
	out := domain.Metadata{
		PipelineID: m.CIPipelineID,
		BuildDate:  m.BuildDate,
		TimeRanges: m.TimeRanges,
		Months:     m.Months,
		Directions: m.Directions,
	}
	var p boundParser
	for _, v := range m.WindVelocities {
		out.WindVelocities = append(out.WindVelocities, domain.WindVelocity{
			Idx:            v.Idx,
			BeaufortName:   v.BeaufortName,
			BeaufortNumber: v.BeaufortNumber,
			FromKt:         p.parse("windVelocities.fromKt", v.FromKt),
			ToKt:           p.parse("windVelocities.toKt", v.ToKt),
		})
	}
	for _, w := range m.WaveHeights {
		out.WaveHeights = append(out.WaveHeights, domain.WaveHeight{
			Idx:           w.Idx,
			DouglasDegree: w.DouglasDegree,
			FromM:         p.parse("waveHeights.fromM", w.FromM),
			ToM:           p.parse("waveHeights.toM", w.ToM),
		})
	}
	for _, r := range m.RainIntensities {
		out.RainIntensities = append(out.RainIntensities, domain.RainIntensity{
			Idx:    r.Idx,
			Class:  r.Class,
			Name:   r.Name,
			FromMm: p.parse("rainIntensities.fromMm", r.FromMm),
			ToMm:   p.parse("rainIntensities.toMm", r.ToMm),
		})
	}
	for _, c := range m.CurrentVelocities {
		out.CurrentVelocities = append(out.CurrentVelocities, domain.CurrentVelocity{
			Idx:    c.Idx,
			Class:  c.Class,
			FromKt: p.parse("currentVelocities.fromKt", c.FromKt),
			ToKt:   p.parse("currentVelocities.toKt", c.ToKt),
		})
	}
	if p.err != nil {
		return domain.Metadata{}, p.err
	}
	return out, nil
}

// boundParser keeps the first parse error so a whole table can be converted in one pass.
type boundParser struct {
	err error
}

func (p *boundParser) parse(field string, s *string) *float64 {
	v, err := parseBound(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", field, err)
	}
	return v
}

func parseBound(s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type directedRecord struct {
	Dir   int `json:"dir"`
	Vel   int `json:"vel"`
	Count int `json:"count"`
}

type waveRecord struct {
	Height flexInt `json:"height"`
	Count  int     `json:"count"`
}

type rainRecord struct {
	Idx   int `json:"idx"`
	Count int `json:"count"`
}

type weatherResponse struct {
	WindRecords    []directedRecord           `json:"windRecords"`
	CurrentRecords []directedRecord           `json:"currentRecords"`
	WaveRecords    []waveRecord               `json:"waveRecords"`
	RainRecords    []rainRecord               `json:"rainRecords"`
	RainAmounts    []domain.RainAmount        `json:"rainAmounts"`
	TempRecords    []domain.TemperatureRecord `json:"tempRecords"`
	SeatempRecords []domain.TemperatureRecord `json:"seatempRecords"`
}

func (w weatherResponse) toDomain() domain.WeatherResult {
	res := domain.WeatherResult{
		RainAmounts:     w.RainAmounts,
		Temperatures:    w.TempRecords,
		SeaTemperatures: w.SeatempRecords,
	}
	for _, r := range w.WindRecords {
		res.Winds = append(res.Winds, domain.RawRecord{Index: r.Vel, Direction: r.Dir, Count: r.Count})
	}
	for _, r := range w.CurrentRecords {
		res.Currents = append(res.Currents, domain.RawRecord{Index: r.Vel, Direction: r.Dir, Count: r.Count})
	}
	for _, r := range w.WaveRecords {
		res.Waves = append(res.Waves, domain.RawRecord{Index: int(r.Height), Count: r.Count})
	}
	for _, r := range w.RainRecords {
		res.Rains = append(res.Rains, domain.RawRecord{Index: r.Idx, Count: r.Count})
	}
	return res
}

// flexInt accepts a JSON number or a numeric string. Wave height indices are map keys
// upstream and arrive as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parse index %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}
