package domain

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	mmPerInch     = 25.4
	daysPerMonth  = 30
	fahrenheitOff = 32
)

var (
	// ErrEmptySeries is returned when a combination has nothing to combine.
	ErrEmptySeries = errors.New("empty series")

	// ErrNonFinite is returned when an input value is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value in series")
)

func checkSeries(values []float64) error {
	if len(values) == 0 {
		return ErrEmptySeries
	}
	if floats.HasNaN(values) {
		return ErrNonFinite
	}
	for _, v := range values {
		if math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

// CombineMeans returns the arithmetic mean of values.
func CombineMeans(values []float64) (float64, error) {
	if err := checkSeries(values); err != nil {
		return 0, err
	}
	return stat.Mean(values, nil), nil
}

// CombineStds returns the quadratic mean sqrt(mean(v²)) of standard deviations,
// i.e. the deviation of the averaged variances.
func CombineStds(values []float64) (float64, error) {
	if err := checkSeries(values); err != nil {
		return 0, err
	}
	variances := make([]float64, len(values))
	floats.MulTo(variances, values, values)
	return math.Sqrt(stat.Mean(variances, nil)), nil
}

// CombineMeanStdPairs combines means arithmetically and stds quadratically.
func CombineMeanStdPairs(pairs []MeanStd) (MeanStd, error) {
	means := make([]float64, len(pairs))
	stds := make([]float64, len(pairs))
	for i, p := range pairs {
		means[i] = p.Mean
		stds[i] = p.Std
	}
	mean, err := CombineMeans(means)
	if err != nil {
		return MeanStd{}, err
	}
	std, err := CombineStds(stds)
	if err != nil {
		return MeanStd{}, err
	}
	return MeanStd{Mean: mean, Std: std}, nil
}

// TemperatureRange is the typical daily air temperature span of a selection. The
// colors come from the temperature catalog and are empty outside its bins.
type TemperatureRange struct {
	HighC     int    `json:"high_c"`
	LowC      int    `json:"low_c"`
	HighF     int    `json:"high_f"`
	LowF      int    `json:"low_f"`
	HighColor string `json:"high_color,omitempty"`
	LowColor  string `json:"low_color,omitempty"`
}

// Colorize sets HighColor and LowColor from the bins of cat holding each end.
func (t *TemperatureRange) Colorize(cat Catalog) {
	t.HighColor = binColor(cat, float64(t.HighC))
	t.LowColor = binColor(cat, float64(t.LowC))
}

func binColor(cat Catalog, v float64) string {
	if i := cat.Locate(v); i >= 0 {
		return cat.Bins[i].Color
	}
	return ""
}

// SummarizeAirTemperature combines daily highs and lows of all records. The high is
// raised and the low lowered by the combined std over sqrt(n).
func SummarizeAirTemperature(records []TemperatureRecord) (TemperatureRange, error) {
	highs := make([]MeanStd, len(records))
	lows := make([]MeanStd, len(records))
	for i, r := range records {
		highs[i] = MeanStd{Mean: r.HighMean, Std: r.HighStd}
		lows[i] = MeanStd{Mean: r.LowMean, Std: r.LowStd}
	}
	hi, err := CombineMeanStdPairs(highs)
	if err != nil {
		return TemperatureRange{}, err
	}
	lo, err := CombineMeanStdPairs(lows)
	if err != nil {
		return TemperatureRange{}, err
	}

	errFactor := math.Sqrt(float64(len(records)))
	highC := math.Round(hi.Mean + hi.Std/errFactor)
	lowC := math.Round(lo.Mean - lo.Std/errFactor)
	return TemperatureRange{
		HighC: int(highC),
		LowC:  int(lowC),
		HighF: int(math.Round(CelsiusToFahrenheit(highC))),
		LowF:  int(math.Round(CelsiusToFahrenheit(lowC))),
	}, nil
}

// SeaTemperature is the average water temperature of a selection.
type SeaTemperature struct {
	MeanC float64 `json:"mean_c"`
	MeanF float64 `json:"mean_f"`
}

// SummarizeSeaTemperature averages the daily midpoints (high+low)/2 of all records.
func SummarizeSeaTemperature(records []TemperatureRecord) (SeaTemperature, error) {
	mids := make([]float64, len(records))
	for i, r := range records {
		mids[i] = (r.HighMean + r.LowMean) / 2
	}
	mean, err := CombineMeans(mids)
	if err != nil {
		return SeaTemperature{}, err
	}
	return SeaTemperature{MeanC: mean, MeanF: CelsiusToFahrenheit(mean)}, nil
}

// RainSummary is the average precipitation of a selection.
type RainSummary struct {
	DailyMm     float64 `json:"daily_mm"`
	MonthlyMm   float64 `json:"monthly_mm"`
	DailyInch   float64 `json:"daily_in"`
	MonthlyInch float64 `json:"monthly_in"`
}

// SummarizeRainAmount averages daily means and extrapolates to a 30 day month.
func SummarizeRainAmount(amounts []RainAmount) (RainSummary, error) {
	daily := make([]float64, len(amounts))
	for i, a := range amounts {
		daily[i] = a.DailyMean
	}
	mean, err := CombineMeans(daily)
	if err != nil {
		return RainSummary{}, err
	}
	monthly := mean * daysPerMonth
	return RainSummary{
		DailyMm:     mean,
		MonthlyMm:   monthly,
		DailyInch:   mean / mmPerInch,
		MonthlyInch: monthly / mmPerInch,
	}, nil
}

// CelsiusToFahrenheit converts °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + fahrenheitOff
}
