package domain

import "errors"

// RawRecord counts observations in one category, optionally split by direction.
// Direction is 1-based; 0 means the record has no direction axis.
type RawRecord struct {
	Index     int `json:"idx"`
	Direction int `json:"dir,omitempty"`
	Count     int `json:"count"`
}

// MeanStd is one mean and standard deviation pair.
type MeanStd struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// TemperatureRecord holds the daily high and low statistics of one grid position.
type TemperatureRecord struct {
	HighMean float64 `json:"highMean"`
	HighStd  float64 `json:"highStd"`
	LowMean  float64 `json:"lowMean"`
	LowStd   float64 `json:"lowStd"`
}

// RainAmount is the mean daily precipitation of one grid position, in mm.
type RainAmount struct {
	DailyMean float64 `json:"dailyMean"`
}

// WeatherQuery selects one time range, one month and one rectangle.
type WeatherQuery struct {
	TimeRange string    `json:"timeRange"`
	Month     string    `json:"month"`
	Rect      Rectangle `json:"rect"`
}

// WeatherResult is the upstream answer to a WeatherQuery.
type WeatherResult struct {
	Winds           []RawRecord         `json:"windRecords"`
	Currents        []RawRecord         `json:"currentRecords"`
	Waves           []RawRecord         `json:"waveRecords"`
	Rains           []RawRecord         `json:"rainRecords"`
	RainAmounts     []RainAmount        `json:"rainAmounts"`
	Temperatures    []TemperatureRecord `json:"tempRecords"`
	SeaTemperatures []TemperatureRecord `json:"seatempRecords"`
}

// Empty reports whether the result carries no records at all.
func (r WeatherResult) Empty() bool {
	return len(r.Winds) == 0 && len(r.Currents) == 0 && len(r.Waves) == 0 &&
		len(r.Rains) == 0 && len(r.RainAmounts) == 0 &&
		len(r.Temperatures) == 0 && len(r.SeaTemperatures) == 0
}

var (
	// ErrSourceUnavailable marks upstream failures that retrying will not fix soon,
	// such as an open circuit breaker.
	ErrSourceUnavailable = errors.New("weather source unavailable")

	// ErrQueryRejected marks queries the upstream refused as invalid.
	ErrQueryRejected = errors.New("weather query rejected")
)
