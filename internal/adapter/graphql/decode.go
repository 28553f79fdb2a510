package graphql

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

// DecodeMetadata parses a recorded meta query result. data is either the full GraphQL
// response ({"data":{"meta":{...}}}) or the bare meta object.
func DecodeMetadata(data []byte) (domain.Metadata, error) {
	var env struct {
		Data *struct {
			Meta *metaResponse `json:"meta"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if env.Data != nil && env.Data.Meta != nil {
		return env.Data.Meta.toDomain()
	}

	var meta metaResponse
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.toDomain()
}

// DecodeWeather parses a recorded weather query result. data is either the full GraphQL
// response ({"data":{"weather":{...}}}) or the bare weather object.
func DecodeWeather(data []byte) (domain.WeatherResult, error) {
	var env struct {
		Data *struct {
			Weather *weatherResponse `json:"weather"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.WeatherResult{}, fmt.Errorf("decode weather: %w", err)
	}
	if env.Data != nil && env.Data.Weather != nil {
		return env.Data.Weather.toDomain(), nil
	}

	var w weatherResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.WeatherResult{}, fmt.Errorf("decode weather: %w", err)
	}
	return w.toDomain(), nil
}
