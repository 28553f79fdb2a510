package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

// AreaFile is the optional YAML override of the selection geometry and bin catalogs.
// Omitted sections keep their built-in defaults.
type AreaFile struct {
	PadSteps []domain.PadStep `yaml:"pad_steps"`
	LatBand  []float64        `yaml:"lat_band"`
	Catalogs struct {
		Wind        *domain.Catalog `yaml:"wind"`
		Wave        *domain.Catalog `yaml:"wave"`
		Rain        *domain.Catalog `yaml:"rain"`
		Current     *domain.Catalog `yaml:"current"`
		Temperature *domain.Catalog `yaml:"temperature"`
	} `yaml:"catalogs"`
}

// Area is the resolved geometry and catalog configuration.
type Area struct {
	Selector domain.AreaSelector
	Catalogs domain.Catalogs
}

// LoadArea builds the area configuration from the built-in defaults, the optional YAML
// file at path, and the calm suppression flag.
func LoadArea(path string, suppressCalm bool) (Area, error) {
	area := Area{
		Selector: domain.DefaultAreaSelector(),
		Catalogs: domain.DefaultCatalogs(),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Area{}, fmt.Errorf("read BIN_CATALOG_PATH: %w", err)
		}
		if area, err = ParseArea(data); err != nil {
			return Area{}, fmt.Errorf("BIN_CATALOG_PATH %s: %w", path, err)
		}
	}

	area.Catalogs = area.Catalogs.WithSuppressFirst(suppressCalm)
	return area, nil
}

// ParseArea decodes and validates a YAML area file on top of the defaults.
func ParseArea(data []byte) (Area, error) {
	var f AreaFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return Area{}, fmt.Errorf("decode yaml: %w", err)
	}

	cats := domain.DefaultCatalogs()
	override := func(dst *domain.Catalog, src *domain.Catalog, name string) {
		if src == nil {
			return
		}
		*dst = *src
		if dst.Name == "" {
			dst.Name = name
		}
	}
	override(&cats.Wind, f.Catalogs.Wind, domain.PhenomenonWind)
	override(&cats.Wave, f.Catalogs.Wave, domain.PhenomenonWave)
	override(&cats.Rain, f.Catalogs.Rain, domain.PhenomenonRain)
	override(&cats.Current, f.Catalogs.Current, domain.PhenomenonCurrent)
	override(&cats.Temperature, f.Catalogs.Temperature, domain.PhenomenonTemperature)
	if err := cats.Validate(); err != nil {
		return Area{}, err
	}

	steps := domain.DefaultPadSteps
	if len(f.PadSteps) > 0 {
		steps = f.PadSteps
	}
	band := domain.DefaultLatBand
	switch len(f.LatBand) {
	case 0:
	case 2:
		band = [2]float64{f.LatBand[0], f.LatBand[1]}
	default:
		return Area{}, fmt.Errorf("lat_band must have exactly two values, got %d", len(f.LatBand))
	}
	sel, err := domain.NewAreaSelector(steps, band)
	if err != nil {
		return Area{}, err
	}

	return Area{Selector: sel, Catalogs: cats}, nil
}
