// Command summarize prints the summary of a recorded weather query without contacting
// the data API. The weather file holds a data API response, either the full GraphQL
// body or the bare weather object. The metadata file is optional, is read the same way
// and defaults to the built-in dataset description.
//
// Usage:
//
//	go run ./cmd/summarize \
//	  -weather cmd/summarize/testdata/weather.json \
//	  -lat 46 -lng -6 -zoom 6 -timeRange 2016-2020 -month Jul
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/prevailing-winds/internal/adapter/graphql"
	"github.com/couchcryptid/prevailing-winds/internal/config"
	"github.com/couchcryptid/prevailing-winds/internal/domain"
)

type options struct {
	metaPath    string
	weatherPath string
	catalogPath string
	lat, lng    float64
	zoom        int
	timeRange   string
	month       string
	asJSON      bool
	keepCalm    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.metaPath, "meta", "", "path to a metadata JSON file (default: built-in metadata)")
	flag.StringVar(&opts.weatherPath, "weather", "", "path to a weather query response JSON file")
	flag.StringVar(&opts.catalogPath, "catalog", "", "path to a YAML bin catalog override")
	flag.Float64Var(&opts.lat, "lat", 0, "clicked latitude")
	flag.Float64Var(&opts.lng, "lng", 0, "clicked longitude")
	flag.IntVar(&opts.zoom, "zoom", 6, "map zoom level")
	flag.StringVar(&opts.timeRange, "timeRange", "", "time range label (default: first in metadata)")
	flag.StringVar(&opts.month, "month", "", "month label (default: first in metadata)")
	flag.BoolVar(&opts.asJSON, "json", false, "print the full summary as JSON")
	flag.BoolVar(&opts.keepCalm, "keep-calm", false, "allow the calm bin to be the dominant condition")
	flag.Parse()

	if opts.weatherPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "summarize: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, opts options) error {
	meta := domain.DefaultMetadata()
	if opts.metaPath != "" {
		data, err := os.ReadFile(opts.metaPath)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		if meta, err = graphql.DecodeMetadata(data); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
	}
	if !meta.Loaded() {
		return errors.New("metadata has no time ranges, months or wind velocities")
	}

	data, err := os.ReadFile(opts.weatherPath)
	if err != nil {
		return fmt.Errorf("weather: %w", err)
	}
	res, err := graphql.DecodeWeather(data)
	if err != nil {
		return fmt.Errorf("weather: %w", err)
	}

	area, err := config.LoadArea(opts.catalogPath, !opts.keepCalm)
	if err != nil {
		return err
	}

	if opts.timeRange == "" {
		opts.timeRange = meta.TimeRanges[0]
	}
	if opts.month == "" {
		opts.month = meta.Months[0]
	}
	if err := meta.ValidateQuery(opts.timeRange, opts.month); err != nil {
		return err
	}

	q := domain.WeatherQuery{
		TimeRange: opts.timeRange,
		Month:     opts.month,
		Rect:      area.Selector.RectangleFromClick(domain.Point{Lat: opts.lat, Lng: opts.lng}, opts.zoom),
	}
	summary := domain.Summarize(q, res, meta, area.Catalogs)

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(w, "%s, %s %s, %s\n", summary.Location, q.Month, q.TimeRange, summary.AreaText)
	for _, text := range summary.Texts() {
		fmt.Fprintf(w, "  %s\n", text)
	}
	for phenomenon, n := range summary.Unmapped {
		fmt.Fprintf(w, "  (%d %s records with unknown index skipped)\n", n, phenomenon)
	}
	return nil
}
