// Command validate checks a bin catalog against the dataset metadata. It verifies the
// catalog structure, the metadata tables, and that every category key sits in the bin
// that holds the start of its physical range.
//
// Usage:
//
//	go run ./cmd/validate -catalog bins.yaml -meta meta.json
//	go run ./cmd/validate -catalog bins.yaml -url https://data.example.com/graphql
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/prevailing-winds/internal/adapter/graphql"
	"github.com/couchcryptid/prevailing-winds/internal/config"
	"github.com/couchcryptid/prevailing-winds/internal/domain"
	"github.com/couchcryptid/prevailing-winds/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// addErr records every error joined into err.
func (p *phase) addErr(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			p.addErr(e)
		}
		return
	}
	p.errors = append(p.errors, err.Error())
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogPath := flag.String("catalog", "", "path to a YAML bin catalog (default: built-in catalogs)")
	metaPath := flag.String("meta", "", "path to a metadata JSON file")
	apiURL := flag.String("url", "", "data API endpoint to fetch metadata from")
	timeout := flag.Duration("timeout", 10*time.Second, "data API timeout")
	flag.Parse()

	meta, err := loadMetadata(*metaPath, *apiURL, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if code := run(os.Stdout, *catalogPath, meta); code != 0 {
		os.Exit(code)
	}
}

func loadMetadata(path, url string, timeout time.Duration) (domain.Metadata, error) {
	switch {
	case path != "" && url != "":
		return domain.Metadata{}, errors.New("use either -meta or -url, not both")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Metadata{}, fmt.Errorf("read metadata: %w", err)
		}
		return graphql.DecodeMetadata(data)
	case url != "":
		logger := observability.NewLogger("warn", "text")
		client := graphql.NewClient(url, timeout, logger, observability.NewMetrics())
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return client.Metadata(ctx)
	default:
		return domain.DefaultMetadata(), nil
	}
}

func run(w io.Writer, catalogPath string, meta domain.Metadata) int {
	fmt.Fprintln(w, "=== Bin Catalog Validation ===")
	fmt.Fprintln(w)

	area, structure := validateStructure(catalogPath)
	phases := []*phase{structure, validateMetadata(meta)}
	if structure.passed() {
		phases = append(phases, validateRanges(area.Catalogs, meta))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Metadata: build %q, %d time ranges, %d months, %d wind, %d wave, %d rain, %d current categories\n",
		meta.BuildDate, len(meta.TimeRanges), len(meta.Months),
		len(meta.WindVelocities), len(meta.WaveHeights), len(meta.RainIntensities), len(meta.CurrentVelocities))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Catalog structure ──

func validateStructure(path string) (config.Area, *phase) {
	p := &phase{name: "Phase 1: Catalog structure"}
	area, err := config.LoadArea(path, true)
	p.addErr(err)
	return area, p
}

// ── Phase 2: Metadata tables ──

func validateMetadata(meta domain.Metadata) *phase {
	p := &phase{name: "Phase 2: Metadata tables"}
	if !meta.Loaded() {
		p.errorf("metadata has no time ranges, months or wind velocities")
	}
	if n := len(meta.Directions); n != 0 && n != 16 {
		p.errorf("expected 16 compass directions, got %d", n)
	}

	checkUnique := func(table string, idxs []int) {
		seen := make(map[int]bool, len(idxs))
		for _, idx := range idxs {
			if seen[idx] {
				p.errorf("%s: duplicate idx %d", table, idx)
			}
			seen[idx] = true
		}
	}
	var idxs []int
	for _, d := range meta.Directions {
		idxs = append(idxs, d.Idx)
	}
	checkUnique("directions", idxs)
	idxs = idxs[:0]
	for _, v := range meta.WindVelocities {
		idxs = append(idxs, v.Idx)
	}
	checkUnique("windVelocities", idxs)
	idxs = idxs[:0]
	for _, v := range meta.WaveHeights {
		idxs = append(idxs, v.Idx)
	}
	checkUnique("waveHeights", idxs)
	idxs = idxs[:0]
	for _, v := range meta.RainIntensities {
		idxs = append(idxs, v.Idx)
	}
	checkUnique("rainIntensities", idxs)
	idxs = idxs[:0]
	for _, v := range meta.CurrentVelocities {
		idxs = append(idxs, v.Idx)
	}
	checkUnique("currentVelocities", idxs)

	for _, bounds := range [][]domain.CategoryBound{meta.WindBounds(), meta.WaveBounds(), meta.RainBounds(), meta.CurrentBounds()} {
		for _, b := range bounds {
			if b.From != nil && b.To != nil && *b.From >= *b.To {
				p.errorf("category %d: empty range %s", b.Key, domain.FormatRange(b.From, b.To, ""))
			}
		}
	}
	return p
}

// ── Phase 3: Catalog vs metadata ranges ──

func validateRanges(cats domain.Catalogs, meta domain.Metadata) *phase {
	p := &phase{name: "Phase 3: Catalog vs metadata ranges"}
	p.addErr(cats.CheckMetadata(meta))
	return p
}
