package domain

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// BinCount is the aggregated count of one bin and its share of the total.
type BinCount struct {
	Bin       Bin     `json:"bin"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// Result is the aggregation of a record set over a catalog, in catalog order.
//
// Unmapped counts records whose index is missing from the category map, Unbinned
// those whose category belongs to no bin, and Invalid those with a negative count.
// None of them contribute to Total.
type Result struct {
	Bins     []BinCount `json:"bins"`
	Total    int        `json:"total"`
	Unmapped int        `json:"unmapped"`
	Unbinned int        `json:"unbinned"`
	Invalid  int        `json:"invalid"`
}

// Frequencies returns the bin frequencies in catalog order.
func (r Result) Frequencies() []float64 {
	out := make([]float64, len(r.Bins))
	for i, b := range r.Bins {
		out[i] = b.Frequency
	}
	return out
}

// Sorted returns the bins by descending frequency. Ties keep catalog order.
func (r Result) Sorted() []BinCount {
	out := make([]BinCount, len(r.Bins))
	copy(out, r.Bins)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Frequency > out[j].Frequency
	})
	return out
}

// Dominant returns the bin with the highest frequency, the first one on ties. With
// skipFirst the first catalog bin is never chosen. ok is false when nothing was counted.
func (r Result) Dominant(skipFirst bool) (bc BinCount, ok bool) {
	if r.Total == 0 {
		return BinCount{}, false
	}
	start := 0
	if skipFirst {
		start = 1
	}
	best := -1
	for i := start; i < len(r.Bins); i++ {
		if best < 0 || r.Bins[i].Frequency > r.Bins[best].Frequency {
			best = i
		}
	}
	if best < 0 || r.Bins[best].Count == 0 {
		return BinCount{}, false
	}
	return r.Bins[best], true
}

type aggregateOptions struct {
	direction int
}

// AggregateOption tunes Aggregate.
type AggregateOption func(*aggregateOptions)

// WithDirection keeps only records of one direction index.
func WithDirection(dir int) AggregateOption {
	return func(o *aggregateOptions) {
		o.direction = dir
	}
}

// Aggregate sums record counts per catalog bin and normalizes them over the total.
// A zero total yields zero frequencies.
func Aggregate(records []RawRecord, catalog Catalog, categories CategoryMap, opts ...AggregateOption) Result {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Bins: make([]BinCount, len(catalog.Bins))}
	for i, b := range catalog.Bins {
		res.Bins[i].Bin = b
	}

	for _, rec := range records {
		if o.direction != 0 && rec.Direction != o.direction {
			continue
		}
		if rec.Count < 0 {
			res.Invalid++
			continue
		}
		key, ok := categories[rec.Index]
		if !ok {
			res.Unmapped++
			continue
		}
		i := catalog.KeyIndex(key)
		if i < 0 {
			res.Unbinned++
			continue
		}
		res.Bins[i].Count += rec.Count
		res.Total += rec.Count
	}

	normalize(res.Bins, res.Total)
	return res
}

func normalize(bins []BinCount, total int) {
	if total == 0 {
		return
	}
	freqs := make([]float64, len(bins))
	for i, b := range bins {
		freqs[i] = float64(b.Count)
	}
	floats.Scale(1/float64(total), freqs)
	for i := range bins {
		bins[i].Frequency = freqs[i]
	}
}

// RoseSector is the aggregation of one compass direction. Frequencies are shares of
// the grand total over all directions.
type RoseSector struct {
	Direction WindDirection `json:"direction"`
	Bins      []BinCount    `json:"bins"`
	Total     int           `json:"total"`
	Frequency float64       `json:"frequency"`
}

// Rose is a direction by bin distribution.
type Rose struct {
	Sectors  []RoseSector `json:"sectors"`
	Total    int          `json:"total"`
	Unmapped int          `json:"unmapped"`
	Unbinned int          `json:"unbinned"`
	Invalid  int          `json:"invalid"`
}

// AggregateRose splits records by direction and bins each sector. Records with an
// unknown direction count as unmapped.
func AggregateRose(records []RawRecord, catalog Catalog, categories CategoryMap, directions []WindDirection) Rose {
	rose := Rose{Sectors: make([]RoseSector, len(directions))}
	sectorOf := make(map[int]int, len(directions))
	for i, d := range directions {
		sectorOf[d.Idx] = i
		rose.Sectors[i].Direction = d
		rose.Sectors[i].Bins = make([]BinCount, len(catalog.Bins))
		for j, b := range catalog.Bins {
			rose.Sectors[i].Bins[j].Bin = b
		}
	}

	for _, rec := range records {
		if rec.Count < 0 {
			rose.Invalid++
			continue
		}
		s, ok := sectorOf[rec.Direction]
		if !ok {
			rose.Unmapped++
			continue
		}
		key, ok := categories[rec.Index]
		if !ok {
			rose.Unmapped++
			continue
		}
		j := catalog.KeyIndex(key)
		if j < 0 {
			rose.Unbinned++
			continue
		}
		rose.Sectors[s].Bins[j].Count += rec.Count
		rose.Sectors[s].Total += rec.Count
		rose.Total += rec.Count
	}

	if rose.Total == 0 {
		return rose
	}
	for i := range rose.Sectors {
		sec := &rose.Sectors[i]
		normalize(sec.Bins, rose.Total)
		sec.Frequency = float64(sec.Total) / float64(rose.Total)
	}
	return rose
}
