// Package qc flags suspicious values in a parsed logger table.
//
// Flags follow the OceanSITES convention: 0 means never checked, 1 means
// checked and nominal, 4 means bad. Run applies the standard chain to every
// data column: reset to 0, flat line, spike, range, then 0 -> 1.
package qc

import (
	"github.com/JonMunkholm/hobo/internal/header"
	"github.com/JonMunkholm/hobo/internal/table"
)

// Flag values.
const (
	FlagNoQC = 0
	FlagGood = 1
	FlagBad  = 4
)

// Defaults for the standard chain.
const (
	DefaultFlatWindow     = 3
	DefaultSpikeThreshold = 3.0
)

// Bounds is an inclusive valid range.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within b.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// DefaultRanges are the sensor limits of the common HOBO channels in their
// default units.
var DefaultRanges = map[header.ChannelSlot]Bounds{
	header.Temperature:      {Min: -40, Max: 85},
	header.Pressure:         {Min: 0, Max: 400},
	header.RelativeHumidity: {Min: 0, Max: 100},
	header.Battery:          {Min: 0, Max: 5},
}

// Options configures Run.
type Options struct {
	// FlatWindow is the run length of identical values that counts as a
	// flat line. 0 uses DefaultFlatWindow.
	FlatWindow int

	// SpikeWindow is the number of preceding values a spike is measured
	// against. 0 measures against the whole series.
	SpikeWindow int

	// SpikeThreshold is the number of standard deviations a value may sit
	// from the mean. 0 uses DefaultSpikeThreshold.
	SpikeThreshold float64

	// Ranges holds per-channel valid ranges. Channels without an entry skip
	// the range test. Nil uses DefaultRanges.
	Ranges map[header.ChannelSlot]Bounds
}

// DefaultOptions returns the standard chain configuration.
func DefaultOptions() Options {
	return Options{
		FlatWindow:     DefaultFlatWindow,
		SpikeThreshold: DefaultSpikeThreshold,
		Ranges:         DefaultRanges,
	}
}

// Chain returns the ordered tests Run applies to a column of slot.
func (o Options) Chain(slot header.ChannelSlot) []Test {
	ranges := o.Ranges
	if ranges == nil {
		ranges = DefaultRanges
	}

	chain := []Test{
		ResetFlags{Flag: FlagNoQC},
		FlatTest{Window: o.FlatWindow, Flag: FlagBad},
		SpikeTest{Window: o.SpikeWindow, Threshold: o.SpikeThreshold, Flag: FlagBad},
	}
	if b, ok := ranges[slot]; ok {
		chain = append(chain, RangeTest{Bounds: b, Flag: FlagBad})
	}
	return append(chain, FlagToFlag{From: FlagNoQC, To: FlagGood})
}

// ColumnReport counts flags per value for one column after Run.
type ColumnReport struct {
	Name    string      `json:"name"`
	Slot    string      `json:"slot"`
	Flagged map[int]int `json:"flags"`
}

// Report summarizes a Run.
type Report struct {
	Columns []ColumnReport `json:"columns"`
}

// Bad returns the total number of values flagged bad.
func (r Report) Bad() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Flagged[FlagBad]
	}
	return n
}

// Run applies the standard chain to every data column of t.
func Run(t *table.Table, opts Options) Report {
	var rep Report
	for _, c := range t.Columns {
		for _, test := range opts.Chain(c.Slot) {
			test.Apply(c)
		}
		rep.Columns = append(rep.Columns, ColumnReport{
			Name:    c.Name,
			Slot:    c.Slot.String(),
			Flagged: countFlags(c.Flags),
		})
	}
	return rep
}

func countFlags(flags []int) map[int]int {
	counts := make(map[int]int)
	for _, f := range flags {
		counts[f]++
	}
	return counts
}
