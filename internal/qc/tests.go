package qc

import (
	"math"
	"strings"

	"github.com/JonMunkholm/hobo/internal/table"
)

// Test is one step of a QC chain. Apply updates c.Flags in place and
// returns how many values it flagged.
//
// Missing values are never flagged, so they keep FlagNoQC through the
// standard chain.
type Test interface {
	Name() string
	Apply(c *table.Column) int
}

// ResetFlags sets every flag of a column to Flag.
type ResetFlags struct {
	Flag int
}

func (ResetFlags) Name() string { return "reset" }

func (t ResetFlags) Apply(c *table.Column) int {
	for i := range c.Flags {
		c.Flags[i] = t.Flag
	}
	return len(c.Flags)
}

// FlatTest flags a value that completes a run of Window identical
// consecutive readings, and every further value of the run.
type FlatTest struct {
	Window int
	Flag   int
}

func (FlatTest) Name() string { return "flat" }

func (t FlatTest) Apply(c *table.Column) int {
	window := t.Window
	if window <= 0 {
		window = DefaultFlatWindow
	}

	flagged, run := 0, 0
	var prev float64
	for i := range c.Values {
		v, ok := c.Float(i)
		if !ok {
			continue
		}
		if run > 0 && v == prev {
			run++
		} else {
			run = 1
		}
		prev = v
		if run >= window {
			c.Flags[i] = t.Flag
			flagged++
		}
	}
	return flagged
}

// SpikeTest flags values further than Threshold standard deviations from
// the mean. With Window 0 the mean and deviation are taken over the whole
// column; otherwise over the Window readings preceding each value.
type SpikeTest struct {
	Window    int
	Threshold float64
	Flag      int
}

func (SpikeTest) Name() string { return "spike" }

func (t SpikeTest) Apply(c *table.Column) int {
	threshold := t.Threshold
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}

	idx, vals := numeric(c)
	flagged := 0

	if t.Window <= 0 {
		mean, std := meanStd(vals)
		if len(vals) < 3 || std == 0 {
			return 0
		}
		for k, v := range vals {
			if math.Abs(v-mean) > threshold*std {
				c.Flags[idx[k]] = t.Flag
				flagged++
			}
		}
		return flagged
	}

	for k := t.Window; k < len(vals); k++ {
		mean, std := meanStd(vals[k-t.Window : k])
		if std == 0 {
			continue
		}
		if math.Abs(vals[k]-mean) > threshold*std {
			c.Flags[idx[k]] = t.Flag
			flagged++
		}
	}
	return flagged
}

// RangeTest flags values outside Bounds, and present values that are not
// numbers at all.
type RangeTest struct {
	Bounds Bounds
	Flag   int
}

func (RangeTest) Name() string { return "range" }

func (t RangeTest) Apply(c *table.Column) int {
	flagged := 0
	for i, raw := range c.Values {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, ok := c.Float(i)
		if !ok || !t.Bounds.Contains(v) {
			c.Flags[i] = t.Flag
			flagged++
		}
	}
	return flagged
}

// FlagToFlag rewrites flag From to To on every row, missing values included.
type FlagToFlag struct {
	From int
	To   int
}

func (FlagToFlag) Name() string { return "flag2flag" }

func (t FlagToFlag) Apply(c *table.Column) int {
	n := 0
	for i, f := range c.Flags {
		if f == t.From {
			c.Flags[i] = t.To
			n++
		}
	}
	return n
}

// numeric returns the row positions and values of the column's numeric
// cells.
func numeric(c *table.Column) ([]int, []float64) {
	var idx []int
	var vals []float64
	for i := range c.Values {
		if v, ok := c.Float(i); ok {
			idx = append(idx, i)
			vals = append(vals, v)
		}
	}
	return idx, vals
}

// meanStd returns the mean and population standard deviation of vals.
func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}
