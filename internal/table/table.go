// Package table holds the normalized form of a parsed logger export: a time
// index, one column per populated channel, and a QC flag series per column.
package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/hobo/internal/header"
)

// IndexName is the name of the time index column in every export.
const IndexName = "Time"

// QCSuffix is appended to a data column name to name its flag column.
const QCSuffix = "_QC"

// ColumnOrder is the order data columns appear in a table.
var ColumnOrder = []header.ChannelSlot{
	header.Temperature,
	header.Pressure,
	header.Battery,
	header.RelativeHumidity,
}

// Column is one channel's values and QC flags. Values and Flags have the
// same length as the table index. A missing value is the empty string.
type Column struct {
	Slot     header.ChannelSlot
	Name     string
	LongName string
	Units    string
	Values   []string
	Flags    []int
}

// QCName returns the name of the column's flag column.
func (c *Column) QCName() string {
	return c.Name + QCSuffix
}

// Float returns row i as a number. ok is false for missing or non-numeric
// values.
func (c *Column) Float(i int) (v float64, ok bool) {
	s := strings.TrimSpace(c.Values[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Meaning annotates a column with its vendor name and unit.
type Meaning struct {
	LongName string `json:"long_name"`
	Units    string `json:"units"`
}

// Table is a parsed logger export.
type Table struct {
	Metadata map[string]string
	Index    []time.Time
	Columns  []*Column
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Index)
}

// Column returns the data column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns every data column name, each followed by its QC
// column name.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, 2*len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name, c.QCName())
	}
	return names
}

// Meaning returns the long name and unit of every data column.
func (t *Table) Meaning() map[string]Meaning {
	m := make(map[string]Meaning, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Name] = Meaning{LongName: c.LongName, Units: c.Units}
	}
	return m
}
