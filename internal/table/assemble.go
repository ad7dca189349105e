package table

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/hobo/internal/header"
)

// DefaultContextCheckInterval is how many rows are read between context
// cancellation checks.
const DefaultContextCheckInterval = 1000

// ErrNoTimestampColumn is returned when the mapping has no resolved
// timestamp column.
var ErrNoTimestampColumn = errors.New("mapping has no timestamp column")

// RowError reports a data row whose timestamp cannot be parsed.
type RowError struct {
	Line  int
	Value string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("invalid timestamp %q at line %d", e.Value, e.Line)
}

// RowReader yields data rows. *csv.Reader satisfies it.
type RowReader interface {
	Read() ([]string, error)
}

// NewRowReader returns a CSV reader for the data rows that follow the
// column definition line.
func NewRowReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// Options controls table assembly.
type Options struct {
	// Location is used when the timestamp header names no GMT offset.
	// Nil means UTC.
	Location *time.Location

	// DayFirst reads ambiguous dates as day/month/year.
	DayFirst bool

	// FirstLine is the file line number of the first data row, for errors.
	FirstLine int

	ContextCheckInterval int
}

// Assemble reads the data rows and builds the normalized table.
//
// Row timestamps come from the mapping's timestamp column. Fully empty rows
// are skipped, short rows are padded with empty values, and any row whose
// timestamp cannot be parsed fails the whole assembly. Only populated
// channels become columns, in ColumnOrder, each with flags set to 0.
func Assemble(ctx context.Context, rows RowReader, m header.ChannelMapping, id header.InstrumentIdentity, opts Options) (*Table, error) {
	if !m.Complete() {
		return nil, ErrNoTimestampColumn
	}

	loc := opts.Location
	if zone, ok := LocationFromHeader(m.TimestampField); ok {
		loc = zone
	}
	parser := NewTimeParser(loc, opts.DayFirst)

	checkEvery := opts.ContextCheckInterval
	if checkEvery <= 0 {
		checkEvery = DefaultContextCheckInterval
	}
	first := opts.FirstLine
	if first <= 0 {
		first = 1
	}
	line := first

	t := &Table{Metadata: id.Metadata()}
	var sources []int
	for _, slot := range ColumnOrder {
		d, ok := m.Get(slot)
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, &Column{
			Slot:     slot,
			Name:     d.DisplayName,
			LongName: d.LongName,
			Units:    d.Unit,
		})
		sources = append(sources, d.Index)
	}

	for n := 0; ; n, line = n+1, line+1 {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv at line %d: %w", line, err)
		}
		if fp, ok := rows.(fieldPositioner); ok {
			recLine, _ := fp.FieldPos(0)
			line = first + recLine - 1
		}
		if isBlank(rec) {
			continue
		}

		raw := cell(rec, m.TimestampIndex)
		ts, ok := parser.Parse(raw)
		if !ok {
			return nil, &RowError{Line: line, Value: raw}
		}

		t.Index = append(t.Index, ts)
		for i, c := range t.Columns {
			c.Values = append(c.Values, cell(rec, sources[i]))
			c.Flags = append(c.Flags, 0)
		}
	}

	return t, nil
}

// fieldPositioner is implemented by *csv.Reader and gives exact line
// numbers across skipped blank lines.
type fieldPositioner interface {
	FieldPos(field int) (line, column int)
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
