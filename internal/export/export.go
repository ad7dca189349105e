// Package export encodes a parsed logger table as CSV, JSON, XLSX or an
// Arrow IPC stream.
//
// Every format carries the Time index and each data column followed by its
// QC column. Formats that can hold metadata also carry the instrument
// identity and each column's long name and units.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/hobo/internal/table"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an output encoding.
type Format string

const (
	CSV   Format = "csv"
	JSON  Format = "json"
	XLSX  Format = "xlsx"
	Arrow Format = "arrow"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSON, XLSX, Arrow}

// ParseFormat resolves a format name, case-insensitively. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return CSV, nil
	case CSV, JSON, XLSX, Arrow:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the HTTP media type of f.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case Arrow:
		return "application/vnd.apache.arrow.stream"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension of f, without the dot.
func (f Format) Extension() string {
	if f == Arrow {
		return "arrows"
	}
	return string(f)
}

// Write encodes t to w in format f.
func Write(w io.Writer, t *table.Table, f Format) error {
	switch f {
	case CSV:
		return WriteCSV(w, t)
	case JSON:
		return WriteJSON(w, t)
	case XLSX:
		return WriteXLSX(w, t)
	case Arrow:
		return WriteArrow(w, t)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// columnHeader returns the column names of every row-oriented format.
func columnHeader(t *table.Table) []string {
	return append([]string{table.IndexName}, t.ColumnNames()...)
}
