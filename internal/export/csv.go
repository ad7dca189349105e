package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/JonMunkholm/hobo/internal/table"
)

// WriteCSV writes t as CSV with RFC 3339 timestamps. Missing values are
// empty cells.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columnHeader(t)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rec := make([]string, 1+2*len(t.Columns))
	for i, ts := range t.Index {
		rec[0] = ts.Format(time.RFC3339)
		for j, c := range t.Columns {
			rec[1+2*j] = c.Values[i]
			rec[2+2*j] = strconv.Itoa(c.Flags[i])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
