package export

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/hobo/internal/table"
)

// Document is the JSON form of a table.
type Document struct {
	Metadata map[string]string        `json:"metadata"`
	Meaning  map[string]table.Meaning `json:"meaning"`
	Columns  []string                 `json:"columns"`
	Rows     [][]any                  `json:"rows"`
}

// NewDocument converts t. Numeric cells become numbers, missing cells null,
// and anything else stays a string.
func NewDocument(t *table.Table) Document {
	doc := Document{
		Metadata: t.Metadata,
		Meaning:  t.Meaning(),
		Columns:  columnHeader(t),
		Rows:     make([][]any, t.Len()),
	}
	for i, ts := range t.Index {
		row := make([]any, 0, len(doc.Columns))
		row = append(row, ts.Format(time.RFC3339))
		for _, c := range t.Columns {
			row = append(row, jsonValue(c.Values[i]), c.Flags[i])
		}
		doc.Rows[i] = row
	}
	return doc
}

func jsonValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return s
}

// WriteJSON writes t as one indented JSON document.
func WriteJSON(w io.Writer, t *table.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(t))
}
