package store

// convert.go maps table values to pgtype values and back. Empty input maps
// to Valid=false so the database stores NULL.

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/hobo/internal/header"
	"github.com/JonMunkholm/hobo/internal/table"
)

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgFloat8 converts a cell to a nullable double. Non-numeric cells are
// NULL; the raw text is stored alongside.
func toPgFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

type reading struct {
	Row     int
	Channel int
	Raw     string
	Flag    int
}

func channelsOf(t *table.Table) []Channel {
	out := make([]Channel, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = Channel{
			Position: i,
			Slot:     c.Slot.String(),
			Name:     c.Name,
			LongName: c.LongName,
			Units:    c.Units,
		}
	}
	return out
}

// readingsOf flattens t row by row. Cells that are empty and unflagged are
// skipped.
func readingsOf(t *table.Table) []reading {
	var out []reading
	for row := 0; row < t.Len(); row++ {
		for ch, c := range t.Columns {
			if c.Values[row] == "" && c.Flags[row] == 0 {
				continue
			}
			out = append(out, reading{Row: row, Channel: ch, Raw: c.Values[row], Flag: c.Flags[row]})
		}
	}
	return out
}

// zoneOf returns the zone of the first timestamp, or UTC for an empty table.
func zoneOf(t *table.Table) (string, int) {
	if t.Len() == 0 {
		return "UTC", 0
	}
	return t.Index[0].Zone()
}

// rebuildTable reassembles a table from stored rows. Timestamps are moved
// back into the file's recorded zone.
func rebuildTable(f File, index []time.Time, readings []reading) *table.Table {
	loc := time.FixedZone(f.TimeZone, f.TZOffset)
	if f.TimeZone == "UTC" && f.TZOffset == 0 {
		loc = time.UTC
	}
	for i := range index {
		index[i] = index[i].In(loc)
	}

	id := header.InstrumentIdentity{
		TitleKey:     f.TitleKey,
		TitleValue:   f.TitleValue,
		SerialNumber: f.SerialNumber,
	}
	t := &table.Table{Metadata: id.Metadata(), Index: index}

	for _, ch := range f.Channels {
		slot, _ := header.ParseSlot(ch.Slot)
		t.Columns = append(t.Columns, &table.Column{
			Slot:     slot,
			Name:     ch.Name,
			LongName: ch.LongName,
			Units:    ch.Units,
			Values:   make([]string, len(index)),
			Flags:    make([]int, len(index)),
		})
	}
	for _, r := range readings {
		if r.Channel < 0 || r.Channel >= len(t.Columns) || r.Row < 0 || r.Row >= len(index) {
			continue
		}
		c := t.Columns[r.Channel]
		c.Values[r.Row] = r.Raw
		c.Flags[r.Row] = r.Flag
	}
	return t
}
