package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/hobo/internal/table"
)

// Sheet names of the workbook written by WriteXLSX.
const (
	DataSheet     = "data"
	MetadataSheet = "metadata"
)

// WriteXLSX writes t as a workbook with a data sheet and a metadata sheet.
// Numeric cells are written as numbers and timestamps as Excel dates.
func WriteXLSX(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	cols := columnHeader(t)
	hdr := make([]any, len(cols))
	for i, name := range cols {
		hdr[i] = name
	}
	if err := f.SetSheetRow(DataSheet, "A1", &hdr); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, ts := range t.Index {
		row := make([]any, 0, len(cols))
		row = append(row, ts)
		for _, c := range t.Columns {
			row = append(row, cellValue(c.Values[i]), c.Flags[i])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.SetPanes(DataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := writeMetadataSheet(f, t); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeMetadataSheet(f *excelize.File, t *table.Table) error {
	if _, err := f.NewSheet(MetadataSheet); err != nil {
		return fmt.Errorf("add metadata sheet: %w", err)
	}

	keys := make([]string, 0, len(t.Metadata))
	for k := range t.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]any{{"key", "value"}}
	for _, k := range keys {
		rows = append(rows, []any{k, t.Metadata[k]})
	}
	rows = append(rows, []any{}, []any{"column", "long_name", "units"})
	for _, c := range t.Columns {
		rows = append(rows, []any{c.Name, c.LongName, c.Units})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MetadataSheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write metadata row %d: %w", i, err)
		}
	}
	return nil
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
