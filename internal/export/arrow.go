package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/JonMunkholm/hobo/internal/table"
)

// Field metadata keys carried by each data column.
const (
	MetaLongName = "long_name"
	MetaUnits    = "units"
)

// Schema returns the Arrow schema of t: Time as timestamp[ms, UTC], float64
// data columns and int8 QC columns. The table metadata becomes schema
// metadata.
func Schema(t *table.Table) *arrow.Schema {
	fields := make([]arrow.Field, 0, 1+2*len(t.Columns))
	fields = append(fields, arrow.Field{Name: table.IndexName, Type: arrow.FixedWidthTypes.Timestamp_ms})
	for _, c := range t.Columns {
		fields = append(fields,
			arrow.Field{
				Name:     c.Name,
				Type:     arrow.PrimitiveTypes.Float64,
				Nullable: true,
				Metadata: arrow.NewMetadata([]string{MetaLongName, MetaUnits}, []string{c.LongName, c.Units}),
			},
			arrow.Field{Name: c.QCName(), Type: arrow.PrimitiveTypes.Int8},
		)
	}

	keys := make([]string, 0, len(t.Metadata))
	for k := range t.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = t.Metadata[k]
	}
	md := arrow.NewMetadata(keys, vals)
	return arrow.NewSchema(fields, &md)
}

// WriteArrow writes t as an Arrow IPC stream holding one record batch.
// Missing or non-numeric values are null.
func WriteArrow(w io.Writer, t *table.Table) error {
	pool := memory.NewGoAllocator()
	schema := Schema(t)

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	times := b.Field(0).(*array.TimestampBuilder)
	for _, ts := range t.Index {
		times.Append(arrow.Timestamp(ts.UnixMilli()))
	}
	for j, c := range t.Columns {
		vals := b.Field(1 + 2*j).(*array.Float64Builder)
		flags := b.Field(2 + 2*j).(*array.Int8Builder)
		for i := range c.Values {
			if v, ok := c.Float(i); ok {
				vals.Append(v)
			} else {
				vals.AppendNull()
			}
			flags.Append(int8(c.Flags[i]))
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}
