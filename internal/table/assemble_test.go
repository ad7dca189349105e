package table

import (
	"bufio"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/hobo/internal/header"
)

// scanAndAssemble runs the header scan and assembly over one reader the way
// the parse pipeline does.
func scanAndAssemble(t *testing.T, input string) (*Table, error) {
	t.Helper()
	br := bufio.NewReader(strings.NewReader(input))
	res, err := header.Scan(br, header.Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return Assemble(context.Background(), NewRowReader(br), res.Mapping, res.Identity, Options{FirstLine: res.LinesRead + 1})
}

func TestAssemble_TemperatureOnly(t *testing.T) {
	input := `"Plot Title: 10402433",,
"#","Date Time, GMT+00:00","Temp, °C (LGR S/N: 10402433, SEN S/N: 10402433)","Coupler Attached (LGR S/N: 10402433)"
1,06/01/21 10:00:00 AM,12.5,Logged
2,06/01/21 10:15:00 AM,12.6,
3,06/01/21 10:30:00 AM,,
`
	tbl, err := scanAndAssemble(t, input)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if got, want := tbl.ColumnNames(), []string{"Temp", "Temp_QC"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	c := tbl.Columns[0]
	if got, want := c.Values, []string{"12.5", "12.6", ""}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values = %v, want %v", got, want)
	}
	for i, f := range c.Flags {
		if f != 0 {
			t.Errorf("Flags[%d] = %d, want 0", i, f)
		}
	}
	if c.Units != "°C" || c.LongName != "Temp" {
		t.Errorf("meaning = %q/%q", c.LongName, c.Units)
	}

	wantFirst := time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC)
	if !tbl.Index[0].Equal(wantFirst) {
		t.Errorf("Index[0] = %v, want %v", tbl.Index[0], wantFirst)
	}
	if tbl.Metadata["Plot Title"] != "10402433" || tbl.Metadata["S/N"] != "10402433" {
		t.Errorf("Metadata = %v", tbl.Metadata)
	}
}

func TestAssemble_FirstRowKept(t *testing.T) {
	input := "Plot Title: x\n\"#\",\"Date Time, GMT-05:00\",\"RH, % (LGR S/N: 1)\"\n1,2021-06-01 08:00:00,55.1\n"
	tbl, err := scanAndAssemble(t, input)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
	want := time.Date(2021, 6, 1, 13, 0, 0, 0, time.UTC)
	if !tbl.Index[0].Equal(want) {
		t.Errorf("Index[0] = %v, want %v (GMT-05:00 applied)", tbl.Index[0].UTC(), want)
	}
}

func TestAssemble_ColumnOrderAndSelection(t *testing.T) {
	input := strings.Join([]string{
		`Plot Title: multi`,
		`"#","Date Time, GMT+00:00","RH, % (LGR S/N: 9)","Batt, V (LGR S/N: 9)","Pres abs, kPa (LGR S/N: 9)","High Res. Temp., °C (LGR S/N: 9)","Temp, °C (LGR S/N: 9, LBL: Water)","Host Connected"`,
		`1,2021-06-01 00:00:00,40,3.6,101.3,10.01,10.1,`,
		``,
		`2,2021-06-01 00:10:00,41,3.6,101.4,10.02,10.2,`,
	}, "\n")

	tbl, err := scanAndAssemble(t, input)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := []string{"Water", "Water_QC", "Pres abs", "Pres abs_QC", "Batt", "Batt_QC", "RH", "RH_QC"}
	if got := tbl.ColumnNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	water, _ := tbl.Column("Water")
	if got := water.Values; !reflect.DeepEqual(got, []string{"10.1", "10.2"}) {
		t.Errorf("temperature values = %v, want the relabeled column", got)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (blank row skipped)", tbl.Len())
	}
}

func TestAssemble_NoChannels(t *testing.T) {
	tbl, err := scanAndAssemble(t, "T: x\n\"#\",\"Date Time\"\n1,2021-06-01 00:00:00\n")
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(tbl.ColumnNames()) != 0 {
		t.Errorf("ColumnNames() = %v, want none", tbl.ColumnNames())
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestAssemble_BadTimestamp(t *testing.T) {
	input := "T: x\n\"#\",\"Date Time\",\"Temp, °C\"\n1,2021-06-01 00:00:00,1\n2,not a time,2\n"
	_, err := scanAndAssemble(t, input)
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("Assemble() error = %v, want *RowError", err)
	}
	if rowErr.Line != 4 || rowErr.Value != "not a time" {
		t.Errorf("RowError = %+v, want line 4 value %q", rowErr, "not a time")
	}
}

func TestAssemble_IncompleteMapping(t *testing.T) {
	_, err := Assemble(context.Background(), NewRowReader(strings.NewReader("")),
		header.NewChannelMapping(), header.InstrumentIdentity{}, Options{})
	if !errors.Is(err, ErrNoTimestampColumn) {
		t.Errorf("Assemble() error = %v, want ErrNoTimestampColumn", err)
	}
}

func TestAssemble_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := header.NewChannelMapping()
	m.TimestampIndex = 0
	_, err := Assemble(ctx, NewRowReader(strings.NewReader("2021-06-01 00:00:00\n")), m, header.InstrumentIdentity{}, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Assemble() error = %v, want context.Canceled", err)
	}
}

func TestColumn_Float(t *testing.T) {
	c := &Column{Values: []string{"1.5", "", "abc", " -2 "}}
	tests := []struct {
		i      int
		want   float64
		wantOK bool
	}{
		{0, 1.5, true},
		{1, 0, false},
		{2, 0, false},
		{3, -2, true},
	}
	for _, tt := range tests {
		got, ok := c.Float(tt.i)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Float(%d) = %v, %v; want %v, %v", tt.i, got, ok, tt.want, tt.wantOK)
		}
	}
}
