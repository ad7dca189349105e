package header

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

const sampleExport = `"Plot Title: 10402433",,,,
"#","Date Time, GMT-05:00","Pres abs, kPa (LGR S/N: 10402433, SEN S/N: 10402433)","Temp, °C (LGR S/N: 10402433, SEN S/N: 10402433, LBL: WaterTemp)","Coupler Attached (LGR S/N: 10402433)"
1,06/01/21 10:00:00 AM,101.325,12.5,Logged
2,06/01/21 10:15:00 AM,101.330,12.6,
`

func TestScan_SampleExport(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(sampleExport))

	res, err := Scan(r, Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if res.Identity.TitleKey != "Plot Title" {
		t.Errorf("TitleKey = %q, want %q", res.Identity.TitleKey, "Plot Title")
	}
	if res.Identity.TitleValue != "10402433" {
		t.Errorf("TitleValue = %q, want %q", res.Identity.TitleValue, "10402433")
	}
	if res.Identity.SerialNumber != "10402433" {
		t.Errorf("SerialNumber = %q, want %q", res.Identity.SerialNumber, "10402433")
	}
	if res.LinesRead != 2 {
		t.Errorf("LinesRead = %d, want 2", res.LinesRead)
	}
	if res.Mapping.TimestampIndex != 1 {
		t.Errorf("TimestampIndex = %d, want 1", res.Mapping.TimestampIndex)
	}
	if len(res.Headers) != 5 {
		t.Fatalf("len(Headers) = %d, want 5", len(res.Headers))
	}
	d, ok := res.Mapping.Get(Temperature)
	if !ok || d.DisplayName != "WaterTemp" {
		t.Errorf("temperature = %+v, %v; want WaterTemp", d, ok)
	}

	// The reader must still be positioned at the first data row.
	next, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read after scan: %v", err)
	}
	if !strings.HasPrefix(next, "1,06/01/21 10:00:00 AM") {
		t.Errorf("first unread line = %q, want the first data row", next)
	}
}

func TestScan_TimestampPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"first field", "Title: x\nDate Time, GMT+00:00,\"Temp, °C\"\n", 0},
		{"third field", "Title: x\n#,Serial,\"Date Time, GMT+00:00\"\n", 2},
		{"spanish", "Title: x\n\"#\",\"Fecha Tiempo, GMT+01:00\"\n", 1},
		{"no trailing newline", "Title: x\n\"#\",\"Date Time\"", 1},
		{"crlf", "Title: x\r\n\"#\",\"Date Time\"\r\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Scan(bufio.NewReader(strings.NewReader(tt.input)), Options{})
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if res.Mapping.TimestampIndex != tt.want {
				t.Errorf("TimestampIndex = %d, want %d", res.Mapping.TimestampIndex, tt.want)
			}
		})
	}
}

func TestScan_SerialVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lgr tag", "Plot Title: a\nLGR S/N: 555\n\"#\",\"Date Time\"\n", "555"},
		{"serial number", "Plot Title: a\nSerial Number: 777\n\"#\",\"Date Time\"\n", "777"},
		{"serial number without space", "Plot Title: a\nSerial Number:778\n\"#\",\"Date Time\"\n", "778"},
		{"first serial kept", "Plot Title: a\nLGR S/N: 1\nLGR S/N: 2\n\"#\",\"Date Time\"\n", "1"},
		{"case sensitive", "Plot Title: a\nlgr s/n: 9\n\"#\",\"Date Time\"\n", ""},
		{"absent", "Plot Title: a\n\"#\",\"Date Time\"\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Scan(bufio.NewReader(strings.NewReader(tt.input)), Options{})
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if res.Identity.SerialNumber != tt.want {
				t.Errorf("SerialNumber = %q, want %q", res.Identity.SerialNumber, tt.want)
			}
		})
	}
}

func TestScan_TitleOnlyFromFirstLine(t *testing.T) {
	input := "Instrument\nPlot Title: later\n\"#\",\"Date Time\"\n"
	res, err := Scan(bufio.NewReader(strings.NewReader(input)), Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Identity.TitleKey != "Instrument" || res.Identity.TitleValue != "" {
		t.Errorf("identity = %+v, want key Instrument and empty value", res.Identity)
	}
}

func TestScan_SingleLineHeader(t *testing.T) {
	input := "\"#\",\"Date Time, GMT+00:00\",\"Temp, °C (LGR S/N: 42)\"\n1,2021-06-01 10:00:00,5\n"
	r := bufio.NewReader(strings.NewReader(input))

	res, err := Scan(r, Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.LinesRead != 1 {
		t.Errorf("LinesRead = %d, want 1", res.LinesRead)
	}
	if res.Identity.SerialNumber != "42" {
		t.Errorf("SerialNumber = %q, want 42", res.Identity.SerialNumber)
	}
	if res.Identity.TitleKey == "" {
		t.Error("title not taken from the single header line")
	}
	if _, ok := res.Mapping.Get(Temperature); !ok {
		t.Error("temperature not populated")
	}
}

func TestScan_NoChannels(t *testing.T) {
	res, err := Scan(bufio.NewReader(strings.NewReader("T: x\n\"#\",\"Date Time\",\"Stopped\"\n")), Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := res.Mapping.Populated(); len(got) != 0 {
		t.Errorf("Populated() = %v, want none", got)
	}
}

func TestScan_HeaderNotFound(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("Plot Title: x\nLGR S/N: 1\nno columns here\n"))

	_, err := Scan(r, Options{})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("Scan() error = %v, want ErrHeaderNotFound", err)
	}
	var hnf *HeaderNotFoundError
	if !errors.As(err, &hnf) {
		t.Fatalf("error type = %T", err)
	}
	if hnf.LinesRead != 3 {
		t.Errorf("LinesRead = %d, want 3", hnf.LinesRead)
	}

	// The source is exhausted; scanning again fails the same way.
	_, err = Scan(r, Options{})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("second Scan() error = %v, want ErrHeaderNotFound", err)
	}
}

func TestScan_EmptyInput(t *testing.T) {
	_, err := Scan(bufio.NewReader(strings.NewReader("")), Options{})
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("Scan() error = %v, want ErrHeaderNotFound", err)
	}
}

func TestScan_MaxLines(t *testing.T) {
	input := "a\nb\nc\n\"#\",\"Date Time\"\n"
	_, err := Scan(bufio.NewReader(strings.NewReader(input)), Options{MaxLines: 2})
	var hnf *HeaderNotFoundError
	if !errors.As(err, &hnf) {
		t.Fatalf("Scan() error = %v, want *HeaderNotFoundError", err)
	}
	if hnf.Limit != 2 || hnf.LinesRead != 2 {
		t.Errorf("error = %+v, want limit 2 after 2 lines", hnf)
	}
}

func TestScan_StrictMalformed(t *testing.T) {
	input := "T: x\n\"Date Time\",\"Temperature\"\n"
	_, err := Scan(bufio.NewReader(strings.NewReader(input)), Options{
		MapOptions: MapOptions{Strict: true, Logger: quietLogger},
	})
	if !errors.Is(err, ErrMalformedField) {
		t.Errorf("Scan() error = %v, want ErrMalformedField", err)
	}
}

func TestScanState_Step(t *testing.T) {
	s := NewScanState(MapOptions{})

	lines := []string{
		"Plot Title: Pier 3",
		"Serial Number: 2048",
		`"#","Date Time, GMT+00:00","RH, % (LGR S/N: 2048)"`,
	}
	for i, line := range lines {
		done, err := s.Step(line)
		if err != nil {
			t.Fatalf("Step(%d) error = %v", i, err)
		}
		if done != (i == len(lines)-1) {
			t.Fatalf("Step(%d) done = %v", i, done)
		}
	}

	// Steps after completion change nothing.
	if done, _ := s.Step("Plot Title: other"); !done {
		t.Error("Step after done returned false")
	}
	if s.LinesRead != 3 {
		t.Errorf("LinesRead = %d, want 3", s.LinesRead)
	}
	if s.Identity.TitleValue != "Pier 3" || s.Identity.SerialNumber != "2048" {
		t.Errorf("identity = %+v", s.Identity)
	}
	if _, ok := s.Mapping.Get(RelativeHumidity); !ok {
		t.Error("relative humidity not populated")
	}
}

func TestInstrumentIdentity_Metadata(t *testing.T) {
	tests := []struct {
		name     string
		id       InstrumentIdentity
		titleKey string
		title    string
	}{
		{"plot title", InstrumentIdentity{TitleKey: "Plot Title", TitleValue: "10402433"}, "Plot Title", "10402433"},
		{"empty key", InstrumentIdentity{TitleValue: "Pier 3"}, "", "Pier 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := tt.id.Metadata()
			if v, ok := md[tt.titleKey]; !ok || v != tt.title {
				t.Errorf("title entry %q = %q, %v; want %q", tt.titleKey, v, ok, tt.title)
			}
			if v, ok := md[SerialKey]; !ok || v != "" {
				t.Errorf("S/N entry = %q, %v; want present and empty", v, ok)
			}
			if len(md) != 2 {
				t.Errorf("len(Metadata) = %d, want 2", len(md))
			}
		})
	}
}

func TestScan_LeadingColonTitle(t *testing.T) {
	in := ": Pier 3\n\"Date Time, GMT+00:00\",\"Temp, °C\"\n"
	res, err := Scan(bufio.NewReader(strings.NewReader(in)), Options{})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	md := res.Identity.Metadata()
	if v, ok := md[""]; !ok || v != "Pier 3" {
		t.Errorf("Metadata = %v, want title under the empty key", md)
	}
	if res.Identity.HasSerial() {
		t.Errorf("HasSerial() = true for %q", res.Identity.SerialNumber)
	}
}
