package header

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFindTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    int
	}{
		{"english", []string{"#", "Date Time, GMT-05:00", "Temp, °C"}, 1},
		{"spanish", []string{"#", "Fecha Tiempo, GMT+01:00", "Temp, °C"}, 1},
		{"first match wins", []string{"Date Time, GMT", "Date Time, GMT+02:00"}, 0},
		{"absent", []string{"#", "Temp, °C"}, -1},
		{"empty", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindTimestamp(tt.headers); got != tt.want {
				t.Errorf("FindTimestamp() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMapColumns_AllChannels(t *testing.T) {
	headers := []string{
		"#",
		"Date Time, GMT-05:00",
		"Pres abs, kPa (LGR S/N: 10402433, SEN S/N: 10402433)",
		"Temp, °C (LGR S/N: 10402433, SEN S/N: 10402433)",
		"RH, % (LGR S/N: 10402433, SEN S/N: 10402433, LBL: Humidity)",
		"Batt, V (LGR S/N: 10402433)",
		"Coupler Attached (LGR S/N: 10402433)",
	}

	m, err := MapColumns(headers, MapOptions{})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	if m.TimestampIndex != 1 {
		t.Errorf("TimestampIndex = %d, want 1", m.TimestampIndex)
	}
	if m.TimestampField != "Date Time, GMT-05:00" {
		t.Errorf("TimestampField = %q", m.TimestampField)
	}

	tests := []struct {
		slot  ChannelSlot
		name  string
		long  string
		unit  string
		index int
	}{
		{Temperature, "Temp", "Temp", "°C", 3},
		{Pressure, "Pres abs", "Pres abs", "kPa", 2},
		{RelativeHumidity, "Humidity", "RH", "%", 4},
		{Battery, "Batt", "Batt", "V", 5},
	}
	for _, tt := range tests {
		t.Run(tt.slot.String(), func(t *testing.T) {
			d, ok := m.Get(tt.slot)
			if !ok {
				t.Fatalf("slot %s not populated", tt.slot)
			}
			if d.DisplayName != tt.name || d.LongName != tt.long || d.Unit != tt.unit || d.Index != tt.index {
				t.Errorf("descriptor = %+v, want name=%q long=%q unit=%q index=%d",
					d, tt.name, tt.long, tt.unit, tt.index)
			}
		})
	}
}

func TestMapColumns_TemperatureFallbackOverwritesPrimary(t *testing.T) {
	headers := []string{
		"Date Time, GMT+00:00",
		"High Res. Temp., °C (LGR S/N: 1, SEN S/N: 1)",
		"Temperature, °F (LGR S/N: 1, SEN S/N: 1)",
	}

	m, err := MapColumns(headers, MapOptions{})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	d, ok := m.Get(Temperature)
	if !ok {
		t.Fatal("temperature not populated")
	}
	if d.Index != 2 || d.LongName != "Temperature" || d.Unit != "°F" {
		t.Errorf("temperature = %+v, want the fallback field at index 2", d)
	}
}

func TestMapColumns_PrimaryOnly(t *testing.T) {
	headers := []string{
		"Date Time, GMT+00:00",
		"High-Res Temp, °C (LGR S/N: 1)",
	}

	m, err := MapColumns(headers, MapOptions{})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	d, ok := m.Get(Temperature)
	if !ok || d.Index != 1 {
		t.Errorf("temperature = %+v, %v; want index 1", d, ok)
	}
}

func TestMapColumns_LastMatchWinsWithinPass(t *testing.T) {
	headers := []string{
		"Date Time, GMT+00:00",
		"Pres abs, kPa (LGR S/N: 1, LBL: First)",
		"Pres abs, kPa (LGR S/N: 1, LBL: Second)",
	}

	m, err := MapColumns(headers, MapOptions{})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	d, _ := m.Get(Pressure)
	if d.DisplayName != "Second" {
		t.Errorf("pressure display name = %q, want %q", d.DisplayName, "Second")
	}
}

func TestMapColumns_NoChannels(t *testing.T) {
	m, err := MapColumns([]string{"#", "Date Time, GMT+00:00", "Coupler Detached"}, MapOptions{})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	if got := m.Populated(); len(got) != 0 {
		t.Errorf("Populated() = %v, want none", got)
	}
	if !m.Complete() {
		t.Error("Complete() = false, want true")
	}
}

func TestMapColumns_Malformed(t *testing.T) {
	headers := []string{"Date Time", "Temperature"}

	t.Run("strict", func(t *testing.T) {
		_, err := MapColumns(headers, MapOptions{Strict: true, Logger: quietLogger})
		var mfe *MalformedFieldError
		if !errors.As(err, &mfe) {
			t.Fatalf("error = %v, want *MalformedFieldError", err)
		}
		if mfe.Slot != "temperature" {
			t.Errorf("Slot = %q, want %q", mfe.Slot, "temperature")
		}
	})

	t.Run("lenient", func(t *testing.T) {
		m, err := MapColumns(headers, MapOptions{Logger: quietLogger})
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		d, ok := m.Get(Temperature)
		if !ok {
			t.Fatal("temperature not populated")
		}
		if d.DisplayName != "Temperature" || d.Unit != "" {
			t.Errorf("descriptor = %+v, want long name as display and empty unit", d)
		}
	})
}

func TestMapColumns_CustomKeywords(t *testing.T) {
	kw := append([]Keyword{}, Keywords...)
	kw = append(kw, Keyword{Locale: "es", Text: "Bat, V", Slot: Battery, Phase: PhasePrimary})

	m, err := MapColumns([]string{"Fecha Tiempo, GMT+01:00", "Bat, V (LGR S/N: 7)"}, MapOptions{Keywords: kw})
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	if _, ok := m.Get(Battery); !ok {
		t.Error("battery not populated from appended keyword")
	}
}

func TestChannelSlot_String(t *testing.T) {
	for _, s := range Slots() {
		got, ok := ParseSlot(s.String())
		if !ok || got != s {
			t.Errorf("ParseSlot(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if ChannelSlot(42).String() != "unknown" {
		t.Errorf("out of range slot String() = %q", ChannelSlot(42).String())
	}
}
