package header

import (
	"errors"
	"testing"
)

func TestExtractUnit(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		want    string
		wantErr bool
	}{
		{"celsius with serials", "Temp, °C (LGR S/N: 20563204, SEN S/N: 20563204)", "°C", false},
		{"pressure", "Abs Pres, kPa (LGR S/N: 10402433, SEN S/N: 10402433)", "kPa", false},
		{"battery volts", "Batt, V (LGR S/N: 10402433)", "V", false},
		{"percent", "RH, % (LGR S/N: 1)", "%", false},
		{"unit ends at second comma", "Temp, °F,extra", "°F", false},
		{"empty unit", "Temp,", "", false},
		{"no comma", "Temperature", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractUnit(tt.field)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractUnit(%q) error = %v, wantErr %v", tt.field, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractUnit(%q) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestExtractDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		want    string
		wantErr bool
	}{
		{"no label uses long name", "Temp, °C (LGR S/N: 20563204, SEN S/N: 20563204)", "Temp", false},
		{"label override", "Temp, °C (LGR S/N: 1, SEN S/N: 1, LBL: WaterTemp)", "WaterTemp", false},
		{"label with padding", "RH, % (LGR S/N: 1, LBL:  Humidity )", "Humidity", false},
		{"label stops at next colon", "Temp, °C (LGR S/N: 1, LBL: Deep: 10m)", "Deep", false},
		{"empty label falls back", "Temp, °C (LGR S/N: 1, LBL: )", "Temp", false},
		{"bare LBL tag", "Temp, °C (LGR S/N: 1, LBL)", "Temp", false},
		{"not a label tag", "Temp, °C (LGR S/N: 1, XLBL: nope)", "Temp", false},
		{"no comma", "Temperature", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractDisplayName(tt.field)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractDisplayName(%q) error = %v, wantErr %v", tt.field, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractDisplayName(%q) = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestExtractLongName(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Temp, °C (LGR S/N: 20563204, SEN S/N: 20563204)", "Temp"},
		{"Temp, °C (LGR S/N: 1, SEN S/N: 1, LBL: WaterTemp)", "Temp"},
		{"  Abs Pres , kPa", "Abs Pres"},
		{"Temperature", "Temperature"},
	}

	for _, tt := range tests {
		if got := ExtractLongName(tt.field); got != tt.want {
			t.Errorf("ExtractLongName(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestDescribe_MalformedField(t *testing.T) {
	_, err := Describe("Temperature", 3)
	if !errors.Is(err, ErrMalformedField) {
		t.Fatalf("Describe() error = %v, want ErrMalformedField", err)
	}
	var mfe *MalformedFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("Describe() error type = %T, want *MalformedFieldError", err)
	}
	if mfe.Field != "Temperature" {
		t.Errorf("Field = %q, want %q", mfe.Field, "Temperature")
	}
}

func TestDescribe(t *testing.T) {
	d, err := Describe("Temp, °C (LGR S/N: 1, SEN S/N: 1, LBL: WaterTemp)", 2)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	want := ColumnDescriptor{
		DisplayName: "WaterTemp",
		LongName:    "Temp",
		Unit:        "°C",
		Index:       2,
		Raw:         "Temp, °C (LGR S/N: 1, SEN S/N: 1, LBL: WaterTemp)",
	}
	if d != want {
		t.Errorf("Describe() = %+v, want %+v", d, want)
	}
}
