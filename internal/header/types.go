// Package header interprets the metadata prefix of a HOBO logger CSV export.
//
// A HOBO export starts with an unknown number of metadata lines (plot title,
// logger serial number, free text) followed by one CSV-quoted column
// definition line and then the data rows. This package locates the column
// definition line without reading past it, extracts the instrument identity
// on the way, and classifies the column labels into a fixed vocabulary of
// channel slots.
//
// The two entry points are Scan, which drives a ScanState over a
// *bufio.Reader, and MapColumns, which classifies an already parsed header
// record. Both are synchronous and hold no package level state.
package header

// ChannelSlot is the canonical identifier of a measured channel,
// independent of the vendor label text.
type ChannelSlot int

const (
	Temperature ChannelSlot = iota
	Pressure
	RelativeHumidity
	Battery

	slotCount = iota
)

var slotNames = [slotCount]string{
	Temperature:      "temperature",
	Pressure:         "pressure",
	RelativeHumidity: "relative_humidity",
	Battery:          "battery",
}

// String returns the snake_case name of the slot.
func (s ChannelSlot) String() string {
	if s < 0 || int(s) >= slotCount {
		return "unknown"
	}
	return slotNames[s]
}

// ParseSlot returns the slot with the given snake_case name.
func ParseSlot(name string) (ChannelSlot, bool) {
	for i, n := range slotNames {
		if n == name {
			return ChannelSlot(i), true
		}
	}
	return 0, false
}

// Slots returns every channel slot in declaration order.
func Slots() []ChannelSlot {
	return []ChannelSlot{Temperature, Pressure, RelativeHumidity, Battery}
}

// ColumnDescriptor is the parsed form of one raw header field.
type ColumnDescriptor struct {
	DisplayName string `json:"display_name"`
	LongName    string `json:"long_name"`
	Unit        string `json:"unit"`

	// Index is the position of the field within the column definition record.
	Index int `json:"index"`

	// Raw is the header field as it appeared in the file.
	Raw string `json:"raw"`
}

// InstrumentIdentity is the metadata extracted from the header prefix.
// SerialNumber is empty when no serial pattern was found.
type InstrumentIdentity struct {
	TitleKey     string `json:"title_key"`
	TitleValue   string `json:"title_value"`
	SerialNumber string `json:"serial_number"`
}

// HasSerial reports whether a serial number was extracted.
func (id InstrumentIdentity) HasSerial() bool {
	return id.SerialNumber != ""
}

// Metadata returns the identity as the key/value map attached to a parsed
// table: the title pair plus "S/N". The title entry is always present, under
// the empty key when the first line starts with a colon.
func (id InstrumentIdentity) Metadata() map[string]string {
	md := make(map[string]string, 2)
	md[id.TitleKey] = id.TitleValue
	md[SerialKey] = id.SerialNumber
	return md
}

// SerialKey is the metadata key holding the logger serial number.
const SerialKey = "S/N"

// ChannelMapping maps each channel slot to at most one column descriptor,
// plus the position of the timestamp column. The zero value has no
// timestamp; use NewChannelMapping.
type ChannelMapping struct {
	// TimestampIndex is the field position of the timestamp column, or -1.
	TimestampIndex int

	// TimestampField is the raw timestamp header, e.g. "Date Time, GMT-05:00".
	TimestampField string

	channels [slotCount]ColumnDescriptor
	present  [slotCount]bool
}

// NewChannelMapping returns an empty mapping with no timestamp resolved.
func NewChannelMapping() ChannelMapping {
	return ChannelMapping{TimestampIndex: -1}
}

// Get returns the descriptor assigned to slot, if any.
func (m ChannelMapping) Get(slot ChannelSlot) (ColumnDescriptor, bool) {
	if slot < 0 || int(slot) >= slotCount {
		return ColumnDescriptor{}, false
	}
	return m.channels[slot], m.present[slot]
}

// Set assigns d to slot, replacing any earlier assignment.
func (m *ChannelMapping) Set(slot ChannelSlot, d ColumnDescriptor) {
	if slot < 0 || int(slot) >= slotCount {
		return
	}
	m.channels[slot] = d
	m.present[slot] = true
}

// Populated returns the slots that hold a descriptor, in slot order.
func (m ChannelMapping) Populated() []ChannelSlot {
	var out []ChannelSlot
	for _, s := range Slots() {
		if m.present[s] {
			out = append(out, s)
		}
	}
	return out
}

// Complete reports whether the timestamp column has been resolved.
func (m ChannelMapping) Complete() bool {
	return m.TimestampIndex >= 0
}
