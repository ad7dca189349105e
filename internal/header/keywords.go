package header

import "strings"

// Phase orders classification passes for a slot. Every pass runs, and a
// later pass overwrites what an earlier one assigned.
type Phase int

const (
	PhasePrimary Phase = iota
	PhaseFallback
)

// Keyword binds a case-sensitive label fragment to a channel slot.
type Keyword struct {
	Locale string
	Text   string
	Slot   ChannelSlot
	Phase  Phase
}

// TimestampMarker identifies the timestamp column in one locale.
type TimestampMarker struct {
	Locale string
	Text   string
}

// TimestampMarkers are checked in order against each header field. The
// first field containing any of them is the timestamp column.
var TimestampMarkers = []TimestampMarker{
	{Locale: "en", Text: "Date Time"},
	{Locale: "es", Text: "Fecha Tiempo"},
}

// Keywords is the channel classification table. Within one slot and phase
// the last matching field wins. For Temperature the fallback phase runs after
// the primary phase and overwrites it when it also matches.
var Keywords = []Keyword{
	{Locale: "en", Text: "High Res. Temp.", Slot: Temperature, Phase: PhasePrimary},
	{Locale: "en", Text: "High-Res Temp", Slot: Temperature, Phase: PhasePrimary},
	{Locale: "en", Text: "Temp,", Slot: Temperature, Phase: PhaseFallback},
	{Locale: "en", Text: "Temp.", Slot: Temperature, Phase: PhaseFallback},
	{Locale: "en", Text: "Temperature", Slot: Temperature, Phase: PhaseFallback},
	{Locale: "en", Text: "Pres abs,", Slot: Pressure, Phase: PhasePrimary},
	{Locale: "en", Text: "RH,", Slot: RelativeHumidity, Phase: PhasePrimary},
	{Locale: "en", Text: "Batt, V", Slot: Battery, Phase: PhasePrimary},
}

// isTimestampField reports whether field carries a timestamp marker.
func isTimestampField(field string) bool {
	for _, m := range TimestampMarkers {
		if strings.Contains(field, m.Text) {
			return true
		}
	}
	return false
}

// matches reports whether field contains any keyword for slot in phase.
func matches(keywords []Keyword, field string, slot ChannelSlot, phase Phase) bool {
	for _, k := range keywords {
		if k.Slot == slot && k.Phase == phase && strings.Contains(field, k.Text) {
			return true
		}
	}
	return false
}
