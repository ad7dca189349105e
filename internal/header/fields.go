package header

import "strings"

// labelTag marks a user relabeled channel: "..., LBL: WaterTemp)".
const labelTag = "LBL"

// ExtractUnit returns the unit token of a header field: the text between the
// first and second comma, trimmed, up to the first space.
//
//	"Temp, °C (LGR S/N: 20563204, SEN S/N: 20563204)" -> "°C"
func ExtractUnit(field string) (string, error) {
	_, rest, ok := strings.Cut(field, ",")
	if !ok {
		return "", &MalformedFieldError{Field: field, Part: "unit"}
	}
	rest, _, _ = strings.Cut(rest, ",")
	unit, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return strings.TrimSpace(unit), nil
}

// ExtractDisplayName returns the name a channel should be published under.
// It is the LBL: override in the last comma segment when present, otherwise
// the long name.
func ExtractDisplayName(field string) (string, error) {
	i := strings.LastIndex(field, ",")
	if i < 0 {
		return "", &MalformedFieldError{Field: field, Part: "display name"}
	}
	tail := strings.Trim(field[i+1:], " )")
	tag, label, ok := strings.Cut(tail, ":")
	if ok && strings.TrimSpace(tag) == labelTag {
		label, _, _ = strings.Cut(label, ":")
		if label = strings.TrimSpace(label); label != "" {
			return label, nil
		}
	}
	return ExtractLongName(field), nil
}

// ExtractLongName returns the vendor's canonical channel name, the text
// before the first comma. It ignores any LBL: override.
func ExtractLongName(field string) string {
	name, _, _ := strings.Cut(field, ",")
	return strings.TrimSpace(name)
}

// Describe parses field at position index into a ColumnDescriptor.
func Describe(field string, index int) (ColumnDescriptor, error) {
	d := ColumnDescriptor{
		LongName: ExtractLongName(field),
		Index:    index,
		Raw:      field,
	}
	unit, err := ExtractUnit(field)
	if err != nil {
		return d, err
	}
	name, err := ExtractDisplayName(field)
	if err != nil {
		return d, err
	}
	d.Unit = unit
	d.DisplayName = name
	return d, nil
}
