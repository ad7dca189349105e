package header

import (
	"errors"
	"log/slog"
)

// MapOptions controls column classification.
type MapOptions struct {
	// Strict fails classification on a matched field that cannot be
	// decomposed. Otherwise the field is kept with an empty unit and its
	// long name as display name.
	Strict bool

	// Keywords overrides the classification table. Nil uses Keywords.
	Keywords []Keyword

	Logger *slog.Logger
}

// FindTimestamp returns the position of the first field carrying a
// timestamp marker, or -1.
func FindTimestamp(headers []string) int {
	for i, field := range headers {
		if isTimestampField(field) {
			return i
		}
	}
	return -1
}

// MapColumns classifies one parsed header record into channel slots.
//
// Phases run in order over the whole record, and each match overwrites the
// slot, so the last matching field of the last matching phase wins. A record
// with a primary and a fallback temperature field therefore resolves to the
// fallback one. Unmatched slots stay empty.
func MapColumns(headers []string, opts MapOptions) (ChannelMapping, error) {
	m := NewChannelMapping()
	if i := FindTimestamp(headers); i >= 0 {
		m.TimestampIndex = i
		m.TimestampField = headers[i]
	}

	keywords := opts.Keywords
	if keywords == nil {
		keywords = Keywords
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, phase := range []Phase{PhasePrimary, PhaseFallback} {
		for i, field := range headers {
			for _, slot := range Slots() {
				if !matches(keywords, field, slot, phase) {
					continue
				}
				d, err := Describe(field, i)
				if err != nil {
					var mfe *MalformedFieldError
					if errors.As(err, &mfe) {
						mfe.Slot = slot.String()
					}
					if opts.Strict {
						return m, err
					}
					logger.Warn("header: malformed channel field, using long name",
						"slot", slot.String(),
						"field", field,
						"error", err,
					)
					d.Unit = ""
					d.DisplayName = d.LongName
				}
				m.Set(slot, d)
			}
		}
	}

	return m, nil
}
