package header

import (
	"errors"
	"fmt"
)

// ErrHeaderNotFound is returned when the input ends before a column
// definition line with a timestamp marker is found.
var ErrHeaderNotFound = errors.New("header not found: no column definition line with a timestamp marker")

// ErrMalformedField is the sentinel wrapped by MalformedFieldError.
var ErrMalformedField = errors.New("malformed header field")

// HeaderNotFoundError carries how far the scan got before giving up.
type HeaderNotFoundError struct {
	LinesRead int

	// Limit is the configured line cap that stopped the scan, 0 if the input
	// was exhausted.
	Limit int
}

func (e *HeaderNotFoundError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%v (stopped after %d lines, limit %d)", ErrHeaderNotFound, e.LinesRead, e.Limit)
	}
	return fmt.Sprintf("%v (read %d lines)", ErrHeaderNotFound, e.LinesRead)
}

func (e *HeaderNotFoundError) Unwrap() error { return ErrHeaderNotFound }

// MalformedFieldError reports a header field that lacks the delimiter an
// extraction step requires.
type MalformedFieldError struct {
	Field string
	Part  string // "unit" or "display name"
	Slot  string // channel slot being resolved, empty outside classification
}

func (e *MalformedFieldError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("malformed header field %q: no %s for %s channel", e.Field, e.Part, e.Slot)
	}
	return fmt.Sprintf("malformed header field %q: no %s", e.Field, e.Part)
}

func (e *MalformedFieldError) Unwrap() error { return ErrMalformedField }
