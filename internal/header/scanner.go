package header

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// serialPattern matches the logger serial on a metadata or column line.
var serialPattern = regexp.MustCompile(`(?:LGR S/N: |Serial Number: ?)(\d+)`)

// Options controls a header scan.
type Options struct {
	MapOptions

	// MaxLines stops the scan after this many lines. 0 means unbounded.
	MaxLines int
}

// Result is the outcome of a successful scan.
type Result struct {
	Identity   InstrumentIdentity
	ColumnLine string
	Headers    []string
	Mapping    ChannelMapping
	LinesRead  int
}

// ScanState is the explicit state of a header scan. Feed it one line at a
// time with Step until Step reports done.
type ScanState struct {
	Identity   InstrumentIdentity
	ColumnLine string
	Headers    []string
	Mapping    ChannelMapping
	LinesRead  int

	opts       MapOptions
	titleSeen  bool
	serialSeen bool
	done       bool
}

// NewScanState returns a state ready for the first line.
func NewScanState(opts MapOptions) *ScanState {
	return &ScanState{
		Mapping: NewChannelMapping(),
		opts:    opts,
	}
}

// Step consumes one line without its line terminator. It returns true once
// line is the column definition line; further calls are no-ops.
func (s *ScanState) Step(line string) (bool, error) {
	if s.done {
		return true, nil
	}
	s.LinesRead++

	if !s.titleSeen {
		s.titleSeen = true
		s.Identity.TitleKey, s.Identity.TitleValue = splitTitle(line)
	}

	if !s.serialSeen {
		if m := serialPattern.FindStringSubmatch(line); m != nil {
			s.Identity.SerialNumber = m[1]
			s.serialSeen = true
		}
	}

	fields, ok := parseRecord(line)
	if !ok || FindTimestamp(fields) < 0 {
		return false, nil
	}

	mapping, err := MapColumns(fields, s.opts)
	if err != nil {
		return false, err
	}
	s.Mapping = mapping
	s.Headers = fields
	s.ColumnLine = line
	s.done = true
	return true, nil
}

// Result returns the scan outcome. It is only meaningful once Step has
// returned true.
func (s *ScanState) Result() *Result {
	return &Result{
		Identity:   s.Identity,
		ColumnLine: s.ColumnLine,
		Headers:    s.Headers,
		Mapping:    s.Mapping,
		LinesRead:  s.LinesRead,
	}
}

// Scan reads lines from r until the column definition line. It never reads
// past that line, so r is left positioned at the first data row.
//
// If r is exhausted first, Scan returns a *HeaderNotFoundError. Scanning an
// already exhausted reader returns the same error immediately.
func Scan(r *bufio.Reader, opts Options) (*Result, error) {
	state := NewScanState(opts.MapOptions)

	for {
		if opts.MaxLines > 0 && state.LinesRead >= opts.MaxLines {
			return nil, &HeaderNotFoundError{LinesRead: state.LinesRead, Limit: opts.MaxLines}
		}

		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header line %d: %w", state.LinesRead+1, err)
		}
		if line == "" && err != nil {
			return nil, &HeaderNotFoundError{LinesRead: state.LinesRead}
		}

		done, stepErr := state.Step(strings.TrimRight(line, "\r\n"))
		if stepErr != nil {
			return nil, fmt.Errorf("header line %d: %w", state.LinesRead, stepErr)
		}
		if done {
			return state.Result(), nil
		}
		if err != nil {
			return nil, &HeaderNotFoundError{LinesRead: state.LinesRead}
		}
	}
}

// splitTitle splits the first line on its first colon. CSV quoting and
// trailing empty cells are dropped from both halves.
func splitTitle(line string) (key, value string) {
	line = strings.TrimRight(strings.TrimSpace(line), ",")
	k, v, _ := strings.Cut(line, ":")
	return cleanTitle(k), cleanTitle(v)
}

func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// parseRecord parses line as a single CSV record.
func parseRecord(line string) ([]string, bool) {
	if strings.TrimSpace(line) == "" {
		return nil, false
	}
	cr := csv.NewReader(strings.NewReader(line))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		return nil, false
	}
	return fields, true
}
