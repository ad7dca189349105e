package table

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// gmtOffsetPattern matches the zone annotation of a timestamp header,
// e.g. "Date Time, GMT-05:00".
var gmtOffsetPattern = regexp.MustCompile(`GMT\s*([+-])(\d{1,2}):?(\d{2})?`)

var (
	monthFirstDates2 = []string{"1/2/06", "1-2-06", "1.2.06"}
	monthFirstDates4 = []string{"1/2/2006", "1-2-2006", "1.2.2006"}
	dayFirstDates2   = []string{"2/1/06", "2-1-06", "2.1.06"}
	dayFirstDates4   = []string{"2/1/2006", "2-1-2006", "2.1.2006"}
	isoDates         = []string{"2006-01-02", "2006/01/02"}
	clockLayouts     = []string{"3:04:05 PM", "15:04:05", "3:04 PM", "15:04"}
	fullLayouts      = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"}
)

// TimeParser converts data row timestamps into times.
type TimeParser struct {
	loc           *time.Location
	fourDigit     []string
	twoDigit      []string
	pivotFromYear int
}

// NewTimeParser returns a parser for timestamps written in loc. dayFirst
// selects dd/mm/yy over mm/dd/yy for slash, dash and dot separated dates.
func NewTimeParser(loc *time.Location, dayFirst bool) *TimeParser {
	if loc == nil {
		loc = time.UTC
	}
	d2, d4 := monthFirstDates2, monthFirstDates4
	if dayFirst {
		d2, d4 = dayFirstDates2, dayFirstDates4
	}

	p := &TimeParser{
		loc:           loc,
		pivotFromYear: time.Now().Year() + TwoDigitYearPivot,
	}
	p.fourDigit = append(p.fourDigit, fullLayouts...)
	p.fourDigit = append(p.fourDigit, combine(isoDates, clockLayouts)...)
	p.fourDigit = append(p.fourDigit, combine(d4, clockLayouts)...)
	p.fourDigit = append(p.fourDigit, isoDates...)
	p.fourDigit = append(p.fourDigit, d4...)
	p.twoDigit = append(p.twoDigit, combine(d2, clockLayouts)...)
	p.twoDigit = append(p.twoDigit, d2...)
	return p
}

func combine(dates, clocks []string) []string {
	out := make([]string, 0, len(dates)*len(clocks))
	for _, d := range dates {
		for _, c := range clocks {
			out = append(out, d+" "+c)
		}
	}
	return out
}

// Parse parses s. ok is false when no layout matches.
func (p *TimeParser) Parse(s string) (time.Time, bool) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range p.fourDigit {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	for _, layout := range p.twoDigit {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			if t.Year() > p.pivotFromYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// LocationFromHeader returns the fixed zone named in a timestamp header
// such as "Date Time, GMT-05:00". ok is false when the header has none.
func LocationFromHeader(field string) (*time.Location, bool) {
	m := gmtOffsetPattern.FindStringSubmatch(field)
	if m == nil {
		return nil, false
	}
	hours, err := strconv.Atoi(m[2])
	if err != nil || hours > 14 {
		return nil, false
	}
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	offset := hours*3600 + minutes*60
	if m[1] == "-" {
		offset = -offset
	}
	name := "GMT" + m[1] + m[2]
	if len(m[2]) == 1 {
		name = "GMT" + m[1] + "0" + m[2]
	}
	if m[3] != "" {
		name += ":" + m[3]
	} else {
		name += ":00"
	}
	return time.FixedZone(name, offset), true
}
