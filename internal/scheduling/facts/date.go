package facts

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// dateLayout is the wire format for civil dates in configuration files.
const dateLayout = "2006-01-02"

// Date is a civil calendar date with no time zone attached. The zero
// value is invalid; construct dates with NewDate, ParseDate or Today.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate constructs a Date. Out-of-range components are normalised the
// same way time.Date normalises them.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Today returns the current civil date in the given location.
func Today(loc *time.Location) Date {
	return DateOf(time.Now(), loc)
}

// DateOf returns the civil date of an instant in the given location.
func DateOf(t time.Time, loc *time.Location) Date {
	t = t.In(loc)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Midnight returns the start of the day in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Next returns the following calendar date.
func (d Date) Next() Date {
	return d.AddDays(1)
}

// Weekday returns the lowercase English weekday name, the form used by
// the day_of_week condition field.
func (d Date) Weekday() string {
	return strings.ToLower(d.Midnight(time.UTC).Weekday().String())
}

// DaysSinceEpoch returns the number of whole days since 1970-01-01.
func (d Date) DaysSinceEpoch() int64 {
	return d.Midnight(time.UTC).Unix() / (24 * 60 * 60)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// At resolves a wall-clock time of day on this date in loc to an
// absolute instant. Times falling inside a DST gap resolve forward to
// the shifted instant; ambiguous times during a fold take the earlier
// of the two instants.
func (d Date) At(hour, minute, second int, loc *time.Location) time.Time {
	t := time.Date(d.Year, d.Month, d.Day, hour, minute, second, 0, loc)
	// time.Date picks an unspecified side of a fold, and which side
	// varies with the zone's base offset. Probe one hour back: if the
	// clock reads the same, the wall time is ambiguous and the earlier
	// instant wins.
	if earlier := t.Add(-time.Hour); earlier.Hour() == t.Hour() && earlier.Minute() == t.Minute() {
		return earlier
	}
	return t
}

// UnmarshalYAML decodes a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as a YYYY-MM-DD scalar.
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}
