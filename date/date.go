// Package date provides a calendar date with day granularity, used for
// purchase dates and ex-dividend dates.
package date

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

// compactFormat is the exchange query format (YYYYMMDD).
const compactFormat = "20060102"

// slashFormat is the OTC exchange query format (YYYY/MM/DD).
const slashFormat = "2006/01/02"

const Day = 24 * time.Hour

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Of returns the calendar day of t in t's location.
func Of(t time.Time) Date { return New(t.Date()) }

// Today returns the current date.
func Today() Date { return Of(time.Now()) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int { return d.time().Compare(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return New(d.y, d.m, d.d+i) }

func (d Date) Year() int             { return d.y }
func (d Date) Month() time.Month     { return d.m }
func (d Date) Day() int              { return d.d }
func (d Date) Time() time.Time       { return d.time() }
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// String format the date in its standard format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// Compact formats the date as YYYYMMDD.
func (d Date) Compact() string { return d.time().Format(compactFormat) }

// Slashed formats the date as YYYY/MM/DD.
func (d Date) Slashed() string { return d.time().Format(slashFormat) }

// Parse parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, strings.TrimSpace(str))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return Of(on), nil
}

// lenientLayouts are tried in order by ParseAny.
var lenientLayouts = []string{
	readDateFormat,
	"2006/1/2",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	compactFormat,
}

// ParseAny parses dates written by older data files: ISO days, slashed days,
// full timestamps or compact days. Timestamps are converted to UTC first.
func ParseAny(str string) (Date, error) {
	str = strings.TrimSpace(str)
	for _, layout := range lenientLayouts {
		if on, err := time.Parse(layout, str); err == nil {
			return Of(on.UTC()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", str)
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements the json specific way to unmarshall a date from a json string.
func (j *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	if str == "" {
		*j = Date{}
		return nil
	}
	d, err := ParseAny(str)
	if err != nil {
		return err
	}
	*j = d
	return nil
}

func (j Date) MarshalJSON() ([]byte, error) {
	if j.IsZero() {
		return json.Marshal("")
	}
	str := j.String()
	return json.Marshal(&str)
}

// MarshalText and UnmarshalText let encoders other than encoding/json (msgpack, yaml) store dates as strings.
func (j Date) MarshalText() ([]byte, error) {
	if j.IsZero() {
		return []byte{}, nil
	}
	return []byte(j.String()), nil
}

func (j *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*j = Date{}
		return nil
	}
	d, err := ParseAny(string(text))
	if err != nil {
		return err
	}
	*j = d
	return nil
}

// MarshalBinary and UnmarshalBinary are used by binary encoders such as msgpack.
func (j Date) MarshalBinary() ([]byte, error) { return j.MarshalText() }

func (j *Date) UnmarshalBinary(data []byte) error { return j.UnmarshalText(data) }

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
