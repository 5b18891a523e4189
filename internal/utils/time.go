package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// Clock abstracts "now" so judgement and recording can be tested against a fixed day.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the venue time zone.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns T. Tests move it forward with Advance.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// DayBounds returns the first and last instant of t's calendar day in t's location.
// The end is inclusive at microsecond precision, which is what the stores persist.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Microsecond)
	return start, end
}

// CalendarDate drops the time of day, keeping the date as seen in t's location.
// The result is midnight UTC so dates compare independent of zone.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StoredDate normalises a date column read back from the database, which is midnight UTC.
func StoredDate(t time.Time) time.Time {
	return CalendarDate(t.UTC())
}

// ParseDate parses YYYY-MM-DD into a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// LoadLocation resolves a zone name; "" and "Local" mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
