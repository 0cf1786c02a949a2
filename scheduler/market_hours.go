package scheduler

import "time"

// Session is the daily trading window of an exchange.
type Session struct {
	Location *time.Location
	Open     time.Duration // since midnight
	Close    time.Duration // since midnight
	// Settle extends the window after the close, while the day's closing
	// prices are being published.
	Settle time.Duration
}

// taipei has no daylight saving time.
var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

// TaiwanSession is the regular session of TWSE and TPEx, 09:00 to 13:30.
var TaiwanSession = Session{
	Location: taipei,
	Open:     9 * time.Hour,
	Close:    13*time.Hour + 30*time.Minute,
	Settle:   time.Hour,
}

// IsOpen reports whether t falls on a weekday within the session, settlement included.
// Exchange holidays are not known and count as trading days.
func (s Session) IsOpen(t time.Time) bool {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	since := t.Sub(midnight)
	return since >= s.Open && since <= s.Close+s.Settle
}
