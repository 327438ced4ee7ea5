package activity

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in some location's calendar.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its day, month and year as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t, time.UTC), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// DateRange is the pair of instants the user picked. Nothing orders Start
// before End; an inverted range simply matches no days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days normalizes both ends of r to calendar days in loc.
func (r DateRange) Days(loc *time.Location) DayRange {
	return DayRange{Start: DateOf(r.Start, loc), End: DateOf(r.End, loc)}
}

// DayRange selects every daily summary between Start and End, both inclusive.
type DayRange struct {
	Start Date
	End   Date
}

func (r DayRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !r.End.Before(d)
}

func (r DayRange) Empty() bool {
	return r.End.Before(r.Start)
}

func (r DayRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// DateComponents are the day fields a host store attaches to a summary.
// A zero field means the component is unavailable.
type DateComponents struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

func ComponentsOf(d Date) DateComponents {
	return DateComponents{Year: d.Year, Month: int(d.Month), Day: d.Day}
}

// Date reports false when any of day, month or year is missing.
func (c DateComponents) Date() (Date, bool) {
	if c.Year == 0 || c.Month == 0 || c.Day == 0 {
		return Date{}, false
	}
	return Date{Year: c.Year, Month: time.Month(c.Month), Day: c.Day}, true
}
