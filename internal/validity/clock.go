package validity

import (
	"regexp"
	"strconv"
	"time"
)

var utcOffsetExpr = regexp.MustCompile(`utc\s*([+-]\d{1,2})(?::?(\d{2}))?`)

// clock is a time of day read from text. Unset parts resolve toward the end
// of the day so an announcement is never expired early.
type clock struct {
	hour, minute, second int
}

// readClock turns captured hour/minute strings into a clock. When neither is
// present the result is 23:59 with the given second.
func readClock(hour, minute string, bareSecond int) clock {
	if hour == "" && minute == "" {
		return clock{hour: 23, minute: 59, second: bareSecond}
	}

	c := clock{hour: 23, minute: 59}
	if h, err := strconv.Atoi(hour); err == nil {
		c.hour = h
	}
	if m, err := strconv.Atoi(minute); err == nil {
		c.minute = m
	}
	if c.hour < 0 || c.hour > 23 {
		c.hour = 23
	}
	if c.minute < 0 || c.minute > 59 {
		c.minute = 59
	}
	return c
}

func (c clock) on(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, c.hour, c.minute, c.second, 0, loc)
}

func (c clock) onDay(day time.Time) time.Time {
	return c.on(day.Year(), day.Month(), day.Day(), day.Location())
}

// validDate reports whether year-month-day names a real calendar day.
func validDate(year int, month time.Month, day int) bool {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return false
	}
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return t.Day() == day && t.Month() == month
}

// nextWeekday returns the first day on or after from that falls on wd.
func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, delta)
}

// utcOffset finds an expression like "utc-3" or "utc+05:30" and returns the
// offset in seconds.
func utcOffset(text string) (int, bool) {
	m := utcOffsetExpr.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < -14 || hours > 14 {
		return 0, false
	}
	seconds := hours * 3600
	if m[2] != "" {
		minutes, err := strconv.Atoi(m[2])
		if err != nil || minutes > 59 {
			return 0, false
		}
		if m[1][0] == '-' {
			seconds -= minutes * 60
		} else {
			seconds += minutes * 60
		}
	}
	return seconds, true
}

// reinterpret keeps the wall clock of t, reads it in the given UTC offset and
// converts the result to loc.
func reinterpret(t time.Time, offsetSeconds int, loc *time.Location) time.Time {
	zone := time.FixedZone("", offsetSeconds)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, zone).In(loc)
}
